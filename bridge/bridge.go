package bridge

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vinayprograms/beaconkit/listener"
	"github.com/vinayprograms/beaconkit/logging"
)

const defaultTopic = "beacons/state"

// Options configures the broker connection and the publish target.
type Options struct {
	// BrokerURL is the broker address, e.g. tcp://localhost:1883.
	BrokerURL string

	// ClientID identifies this bridge to the broker.
	ClientID string

	// Topic receives the republished beacons. Defaults to beacons/state.
	Topic string

	// QoS is the MQTT quality-of-service level for publishes.
	QoS byte

	// Retained marks published messages as retained, so late subscribers
	// see the most recent beacon immediately.
	Retained bool

	// Logger defaults to a [bridge]-component logger.
	Logger *logging.Logger
}

// publisher is the slice of mqtt.Client the bridge uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Bridge forwards processed beacons to an MQTT topic. It implements
// listener.BeaconObserver.
type Bridge struct {
	client   publisher
	topic    string
	qos      byte
	retained bool
	log      *logging.Logger
}

// New connects to the broker and returns a ready bridge.
func New(opts Options) (*Bridge, error) {
	o := mqtt.NewClientOptions()
	o.AddBroker(opts.BrokerURL)
	o.SetClientID(opts.ClientID)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)

	client := mqtt.NewClient(o)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return newWithClient(client, opts), nil
}

func newWithClient(client publisher, opts Options) *Bridge {
	if opts.Topic == "" {
		opts.Topic = defaultTopic
	}
	log := opts.Logger
	if log == nil {
		log = logging.New().WithComponent("bridge")
	}
	return &Bridge{
		client:   client,
		topic:    opts.Topic,
		qos:      opts.QoS,
		retained: opts.Retained,
		log:      log,
	}
}

// BuildPayload serializes a record for the broker.
func BuildPayload(rec listener.Record) ([]byte, error) {
	return json.Marshal(rec)
}

// HandleBeacon implements listener.BeaconObserver. Failures are logged and
// dropped so the session is never disturbed.
func (b *Bridge) HandleBeacon(rec listener.Record) {
	payload, err := BuildPayload(rec)
	if err != nil {
		b.log.Error("failed to serialize record", map[string]interface{}{
			"message_id": rec.MessageID,
			"error":      err.Error(),
		})
		return
	}

	token := b.client.Publish(b.topic, b.qos, b.retained, payload)
	if token.Wait() && token.Error() != nil {
		b.log.Warn("publish failed", map[string]interface{}{
			"topic":      b.topic,
			"message_id": rec.MessageID,
			"error":      token.Error().Error(),
		})
		return
	}
	b.log.Debug("beacon republished", map[string]interface{}{
		"topic":      b.topic,
		"message_id": rec.MessageID,
	})
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}
