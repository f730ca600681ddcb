package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/beaconkit/bridge"
	"github.com/vinayprograms/beaconkit/config"
	"github.com/vinayprograms/beaconkit/listener"
	"github.com/vinayprograms/beaconkit/serialpoll"
	"github.com/vinayprograms/beaconkit/shutdown"
	"github.com/vinayprograms/beaconkit/track"
	"github.com/vinayprograms/beaconkit/transport"
)

var (
	listenPort        int
	listenClientID    string
	listenMaxRuntime  float64
	listenMaxMessages int
	listenMQTT        bool
	listenSerial      bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Receive beacons until a session bound trips",
	Long: `Join the broadcast domain, process each distinct beacon exactly once,
acknowledge it back to the publisher, and print a JSON session summary
when the runtime or message bound is reached.

Examples:
  beaconkit listen
  beaconkit listen --max-runtime 60 --max-messages 10
  beaconkit listen --mqtt --config beaconkit.toml`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().IntVar(&listenPort, "port", 0, "broadcast port to bind")
	listenCmd.Flags().StringVar(&listenClientID, "client-id", "", "client id used in acknowledgments")
	listenCmd.Flags().Float64Var(&listenMaxRuntime, "max-runtime", 0, "seconds before the session exits (0 keeps the config value)")
	listenCmd.Flags().IntVar(&listenMaxMessages, "max-messages", 0, "beacon count before the session exits")
	listenCmd.Flags().BoolVar(&listenMQTT, "mqtt", false, "republish processed beacons to the configured MQTT broker")
	listenCmd.Flags().BoolVar(&listenSerial, "serial", false, "poll the configured serial device between beacons")
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenPort != 0 {
		cfg.Listener.Port = listenPort
	}
	if listenClientID != "" {
		cfg.Listener.ClientID = listenClientID
	}
	if listenMaxRuntime > 0 {
		cfg.Listener.MaxRuntimeSeconds = listenMaxRuntime
	}
	if listenMaxMessages > 0 {
		cfg.Listener.MaxMessages = listenMaxMessages
	}
	if listenMQTT {
		cfg.Bridge.Enabled = true
	}
	if listenSerial {
		cfg.Serial.Enabled = true
	}

	coord := shutdown.NewCoordinator(0)
	coord.HandleSignals()
	ctx := coord.Context(context.Background())
	defer coord.ShutdownWithTimeout(0)

	lst, _, err := buildListener(cfg, coord)
	if err != nil {
		return err
	}

	summary, err := lst.Run(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// buildListener wires the session from config: transport, state tracker,
// and the optional MQTT bridge and serial poller.
func buildListener(cfg *config.File, coord *shutdown.Coordinator) (*listener.Listener, *track.Tracker, error) {
	lcfg := listener.DefaultConfig()
	lcfg.ClientID = cfg.Listener.ClientID
	lcfg.MaxRuntime = cfg.Listener.MaxRuntime()
	lcfg.MaxMessages = cfg.Listener.MaxMessages
	lcfg.PollTimeout = cfg.Listener.PollTimeout()

	if natsURL != "" {
		ep, err := natsEndpoint("beaconkit-listener", natsBeaconSubject)
		if err != nil {
			return nil, nil, err
		}
		lcfg.Broadcasts = ep
	} else {
		// ReusePort lets several listener processes share the broadcast
		// port on one host.
		ep, err := transport.NewUDPEndpoint(transport.UDPConfig{
			Port:      cfg.Listener.Port,
			ReusePort: true,
		})
		if err != nil {
			return nil, nil, err
		}
		lcfg.Broadcasts = ep
	}

	trk := track.New()
	lcfg.Observers = append(lcfg.Observers, trk)

	if cfg.Bridge.Enabled {
		b, err := bridge.New(bridge.Options{
			BrokerURL: cfg.Bridge.BrokerURL,
			ClientID:  cfg.Bridge.ClientID,
			Topic:     cfg.Bridge.Topic,
			QoS:       byte(cfg.Bridge.QoS),
			Retained:  cfg.Bridge.Retained,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect mqtt bridge: %w", err)
		}
		coord.RegisterFunc("mqtt bridge", func(context.Context) error {
			b.Close()
			return nil
		})
		lcfg.Observers = append(lcfg.Observers, b)
	}

	if cfg.Serial.Enabled {
		poller := serialpoll.New(serialpoll.Config{
			Port:         cfg.Serial.Port,
			Baud:         cfg.Serial.Baud,
			PollInterval: cfg.Serial.PollInterval(),
		})
		coord.RegisterFunc("serial poller", func(context.Context) error {
			return poller.Close()
		})
		lcfg.OnTick = poller.TickFunc()
	}

	lst, err := listener.New(lcfg)
	if err != nil {
		return nil, nil, err
	}
	return lst, trk, nil
}
