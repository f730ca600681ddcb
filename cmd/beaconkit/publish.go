package main

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vinayprograms/beaconkit/beacon"
	"github.com/vinayprograms/beaconkit/logging"
	"github.com/vinayprograms/beaconkit/publisher"
	"github.com/vinayprograms/beaconkit/shutdown"
	"github.com/vinayprograms/beaconkit/transport"
)

var (
	publishPort       int
	publishClientPort int
	publishBroadcast  string
	publishInterval   float64
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Broadcast state beacons until interrupted",
	Long: `Broadcast a JSON state beacon to the local network on a fixed interval,
cycling through ACTIVE, STANDBY, MAINTENANCE and ERROR, and log listener
acknowledgments as they arrive.

Examples:
  beaconkit publish
  beaconkit publish --interval 1 --broadcast 192.168.1.255
  beaconkit publish --nats nats://localhost:4222`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().IntVar(&publishPort, "port", 0, "local port to send from and receive acks on")
	publishCmd.Flags().IntVar(&publishClientPort, "client-port", 0, "broadcast destination port listeners bind")
	publishCmd.Flags().StringVar(&publishBroadcast, "broadcast", "", "broadcast IP (default: discovered from interfaces)")
	publishCmd.Flags().Float64Var(&publishInterval, "interval", 0, "seconds between beacons")
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if publishPort != 0 {
		cfg.Publisher.Port = publishPort
	}
	if publishClientPort != 0 {
		cfg.Publisher.ClientPort = publishClientPort
	}
	if publishBroadcast != "" {
		cfg.Publisher.BroadcastIP = publishBroadcast
	}
	if publishInterval > 0 {
		cfg.Publisher.IntervalSeconds = publishInterval
	}

	log := logging.New().WithComponent("publish")
	coord := shutdown.NewCoordinator(0)
	coord.HandleSignals()
	ctx := coord.Context(context.Background())

	pcfg := publisher.DefaultConfig()
	pcfg.Interval = cfg.Publisher.Interval()

	if natsURL != "" {
		// The endpoint's own subject receives acks; beacons fan out on the
		// shared subject.
		ep, err := natsEndpoint("beaconkit-publisher", natsBeaconSubject+".pub."+uuid.NewString()[:8])
		if err != nil {
			return err
		}
		coord.RegisterFunc("nats endpoint", func(context.Context) error { return ep.Close() })
		pcfg.Beacons = ep
		pcfg.Acks = ep
		pcfg.BroadcastAddr = natsBeaconSubject
	} else {
		// One socket both broadcasts and reads acks. Listeners answer to
		// the beacon's source address, and SO_REUSEPORT hash-distributes
		// inbound datagrams across sockets sharing a port, so a second
		// never-read send socket would capture a share of the acks.
		ep, err := transport.NewUDPEndpoint(transport.UDPConfig{
			Port:            cfg.Publisher.Port,
			EnableBroadcast: true,
		})
		if err != nil {
			return err
		}
		coord.RegisterFunc("udp socket", func(context.Context) error {
			return ep.Close()
		})

		ip := cfg.Publisher.BroadcastIP
		if ip == "" {
			discovered, ok := transport.DiscoverBroadcastIP()
			if !ok {
				discovered = beacon.FallbackBroadcastIP
				log.Warn("no broadcast-capable interface found, using fallback", map[string]interface{}{
					"broadcast_ip": discovered,
				})
			}
			ip = discovered
		}

		pcfg.Beacons = ep
		pcfg.Acks = ep
		pcfg.BroadcastAddr = net.JoinHostPort(ip, fmt.Sprintf("%d", cfg.Publisher.ClientPort))
	}

	pub, err := publisher.New(pcfg)
	if err != nil {
		return err
	}
	if err := pub.Start(ctx); err != nil {
		return err
	}

	log.Info("publishing", map[string]interface{}{
		"broadcast": pcfg.BroadcastAddr,
		"interval":  pcfg.Interval.String(),
	})

	<-ctx.Done()
	<-coord.Done()
	return nil
}
