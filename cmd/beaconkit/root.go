package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/beaconkit/config"
	"github.com/vinayprograms/beaconkit/logging"
	"github.com/vinayprograms/beaconkit/transport"
)

var (
	configPath string
	logLevel   string
	natsURL    string
)

var rootCmd = &cobra.Command{
	Use:   "beaconkit",
	Short: "One-to-many UDP state broadcasting",
	Long: `beaconkit broadcasts periodic state beacons to every listener on the
local network and collects their acknowledgments.

A publisher sends a JSON beacon every few seconds; listeners deduplicate
by message id, acknowledge each new beacon back to its sender, and exit
after a configured runtime or message count with a session summary.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: DEBUG, INFO, WARN or ERROR")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats", "", "carry beacons over a NATS server instead of UDP broadcast")
}

// loadConfig reads the config file (or defaults) and applies the log level.
func loadConfig() (*config.File, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	name := cfg.Log.Level
	if logLevel != "" {
		name = logLevel
	}
	if name != "" {
		level, ok := logging.ParseLevel(name)
		if !ok {
			return nil, fmt.Errorf("unknown log level %q", name)
		}
		logging.SetDefaultLevel(level)
	}
	return cfg, nil
}

// natsBeaconSubject is the shared subject beacons fan out on when --nats
// is set. Each publisher receives acks on its own subject.
const natsBeaconSubject = "beacons.state"

// natsEndpoint opens a NATS-carried beacon endpoint when --nats is set.
func natsEndpoint(name, subject string) (*transport.NATSEndpoint, error) {
	ncfg := transport.DefaultNATSConfig()
	ncfg.URL = natsURL
	ncfg.Name = name
	ncfg.Subject = subject
	return transport.NewNATSEndpoint(ncfg)
}
