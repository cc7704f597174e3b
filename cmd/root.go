// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"firestige.xyz/ttlmangle/internal/config"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "ttlmangle",
		Short: "Rewrite the IPv4 TTL of live traffic and re-inject it",
		Long: `ttlmangle captures frames on one network interface, sets the IPv4 TTL of every
datagram to 88, recomputes the header checksum and sends the frame back out on the
same interface. Frames that already carry TTL 88 are never retransmitted, so the
tool does not process its own output.

Configuration precedence: flags > environment (TTLMANGLE_*, DP_*) > config file > defaults.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"config file path (optional)")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newValidateCmd(opts))
	rootCmd.AddCommand(newDevicesCmd())
	return rootCmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() error {
	return NewRootCommand().Execute()
}

// addOverrideFlags registers the flags config.Load binds over file and env values.
// Defaults shown in help are the built-in ones; an unchanged flag never overrides.
func addOverrideFlags(fs *pflag.FlagSet) {
	def := config.Default()
	fs.StringP("interface", "i", "", "network interface (default: first non-loopback device with an address)")
	fs.StringP("filter", "f", def.Capture.Filter, "BPF capture filter")
	fs.String("engine", def.Capture.Engine, "capture engine: pcap or afpacket")
	fs.String("link-type", def.Capture.LinkType.String(), "link framing: auto, ethernet or raw")
	fs.Int("buffer-size", def.Relay.BufferSize, "relay queue capacity in frames")
	fs.String("log-level", def.Log.Level, "log level: trace, debug, info, warn, error")
	fs.Bool("metrics", def.Metrics.Enabled, "serve Prometheus metrics")
	fs.String("metrics-listen", def.Metrics.Listen, "metrics listen address")
	fs.Duration("stats-interval", def.Stats.Interval, "periodic stats log interval, 0 disables")
}

func (o *rootOptions) load(fs *pflag.FlagSet) (*config.Config, error) {
	return config.Load(o.configFile, fs)
}
