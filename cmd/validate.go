package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and print the effective values",
		Long: `Resolve configuration exactly as "run" would (defaults, config file,
environment, flags), validate it and print the result as YAML.

Examples:
  ttlmangle validate -c /etc/ttlmangle/config.yml
  DP_BUFFER_SIZE=1024 ttlmangle validate --engine afpacket`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("INVALID: %w", err)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "# VALID")
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	addOverrideFlags(cmd.Flags())
	return cmd
}
