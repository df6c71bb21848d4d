package cli

import (
	"github.com/spf13/cobra"

	"github.com/gekko3d/articulated"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective solver configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	}
}

// configFromFlags loads --config when set and falls back to the defaults.
func configFromFlags(cmd *cobra.Command) (articulated.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return articulated.DefaultConfig(), nil
	}
	loggerFromContext(cmd.Context()).Debugf("loading config from %s", path)
	return articulated.LoadConfig(path)
}
