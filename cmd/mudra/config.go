package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Long: `Print the configuration after defaults, the config file and the
environment have been merged. The output is a valid config file.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := cfg.TOML()
	if err != nil {
		return err
	}
	if cfg.Source != "" {
		fmt.Printf("# loaded from %s\n", cfg.Source)
	}
	_, err = os.Stdout.Write(out)
	return err
}
