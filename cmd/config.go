package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phishwatch/phishwatch/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Generate and manage PhishWatch configuration files`,
}

var configGenCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := "config.yaml"
		if len(args) > 0 {
			configPath = args[0]
		}

		if _, err := os.Stat(configPath); err == nil {
			overwrite, _ := cmd.Flags().GetBool("force")
			if !overwrite {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
			}
		}

		if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
			return fmt.Errorf("failed to save config: %v", err)
		}

		fmt.Printf("✅ Configuration file generated: %s\n", configPath)
		fmt.Printf("🚀 Use 'phishwatch serve --config %s' to start the server\n", configPath)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := args[0]

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("❌ configuration validation failed: %v", err)
		}

		fmt.Printf("✅ Configuration is valid: %s\n", configPath)
		fmt.Printf("\n📊 Summary:\n")
		fmt.Printf("  Server:     %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Printf("  Model:      %s", cfg.Model.Path)
		if cfg.Model.URL != "" {
			fmt.Printf(" (registry fallback: %s)", cfg.Model.URL)
		}
		fmt.Println()
		fmt.Printf("  Phish URLs: %s\n", cfg.Lists.URLFile)
		fmt.Printf("  Legit URLs: %s\n", cfg.Lists.LegitURLFile)
		fmt.Printf("  Host list:  %s\n", cfg.Lists.HostFile)
		fmt.Printf("  Redis:      enabled=%v\n", cfg.Lists.Redis.Enabled)
		fmt.Printf("  Milter:     enabled=%v\n", cfg.Milter.Enabled)
		return nil
	},
}

func init() {
	configGenCmd.Flags().BoolP("force", "f", false, "Overwrite existing config file")
	configCmd.AddCommand(configGenCmd)
	configCmd.AddCommand(configValidateCmd)
}
