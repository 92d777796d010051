package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phishwatch/phishwatch/pkg/config"
	"github.com/phishwatch/phishwatch/pkg/milter"
)

var (
	milterConfigFile string
	milterNetwork    string
	milterAddress    string
)

var milterCmd = &cobra.Command{
	Use:   "milter",
	Short: "Start milter server for Postfix/Sendmail integration",
	Long: `Start the PhishWatch milter server to scan mail in-line as the MTA
receives it. Messages get X-PhishWatch-* result headers; high-confidence
phishing is rejected at SMTP time.

Example usage:
  # Start with default config
  phishwatch milter

  # Start on a custom address
  phishwatch milter --network tcp --address 127.0.0.1:7357

For Postfix integration, add to main.cf:
  smtpd_milters = inet:127.0.0.1:7357
  non_smtpd_milters = inet:127.0.0.1:7357
  milter_default_action = accept`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(milterConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		if cmd.Flags().Changed("network") {
			cfg.Milter.Network = milterNetwork
		}
		if cmd.Flags().Changed("address") {
			cfg.Milter.Address = milterAddress
		}
		cfg.Milter.Enabled = true

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %v", err)
		}

		p, err := buildPipeline(cfg)
		if err != nil {
			return err
		}

		listener, err := net.Listen(cfg.Milter.Network, cfg.Milter.Address)
		if err != nil {
			return fmt.Errorf("failed to create listener: %v", err)
		}
		defer listener.Close()

		srv, err := milter.NewServer(cfg, p.urls, p.texts, p.log)
		if err != nil {
			return fmt.Errorf("failed to create milter server: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		serverErr := make(chan error, 1)
		go func() {
			fmt.Printf("🎣 PhishWatch milter starting on %s://%s\n",
				cfg.Milter.Network, cfg.Milter.Address)
			fmt.Printf("🎯 Rejecting phishing at confidence >= %.2f\n", cfg.Milter.RejectThreshold)
			fmt.Printf("🚀 Press Ctrl+C to stop\n\n")
			serverErr <- srv.Serve(ctx, listener)
		}()

		select {
		case <-sigChan:
			fmt.Printf("\n🛑 Shutdown signal received, stopping milter server...\n")
			cancel()

			shutdownTimer := time.After(10 * time.Second)
			select {
			case err := <-serverErr:
				if err != nil && err != context.Canceled {
					fmt.Printf("⚠️  Server shutdown with error: %v\n", err)
				} else {
					fmt.Printf("✅ Milter server stopped gracefully\n")
				}
			case <-shutdownTimer:
				fmt.Printf("⏰ Shutdown timeout exceeded, forcing stop\n")
				srv.Close()
			}
			return nil

		case err := <-serverErr:
			return err
		}
	},
}

func init() {
	milterCmd.Flags().StringVarP(&milterConfigFile, "config", "c", "", "Configuration file path")
	milterCmd.Flags().StringVar(&milterNetwork, "network", "tcp", "Listener network (tcp or unix)")
	milterCmd.Flags().StringVar(&milterAddress, "address", "127.0.0.1:7357", "Listener address")
}
