package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phishwatch/phishwatch/pkg/config"
	"github.com/phishwatch/phishwatch/pkg/server"
)

const version = "1.0.0"

var (
	serveConfigFile string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction HTTP server",
	Long: `Start the PhishWatch HTTP server.

Endpoints:
  GET  /              health and loaded-module status
  POST /predict       classify message text
  POST /predict-url   classify a single URL
  POST /predict-batch classify a list of URLs or texts
  POST /evaluate      score labeled samples

Example usage:
  # Start with default config
  phishwatch serve

  # Start with custom config and port
  phishwatch serve --config /etc/phishwatch/config.yaml --port 9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(serveConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		p, err := buildPipeline(cfg)
		if err != nil {
			return err
		}

		status := server.StatusInfo{
			Service:     "phishwatch",
			Version:     version,
			TextBackend: p.classifier.Name(),
			ModelPath:   cfg.Model.Path,
			ModelURL:    cfg.Model.URL,
			Modules:     []string{"url", "text", "lists", "indicators"},
		}
		srv := server.New(cfg.Server, p.urls, p.texts, status, p.log)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		serverErr := make(chan error, 1)
		go func() {
			fmt.Printf("🎣 PhishWatch server starting on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("🚀 Press Ctrl+C to stop\n")
			serverErr <- srv.Listen()
		}()

		select {
		case <-sigChan:
			fmt.Printf("\n🛑 Shutdown signal received, stopping server...\n")
			if err := srv.Shutdown(); err != nil {
				return fmt.Errorf("shutdown failed: %v", err)
			}
			fmt.Printf("✅ Server stopped gracefully\n")
			return nil
		case err := <-serverErr:
			return err
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "c", "", "Configuration file path")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "HTTP listen port")
}
