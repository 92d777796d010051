package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phishwatch/phishwatch/pkg/config"
)

var calibrateConfigFile string

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Load the model and report its resolved polarity",
	Long: `Load the model bundle and resolve which class index means
"phishing", using the configured override, bundle metadata or the
synthetic-URL auto-probe.

Useful after deploying a new bundle to confirm the polarity the
service will run with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(calibrateConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		p, err := buildPipeline(cfg)
		if err != nil {
			return err
		}

		bundle, err := p.loader.Bundle(context.Background())
		if err != nil {
			return fmt.Errorf("loading model bundle: %v", err)
		}

		fmt.Printf("Model type:     %s\n", bundle.ModelType)
		fmt.Printf("Feature count:  %d\n", len(bundle.FeatureCols))
		fmt.Printf("Threshold:      %.2f\n", bundle.DecisionThreshold())

		source := "auto-probe"
		switch {
		case cfg.Model.Polarity != "":
			source = "explicit config"
		case bundle.PhishIsPositive != nil:
			source = "bundle metadata"
		}

		phishPositive := p.polarity.PhishIsPositive(bundle)
		fmt.Printf("Polarity:       phish_is_positive=%v (%s)\n", phishPositive, source)
		return nil
	},
}

func init() {
	calibrateCmd.Flags().StringVarP(&calibrateConfigFile, "config", "c", "", "Configuration file path")
}
