package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phishwatch/phishwatch/pkg/config"
)

var (
	checkConfigFile string
	checkAsText     bool
	checkJSON       bool
)

var checkCmd = &cobra.Command{
	Use:   "check [input]",
	Short: "Classify a URL or text from the command line",
	Long: `Classify a single URL (default) or message text.

Example usage:
  # Check a URL
  phishwatch check http://paypa1-secure.com/login

  # Check message text
  phishwatch check --text "URGENT: verify your account now"

  # Machine-readable output
  phishwatch check --json http://example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(checkConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		p, err := buildPipeline(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if checkAsText {
			res, err := p.texts.Analyze(ctx, args[0])
			if err != nil {
				return err
			}
			if checkJSON {
				return json.NewEncoder(os.Stdout).Encode(res)
			}
			fmt.Printf("Label:      %s\n", res.Label)
			fmt.Printf("Confidence: %.2f\n", res.Confidence)
			fmt.Printf("Urgency:    %s\n", res.Indicators.UrgencyLevel)
			fmt.Printf("Indicators: %d active (%.1f%%)\n",
				res.Indicators.IndicatorCount, res.Indicators.IndicatorPercentage)
			return nil
		}

		res, err := p.urls.Analyze(ctx, args[0])
		if err != nil {
			return err
		}
		if checkJSON {
			return json.NewEncoder(os.Stdout).Encode(res)
		}
		fmt.Printf("Label:      %s\n", res.Label)
		fmt.Printf("Method:     %s\n", res.DetectionMethod)
		fmt.Printf("Confidence: %.2f (%s)\n", res.Score, res.ConfidenceLevel)
		fmt.Printf("P(phish):   %.3f\n", res.PhishingProbability)
		fmt.Printf("Reason:     %s\n", res.Explanation)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkConfigFile, "config", "c", "", "Configuration file path")
	checkCmd.Flags().BoolVarP(&checkAsText, "text", "t", false, "Treat input as message text instead of a URL")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Emit JSON output")
}
