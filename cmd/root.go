package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "phishwatch",
	Short: "PhishWatch - phishing URL and email classifier",
	Long: `PhishWatch classifies URLs and message text as phishing or legitimate.

URLs run through a layered cascade: known-URL lists, known-host lists,
homoglyph detection, typosquat detection and finally a trained model.
Text runs through a transformer backend (or rule-based fallback) with
indicator-based confidence adjustment.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("PhishWatch - phishing classifier")
		fmt.Println("Use 'phishwatch --help' for usage information")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(milterCmd)
}
