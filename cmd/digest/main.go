// Command digest builds the daily 104 job digest.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-job-digest/internal/config"
	"go-job-digest/internal/pipeline"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "digest",
	Short:         "104 daily job digest",
	Long:          "Fetches 104 job postings, filters and scores them against a rule file, and delivers the new ones as files, LINE/Telegram messages and spreadsheet rows.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML settings file (optional)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		if errors.Is(err, pipeline.ErrSinkFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
