package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-job-digest/internal/config"
	"go-job-digest/internal/dedup"
	"go-job-digest/internal/normalize"
)

var seenFile string

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "Inspect the history of surfaced postings",
}

var seenCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print how many postings the history holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		set, err := loadSeen(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), set.Len())
		return nil
	},
}

var seenKeyCmd = &cobra.Command{
	Use:   "key <url>",
	Short: "Print the dedup key of a posting URL and whether it was seen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := normalize.Key(args[0])
		set, err := loadSeen(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tseen=%t\n", key, set.Contains(key))
		return nil
	},
}

func loadSeen(cmd *cobra.Command) (*dedup.SeenKeySet, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openHistory(cmd.Context(), cfg, seenFile)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return dedup.NewStore(store, nil).Load()
}

func init() {
	seenCmd.PersistentFlags().StringVar(&seenFile, "seen-file", "outputs/seen_job_keys.txt", "History of postings already surfaced")
	seenCmd.AddCommand(seenCountCmd, seenKeyCmd)
	rootCmd.AddCommand(seenCmd)
}
