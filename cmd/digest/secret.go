package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go-job-digest/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials stored in the OS keychain",
	Long: fmt.Sprintf("Accounts: %s, %s, %s, or imap:<user>@<host>. Environment variables always win over the keychain.",
		secrets.AccountLINEToken, secrets.AccountTelegramToken, secrets.AccountJobAPIToken),
}

var secretSetCmd = &cobra.Command{
	Use:   "set <account>",
	Short: "Store a secret read from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		//read from stdin so the value never lands in shell history
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read secret: %w", err)
		}
		if err := secrets.Set(args[0], strings.TrimSpace(line)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🔐 Stored %s\n", args[0])
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <account>",
	Short: "Remove a secret from the keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🗑️ Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}
