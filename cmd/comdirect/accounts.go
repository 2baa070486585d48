package main

import (
	"fmt"

	"github.com/annettschwarze/comdirect-go/internal/config"
	"github.com/annettschwarze/comdirect-go/internal/store"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List cached accounts",
	Long:  `List the accounts from the local cache. Run fetch first to populate it.`,
	RunE:  runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	accounts, err := s.ListAccounts()
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}
	if len(accounts) == 0 {
		fmt.Println("No cached accounts. Run 'comdirect fetch' first.")
		return nil
	}

	for _, a := range accounts {
		fmt.Printf("%-24s %-4s %s\n", a.DisplayID, a.Currency, a.AccountTypeText)
	}
	return nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	s, err := store.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", cfg.CachePath, err)
	}
	return s, nil
}
