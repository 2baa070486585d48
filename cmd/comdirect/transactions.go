package main

import (
	"fmt"

	"github.com/annettschwarze/comdirect-go/internal/config"
	"github.com/spf13/cobra"
)

var transactionsFlags struct {
	account string
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List cached transactions",
	Long:  `List transactions from the local cache, newest first. Run fetch first to populate it.`,
	RunE:  runTransactions,
}

func init() {
	rootCmd.AddCommand(transactionsCmd)

	transactionsCmd.Flags().StringVar(&transactionsFlags.account, "account", "", "only show transactions of this account id")
}

func runTransactions(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	txs, err := s.ListTransactions(transactionsFlags.account)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}
	if len(txs) == 0 {
		fmt.Println("No cached transactions. Run 'comdirect fetch' first.")
		return nil
	}

	for _, t := range txs {
		holder := t.HolderName
		if holder == "" {
			holder = "-"
		}
		fmt.Printf("%-10s %9s %-4s %-28s %s\n",
			t.BookingDate, t.AmountValue, t.AmountUnit, holder, t.RemittanceInfo)
	}
	return nil
}
