package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/annettschwarze/comdirect-go/internal/comdirect"
	"github.com/annettschwarze/comdirect-go/internal/config"
	"github.com/annettschwarze/comdirect-go/internal/logging"
	"github.com/spf13/cobra"
)

var fetchFlags struct {
	tanType   string
	imagePath string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Authenticate and fetch balances and transactions",
	Long: `Run the full authentication handshake (including the session-TAN step),
then fetch account balances and all account transactions into the local
cache.

The TAN is read from stdin. For push procedures, confirm the login in the
banking app and press enter.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchFlags.tanType, "tan-type", "", "preferred TAN procedure (M_TAN, P_TAN, P_TAN_PUSH, P_TAN_APP)")
	fetchCmd.Flags().StringVar(&fetchFlags.imagePath, "tan-image", "", "write a photo-TAN challenge image to this file")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := comdirect.NewClient(comdirect.LoginData{
		Username:     cfg.Username,
		Password:     cfg.Password,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, comdirect.Config{
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Logger:     logger,
		OnStateChange: func(s comdirect.StateChange) {
			logger.Debug("state change",
				logging.Connection(s.Connection.String()),
				logging.Process(s.Process.String()),
				logging.Active(s.Active.String()))
		},
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := authenticate(ctx, client); err != nil {
		return err
	}

	accounts, err := client.FetchBalances(ctx)
	if err != nil {
		return fmt.Errorf("fetching balances: %w", err)
	}
	logger.Info("fetched accounts", logging.Count(len(accounts)))

	txs, txErr := client.FetchTransactions(ctx)
	if txErr != nil {
		// Partial results are still worth keeping; report which accounts
		// failed after saving what we have.
		logger.Warn("some transaction queries failed", logging.Component("aggregator"))
	}
	logger.Info("fetched transactions", logging.Count(len(txs)))

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ReplaceAccounts(accounts); err != nil {
		return fmt.Errorf("caching accounts: %w", err)
	}
	saved, err := s.SaveTransactions(txs)
	if err != nil {
		return fmt.Errorf("caching transactions: %w", err)
	}
	fmt.Printf("Fetched %d accounts and %d transactions (%d new).\n", len(accounts), len(txs), saved)

	return txErr
}

// authenticate walks the token/session/TAN handshake. This layer owns the
// provider's lockout limits: it refuses to request a challenge or submit an
// activation that could lock the account.
func authenticate(ctx context.Context, client *comdirect.Client) error {
	if err := client.RequestPrimaryToken(ctx); err != nil {
		return fmt.Errorf("requesting primary token: %w", err)
	}
	if !client.PrimaryAuth().Usable() {
		return errors.New("login rejected: no access token issued")
	}
	if err := client.CreateSession(ctx); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	if client.PendingTANChallenges() >= comdirect.MaxPendingTANChallenges {
		return errors.New("too many unconsumed TAN challenges; log in on the website to reset the counter")
	}
	var preferred *comdirect.TANProcedureType
	if fetchFlags.tanType != "" {
		typ := comdirect.TANProcedureType(fetchFlags.tanType)
		preferred = &typ
	}
	challenge, err := client.RequestTANChallenge(ctx, preferred)
	if err != nil {
		return fmt.Errorf("requesting TAN challenge: %w", err)
	}
	logger.Info("TAN challenge received", logging.TANType(string(challenge.Typ)))

	if img := challenge.Image(); img != nil && fetchFlags.imagePath != "" {
		if err := os.WriteFile(fetchFlags.imagePath, img, 0o600); err != nil {
			return fmt.Errorf("writing TAN image: %w", err)
		}
		fmt.Printf("Photo-TAN image written to %s\n", fetchFlags.imagePath)
	}

	tan, err := promptTAN(challenge)
	if err != nil {
		return err
	}
	if err := client.SubmitTANInput(comdirect.Done, tan); err != nil {
		return fmt.Errorf("submitting TAN input: %w", err)
	}

	if client.WrongTANActivations() >= comdirect.MaxWrongTANActivations {
		return errors.New("too many rejected TANs; log in on the website to reset the counter")
	}
	if err := client.ActivateSessionTAN(ctx); err != nil {
		if errors.Is(err, comdirect.ErrActivationUnverified) {
			// The TAN was accepted; only the response was unreadable. Safe to
			// report without burning an attempt.
			return fmt.Errorf("session activated but unverified: %w", err)
		}
		return fmt.Errorf("activating session TAN: %w", err)
	}
	if err := client.RequestSecondaryToken(ctx); err != nil {
		return fmt.Errorf("requesting secondary token: %w", err)
	}
	return nil
}

func promptTAN(challenge comdirect.TANChallenge) (string, error) {
	if challenge.Typ == comdirect.TANTypePhotoPush {
		fmt.Println("Confirm the login in your banking app, then press enter.")
		reader := bufio.NewReader(os.Stdin)
		if _, err := reader.ReadString('\n'); err != nil {
			return "", fmt.Errorf("reading confirmation: %w", err)
		}
		return "", nil
	}

	fmt.Printf("Enter TAN (%s): ", challenge.Typ)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading TAN: %w", err)
	}
	tan := strings.TrimSpace(line)
	if tan == "" {
		return "", errors.New("empty TAN")
	}
	return tan, nil
}
