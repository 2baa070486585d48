package comdirect

import (
	"encoding/json"
)

// Account is one banking account from the balances response.
type Account struct {
	AccountID       string
	DisplayID       string
	Currency        string
	AccountTypeKey  string
	AccountTypeText string
}

// AccountTransaction is one ledger line. Transactions from all accounts are
// accumulated into one pool; AccountID records which account a line came
// from.
type AccountTransaction struct {
	AccountID           string
	Reference           string
	BookingDate         string
	ValutaDate          string
	AmountValue         string
	AmountUnit          string
	HolderName          string
	RemittanceInfo      string
	TransactionTypeKey  string
	TransactionTypeText string
}

type keyText struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

type accountPayload struct {
	AccountID        string  `json:"accountId"`
	AccountDisplayID string  `json:"accountDisplayId"`
	Currency         string  `json:"currency"`
	AccountType      keyText `json:"accountType"`
}

type balancesResponse struct {
	Values []struct {
		Account accountPayload `json:"account"`
	} `json:"values"`
}

// parseAccounts decodes the balances response into the account list.
func parseAccounts(data []byte) ([]Account, error) {
	var resp balancesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errParse("balances response", err)
	}
	accounts := make([]Account, 0, len(resp.Values))
	for _, v := range resp.Values {
		accounts = append(accounts, Account{
			AccountID:       v.Account.AccountID,
			DisplayID:       v.Account.AccountDisplayID,
			Currency:        v.Account.Currency,
			AccountTypeKey:  v.Account.AccountType.Key,
			AccountTypeText: v.Account.AccountType.Text,
		})
	}
	return accounts, nil
}

type holder struct {
	HolderName string `json:"holderName"`
}

type transactionPayload struct {
	Reference   string `json:"reference"`
	BookingDate string `json:"bookingDate"`
	ValutaDate  string `json:"valutaDate"`
	Amount      struct {
		Value string `json:"value"`
		Unit  string `json:"unit"`
	} `json:"amount"`
	// The counterparty appears under exactly one of these keys, depending on
	// the transaction direction. "deptor" is the provider's spelling.
	Deptor          *holder `json:"deptor"`
	Creditor        *holder `json:"creditor"`
	Remitter        *holder `json:"remitter"`
	RemittanceInfo  string  `json:"remittanceInfo"`
	TransactionType keyText `json:"transactionType"`
}

type transactionsResponse struct {
	Values []transactionPayload `json:"values"`
}

// parseTransactions decodes one account's transaction list response.
func parseTransactions(data []byte) ([]AccountTransaction, error) {
	var resp transactionsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errParse("transactions response", err)
	}
	txs := make([]AccountTransaction, 0, len(resp.Values))
	for _, v := range resp.Values {
		tx := AccountTransaction{
			Reference:           v.Reference,
			BookingDate:         v.BookingDate,
			ValutaDate:          v.ValutaDate,
			AmountValue:         v.Amount.Value,
			AmountUnit:          v.Amount.Unit,
			RemittanceInfo:      v.RemittanceInfo,
			TransactionTypeKey:  v.TransactionType.Key,
			TransactionTypeText: v.TransactionType.Text,
		}
		for _, h := range []*holder{v.Deptor, v.Creditor, v.Remitter} {
			if h != nil && h.HolderName != "" {
				tx.HolderName = h.HolderName
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
