package comdirect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// transactionPageSize is the paging-count sent with every transaction query.
const transactionPageSize = 100

// FetchTransactions queries the transaction list of every known account
// concurrently and joins the results into one pool. It returns once every
// account has reported back; per-account failures are collected and joined
// into the returned error, while transactions from the accounts that
// succeeded are kept.
//
// Requires a prior FetchBalances to have populated the account list.
func (c *Client) FetchTransactions(ctx context.Context) ([]AccountTransaction, error) {
	c.mu.Lock()
	if c.connection != Connected || !c.authSecondary.Usable() {
		c.mu.Unlock()
		return nil, errBadState("fetch transactions")
	}
	if len(c.accounts) == 0 {
		c.mu.Unlock()
		return nil, errBadState("fetch transactions: no accounts known")
	}
	accounts := make([]Account, len(c.accounts))
	copy(accounts, c.accounts)
	token := c.authSecondary.AccessToken
	c.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		pool []AccountTransaction
	)
	errs := make([]error, len(accounts))

	for i, acct := range accounts {
		wg.Add(1)
		go func(i int, acct Account) {
			defer wg.Done()
			txs, err := c.fetchAccountTransactions(ctx, token, acct.AccountID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[i] = fmt.Errorf("account %s: %w", acct.AccountID, err)
				return
			}
			pool = append(pool, txs...)
		}(i, acct)
	}
	wg.Wait()

	c.mu.Lock()
	c.transactions = append(c.transactions, pool...)
	c.mu.Unlock()

	return pool, errors.Join(errs...)
}

func (c *Client) fetchAccountTransactions(ctx context.Context, token, accountID string) ([]AccountTransaction, error) {
	u := c.baseURL + pathTransactions + url.PathEscape(accountID) + "/transactions" +
		"?paging-count=" + fmt.Sprint(transactionPageSize)
	req, rerr := c.bearerRequest(ctx, http.MethodGet, u, token, nil)
	if rerr != nil {
		return nil, rerr
	}
	data, _, callErr := c.do(req)
	if callErr != nil {
		return nil, callErr
	}
	txs, err := parseTransactions(data)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].AccountID = accountID
	}
	return txs, nil
}
