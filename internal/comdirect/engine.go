package comdirect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// Lockout ceilings mandated by the provider: requesting a fifth TAN challenge
// without consuming one, or submitting a third wrong TAN, locks online access
// to the account. The engine only counts; the calling layer must refuse the
// risky call.
const (
	MaxPendingTANChallenges = 4
	MaxWrongTANActivations  = 2
)

// Config carries the collaborators a Client needs. Zero values select the
// production endpoint, http.DefaultClient and a nop logger.
type Config struct {
	BaseURL       string
	HTTPClient    *http.Client
	Logger        *zap.Logger
	OnStateChange func(StateChange)
}

// Client drives the comdirect authentication/session/TAN handshake and the
// subsequent account queries. Operations must be invoked in protocol order;
// an operation whose precondition is unmet is rejected with a BadState error
// before any network traffic.
//
// All mutable protocol state is owned by the Client and guarded by one mutex;
// methods are safe for concurrent use, with the Doing gate ensuring only one
// top-level operation is in flight at a time.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	onState func(StateChange)

	mu            sync.Mutex
	connection    ConnectionState
	process       ProcessState
	active        ActiveState
	login         LoginData
	auth          AuthRecord
	authSecondary AuthRecord
	session       SessionObject
	challenge     TANChallenge
	challengeHeld bool
	tanInput      string
	corr          correlation

	pendingChallenges int
	wrongActivations  int

	accounts     []Account
	transactions []AccountTransaction
}

// NewClient creates a client for the given credentials. The credentials are
// validated on first use, not here.
func NewClient(login LoginData, cfg Config) *Client {
	c := &Client{
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
		onState: cfg.OnStateChange,
		login:   login,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// State returns the current state triad.
func (c *Client) State() StateChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Session returns a copy of the current session object.
func (c *Client) Session() SessionObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// PrimaryAuth returns a copy of the primary token record.
func (c *Client) PrimaryAuth() AuthRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth
}

// SecondaryAuth returns a copy of the secondary token record.
func (c *Client) SecondaryAuth() AuthRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authSecondary
}

// Accounts returns the account list from the last balances fetch.
func (c *Client) Accounts() []Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// Transactions returns the pooled transactions accumulated so far.
func (c *Client) Transactions() []AccountTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AccountTransaction, len(c.transactions))
	copy(out, c.transactions)
	return out
}

// PendingTANChallenges counts challenges requested but not yet consumed by a
// successful activation.
func (c *Client) PendingTANChallenges() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingChallenges
}

// WrongTANActivations counts activation attempts the server rejected.
func (c *Client) WrongTANActivations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrongActivations
}

func (c *Client) snapshotLocked() StateChange {
	return StateChange{Connection: c.connection, Process: c.process, Active: c.active}
}

// markBeginLocked enters a protocol phase. The returned snapshot must be
// emitted via notify after the lock is released.
func (c *Client) markBeginLocked(p ProcessState) StateChange {
	c.process = p
	c.active = Doing
	return c.snapshotLocked()
}

func (c *Client) markEndLocked(ok bool) StateChange {
	if ok {
		c.active = Done
	} else {
		c.active = Failed
	}
	return c.snapshotLocked()
}

func (c *Client) notify(s StateChange) {
	if c.onState != nil {
		c.onState(s)
	}
}

// RequestPrimaryToken performs the OAuth2 password grant for the primary
// (banking) token. On success the client is connected.
func (c *Client) RequestPrimaryToken(ctx context.Context) error {
	c.mu.Lock()
	if c.connection == Connected || c.active == Doing || !c.login.Valid() {
		c.mu.Unlock()
		return errBadState("request primary token")
	}
	sc := c.markBeginLocked(ProcessGetAuthToken)
	params := map[string]string{
		"client_id":     c.login.ClientID,
		"client_secret": c.login.ClientSecret,
		"grant_type":    "password",
		"username":      c.login.Username,
		"password":      c.login.Password,
	}
	c.mu.Unlock()
	c.notify(sc)

	req, rerr := c.tokenRequest(ctx, params)
	if rerr != nil {
		return c.failPrimary(rerr)
	}
	data, _, callErr := c.do(req)

	var perr error
	c.mu.Lock()
	if len(data) > 0 {
		perr = parseAuthRecord(data, &c.auth)
	}
	ok := callErr == nil && perr == nil && c.auth.Usable()
	if ok {
		c.connection = Connected
	} else {
		c.connection = Disconnected
	}
	sc = c.markEndLocked(ok)
	c.mu.Unlock()
	c.notify(sc)

	if callErr != nil {
		return callErr
	}
	return perr
}

func (c *Client) failPrimary(e *Error) error {
	c.mu.Lock()
	c.connection = Disconnected
	sc := c.markEndLocked(false)
	c.mu.Unlock()
	c.notify(sc)
	return e
}

// CreateSession retrieves the server-side session handle. Requires a
// completed primary token grant.
func (c *Client) CreateSession(ctx context.Context) error {
	c.mu.Lock()
	if c.process != ProcessGetAuthToken || c.active != Done {
		c.mu.Unlock()
		return errBadState("create session")
	}
	sc := c.markBeginLocked(ProcessGetSession)
	token := c.auth.AccessToken
	c.mu.Unlock()
	c.notify(sc)

	req, rerr := c.bearerRequest(ctx, http.MethodGet, c.baseURL+pathSessions, token, nil)
	if rerr != nil {
		return c.fail(rerr)
	}
	data, _, callErr := c.do(req)

	var perr error
	c.mu.Lock()
	if callErr == nil {
		perr = parseSessionObject(data, &c.session)
	}
	sc = c.markEndLocked(callErr == nil && perr == nil && c.session.Ready())
	c.mu.Unlock()
	c.notify(sc)

	if callErr != nil {
		return callErr
	}
	return perr
}

// RequestTANChallenge validates the session, which makes the server issue a
// TAN challenge. The challenge arrives in a response header, not the body. A
// preferred procedure type may be requested; the server is free to ignore it.
//
// Every successful call leaves one more unconsumed challenge on the account;
// see MaxPendingTANChallenges.
func (c *Client) RequestTANChallenge(ctx context.Context, preferred *TANProcedureType) (TANChallenge, error) {
	c.mu.Lock()
	if c.process != ProcessGetSession || c.active != Done || !c.session.Ready() {
		c.mu.Unlock()
		return TANChallenge{}, errBadState("request TAN challenge")
	}
	sc := c.markBeginLocked(ProcessValidateSessionTAN)
	session := c.session
	token := c.auth.AccessToken
	c.mu.Unlock()
	c.notify(sc)

	// A malformed preferred type fails the step before anything is sent; the
	// inconsistent source behavior is not preserved.
	var preferredHeader string
	if preferred != nil {
		if *preferred == "" {
			return TANChallenge{}, c.fail(errInternal("empty preferred TAN procedure type", nil))
		}
		data, err := json.Marshal(map[string]string{"typ": string(*preferred)})
		if err != nil {
			return TANChallenge{}, c.fail(errInternal("encode preferred TAN procedure type", err))
		}
		preferredHeader = string(data)
	}

	body, err := session.body()
	if err != nil {
		return TANChallenge{}, c.fail(errInternal("encode session body", err))
	}
	url := c.baseURL + pathSessions + "/" + session.Identifier + "/validate"
	req, rerr := c.bearerRequest(ctx, http.MethodPost, url, token, body)
	if rerr != nil {
		return TANChallenge{}, c.fail(rerr)
	}
	if preferredHeader != "" {
		req.Header.Set(headerOnceAuthInfo, preferredHeader)
	}
	_, header, callErr := c.do(req)

	var perr error
	var out TANChallenge
	c.mu.Lock()
	if callErr == nil {
		perr = parseTANChallenge(header.Get(headerOnceAuthInfo), &c.challenge)
		if perr == nil {
			c.challengeHeld = true
			c.pendingChallenges++
			out = c.challenge
		}
	}
	sc = c.markEndLocked(callErr == nil && perr == nil)
	c.mu.Unlock()
	c.notify(sc)

	if callErr != nil {
		return TANChallenge{}, callErr
	}
	if perr != nil {
		return TANChallenge{}, perr
	}
	return out, nil
}

// SubmitTANInput records the user's TAN entry and moves the client into the
// user-interaction phase. It may be called once to start the interaction
// (state Doing) and again to update the pending input while it is ongoing,
// finishing with state Done once the user confirms. For push procedures the
// tan argument is left empty.
func (c *Client) SubmitTANInput(state ActiveState, tan string) error {
	c.mu.Lock()
	ok := (c.process == ProcessValidateSessionTAN && c.active == Done) ||
		(c.process == ProcessUserInteractionTAN && c.active == Doing)
	if !ok {
		c.mu.Unlock()
		return errBadState("submit TAN input")
	}
	c.tanInput = tan
	c.process = ProcessUserInteractionTAN
	c.active = state
	sc := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(sc)
	return nil
}

// ActivateSessionTAN submits the held challenge and TAN to activate the
// session. The challenge is consumed by this call whatever the outcome; a
// second activation needs a fresh challenge from RequestTANChallenge.
//
// A rejected TAN counts toward the provider's wrong-TAN lockout; see
// MaxWrongTANActivations. If the activation itself succeeds but the response
// body is unreadable, the returned error wraps ErrActivationUnverified and
// the attempt is not counted.
func (c *Client) ActivateSessionTAN(ctx context.Context) error {
	c.mu.Lock()
	if c.process != ProcessUserInteractionTAN || c.active != Done || !c.challengeHeld {
		c.mu.Unlock()
		return errBadState("activate session TAN")
	}
	if c.challenge.Typ != TANTypePhotoPush && c.tanInput == "" {
		c.mu.Unlock()
		return errBadState("activate session TAN: procedure requires a TAN")
	}
	sc := c.markBeginLocked(ProcessActivateSessionTAN)
	c.challengeHeld = false
	challenge := c.challenge
	tan := c.tanInput
	session := c.session
	token := c.auth.AccessToken
	c.mu.Unlock()
	c.notify(sc)

	onceInfo, err := challenge.onceAuthInfo()
	if err != nil {
		return c.fail(errInternal("encode TAN challenge reference", err))
	}
	body, err := session.body()
	if err != nil {
		return c.fail(errInternal("encode session body", err))
	}
	url := c.baseURL + pathSessions + "/" + session.Identifier
	req, rerr := c.bearerRequest(ctx, http.MethodPatch, url, token, body)
	if rerr != nil {
		return c.fail(rerr)
	}
	req.Header.Set(headerOnceAuthInfo, onceInfo)
	if challenge.Typ != TANTypePhotoPush {
		req.Header.Set(headerOnceAuth, tan)
	}
	data, _, callErr := c.do(req)

	c.mu.Lock()
	if callErr != nil {
		if callErr.Kind == KindHTTPStatus {
			c.wrongActivations++
		}
		sc = c.markEndLocked(false)
		c.mu.Unlock()
		c.notify(sc)
		return callErr
	}
	perr := parseSessionObject(data, &c.session)
	if perr != nil {
		// The server accepted the TAN; only our view of the session is stale.
		sc = c.markEndLocked(false)
		c.mu.Unlock()
		c.notify(sc)
		return errParse("activate session TAN", fmt.Errorf("%w: %w", ErrActivationUnverified, perr))
	}
	c.pendingChallenges = 0
	c.wrongActivations = 0
	sc = c.markEndLocked(true)
	c.mu.Unlock()
	c.notify(sc)
	return nil
}

// RequestSecondaryToken exchanges the primary token for the secondary
// (brokerage/transactional) token via the cd_secondary grant. Requires a
// completed TAN activation.
func (c *Client) RequestSecondaryToken(ctx context.Context) error {
	c.mu.Lock()
	if c.connection != Connected || c.active != Done ||
		c.process != ProcessActivateSessionTAN || !c.auth.Usable() {
		c.mu.Unlock()
		return errBadState("request secondary token")
	}
	sc := c.markBeginLocked(ProcessGetAuthTokenSecondary)
	params := map[string]string{
		"client_id":     c.login.ClientID,
		"client_secret": c.login.ClientSecret,
		"grant_type":    "cd_secondary",
		"token":         c.auth.AccessToken,
	}
	c.mu.Unlock()
	c.notify(sc)

	req, rerr := c.tokenRequest(ctx, params)
	if rerr != nil {
		return c.fail(rerr)
	}
	data, _, callErr := c.do(req)

	var perr error
	c.mu.Lock()
	if len(data) > 0 {
		perr = parseAuthRecord(data, &c.authSecondary)
	}
	sc = c.markEndLocked(callErr == nil && perr == nil && c.authSecondary.Usable())
	c.mu.Unlock()
	c.notify(sc)

	if callErr != nil {
		return callErr
	}
	return perr
}

// RefreshSecondaryToken renews the secondary token through the refresh
// grant. It is transparent to the surrounding flow: the (processState,
// activeState) pair in effect before the call is restored afterwards,
// whether the refresh succeeded or not.
func (c *Client) RefreshSecondaryToken(ctx context.Context) error {
	c.mu.Lock()
	if c.connection != Connected || c.active == Doing {
		c.mu.Unlock()
		return errBadState("refresh secondary token")
	}
	prevProcess, prevActive := c.process, c.active
	sc := c.markBeginLocked(ProcessRefreshTokenSecondary)
	params := map[string]string{
		"client_id":     c.login.ClientID,
		"client_secret": c.login.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": c.authSecondary.RefreshToken,
	}
	c.mu.Unlock()
	c.notify(sc)

	restore := func() {
		c.mu.Lock()
		c.process = prevProcess
		c.active = prevActive
		sc := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(sc)
	}

	req, rerr := c.tokenRequest(ctx, params)
	if rerr != nil {
		restore()
		return rerr
	}
	data, _, callErr := c.do(req)

	var perr error
	c.mu.Lock()
	if len(data) > 0 {
		perr = parseAuthRecord(data, &c.authSecondary)
	}
	c.mu.Unlock()
	restore()

	if callErr != nil {
		return callErr
	}
	return perr
}

// FetchBalances retrieves the account list. It is a REST operation on the
// secondary token and does not advance the handshake state.
func (c *Client) FetchBalances(ctx context.Context) ([]Account, error) {
	c.mu.Lock()
	if c.connection != Connected || !c.authSecondary.Usable() {
		c.mu.Unlock()
		return nil, errBadState("fetch balances")
	}
	token := c.authSecondary.AccessToken
	c.mu.Unlock()

	req, rerr := c.bearerRequest(ctx, http.MethodGet, c.baseURL+pathBalances, token, nil)
	if rerr != nil {
		return nil, rerr
	}
	data, _, callErr := c.do(req)
	if callErr != nil {
		return nil, callErr
	}

	accounts, perr := parseAccounts(data)
	if perr != nil {
		return nil, perr
	}
	c.mu.Lock()
	c.accounts = accounts
	c.mu.Unlock()
	return accounts, nil
}

// fail marks the current phase failed and returns e unchanged.
func (c *Client) fail(e *Error) error {
	c.mu.Lock()
	sc := c.markEndLocked(false)
	c.mu.Unlock()
	c.notify(sc)
	return e
}
