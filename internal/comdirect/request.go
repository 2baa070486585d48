package comdirect

import (
	"context"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.comdirect.de"

const (
	pathToken        = "/oauth/token"
	pathSessions     = "/api/session/clients/user/v1/sessions"
	pathBalances     = "/api/banking/clients/user/v2/accounts/balances"
	pathTransactions = "/api/banking/v1/accounts/"

	headerOnceAuthInfo = "x-once-authentication-info"
	headerOnceAuth     = "x-once-authentication"
	headerRequestInfo  = "x-http-request-info"

	mimeJSON = "application/json"
	mimeForm = "application/x-www-form-urlencoded"
)

// tokenRequest builds a token-grant request: a form-encoded POST with no
// bearer token and no correlation id.
func (c *Client) tokenRequest(ctx context.Context, params map[string]string) (*http.Request, *Error) {
	body := encodeForm(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathToken, strings.NewReader(body))
	if err != nil {
		return nil, errInternal("build token request", err)
	}
	req.Header.Set("Accept", mimeJSON)
	req.Header.Set("Content-Type", mimeForm)
	return req, nil
}

// bearerRequest builds a session-bearing or REST-bearing request: JSON in and
// out, an Authorization bearer token, and the x-http-request-info correlation
// header. The request must fail here, before anything is sent, if the
// correlation id cannot be produced.
func (c *Client) bearerRequest(ctx context.Context, method, url, token string, body []byte) (*http.Request, *Error) {
	c.mu.Lock()
	info, err := c.corr.next()
	c.mu.Unlock()
	if err != nil {
		return nil, errInternal("build client request id", err)
	}

	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errInternal("build request", err)
	}
	req.Header.Set("Accept", mimeJSON)
	req.Header.Set("Content-Type", mimeJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(headerRequestInfo, info)
	return req, nil
}

// do executes a request and classifies the outcome. The body is returned even
// for non-2xx responses; callers decide whether a payload alongside an HTTP
// error is worth parsing.
func (c *Client) do(req *http.Request) ([]byte, http.Header, *Error) {
	c.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.Error(err))
		return nil, nil, errTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, errTransport(err)
	}

	c.logger.Debug("response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, resp.Header, errHTTPStatus(resp.StatusCode, nil)
	}
	return data, resp.Header, nil
}
