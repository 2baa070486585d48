package comdirect

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// correlation produces the sessionId/requestId pair the API requires in the
// x-http-request-info header to tie a sequence of calls to one logical
// session attempt.
type correlation struct {
	sessionID string
	now       func() time.Time
}

type clientRequestID struct {
	SessionID string `json:"sessionId"`
	RequestID string `json:"requestId"`
}

type requestInfo struct {
	ClientRequestID clientRequestID `json:"clientRequestId"`
}

// next returns the x-http-request-info header value for one request. The
// sessionId is generated once and reused for the lifetime of the correlation;
// the requestId is derived from the current wall clock on every call.
func (c *correlation) next() (string, error) {
	if c.sessionID == "" {
		c.sessionID = newSessionID()
	}
	requestID := c.requestID()
	if c.sessionID == "" || requestID == "" {
		return "", fmt.Errorf("incomplete client request id (sessionId=%q requestId=%q)", c.sessionID, requestID)
	}
	info := requestInfo{ClientRequestID: clientRequestID{
		SessionID: c.sessionID,
		RequestID: requestID,
	}}
	data, err := json.Marshal(info)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// requestID is a 9-digit string of the current time at millisecond
// granularity (HHmmssSSS).
func (c *correlation) requestID() string {
	now := time.Now()
	if c.now != nil {
		now = c.now()
	}
	return now.Format("150405") + fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
}

// newSessionID derives a 32-hex-character session id from a random UUID.
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
