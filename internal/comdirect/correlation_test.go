package comdirect

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCorrelationSessionIDShape(t *testing.T) {
	var corr correlation

	header, err := corr.next()
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}

	var info requestInfo
	if err := json.Unmarshal([]byte(header), &info); err != nil {
		t.Fatalf("header is not valid JSON: %v", err)
	}

	sid := info.ClientRequestID.SessionID
	if len(sid) != 32 {
		t.Errorf("sessionId length = %d, want 32", len(sid))
	}
	for _, c := range sid {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("sessionId contains non-hex character: %c", c)
		}
	}
}

func TestCorrelationSessionIDStable(t *testing.T) {
	var corr correlation

	first, err := corr.next()
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	second, err := corr.next()
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}

	var a, b requestInfo
	if err := json.Unmarshal([]byte(first), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(second), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.ClientRequestID.SessionID != b.ClientRequestID.SessionID {
		t.Errorf("sessionId changed between requests: %q vs %q",
			a.ClientRequestID.SessionID, b.ClientRequestID.SessionID)
	}
}

func TestCorrelationRequestID(t *testing.T) {
	corr := correlation{
		now: func() time.Time {
			return time.Date(2023, 4, 5, 9, 7, 3, 42*int(time.Millisecond), time.UTC)
		},
	}
	if got := corr.requestID(); got != "090703042" {
		t.Errorf("requestID = %q, want %q", got, "090703042")
	}
	if len(corr.requestID()) != 9 {
		t.Errorf("requestID length = %d, want 9", len(corr.requestID()))
	}
}
