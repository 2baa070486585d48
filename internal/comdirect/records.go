package comdirect

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
)

// TANProcedureType identifies how a TAN challenge is delivered and confirmed.
type TANProcedureType string

// TAN procedure types known to the API.
const (
	TANTypeMobile    TANProcedureType = "M_TAN"
	TANTypePhoto     TANProcedureType = "P_TAN"
	TANTypePhotoPush TANProcedureType = "P_TAN_PUSH"
	TANTypePhotoApp  TANProcedureType = "P_TAN_APP"
)

// LoginData holds the primary credentials. It is supplied at construction and
// never mutated.
type LoginData struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

// Valid reports whether all four credential fields are present.
func (l LoginData) Valid() bool {
	return l.Username != "" && l.Password != "" && l.ClientID != "" && l.ClientSecret != ""
}

// AuthRecord is one OAuth token set, either primary (banking) or secondary
// (brokerage/transactional). Every field is optional in the response; a
// record missing its access token still parses but is not usable.
type AuthRecord struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`

	// Bank-specific subject identifiers.
	KDNR      string `json:"kdnr"`
	BPID      string `json:"bpid"`
	KontaktID string `json:"kontaktId"`
}

// Usable reports whether the record carries an access token.
func (a AuthRecord) Usable() bool { return a.AccessToken != "" }

// parseAuthRecord decodes a token endpoint response. On malformed input the
// target record is left untouched.
func parseAuthRecord(data []byte, rec *AuthRecord) error {
	var parsed AuthRecord
	if err := json.Unmarshal(data, &parsed); err != nil {
		return errParse("token response", err)
	}
	*rec = parsed
	return nil
}

// SessionObject is the server-side session handle. The identifier is opaque,
// at most 40 characters.
type SessionObject struct {
	Identifier       string `json:"identifier"`
	SessionTANActive bool   `json:"sessionTanActive"`
	Activated2FA     bool   `json:"activated2FA"`
}

// Ready reports whether the session carries an identifier.
func (s SessionObject) Ready() bool { return s.Identifier != "" }

// parseSessionObject decodes a session response. The endpoints are not
// consistent about the outer shape: session creation answers with a
// single-element array, TAN activation with a bare object. Both are accepted.
// On malformed input the target is left untouched.
func parseSessionObject(data []byte, obj *SessionObject) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errParse("session response", errors.New("empty body"))
	}

	var parsed SessionObject
	if trimmed[0] == '[' {
		var list []SessionObject
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return errParse("session response", err)
		}
		if len(list) == 0 {
			return errParse("session response", errors.New("empty session array"))
		}
		parsed = list[0]
	} else {
		if err := json.Unmarshal(trimmed, &parsed); err != nil {
			return errParse("session response", err)
		}
	}
	*obj = parsed
	return nil
}

// body is the JSON the validate and activate endpoints expect, asserting the
// session-TAN flags the handshake is about to establish.
func (s SessionObject) body() ([]byte, error) {
	return json.Marshal(map[string]any{
		"identifier":       s.Identifier,
		"sessionTanActive": true,
		"activated2FA":     true,
	})
}

// TANChallenge is one challenge instance issued by the validate endpoint. It
// is valid from a successful validate call until the next activation attempt
// and must never be reused.
type TANChallenge struct {
	ID             string           `json:"id"`
	Typ            TANProcedureType `json:"typ"`
	Challenge      string           `json:"challenge"`
	AvailableTypes []string         `json:"availableTypes"`
}

// parseTANChallenge decodes the challenge from the x-once-authentication-info
// response header value. id and typ are required; challenge and
// availableTypes are optional. On failure the previously-held challenge is
// untouched.
func parseTANChallenge(header string, ch *TANChallenge) error {
	if header == "" {
		return errParse("TAN challenge", errors.New("missing "+headerOnceAuthInfo+" header"))
	}
	var parsed TANChallenge
	if err := json.Unmarshal([]byte(header), &parsed); err != nil {
		return errParse("TAN challenge", err)
	}
	if parsed.ID == "" {
		return errParse("TAN challenge", errors.New("missing id"))
	}
	if parsed.Typ == "" {
		return errParse("TAN challenge", errors.New("missing typ"))
	}
	*ch = parsed
	return nil
}

// onceAuthInfo builds the x-once-authentication-info request header value
// referencing this challenge for activation.
func (c TANChallenge) onceAuthInfo() (string, error) {
	data, err := json.Marshal(map[string]string{"id": c.ID})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Image returns the decoded photo-TAN image bytes. It returns nil for
// procedures that carry no image payload. Rendering is the host's concern.
func (c TANChallenge) Image() []byte {
	if c.Typ != TANTypePhoto || c.Challenge == "" {
		return nil
	}
	img, err := base64.StdEncoding.DecodeString(c.Challenge)
	if err != nil {
		return nil
	}
	return img
}
