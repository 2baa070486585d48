package comdirect

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestParseAuthRecord(t *testing.T) {
	var rec AuthRecord
	data := []byte(`{
		"access_token": "tok-1",
		"token_type": "bearer",
		"refresh_token": "ref-1",
		"expires_in": 599,
		"scope": "BANKING_RW",
		"kdnr": "0123456789",
		"bpid": "42",
		"kontaktId": "9000"
	}`)
	if err := parseAuthRecord(data, &rec); err != nil {
		t.Fatalf("parseAuthRecord failed: %v", err)
	}
	if rec.AccessToken != "tok-1" || rec.RefreshToken != "ref-1" || rec.ExpiresIn != 599 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.KDNR != "0123456789" || rec.KontaktID != "9000" {
		t.Errorf("subject identifiers not parsed: %+v", rec)
	}
	if !rec.Usable() {
		t.Error("record with access token should be usable")
	}
}

func TestParseAuthRecordMissingAccessToken(t *testing.T) {
	var rec AuthRecord
	if err := parseAuthRecord([]byte(`{"token_type":"bearer"}`), &rec); err != nil {
		t.Fatalf("missing fields should still parse: %v", err)
	}
	if rec.Usable() {
		t.Error("record without access token must not be usable")
	}
}

func TestParseAuthRecordGarbageLeavesRecord(t *testing.T) {
	rec := AuthRecord{AccessToken: "keep-me"}
	err := parseAuthRecord([]byte(`{"access_token": 12`), &rec)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !IsKind(err, KindParse) {
		t.Errorf("error kind = %v, want Parse", err)
	}
	if rec.AccessToken != "keep-me" {
		t.Errorf("record was partially overwritten: %+v", rec)
	}
}

func TestParseSessionObjectShapes(t *testing.T) {
	bare := []byte(`{"identifier":"S1","sessionTanActive":true,"activated2FA":false}`)
	wrapped := []byte(`[{"identifier":"S1","sessionTanActive":true,"activated2FA":false}]`)

	var fromBare, fromWrapped SessionObject
	if err := parseSessionObject(bare, &fromBare); err != nil {
		t.Fatalf("bare object: %v", err)
	}
	if err := parseSessionObject(wrapped, &fromWrapped); err != nil {
		t.Fatalf("wrapped array: %v", err)
	}
	if fromBare != fromWrapped {
		t.Errorf("shapes disagree: %+v vs %+v", fromBare, fromWrapped)
	}
	if !fromBare.Ready() || fromBare.Identifier != "S1" {
		t.Errorf("unexpected session: %+v", fromBare)
	}
}

func TestParseSessionObjectInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"empty array", "[]"},
		{"scalar", `"nope"`},
		{"garbage", "{"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			obj := SessionObject{Identifier: "prior"}
			err := parseSessionObject([]byte(tc.body), &obj)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !IsKind(err, KindParse) {
				t.Errorf("error kind = %v, want Parse", err)
			}
			if obj.Identifier != "prior" {
				t.Errorf("prior session overwritten: %+v", obj)
			}
		})
	}
}

func TestParseTANChallenge(t *testing.T) {
	var ch TANChallenge
	header := `{"id":"C9","typ":"P_TAN","challenge":"aGVsbG8=","availableTypes":["P_TAN","M_TAN"]}`
	if err := parseTANChallenge(header, &ch); err != nil {
		t.Fatalf("parseTANChallenge failed: %v", err)
	}
	if ch.ID != "C9" || ch.Typ != TANTypePhoto {
		t.Errorf("unexpected challenge: %+v", ch)
	}
	if len(ch.AvailableTypes) != 2 {
		t.Errorf("availableTypes = %v", ch.AvailableTypes)
	}
	if got := string(ch.Image()); got != "hello" {
		t.Errorf("Image = %q, want %q", got, "hello")
	}
}

func TestParseTANChallengeRequiredFields(t *testing.T) {
	for _, tc := range []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"missing id", `{"typ":"P_TAN"}`},
		{"missing typ", `{"id":"C9"}`},
		{"garbage", `{{`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			held := TANChallenge{ID: "old", Typ: TANTypeMobile}
			err := parseTANChallenge(tc.header, &held)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !IsKind(err, KindParse) {
				t.Errorf("error kind = %v, want Parse", err)
			}
			if held.ID != "old" || held.Typ != TANTypeMobile {
				t.Errorf("held challenge touched: %+v", held)
			}
		})
	}
}

func TestTANChallengeOptionalFields(t *testing.T) {
	var ch TANChallenge
	if err := parseTANChallenge(`{"id":"C1","typ":"P_TAN_PUSH"}`, &ch); err != nil {
		t.Fatalf("optional fields absent should parse: %v", err)
	}
	if ch.Challenge != "" || ch.AvailableTypes != nil {
		t.Errorf("unexpected challenge: %+v", ch)
	}
	if ch.Image() != nil {
		t.Error("push challenge must not yield an image")
	}
}

func TestTANChallengeImageNonPhoto(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("img"))
	ch := TANChallenge{ID: "C1", Typ: TANTypeMobile, Challenge: payload}
	if ch.Image() != nil {
		t.Error("image must only be decoded for the photo procedure")
	}
}

func TestLoginDataValid(t *testing.T) {
	full := LoginData{Username: "u", Password: "p", ClientID: "c", ClientSecret: "s"}
	if !full.Valid() {
		t.Error("complete credentials should be valid")
	}
	for name, l := range map[string]LoginData{
		"no username": {Password: "p", ClientID: "c", ClientSecret: "s"},
		"no password": {Username: "u", ClientID: "c", ClientSecret: "s"},
		"no id":       {Username: "u", Password: "p", ClientSecret: "s"},
		"no secret":   {Username: "u", Password: "p", ClientID: "c"},
	} {
		if l.Valid() {
			t.Errorf("%s should be invalid", name)
		}
	}
}

func TestErrorRendering(t *testing.T) {
	e := errHTTPStatus(401, errTransport(errParse("inner", nil)))
	msg := e.Error()
	for _, want := range []string{"HTTP 401", "transport failure", "inner"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}
