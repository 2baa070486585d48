package comdirect

import (
	"reflect"
	"strings"
	"testing"
)

func TestFormRoundTrip(t *testing.T) {
	params := map[string]string{
		"grant_type": "password",
		"username":   "user name",
		"password":   "p&ss=word",
		"client_id":  "User_1234",
	}

	encoded := encodeForm(params)
	decoded, err := decodeForm(encoded)
	if err != nil {
		t.Fatalf("decodeForm failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, params) {
		t.Errorf("round trip mismatch: got %v, want %v", decoded, params)
	}
}

func TestEncodeFormReservedCharacters(t *testing.T) {
	encoded := encodeForm(map[string]string{"v": "a&b=c d"})
	if want := "v=a%26b%3Dc%20d"; encoded != want {
		t.Errorf("encodeForm = %q, want %q", encoded, want)
	}
	if strings.Contains(encoded, "+") {
		t.Errorf("encodeForm used + for space: %q", encoded)
	}
}

func TestEncodeFormDeterministic(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1", "c": "3"}
	first := encodeForm(params)
	for i := 0; i < 10; i++ {
		if got := encodeForm(params); got != first {
			t.Fatalf("encodeForm not deterministic: %q vs %q", got, first)
		}
	}
	if first != "a=1&b=2&c=3" {
		t.Errorf("encodeForm = %q, want sorted key order", first)
	}
}

func TestDecodeFormEmpty(t *testing.T) {
	decoded, err := decodeForm("")
	if err != nil {
		t.Fatalf("decodeForm failed: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("decodeForm(\"\") = %v, want empty map", decoded)
	}
}
