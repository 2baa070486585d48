package comdirect

import (
	"net/url"
	"sort"
	"strings"
)

// encodeForm percent-encodes a parameter map as an
// application/x-www-form-urlencoded body. Spaces are encoded as %20 rather
// than +, matching what the token endpoint accepts.
func encodeForm(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(params))
	for _, k := range keys {
		ek := strings.ReplaceAll(url.QueryEscape(k), "+", "%20")
		ev := strings.ReplaceAll(url.QueryEscape(params[k]), "+", "%20")
		pairs = append(pairs, ek+"="+ev)
	}
	return strings.Join(pairs, "&")
}

// decodeForm is the inverse of encodeForm.
func decodeForm(body string) (map[string]string, error) {
	params := make(map[string]string)
	if body == "" {
		return params, nil
	}
	for _, pair := range strings.Split(body, "&") {
		k, v, _ := strings.Cut(pair, "=")
		dk, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		dv, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		params[dk] = dv
	}
	return params, nil
}
