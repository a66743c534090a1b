package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SigHeaderIPN is the header carrying the payment processor's HMAC.
const SigHeaderIPN = "x-nowpayments-sig"

// SecretTokenVerifier authenticates chat-platform webhooks: the platform
// echoes the shared secret in X-Telegram-Bot-Api-Secret-Token. An empty
// configured secret rejects everything (fail-closed).
type SecretTokenVerifier struct {
	secret string
}

func NewSecretTokenVerifier(secret string) *SecretTokenVerifier {
	return &SecretTokenVerifier{secret: secret}
}

func (v *SecretTokenVerifier) Verify(headerValue string) bool {
	if v.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(headerValue), []byte(v.secret)) == 1
}

// IPNVerifier authenticates payment-processor notifications. The sender signs
// a canonical encoding of the JSON payload with HMAC-SHA-512: keys sorted
// lexicographically, joined as k1=v1&k2=v2, omitting null values and the
// signature field itself. Verification recomputes that string from the raw
// body bytes as received; the body is never re-serialized.
type IPNVerifier struct {
	secret []byte
}

func NewIPNVerifier(secret string) *IPNVerifier {
	return &IPNVerifier{secret: []byte(secret)}
}

func (v *IPNVerifier) Verify(rawBody []byte, sigHex string) bool {
	if len(v.secret) == 0 {
		return false
	}
	msg, err := canonicalIPNString(rawBody)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, v.secret)
	mac.Write([]byte(msg))
	want := mac.Sum(nil)
	got, err := hex.DecodeString(strings.TrimSpace(sigHex))
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

// canonicalIPNString builds the signed string. Numbers pass through as
// json.Number so their textual form survives untouched.
func canonicalIPNString(rawBody []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(rawBody))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return "", err
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == SigHeaderIPN {
			continue
		}
		if payload[k] == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(renderValue(payload[k]))
	}
	return sb.String(), nil
}

func renderValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		// Nested objects do not occur in IPN payloads; compact JSON keeps
		// the encoding deterministic if one ever shows up.
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
