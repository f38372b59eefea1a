// Package auth implements the passwordless magic-link sign-in.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MagicLink signs and verifies short-lived login tokens. A token is an
// HMAC-SHA256 over "email|expiry", URL-safe base64 encoded.
type MagicLink struct {
	Secret  []byte
	BaseURL string
}

var (
	ErrBadToken   = errors.New("bad token")
	ErrBadSig     = errors.New("invalid signature")
	ErrExpired    = errors.New("expired")
	ErrBadPayload = errors.New("bad payload")
)

func (m MagicLink) Sign(email string, exp time.Time) string {
	msg := email + "|" + strconv.FormatInt(exp.Unix(), 10)
	mac := hmac.New(sha256.New, m.Secret)
	mac.Write([]byte(msg))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	payload := base64.URLEncoding.EncodeToString([]byte(msg))
	return payload + "." + sig
}

// decodeURLB64 tries raw (no padding) then padded, so tokens survive
// mail clients that strip trailing '='.
func decodeURLB64(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// Verify checks the token's signature and expiry against now, returning
// the signed email address.
func (m MagicLink) Verify(token string, now time.Time) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", ErrBadToken
	}
	payload, sig := parts[0], parts[1]

	raw, err := decodeURLB64(payload)
	if err != nil {
		return "", ErrBadToken
	}

	mac := hmac.New(sha256.New, m.Secret)
	mac.Write(raw)
	expectedRaw := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	expectedPad := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(sig), []byte(expectedRaw)) && !hmac.Equal([]byte(sig), []byte(expectedPad)) {
		return "", ErrBadSig
	}

	fields := strings.SplitN(string(raw), "|", 2)
	if len(fields) != 2 {
		return "", ErrBadPayload
	}
	email := strings.TrimSpace(fields[0])
	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || email == "" {
		return "", ErrBadPayload
	}
	if now.After(time.Unix(ts, 0)) {
		return "", ErrExpired
	}
	return email, nil
}

// URL builds the full callback link to embed in the login email.
func (m MagicLink) URL(email string, ttl time.Duration) string {
	exp := time.Now().Add(ttl)
	tok := m.Sign(email, exp)
	u, _ := url.Parse(m.BaseURL)
	u.Path = "/auth/callback"
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	return u.String()
}
