package weesql

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
)

const (
	csrfCookieName = "ws_csrf"
	csrfFormKey    = "csrf_token"
	csrfHeaderKey  = "X-CSRF-Token"
)

// ensureCSRFCookie ensures a CSRF base cookie exists and returns the token derived from it.
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, secret string) string {
	c, err := r.Cookie(csrfCookieName)
	if err != nil || c.Value == "" {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		c = &http.Cookie{
			Name:     csrfCookieName,
			Value:    base64.RawURLEncoding.EncodeToString(b),
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		}
		http.SetCookie(w, c)
	}
	return deriveToken(secret, c.Value)
}

// verifyCSRF checks the header or form token against the cookie (double submit).
func verifyCSRF(r *http.Request, secret string) bool {
	c, err := r.Cookie(csrfCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	token := r.Header.Get(csrfHeaderKey)
	if token == "" {
		token = r.FormValue(csrfFormKey)
	}
	if token == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(deriveToken(secret, c.Value)))
}

func deriveToken(secret, base string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(base))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
