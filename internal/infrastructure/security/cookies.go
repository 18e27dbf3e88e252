package security

import (
	"net/http"
	"strings"
	"time"
)

const RefreshCookieName = "refresh_token"

// RefreshCookiePath scopes the cookie to the token endpoints.
const RefreshCookiePath = "/users/v1"

func cookieName(secure bool) string {
	if secure {
		return "__Secure-" + RefreshCookieName
	}
	return RefreshCookieName
}

// SetRefreshToken stores token for ttl. A ttl under one second clears the cookie.
func SetRefreshToken(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	if ttl < time.Second {
		ClearRefreshToken(w, secure)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(secure),
		Value:    token,
		Path:     RefreshCookiePath,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearRefreshToken(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(secure),
		Value:    "",
		Path:     RefreshCookiePath,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// ReadRefreshToken prefers the secure cookie, then the plain one (local http dev).
func ReadRefreshToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(cookieName(true)); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value, nil
	}
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(c.Value) == "" {
		return "", http.ErrNoCookie
	}
	return c.Value, nil
}
