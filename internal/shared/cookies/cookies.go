package cookies

import (
	"net/http"
	"net/url"
	"strings"
)

// AuthName is the cookie browsers carry the session token in.
const AuthName = "auth_token"

// Settings describe the auth cookie the frontend's login service sets.
type Settings struct {
	FrontendURL string
	Secure      bool
}

// AuthToken returns the token of the auth cookie, or "" without one.
func AuthToken(r *http.Request) string {
	c, err := r.Cookie(AuthName)
	if err != nil {
		return ""
	}
	return c.Value
}

func ClearAuthCookie(w http.ResponseWriter, s Settings) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthName,
		Value:    "",
		Path:     "/",
		Domain:   extractDomain(s.FrontendURL),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func extractDomain(frontendURL string) string {
	parsedURL, err := url.Parse(frontendURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := strings.Split(parsedURL.Host, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}
