package security

import (
	"net/http"
	"strings"
)

// BearerToken extracts the token from the Authorization header. Browsers
// cannot set headers on WebSocket upgrades, so the access_token query
// parameter is accepted as well.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > len("bearer ") && strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	return r.URL.Query().Get("access_token")
}
