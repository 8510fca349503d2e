package oauth

import (
	"net/http"
)

// AuthService defines the interface for authentication services managed
// by the OAuthServiceManager.
type AuthService interface {
	// HandleLogin initiates the login flow for the specific service.
	HandleLogin(w http.ResponseWriter, r *http.Request)
	// HandleCallback handles the callback from the authentication provider,
	// exchanges the code for a token, finds or creates the user in the
	// local system, and returns the user ID. Returns 0 if authentication
	// failed or the user could not be determined.
	HandleCallback(w http.ResponseWriter, r *http.Request) (int64, error)
}

// TokenReceiver stores a provider access token against a local user.
type TokenReceiver interface {
	// SetAccessToken stores the access token, expiry included, and
	// returns the local user ID the token belongs to.
	SetAccessToken(token string, expiresIn int64) (int64, error)
}
