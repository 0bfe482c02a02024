package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

// TokenProvider is the subset of Authorizer the bridge needs.
type TokenProvider interface {
	LoggedIn() bool
	UserID() string
	OAuthToken(ctx context.Context) (string, error)
}

type refreshResponse struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken"`
}

type refreshError struct {
	Error string `json:"error"`
}

// BridgeHandler answers the web client's token refresh endpoint from the
// CLI's own stored credentials, so a locally served client can authenticate
// without reaching production auth infrastructure. The response shapes match
// the production endpoint exactly.
func BridgeHandler(provider TokenProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if !provider.LoggedIn() {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(refreshError{Error: "not logged in"})
			return
		}
		token, err := provider.OAuthToken(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(refreshError{Error: err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(refreshResponse{
			UserID:      provider.UserID(),
			AccessToken: token,
		})
	})
}
