// Package auth manages the OAuth2 session used to call the NuHeat API.
//
// It provides:
//   - The authorization code flow configuration for the NuHeat identity server
//   - Token persistence on disk
//   - A token provider that refreshes and persists rotated tokens
//
// The first authorization happens in the browser: the server package
// redirects to AuthCodeURL and hands the returned code to Exchange. From then
// on the refresh token keeps the session alive across restarts.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

const (
	// DefaultAuthBaseURL is the NuHeat identity server
	DefaultAuthBaseURL = "https://identity.nam.mynuheat.com"

	authorizePath = "/connect/authorize"
	tokenPath     = "/connect/token"
)

// DefaultScopes are requested on every authorization
var DefaultScopes = []string{"openid", "openapi", "offline_access"}

// NewOAuth2Config builds the authorization code flow configuration.
// Client credentials are sent in the request body.
func NewOAuth2Config(clientID, clientSecret, authBaseURL, redirectURL string) *oauth2.Config {
	authBaseURL = strings.TrimRight(strings.TrimSpace(authBaseURL), "/")
	if authBaseURL == "" {
		authBaseURL = DefaultAuthBaseURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authBaseURL + authorizePath,
			TokenURL:  authBaseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      append([]string(nil), DefaultScopes...),
	}
}

// NewState returns a random value for the OAuth2 state parameter
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
