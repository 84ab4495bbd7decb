package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andreweacott/nuheat-conductor/pkg/logger"
	"golang.org/x/oauth2"
)

// ErrNotAuthorized is returned until the authorization code has been exchanged
var ErrNotAuthorized = errors.New("not authorized: complete the OAuth login")

// Session supplies access tokens to the API client. It refreshes expired
// tokens and persists every rotated token.
type Session struct {
	config     *oauth2.Config
	store      TokenStore
	httpClient *http.Client
	log        *logger.Logger

	mu     sync.Mutex
	source oauth2.TokenSource
	last   *oauth2.Token
}

// SessionOption customizes a Session
type SessionOption func(*Session)

// WithHTTPClient sets the client used to reach the token endpoint
func WithHTTPClient(hc *http.Client) SessionOption {
	return func(s *Session) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithLogger sets the session logger
func WithLogger(log *logger.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSession creates a session and resumes from a stored token if one exists
func NewSession(config *oauth2.Config, store TokenStore, opts ...SessionOption) (*Session, error) {
	s := &Session{
		config:     config,
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	token, err := store.Load()
	if err != nil {
		return nil, err
	}
	if token != nil && (token.RefreshToken != "" || token.Valid()) {
		s.setTokenLocked(token)
		s.log.Info("Resumed stored OAuth session")
	}
	return s, nil
}

func (s *Session) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *Session) setTokenLocked(token *oauth2.Token) {
	// The source outlives any single request
	s.source = s.config.TokenSource(s.oauthContext(context.Background()), token)
	s.last = token
}

// Authorized reports whether a token is available
func (s *Session) Authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != nil
}

// AuthCodeURL returns the identity server URL the user must visit
func (s *Session) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and persists it
func (s *Session) Exchange(ctx context.Context, code string) error {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", describeRetrieveError(err))
	}
	if err := s.store.Save(token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	s.mu.Lock()
	s.setTokenLocked(token)
	s.mu.Unlock()

	s.log.Info("OAuth authorization completed")
	return nil
}

// AccessToken implements nuheat.TokenProvider
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return "", ErrNotAuthorized
	}

	token, err := s.source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			// The refresh token was revoked or expired
			s.source = nil
			s.log.WithError(err).Error("Refresh token rejected, re-authorization required")
			return "", fmt.Errorf("%w: %v", ErrNotAuthorized, describeRetrieveError(err))
		}
		return "", fmt.Errorf("refresh token: %w", describeRetrieveError(err))
	}

	if s.last == nil || token.AccessToken != s.last.AccessToken {
		if err := s.store.Save(token); err != nil {
			s.log.WithError(err).Warn("Failed to persist refreshed token")
		} else {
			s.log.Debug("Persisted refreshed token", "expiry", token.Expiry.Format(time.RFC3339))
		}
		s.last = token
	}
	return token.AccessToken, nil
}

func describeRetrieveError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		body := strings.TrimSpace(string(retrieveErr.Body))
		return fmt.Errorf("token endpoint %d: %s", retrieveErr.Response.StatusCode, body)
	}
	return err
}
