// Package server exposes the conductor over HTTP.
//
// Routes:
//   - GET /health and GET /metrics
//   - GET /oauth/login and GET /oauth/callback for the authorization code flow
//   - GET/PUT /api/thermostats/... and /api/groups/... for entity state and commands
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/andreweacott/nuheat-conductor/pkg/auth"
	"github.com/andreweacott/nuheat-conductor/pkg/climate"
	"github.com/andreweacott/nuheat-conductor/pkg/coordinator"
	"github.com/andreweacott/nuheat-conductor/pkg/device"
	"github.com/andreweacott/nuheat-conductor/pkg/logger"
	"github.com/andreweacott/nuheat-conductor/pkg/nuheat"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// stateTTL bounds how long a login attempt may take
	stateTTL = 10 * time.Minute

	maxBodyBytes = 1 << 16
)

var (
	errEntityNotFound = errors.New("entity not found")
	errInvalidState   = errors.New("unknown or expired oauth state")
)

// Entities is the coordinator surface the handlers need
type Entities interface {
	Ready() bool
	Thermostat(id string) (*climate.Thermostat, bool)
	Group(id string) (*climate.Group, bool)
	Thermostats() []*climate.Thermostat
	Groups() []*climate.Group
}

// Authorizer drives the OAuth authorization code flow
type Authorizer interface {
	Authorized() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// BreakerStatus reports the API circuit breaker for /health
type BreakerStatus interface {
	State() nuheat.CircuitBreakerState
	LastError() error
}

// Options configure a Server
type Options struct {
	// Breaker is optional
	Breaker BreakerStatus
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
	// MetricsTimeout bounds a scrape; zero means unbounded
	MetricsTimeout time.Duration
	// OnAuthorized runs after a successful code exchange
	OnAuthorized func()
	Logger       *logger.Logger
}

// Server serves the HTTP surface
type Server struct {
	entities Entities
	auth     Authorizer
	opts     Options
	log      *logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	states map[string]time.Time
}

// New creates a server. auth may be nil, which disables the OAuth routes.
func New(entities Entities, authorizer Authorizer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Server{
		entities: entities,
		auth:     authorizer,
		opts:     opts,
		log:      opts.Logger,
		now:      time.Now,
		states:   map[string]time.Time{},
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	if s.opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			Timeout:           s.opts.MetricsTimeout,
		}))
	}

	if s.auth != nil {
		mux.HandleFunc("GET /oauth/login", s.handleLogin)
		mux.HandleFunc("GET /oauth/callback", s.handleCallback)
	}

	mux.HandleFunc("GET /api/thermostats", s.handleListThermostats)
	mux.HandleFunc("GET /api/thermostats/{id}", s.handleGetThermostat)
	mux.HandleFunc("PUT /api/thermostats/{id}/temperature", s.handleSetTemperature)
	mux.HandleFunc("PUT /api/thermostats/{id}/preset", s.handleSetThermostatPreset)
	mux.HandleFunc("PUT /api/thermostats/{id}/hvac_mode", s.handleSetHVACMode)
	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("PUT /api/groups/{id}/preset", s.handleSetGroupPreset)

	return mux
}

// handleHealth answers on any method
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status": "ok",
		"ready":  s.entities.Ready(),
	}
	if s.auth != nil {
		body["authorized"] = s.auth.Authorized()
	}
	if s.opts.Breaker != nil {
		body["circuit_breaker"] = s.opts.Breaker.State().String()
		if err := s.opts.Breaker.LastError(); err != nil {
			body["last_error"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	s.pruneStatesLocked()
	s.states[state] = s.now().Add(stateTTL)
	s.mu.Unlock()

	http.Redirect(w, r, s.auth.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("authorization denied: %s %s", e, q.Get("error_description")))
		return
	}
	if !s.consumeState(q.Get("state")) {
		s.fail(w, r, http.StatusBadRequest, errInvalidState)
		return
	}
	code := q.Get("code")
	if code == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("missing authorization code"))
		return
	}

	if err := s.auth.Exchange(r.Context(), code); err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	if s.opts.OnAuthorized != nil {
		s.opts.OnAuthorized()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "authorized"})
}

func (s *Server) consumeState(state string) bool {
	if state == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.states[state]
	delete(s.states, state)
	return ok && s.now().Before(expiry)
}

func (s *Server) pruneStatesLocked() {
	now := s.now()
	for state, expiry := range s.states {
		if !now.Before(expiry) {
			delete(s.states, state)
		}
	}
}

func (s *Server) handleListThermostats(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w, r) {
		return
	}
	thermostats := s.entities.Thermostats()
	states := make([]climate.EntityState, 0, len(thermostats))
	for _, th := range thermostats {
		states = append(states, th.State())
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleGetThermostat(w http.ResponseWriter, r *http.Request) {
	th, ok := s.thermostat(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, th.State())
}

type temperatureRequest struct {
	Temperature *float64 `json:"temperature"`
}

func (s *Server) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	th, ok := s.thermostat(w, r)
	if !ok {
		return
	}
	var req temperatureRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Temperature == nil {
		s.fail(w, r, http.StatusBadRequest, errors.New("temperature is required"))
		return
	}
	if err := th.SetTemperature(r.Context(), *req.Temperature); err != nil {
		s.commandFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, th.State())
}

type presetRequest struct {
	Preset string `json:"preset"`
}

func (s *Server) handleSetThermostatPreset(w http.ResponseWriter, r *http.Request) {
	th, ok := s.thermostat(w, r)
	if !ok {
		return
	}
	var req presetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := th.SetPreset(r.Context(), device.Preset(req.Preset)); err != nil {
		s.commandFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, th.State())
}

type hvacModeRequest struct {
	HVACMode string `json:"hvac_mode"`
}

func (s *Server) handleSetHVACMode(w http.ResponseWriter, r *http.Request) {
	th, ok := s.thermostat(w, r)
	if !ok {
		return
	}
	var req hvacModeRequest
	if !s.decode(w, r, &req) {
		return
	}
	mode, err := device.ParseHVACMode(req.HVACMode)
	if err != nil {
		s.commandFailed(w, r, err)
		return
	}
	if err := th.SetHVACMode(r.Context(), mode); err != nil {
		s.commandFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, th.State())
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	if !s.requireReady(w, r) {
		return
	}
	groups := s.entities.Groups()
	states := make([]climate.EntityState, 0, len(groups))
	for _, g := range groups {
		states = append(states, g.State())
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := s.group(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.State())
}

func (s *Server) handleSetGroupPreset(w http.ResponseWriter, r *http.Request) {
	g, ok := s.group(w, r)
	if !ok {
		return
	}
	var req presetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := g.SetPreset(r.Context(), device.Preset(req.Preset)); err != nil {
		s.commandFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g.State())
}

func (s *Server) requireReady(w http.ResponseWriter, r *http.Request) bool {
	if s.entities.Ready() {
		return true
	}
	s.fail(w, r, http.StatusServiceUnavailable, coordinator.ErrNotReady)
	return false
}

func (s *Server) thermostat(w http.ResponseWriter, r *http.Request) (*climate.Thermostat, bool) {
	if !s.requireReady(w, r) {
		return nil, false
	}
	id := r.PathValue("id")
	th, ok := s.entities.Thermostat(id)
	if !ok {
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("thermostat %s: %w", id, errEntityNotFound))
	}
	return th, ok
}

func (s *Server) group(w http.ResponseWriter, r *http.Request) (*climate.Group, bool) {
	if !s.requireReady(w, r) {
		return nil, false
	}
	id := r.PathValue("id")
	g, ok := s.entities.Group(id)
	if !ok {
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("group %s: %w", id, errEntityNotFound))
	}
	return g, ok
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) commandFailed(w http.ResponseWriter, r *http.Request, err error) {
	s.fail(w, r, StatusForError(err), err)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	entry := s.log.WithEndpoint(r.Method, r.URL.Path).WithField("status", status).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StatusForError maps a command error to an HTTP status
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, device.ErrOffline):
		return http.StatusConflict
	case device.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNotAuthorized), nuheat.IsAuthError(err):
		return http.StatusUnauthorized
	case errors.Is(err, coordinator.ErrNotReady), errors.Is(err, nuheat.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, nuheat.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
