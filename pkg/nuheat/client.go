package nuheat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andreweacott/nuheat-conductor/pkg/logger"
)

const (
	// DefaultBaseURL is the North American API endpoint
	DefaultBaseURL = "https://api.nam.mynuheat.com"

	// DefaultTimeout bounds every request, connect through body read
	DefaultTimeout = 10 * time.Second

	thermostatPath = "/api/v1/Thermostat"
	groupPath      = "/api/v1/Group"
	accountPath    = "/api/v1/Account"
)

// Client talks to the NuHeat REST API. Every call is a single attempt.
type Client struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	timeout    time.Duration
	log        *logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for failed requests
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client for baseURL that authenticates with tokens
func NewClient(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs one authenticated request and classifies the outcome.
//
//   - 200 with a JSON body returns the body
//   - 204 returns an empty JSON object
//   - 401 returns an *AuthError wrapping ErrUnauthorized
//   - an elapsed timeout returns ErrTimeout
//   - any other status returns a *ServerError carrying the response body
//   - anything else returns a *TransportError
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		c.log.WithEndpoint(method, path).WithError(err).Error("Failed to get access token")
		return nil, &AuthError{Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Err: fmt.Errorf("encode request body: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportFailure(method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportFailure(method, path, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if !json.Valid(data) {
			c.log.WithEndpoint(method, path).Error("Response is not valid JSON")
			return nil, &TransportError{Err: errors.New("response body is not valid JSON")}
		}
		return json.RawMessage(data), nil
	case http.StatusNoContent:
		return json.RawMessage("{}"), nil
	case http.StatusUnauthorized:
		c.log.WithEndpoint(method, path).Warn("Received 401, token may be invalid")
		return nil, &AuthError{Err: ErrUnauthorized}
	default:
		c.log.WithEndpoint(method, path).WithField("status", resp.StatusCode).
			WithField("response", string(data)).Error("Request failed")
		return nil, &ServerError{Status: resp.StatusCode, Body: string(data)}
	}
}

func (c *Client) transportFailure(method, path string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.log.WithEndpoint(method, path).Error("Timeout during request")
		return fmt.Errorf("%s %s: %w", method, path, ErrTimeout)
	}
	c.log.WithEndpoint(method, path).WithError(err).Error("Error during request")
	return &TransportError{Err: err}
}

// Thermostats implements API.Thermostats
func (c *Client) Thermostats(ctx context.Context) ([]ThermostatData, error) {
	data, err := c.Do(ctx, http.MethodGet, thermostatPath, nil)
	if err != nil {
		return nil, err
	}
	var thermostats []ThermostatData
	ok, err := decodeShape(data, '[', &thermostats)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []ThermostatData{}, nil
	}
	return thermostats, nil
}

// Thermostat implements API.Thermostat
func (c *Client) Thermostat(ctx context.Context, serial string) (*ThermostatData, error) {
	data, err := c.Do(ctx, http.MethodGet, thermostatPath+"/"+url.PathEscape(serial), nil)
	if err != nil {
		return nil, err
	}
	var thermostat ThermostatData
	ok, err := decodeShape(data, '{', &thermostat)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &thermostat, nil
}

// Groups implements API.Groups
func (c *Client) Groups(ctx context.Context) ([]GroupData, error) {
	data, err := c.Do(ctx, http.MethodGet, groupPath, nil)
	if err != nil {
		return nil, err
	}
	var groups []GroupData
	ok, err := decodeShape(data, '[', &groups)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []GroupData{}, nil
	}
	return groups, nil
}

// Account implements API.Account
func (c *Client) Account(ctx context.Context) (*AccountData, error) {
	data, err := c.Do(ctx, http.MethodGet, accountPath, nil)
	if err != nil {
		return nil, err
	}
	var account AccountData
	ok, err := decodeShape(data, '{', &account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &account, nil
}

// SetTemperature implements API.SetTemperature
func (c *Client) SetTemperature(ctx context.Context, update TemperatureUpdate) error {
	c.log.WithThermostat(update.SerialNumber).
		WithField("set_point_temp", update.SetPointTemp).
		WithField("schedule_mode", update.ScheduleMode).
		Debug("Sending temperature update")
	_, err := c.Do(ctx, http.MethodPut, thermostatPath, update)
	return err
}

// SetScheduleMode implements API.SetScheduleMode
func (c *Client) SetScheduleMode(ctx context.Context, serial string, mode int) error {
	_, err := c.Do(ctx, http.MethodPut, thermostatPath, ScheduleModeUpdate{
		SerialNumber: serial,
		ScheduleMode: mode,
	})
	return err
}

// SetGroupAway implements API.SetGroupAway
func (c *Client) SetGroupAway(ctx context.Context, groupID string, away bool) error {
	_, err := c.Do(ctx, http.MethodPut, groupPath, GroupAwayUpdate{
		GroupID:  groupID,
		AwayMode: away,
	})
	return err
}

// decodeShape unmarshals data into v when its top-level JSON value starts with
// the expected delimiter. A shape mismatch reports false without an error; a
// matching shape that fails to decode is a *TransportError.
func decodeShape(data json.RawMessage, delim byte, v interface{}) (bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != delim {
		return false, nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return false, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return true, nil
}
