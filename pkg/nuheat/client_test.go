package nuheat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
	calls int
}

func (s *staticTokens) AccessToken(context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *staticTokens) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := &staticTokens{token: "test-token"}
	return NewClient(server.URL, tokens, opts...), tokens
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

// TestDo_StatusClassification tests how HTTP outcomes map to results
func TestDo_StatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantData string
		checkErr func(t *testing.T, err error)
	}{
		{
			name:     "200 with JSON returns data",
			status:   http.StatusOK,
			body:     `{"serialNumber":"123"}`,
			wantData: `{"serialNumber":"123"}`,
		},
		{
			name:     "204 returns empty object",
			status:   http.StatusNoContent,
			wantData: `{}`,
		},
		{
			name:   "401 returns auth error",
			status: http.StatusUnauthorized,
			checkErr: func(t *testing.T, err error) {
				assert.True(t, IsAuthError(err))
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "500 returns server error with body",
			status: http.StatusInternalServerError,
			body:   "thermostat offline",
			checkErr: func(t *testing.T, err error) {
				var serverErr *ServerError
				require.ErrorAs(t, err, &serverErr)
				assert.Equal(t, http.StatusInternalServerError, serverErr.Status)
				assert.Equal(t, "thermostat offline", serverErr.Body)
			},
		},
		{
			name:   "404 returns server error",
			status: http.StatusNotFound,
			checkErr: func(t *testing.T, err error) {
				var serverErr *ServerError
				require.ErrorAs(t, err, &serverErr)
				assert.Equal(t, http.StatusNotFound, serverErr.Status)
			},
		},
		{
			name:   "200 with invalid JSON returns transport error",
			status: http.StatusOK,
			body:   "<html>",
			checkErr: func(t *testing.T, err error) {
				var transportErr *TransportError
				assert.ErrorAs(t, err, &transportErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			data, err := client.Do(context.Background(), http.MethodGet, "/api/v1/Thermostat", nil)
			if tt.checkErr != nil {
				require.Error(t, err)
				assert.Nil(t, data)
				tt.checkErr(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantData, string(data))
		})
	}
}

// TestDo_Headers tests that requests carry the bearer token and JSON headers
func TestDo_Headers(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := client.Do(context.Background(), http.MethodPut, "/api/v1/Group", GroupAwayUpdate{GroupID: "g1", AwayMode: true})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "Bearer test-token", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "/api/v1/Group", got.URL.Path)
	assert.JSONEq(t, `{"groupId":"g1","awayMode":true}`, string(gotBody))
}

// TestDo_TokenFailureSkipsRequest tests that a failed token refresh never reaches the network
func TestDo_TokenFailureSkipsRequest(t *testing.T) {
	requests := 0
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	})
	tokens.err = errors.New("refresh token revoked")

	_, err := client.Do(context.Background(), http.MethodGet, "/api/v1/Thermostat", nil)

	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, 0, requests)
	assert.Equal(t, 1, tokens.calls)
}

// TestDo_Timeout tests that slow responses are reported as timeouts
func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := client.Do(context.Background(), http.MethodGet, "/api/v1/Thermostat", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

// TestDo_TransportError tests that connection failures are transport errors
func TestDo_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, &staticTokens{token: "t"})
	_, err := client.Do(context.Background(), http.MethodGet, "/api/v1/Thermostat", nil)

	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

// TestThermostats_TypeGuard tests that a non-list payload becomes an empty list
func TestThermostats_TypeGuard(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{name: "list", status: http.StatusOK, body: `[{"serialNumber":"1"},{"serialNumber":"2"}]`, want: 2},
		{name: "object instead of list", status: http.StatusOK, body: `{"serialNumber":"1"}`, want: 0},
		{name: "no content", status: http.StatusNoContent, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/Thermostat", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			thermostats, err := client.Thermostats(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, thermostats)
			assert.Len(t, thermostats, tt.want)
		})
	}
}

// TestThermostat_Decode tests fetching and decoding a single thermostat
func TestThermostat_Decode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/Thermostat/1234", r.URL.Path)
		_, _ = io.WriteString(w, `{"serialNumber":"1234","name":"Bathroom","currentTemperature":3000,"setPointTemp":3500,"scheduleMode":2,"online":true,"isHeating":true}`)
	})

	data, err := client.Thermostat(context.Background(), "1234")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "1234", data.SerialNumber)
	assert.Equal(t, "Bathroom", data.Name)
	assert.Equal(t, intPtr(3000), data.CurrentTemperature)
	assert.Equal(t, intPtr(3500), data.SetPointTemp)
	assert.Equal(t, intPtr(2), data.ScheduleMode)
	assert.Equal(t, boolPtr(true), data.Online)
	assert.Equal(t, boolPtr(true), data.IsHeating)
	assert.Nil(t, data.MinTemp)
	assert.Nil(t, data.Heating)
}

// TestThermostat_TypeGuard tests that a list payload becomes an absent record
func TestThermostat_TypeGuard(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	data, err := client.Thermostat(context.Background(), "1234")
	require.NoError(t, err)
	assert.Nil(t, data)
}

// TestThermostat_DecodeFailure tests that a malformed record is a transport error
func TestThermostat_DecodeFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"currentTemperature":"warm"}`)
	})

	_, err := client.Thermostat(context.Background(), "1234")
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

// TestGroupsAndAccount tests the group and account accessors
func TestGroupsAndAccount(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/Group":
			_, _ = io.WriteString(w, `[{"groupId":"g1","groupName":"Upstairs","awayMode":true,"awaySetPointTemp":1500}]`)
		case "/api/v1/Account":
			_, _ = io.WriteString(w, `{"temperatureScale":"Celsius","use12Hour":false}`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	})

	groups, err := client.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].GroupID)
	assert.Equal(t, "Upstairs", groups[0].GroupName)
	assert.Equal(t, boolPtr(true), groups[0].AwayMode)
	assert.Equal(t, intPtr(1500), groups[0].AwaySetPointTemp)

	account, err := client.Account(context.Background())
	require.NoError(t, err)
	require.NotNil(t, account)
	require.NotNil(t, account.TemperatureScale)
	assert.Equal(t, "Celsius", *account.TemperatureScale)
	assert.Equal(t, boolPtr(false), account.Use12Hour)
}

// TestAccount_TypeGuard tests that a non-object account payload is absent
func TestAccount_TypeGuard(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `"Fahrenheit"`)
	})

	account, err := client.Account(context.Background())
	require.NoError(t, err)
	assert.Nil(t, account)
}

// TestCommandPayloads tests the PUT bodies sent for each command
func TestCommandPayloads(t *testing.T) {
	var bodies []map[string]interface{}
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, client.SetTemperature(ctx, TemperatureUpdate{
		SerialNumber: "1234",
		Name:         "Bathroom",
		SetPointTemp: 3500,
		ScheduleMode: 2,
	}))
	require.NoError(t, client.SetScheduleMode(ctx, "1234", 1))
	require.NoError(t, client.SetGroupAway(ctx, "g1", false))

	require.Len(t, bodies, 3)
	assert.Equal(t, []string{"/api/v1/Thermostat", "/api/v1/Thermostat", "/api/v1/Group"}, paths)

	assert.Equal(t, map[string]interface{}{
		"serialNumber":         "1234",
		"name":                 "Bathroom",
		"setPointTemp":         float64(3500),
		"scheduleMode":         float64(2),
		"holdSetPointDateTime": nil,
	}, bodies[0])
	assert.Equal(t, map[string]interface{}{
		"serialNumber": "1234",
		"scheduleMode": float64(1),
	}, bodies[1])
	assert.Equal(t, map[string]interface{}{
		"groupId":  "g1",
		"awayMode": false,
	}, bodies[2])
}

// TestCommandFailure tests that a rejected command surfaces the server error
func TestCommandFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"thermostat is offline"}`)
	})

	err := client.SetScheduleMode(context.Background(), "1234", 3)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusBadRequest, serverErr.Status)
	assert.Contains(t, serverErr.Error(), "thermostat is offline")
}

// TestIsEmpty tests the empty-record helpers
func TestIsEmpty(t *testing.T) {
	var nilThermostat *ThermostatData
	assert.True(t, nilThermostat.IsEmpty())
	assert.True(t, (&ThermostatData{}).IsEmpty())
	assert.False(t, (&ThermostatData{Online: boolPtr(false)}).IsEmpty())

	var nilGroup *GroupData
	assert.True(t, nilGroup.IsEmpty())
	assert.False(t, (&GroupData{GroupID: "g1"}).IsEmpty())
}

// TestNewClient_DefaultBaseURL tests base URL normalization
func TestNewClient_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("", nil).baseURL)
	assert.Equal(t, "https://example.com", NewClient(" https://example.com/ ", nil).baseURL)
	assert.Equal(t, DefaultTimeout, NewClient("", nil).timeout)
}
