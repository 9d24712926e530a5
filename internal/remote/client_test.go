package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret-token", 2*time.Second, zap.NewNop())
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	_, err := c.FetchProgress(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "Bearer secret-token", got)
}

func TestEmptyTokenSendsNoAuthorizationHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "", time.Second, zap.NewNop())
	_, err := c.FetchProgress(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFetchProgressReturnsRawPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/users/u1/progress", r.URL.Path)
		w.Write([]byte(`{"learned": [1, 2], "unexpectedKey": true}`))
	})

	raw, err := c.FetchProgress(context.Background(), "u1")
	require.NoError(t, err)
	require.JSONEq(t, `{"learned": [1, 2], "unexpectedKey": true}`, string(raw))
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"conflict", http.StatusConflict, ErrConflict},
		{"bad request", http.StatusBadRequest, ErrInvalid},
		{"unprocessable", http.StatusUnprocessableEntity, ErrInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, err := c.FetchProgress(context.Background(), "u1")
			require.ErrorIs(t, err, tc.want)
			require.False(t, IsTransport(err))
		})
	}
}

func TestServerErrorsAreTransport(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		err := c.SaveProgress(context.Background(), "u1", entities.NewProgress())
		require.True(t, IsTransport(err), "status %d must classify as transport", status)
	}
}

func TestNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "", time.Second, zap.NewNop())
	_, err := c.FetchProgress(context.Background(), "u1")
	require.True(t, IsTransport(err))
}

func TestMarkLearnedSendsWordID(t *testing.T) {
	var body map[string]int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users/u1/progress/learned", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.MarkLearned(context.Background(), "u1", 42))
	require.Equal(t, 42, body["wordId"])
}

func TestUnmarkLearnedUsesDelete(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.UnmarkLearned(context.Background(), "u1", 42))
	require.Equal(t, http.MethodDelete, method)
	require.Equal(t, "/users/u1/progress/learned/42", path)
}

func TestRegisterDecodesAssignedIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Anna", body["name"])
		json.NewEncoder(w).Encode(entities.NewUser("srv-7", "Anna"))
	})

	user, err := c.Register(context.Background(), "Anna")
	require.NoError(t, err)
	require.Equal(t, "srv-7", user.ID)
	require.Equal(t, "Anna", user.Name)
}

func TestUpdatePreferenceBody(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.UpdatePreference(context.Background(), "u1", "theme", "dark"))
	require.Equal(t, "theme", body["key"])
	require.Equal(t, "dark", body["value"])
}

func TestUserIDsArePathEscaped(t *testing.T) {
	var rawPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		w.Write([]byte(`{}`))
	})

	_, err := c.FetchProgress(context.Background(), "user/with spaces")
	require.NoError(t, err)
	require.Equal(t, "/users/user%2Fwith%20spaces/progress", rawPath)
}
