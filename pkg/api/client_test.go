package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+LoginPath, func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if creds.Username != "admin" || creds.Password != "pw" {
			http.Error(w, `{"error":"invalid"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok",
			"user":  map[string]any{"id": 1, "username": "admin", "nickname": "Admin"},
		})
	})
	mux.HandleFunc("GET "+MenusPath, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer tok":
			_, _ = w.Write([]byte(`[{"name":"Dashboard","path":"/dashboard","component":"views/Dashboard","meta":{"title":"Dashboard"}}]`))
		case "Bearer empty":
			_, _ = w.Write([]byte(`null`))
		case "Bearer boom":
			http.Error(w, "backend exploded", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("GET "+PermsPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`["sys:user:view"]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLogin(t *testing.T) {
	c := New(newTestBackend(t).URL + "/")
	ctx := context.Background()

	resp, err := c.Login(ctx, Credentials{Username: "admin", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, int64(1), resp.User.ID)
	assert.Equal(t, "Admin", resp.User.Nickname)

	_, err = c.Login(ctx, Credentials{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFetchMenus(t *testing.T) {
	c := New(newTestBackend(t).URL)
	ctx := context.Background()

	tree, err := c.FetchMenus(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "Dashboard", tree[0].Name)

	tree, err = c.FetchMenus(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)

	_, err = c.FetchMenus(ctx, "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.FetchMenus(ctx, "boom")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "backend exploded", se.Body)
	assert.Contains(t, se.Error(), MenusPath)
}

func TestFetchPerms(t *testing.T) {
	c := New(newTestBackend(t).URL)

	perms, err := c.FetchPerms(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, []string{"sys:user:view"}, perms)

	_, err = c.FetchPerms(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.FetchMenus(context.Background(), "tok")
	assert.Error(t, err)
}

func TestClientContextCanceled(t *testing.T) {
	c := New(newTestBackend(t).URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchMenus(ctx, "tok")
	assert.ErrorIs(t, err, context.Canceled)
}
