package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	client, err := GetHTTPClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, client.Jar)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/scores.csv"))
	assert.True(t, IsURL("http://localhost:8080/a.json"))
	assert.False(t, IsURL("scores.csv"))
	assert.False(t, IsURL("/tmp/http/scores.csv"))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scores.csv":
			assert.Equal(t, clientAgent, r.UserAgent())
			w.Write([]byte("q1,q2\n1,0\n"))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	b, err := Fetch(ctx, srv.URL+"/scores.csv")
	require.NoError(t, err)
	assert.Equal(t, "q1,q2\n1,0\n", string(b))

	_, err = Fetch(ctx, srv.URL+"/missing.csv")
	assert.ErrorIs(t, err, ErrorURLNotFound)

	_, err = Fetch(ctx, srv.URL+"/broken")
	assert.ErrorContains(t, err, "status: 500")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Fetch(cancelled, srv.URL+"/scores.csv")
	assert.Error(t, err)
}
