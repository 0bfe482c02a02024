package bkper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

type staticTokens string

func (s staticTokens) OAuthToken(ctx context.Context) (string, error) {
	return string(s), nil
}

func TestGetTransactionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"notFound","message":"no such transaction"}}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticTokens("tok"), server.URL)
	_, err := client.GetTransaction(context.Background(), "book-1", "missing")
	assert.IsError(t, err, ErrNotFound)
}

func TestGetTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books/book-1/transactions/tx-1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"tx-1","description":"Coffee","amount":"12.50","posted":true,"createdAt":"1700000000000"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticTokens("tok"), server.URL)
	tx, err := client.GetTransaction(context.Background(), "book-1", "tx-1")
	assert.NoError(t, err)
	assert.Equal(t, "Coffee", tx.Description)
	assert.Equal(t, "12.50", tx.Amount)
	assert.True(t, tx.Posted)
	assert.Equal(t, int64(1700000000000), tx.CreatedAt)
}

func TestAPIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"forbidden","message":"no access to book"}}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(staticTokens("tok"), server.URL)
	_, err := client.GetTransaction(context.Background(), "book-1", "tx-1")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "forbidden", apiErr.Code)
	assert.Equal(t, "no access to book", apiErr.Message)
}

func TestDeployBundle(t *testing.T) {
	var gotType, gotEnv, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.URL.Query().Get("type")
		gotEnv = r.URL.Query().Get("env")
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("bundle")
		assert.NoError(t, err)
		assert.Equal(t, "events.js", header.Filename)
	}))
	defer server.Close()

	bundle := filepath.Join(t.TempDir(), "events.js")
	assert.NoError(t, os.WriteFile(bundle, []byte("export default {}"), 0600))

	client := NewClientWithBaseURL(staticTokens("tok"), server.URL)
	err := client.DeployBundle(context.Background(), "my-app", "events", "dev", bundle)
	assert.NoError(t, err)
	assert.Equal(t, "/apps/my-app/deploy", gotPath)
	assert.Equal(t, "events", gotType)
	assert.Equal(t, "dev", gotEnv)
}
