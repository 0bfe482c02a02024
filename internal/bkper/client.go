// Package bkper is a minimal client for the parts of the Bkper REST API the
// CLI needs: transaction CRUD for merges and the app deploy endpoint.
package bkper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultBaseURL = "https://app.bkper.com/api/v5"

// ErrNotFound is returned when the API reports a missing resource.
var ErrNotFound = errors.New("not found")

// APIError is the structured error body the platform returns.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("bkper api: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("bkper api: HTTP %d: %s", e.Status, e.Message)
}

// TokenSource supplies bearer tokens for API calls.
type TokenSource interface {
	OAuthToken(ctx context.Context) (string, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a client against the production API, honoring the
// BKPER_API_URL override.
func NewClient(tokens TokenSource) *Client {
	baseURL := os.Getenv("BKPER_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return NewClientWithBaseURL(tokens, baseURL)
}

func NewClientWithBaseURL(tokens TokenSource, baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: time.Second * 60},
		tokens:  tokens,
	}
}

func (c *Client) GetTransaction(ctx context.Context, bookID, id string) (*Transaction, error) {
	tx := &Transaction{}
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/books/%s/transactions/%s", url.PathEscape(bookID), url.PathEscape(id)), nil, tx)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", id, err)
	}
	return tx, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, bookID string, tx *Transaction) (*Transaction, error) {
	updated := &Transaction{}
	err := c.call(ctx, http.MethodPut, fmt.Sprintf("/books/%s/transactions/%s", url.PathEscape(bookID), url.PathEscape(tx.Id)), tx, updated)
	if err != nil {
		return nil, fmt.Errorf("update transaction %s: %w", tx.Id, err)
	}
	return updated, nil
}

// TrashTransaction soft-deletes a transaction. It remains recoverable.
func (c *Client) TrashTransaction(ctx context.Context, bookID, id string) error {
	err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/books/%s/transactions/%s/trash", url.PathEscape(bookID), url.PathEscape(id)), nil, nil)
	if err != nil {
		return fmt.Errorf("trash transaction %s: %w", id, err)
	}
	return nil
}

func (c *Client) GetBook(ctx context.Context, bookID string) (*Book, error) {
	book := &Book{}
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/books/%s", url.PathEscape(bookID)), nil, book)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", bookID, err)
	}
	return book, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.tokens.OAuthToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	wrapper := struct {
		Error APIError `json:"error"`
	}{}
	apiErr := &APIError{Status: resp.StatusCode, Message: string(data)}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Error.Message != "" {
		apiErr.Code = wrapper.Error.Code
		apiErr.Message = wrapper.Error.Message
		apiErr.Details = wrapper.Error.Details
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	}
	return apiErr
}
