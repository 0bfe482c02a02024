package bkper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DeployBundle pushes a built handler bundle to the platform's deploy
// endpoint for the given app, handler type and environment.
func (c *Client) DeployBundle(ctx context.Context, appID, handlerType, environment, bundlePath string) error {
	file, err := os.Open(bundlePath)
	if err != nil {
		return fmt.Errorf("could not open bundle %s: %w", bundlePath, err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("bundle", filepath.Base(bundlePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	query := url.Values{"env": {environment}, "type": {handlerType}}
	endpoint := fmt.Sprintf("%s/apps/%s/deploy?%s", c.baseURL, url.PathEscape(appID), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Request-Id", uuid.NewString())

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
	return nil
}
