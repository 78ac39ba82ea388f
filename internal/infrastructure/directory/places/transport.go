package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any, operation string) error {
	call := func(callCtx context.Context) error {
		return c.doGetJSON(callCtx, path, query, out, operation)
	}
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, call(ctx))
	}
	return wrapTemporaryIfNeeded(operation, c.executor.Execute(ctx, "places."+path, call, classifyDirectoryError))
}

func (c *Client) doGetJSON(ctx context.Context, path string, query url.Values, out any, operation string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", operation, err)
	}

	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return httpStatusError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// HTTPError is a non-2xx transport-level response from the directory.
type HTTPError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "directory http error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("directory %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("directory %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// StatusError is a well-formed directory reply whose application status is
// neither success nor "no results".
type StatusError struct {
	Operation string
	Status    string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "directory status error"
	}
	return fmt.Sprintf("directory %s returned status %s", e.Operation, e.Status)
}

func httpStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}
