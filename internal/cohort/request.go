package cohort

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/utils"
)

const (
	contentType       = "application/json"
	contentEncoding   = "gzip"
	defaultRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

type itemResponse struct {
	Items   []map[string]any `json:"items"`
	Found   int              `json:"found"`
	Pages   int              `json:"pages"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

// getItems makes GET requests until every page of the collection is read.
func (c *Client) getItems(ctx context.Context, endpoint string, q url.Values) ([]map[string]any, error) {
	var items []map[string]any

	for page := 0; ; page++ {
		q.Set("page", strconv.Itoa(page))

		var response itemResponse
		if err := c.getJSON(ctx, endpoint, q, &response); err != nil {
			return nil, err
		}
		items = append(items, response.Items...)

		if response.Page >= response.Pages-1 || len(response.Items) == 0 {
			break
		}

		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", response.Page+1, response.Pages),
		))
	}

	return items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	return json.Unmarshal(data, target)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return nil
}

// request sends req and retries throttled or unavailable responses up to MaxRetries times.
func (c *Client) request(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		if attempt >= c.MaxRetries || !retryable(resp.StatusCode) {
			return resp, nil
		}

		delay := retryAfter(resp.Header.Get("Retry-After"))
		resp.Body.Close()

		c.logger.Info("cohort api unavailable, retrying",
			zap.Int("status", resp.StatusCode),
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt+1),
		)
		if err := utils.WaitFor(req.Context(), delay); err != nil {
			return nil, err
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}
	}
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds < 0 {
		return defaultRetryDelay
	}
	return min(time.Duration(seconds)*time.Second, maxRetryDelay)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
