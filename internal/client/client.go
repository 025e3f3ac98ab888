// Package client is the HTTP client side of the survey boundary: batch
// fetch, fire-and-forget usage accounting, judgment delivery, and history
// reads for export.
//
// Only idempotent GETs are retried inline. Judgment submission is never
// retried here - a failed submission is the delivery layer's business and
// lands in the durable queue.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"

	"github.com/concordhq/concord/internal/delivery"
	"github.com/concordhq/concord/internal/survey"
)

// StorageUnavailableError means the sink could not serve a historical
// read. Callers degrade (e.g. export falls back to the local buffer)
// rather than fail.
type StorageUnavailableError struct {
	Err error
}

// Error implements the error interface.
func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("sink unreachable: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

// IsStorageUnavailable returns true if the error is a StorageUnavailableError.
// Uses errors.As to handle wrapped errors.
func IsStorageUnavailable(err error) bool {
	var se *StorageUnavailableError
	return errors.As(err, &se)
}

const (
	requestTimeout = 15 * time.Second
	getAttempts    = 3
	getRetryDelay  = 200 * time.Millisecond
)

// Client talks to the survey API server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL (e.g. "http://localhost:3000").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// FetchBatch implements session.Source: GET /api/items for one rater.
// Retried a few times - the read is idempotent and a transient failure
// here would otherwise end the sitting before it starts.
func (c *Client) FetchBatch(ctx context.Context, raterName string, limit int) (survey.Batch, error) {
	endpoint := fmt.Sprintf("%s/api/items?rater=%s&limit=%d",
		c.baseURL, url.QueryEscape(raterName), limit)

	var items []survey.Item
	err := retry.Do(
		func() error {
			return c.getJSON(ctx, endpoint, &items)
		},
		retry.Attempts(getAttempts),
		retry.Delay(getRetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return survey.Batch{}, fmt.Errorf("fetch batch: %w", err)
	}

	batch := survey.Batch{Items: items}
	if len(items) > 0 {
		batch.GroupKey = items[0].GroupKey
	}
	return batch, nil
}

// RecordShown implements session.UsageRecorder: POST the blind increment.
// Not retried - usage counters are a soft fairness signal and the caller
// already treats this as fire-and-forget.
func (c *Client) RecordShown(ctx context.Context, itemID string) error {
	endpoint := fmt.Sprintf("%s/api/items/%s/increment-usage",
		c.baseURL, url.PathEscape(itemID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build increment request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("increment usage for %s: %w", itemID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("increment usage for %s: status %d", itemID, resp.StatusCode)
	}
	return nil
}

// Submit implements delivery.Sink: POST one judgment.
// Any failure is a *delivery.DeliveryError; the delivery layer moves the
// judgment to the durable queue rather than retrying inline.
func (c *Client) Submit(ctx context.Context, j survey.Judgment) (int64, error) {
	body, err := json.Marshal(j)
	if err != nil {
		return 0, fmt.Errorf("encode judgment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/judgments", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build judgment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &delivery.DeliveryError{ItemID: j.ItemID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return 0, &delivery.DeliveryError{ItemID: j.ItemID, StatusCode: resp.StatusCode}
	}

	var ack struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		// Stored but the acknowledgment was unreadable: report failure and
		// accept the eventual double delivery.
		return 0, &delivery.DeliveryError{ItemID: j.ItemID, Err: err}
	}
	return ack.ID, nil
}

// History returns stored judgments, newest first. An empty raterName
// returns all raters. Failures come back as *StorageUnavailableError so
// export can fall back to the local buffer.
func (c *Client) History(ctx context.Context, raterName string, limit int) ([]survey.Judgment, error) {
	endpoint := c.baseURL + "/api/judgments?limit=" + strconv.Itoa(limit)
	if raterName != "" {
		endpoint += "&rater=" + url.QueryEscape(raterName)
	}

	var judgments []survey.Judgment
	err := retry.Do(
		func() error {
			return c.getJSON(ctx, endpoint, &judgments)
		},
		retry.Attempts(getAttempts),
		retry.Delay(getRetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, &StorageUnavailableError{Err: err}
	}
	return judgments, nil
}

// Stats returns aggregate judgment counts.
func (c *Client) Stats(ctx context.Context) (survey.Stats, error) {
	var stats survey.Stats
	err := retry.Do(
		func() error {
			return c.getJSON(ctx, c.baseURL+"/api/stats", &stats)
		},
		retry.Attempts(getAttempts),
		retry.Delay(getRetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return survey.Stats{}, &StorageUnavailableError{Err: err}
	}
	return stats, nil
}

// getJSON performs one GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
