package tautulli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/warpcore/internal/poller"
)

const (
	apiPath     = "/api/v2"
	activityCmd = "get_activity"
)

// streamCountPath locates the stream count in a get_activity response.
var streamCountPath = []string{"response", "data", "stream_count"}

// Client fetches the active stream count from the activity API.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *poller.Client
}

// NewClient creates an activity [Client].
//
// baseURL is scheme and host, e.g. "https://tautulli.local". A zero timeout
// leaves requests bounded only by the caller's context.
func NewClient(baseURL, apiKey string, timeout time.Duration, httpClient *poller.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		http:    httpClient,
	}
}

// ActivityURL returns the get_activity URL including the API key.
func (c *Client) ActivityURL() string {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("cmd", activityCmd)
	return c.baseURL + apiPath + "?" + q.Encode()
}

// StreamCount performs one get_activity call and returns the number of
// active streams.
func (c *Client) StreamCount(ctx context.Context) (int, error) {
	resp := c.http.Get(ctx, c.ActivityURL(), c.timeout)
	if resp.Error != nil {
		return 0, c.redact(resp.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return ParseStreamCount(resp.Body)
}

// redact returns err rebuilt around a copy of its *url.Error with the API
// key stripped. Wrappers format their message once, so the text is rebuilt
// rather than the URL patched in place.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	redacted.URL = c.baseURL + apiPath + "?apikey=REDACTED&cmd=" + activityCmd
	return fmt.Errorf("request failed: %w", &redacted)
}

// ParseStreamCount extracts response.data.stream_count from a get_activity
// body.
//
// The count may be a JSON number or a numeric string. If response.result is
// present and not "success", the API's message is returned as the error.
func ParseStreamCount(body []byte) (int, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, fmt.Errorf("invalid JSON: %w", err)
	}

	if result, ok := lookup(data, []string{"response", "result"}); ok {
		if s, _ := result.(string); s != "" && s != "success" {
			msg, _ := lookup(data, []string{"response", "message"})
			if m, _ := msg.(string); m != "" {
				return 0, fmt.Errorf("api result %q: %s", s, m)
			}
			return 0, fmt.Errorf("api result %q", s)
		}
	}

	value, ok := lookup(data, streamCountPath)
	if !ok {
		return 0, errors.New("missing field " + strings.Join(streamCountPath, "."))
	}

	return toCount(value)
}

// lookup walks a decoded JSON structure using path parts.
func lookup(data interface{}, parts []string) (interface{}, bool) {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// toCount converts a decoded stream_count into a non-negative int.
func toCount(v interface{}) (int, error) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("stream_count %q is not a number", val)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("stream_count has unexpected type %T", v)
	}

	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("stream_count %v is not a non-negative integer", f)
	}
	return int(f), nil
}
