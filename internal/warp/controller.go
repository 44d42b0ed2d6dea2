// Package warp talks to the warp core controller device.
//
// The controller exposes two plain GET routes: /warp, which wakes it, and
// /warp/{level}, which sets the light level. The device is known to drop the
// connection with a reset after handling a request; such resets are treated
// as a completed call.
package warp

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jpalmerr/warpcore/internal/poller"
)

// Call records one request made to the controller.
type Call struct {
	URL        string
	StatusCode int
	Latency    time.Duration
	// Reset is true when the controller reset the connection; the call still
	// counts as completed.
	Reset bool
}

// CallError is returned when a controller request fails with anything other
// than a connection reset.
type CallError struct {
	URL string
	Err error
}

func (e *CallError) Error() string {
	return "GET " + e.URL + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Hooks are optional callbacks invoked between the two controller calls.
type Hooks struct {
	// BeforeLevel runs after the /warp call and before /warp/{level}, with
	// the exact URL about to be called.
	BeforeLevel func(url string)
	// OnReset runs for every tolerated connection reset.
	OnReset func(call Call)
}

// Controller forwards warp levels to the device.
type Controller struct {
	baseURL string
	timeout time.Duration
	http    *poller.Client
}

// NewController creates a [Controller] for baseURL, e.g. "http://10.0.0.1".
func NewController(baseURL string, timeout time.Duration, httpClient *poller.Client) *Controller {
	return &Controller{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
	}
}

// WarpURL returns the controller's base /warp URL.
func (c *Controller) WarpURL() string {
	return c.baseURL + "/warp"
}

// LevelURL returns the URL that sets the given level.
func (c *Controller) LevelURL(level int) string {
	return c.WarpURL() + "/" + strconv.Itoa(level)
}

// SetLevel calls /warp and then /warp/{level}, in that order.
//
// The returned calls include every request that completed, including those
// ended by a tolerated reset. A non-reset failure on the first request stops
// before the second and is returned as a [*CallError].
func (c *Controller) SetLevel(ctx context.Context, level int, hooks Hooks) ([]Call, error) {
	calls := make([]Call, 0, 2)

	call, err := c.get(ctx, c.WarpURL(), hooks)
	if err != nil {
		return calls, err
	}
	calls = append(calls, call)

	levelURL := c.LevelURL(level)
	if hooks.BeforeLevel != nil {
		hooks.BeforeLevel(levelURL)
	}

	call, err = c.get(ctx, levelURL, hooks)
	if err != nil {
		return calls, err
	}
	calls = append(calls, call)

	return calls, nil
}

func (c *Controller) get(ctx context.Context, url string, hooks Hooks) (Call, error) {
	resp := c.http.Get(ctx, url, c.timeout)
	call := Call{
		URL:        url,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
	}

	if resp.Error != nil {
		if !IsConnReset(resp.Error) {
			return call, &CallError{URL: url, Err: resp.Error}
		}
		call.Reset = true
		if hooks.OnReset != nil {
			hooks.OnReset(call)
		}
	}

	return call, nil
}

// IsConnReset reports whether err was caused by the peer resetting the
// connection.
func IsConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET)
}
