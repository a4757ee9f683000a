package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/teslashibe/go-gaze/internal/httpc"
	"github.com/teslashibe/go-gaze/pkg/app"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// APIError is a non-2xx response from the control API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Unwrap maps the statuses with a single meaning back to their sentinel.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusConflict:
		return app.ErrBusy
	case http.StatusRequestTimeout:
		return calibration.ErrAborted
	}
	return nil
}

// Client calls the control API of a running server.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the server at addr (host:port or an
// http:// URL).
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{base: strings.TrimRight(addr, "/"), http: httpc.Client}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Status returns the mode, sessions and tuning.
func (c *Client) Status(ctx context.Context) (app.Status, error) {
	var st app.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &st)
	return st, err
}

// Monitors lists the displays and their calibration state.
func (c *Client) Monitors(ctx context.Context) ([]app.MonitorStatus, error) {
	var out []app.MonitorStatus
	err := c.do(ctx, http.MethodGet, "/api/monitors", nil, &out)
	return out, err
}

// StartTracking starts a session on device, or the default device when empty.
func (c *Client) StartTracking(ctx context.Context, device string) (app.SessionHandle, error) {
	var h app.SessionHandle
	err := c.do(ctx, http.MethodPost, "/api/tracking", StartTrackingRequest{Device: device}, &h)
	return h, err
}

// StopTracking stops a session.
func (c *Client) StopTracking(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tracking/"+url.PathEscape(id), nil, nil)
}

// Sensitivity returns the current tuning.
func (c *Client) Sensitivity(ctx context.Context) (tracking.TuningParams, error) {
	var p tracking.TuningParams
	err := c.do(ctx, http.MethodGet, "/api/sensitivity", nil, &p)
	return p, err
}

// SetSensitivity applies the non-zero fields of p and returns the result.
func (c *Client) SetSensitivity(ctx context.Context, p tracking.TuningParams) (tracking.TuningParams, error) {
	var out tracking.TuningParams
	err := c.do(ctx, http.MethodPut, "/api/sensitivity", p, &out)
	return out, err
}

// CalibrateResponse is the body of a waited calibration.
type CalibrateResponse struct {
	Results []calibration.Result `json:"results"`
	Error   string               `json:"error,omitempty"`
}

// Calibrate starts a calibration of display, or all displays when empty.
// With wait the call blocks until the run ends; the client should then have
// no request timeout.
func (c *Client) Calibrate(ctx context.Context, display string, wait bool) ([]calibration.Result, error) {
	var resp CalibrateResponse
	err := c.do(ctx, http.MethodPost, "/api/calibration", CalibrateRequest{Display: display, Wait: wait}, &resp)
	return resp.Results, err
}

// Calibrations lists every persisted transform.
func (c *Client) Calibrations(ctx context.Context) ([]*homography.Record, error) {
	var out []*homography.Record
	err := c.do(ctx, http.MethodGet, "/api/calibration", nil, &out)
	return out, err
}

// Transform returns the persisted transform of a display.
func (c *Client) Transform(ctx context.Context, display string) (*homography.Record, error) {
	var rec homography.Record
	if err := c.do(ctx, http.MethodGet, "/api/calibration/"+url.PathEscape(display), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteCalibration removes the persisted transform of a display.
func (c *Client) DeleteCalibration(ctx context.Context, display string) error {
	return c.do(ctx, http.MethodDelete, "/api/calibration/"+url.PathEscape(display), nil, nil)
}

// do sends a JSON request and decodes the response into out. Error bodies
// are decoded into out as well when it is non-nil, so partial results such
// as a failed calibration's are kept.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
