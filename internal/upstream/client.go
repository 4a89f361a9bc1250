package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voltroute/voltroute/internal/models"
)

// Error is a failure reported by the optimization API itself. The server's
// literal message is preserved so it can be shown to the user verbatim.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// IsUpstreamError reports whether err carries a server-reported message.
func IsUpstreamError(err error) (*Error, bool) {
	ue, ok := err.(*Error)
	return ue, ok
}

// Client talks to the remote route-optimization API. Every call is a single
// request/response round trip: no retries, no polling.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the API at baseURL. The timeout bounds
// every call, including the optimize round trip.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// errorBody is the {"error": "..."} shape the API uses for failures.
type errorBody struct {
	Error string `json:"error"`
}

// post sends a JSON body and decodes a 2xx response into out (out may be
// nil when the body is not consumed beyond the success check). Non-2xx
// responses become *Error with the server's message.
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error != "" {
		return &Error{StatusCode: resp.StatusCode, Message: eb.Error}
	}
	return &Error{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("optimization service returned status %d", resp.StatusCode),
	}
}

// FetchCatalog loads the company -> model -> specs mapping.
func (c *Client) FetchCatalog(ctx context.Context) (models.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ev-data", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var catalog models.Catalog
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return catalog, nil
}

// loginResponse wraps the authenticated identity.
type loginResponse struct {
	Message string          `json:"message"`
	User    *models.Session `json:"user"`
}

// Login authenticates a vehicle number and returns its identity.
func (c *Client) Login(ctx context.Context, vehicleNumber string) (*models.Session, error) {
	in := map[string]string{"vehicle_number": vehicleNumber}

	var out loginResponse
	if err := c.post(ctx, "/api/login", in, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("login response missing user")
	}
	return out.User, nil
}

// SignupRequest registers a new vehicle.
type SignupRequest struct {
	VehicleNumber   string  `json:"vehicle_number"`
	Company         string  `json:"company"`
	Model           string  `json:"model"`
	Year            int     `json:"year"`
	BatteryCapacity float64 `json:"battery_capacity"`
	VehicleRange    float64 `json:"vehicle_range"`
}

// Signup creates an account. The response body is not consumed beyond the
// success check; the caller sends the user back to login.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.post(ctx, "/api/signup", req, nil)
}

// Optimize submits one optimization request and returns the raw decoded
// result. Not retried; a failure leaves no partial state behind.
func (c *Client) Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	var out models.OptimizeResult
	if err := c.post(ctx, "/api/optimize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
