// Package backend is the HTTP client for the barbershop backend REST API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"barberia/internal/session"
)

// ErrNotFound marks a 404 response. Callers that treat "not found" as a
// designed branch (client lookup) check for it with errors.Is.
var ErrNotFound = errors.New("not found")

// TokenSource supplies the admin auth token, "" when logged out. The token is
// attached to every outgoing request; when absent the header is simply
// omitted and rejection is left to the backend.
type TokenSource interface {
	Token() string
}

// Client calls the backend REST API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// Appointment is a booked appointment as returned by the backend.
type Appointment struct {
	ID       string   `json:"_id"`
	Phone    string   `json:"phone"`
	Name     string   `json:"name"`
	Services []string `json:"services"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
}

// AppointmentRequest is the payload for creating an appointment.
type AppointmentRequest struct {
	Phone    string   `json:"phone"`
	Name     string   `json:"name"`
	Services []string `json:"services"` // service IDs
	Date     string   `json:"date"`     // YYYY-MM-DD
	Time     string   `json:"time"`
}

// NewClient constructs a client with baseURL and the admin token source.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for the service catalog.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// CheckClient looks up a client by phone. A 404 is not an error: it returns
// (nil, nil) and the flow branches to new-client registration.
func (c *Client) CheckClient(ctx context.Context, phone string) (*session.Client, error) {
	endpoint := fmt.Sprintf("%s/clients/%s", c.baseURL, url.PathEscape(phone))
	var client session.Client
	if err := c.doGet(ctx, endpoint, &client); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// CreateClient registers a new client.
func (c *Client) CreateClient(ctx context.Context, phone, name string) (*session.Client, error) {
	endpoint := fmt.Sprintf("%s/clients", c.baseURL)
	body := map[string]string{"phone": phone, "name": name}
	var client session.Client
	if err := c.doPost(ctx, endpoint, body, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// ListServices returns the service catalog, read through the cache when one
// is configured.
func (c *Client) ListServices(ctx context.Context) ([]session.Service, error) {
	endpoint := fmt.Sprintf("%s/services", c.baseURL)
	cacheKey := "services"
	var services []session.Service

	if c.readCache(ctx, cacheKey, &services) {
		return services, nil
	}

	if err := c.doGet(ctx, endpoint, &services); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, services)
	return services, nil
}

// AddService creates a catalog service (admin).
func (c *Client) AddService(ctx context.Context, name string, price float64, duration string) (*session.Service, error) {
	endpoint := fmt.Sprintf("%s/admin/services", c.baseURL)
	body := map[string]any{"name": name, "price": price, "duration": duration}
	var svc session.Service
	if err := c.doPost(ctx, endpoint, body, &svc); err != nil {
		return nil, err
	}
	c.dropCache(ctx, "services")
	return &svc, nil
}

// DeleteService removes a catalog service (admin).
func (c *Client) DeleteService(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/admin/services/%s", c.baseURL, url.PathEscape(id))
	if err := c.doDelete(ctx, endpoint); err != nil {
		return err
	}
	c.dropCache(ctx, "services")
	return nil
}

// AvailableSlots fetches the bookable time labels for a date. Never cached:
// availability must be fresh for the date it was requested against.
func (c *Client) AvailableSlots(ctx context.Context, date time.Time) ([]string, error) {
	endpoint := fmt.Sprintf("%s/appointments/available-slots/%s", c.baseURL, date.Format("2006-01-02"))
	var slots []string
	if err := c.doGet(ctx, endpoint, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// CreateAppointment books an appointment.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	endpoint := fmt.Sprintf("%s/appointments", c.baseURL)
	var appt Appointment
	if err := c.doPost(ctx, endpoint, req, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// AdminLogin exchanges credentials for a token.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (string, error) {
	endpoint := fmt.Sprintf("%s/admin/login", c.baseURL)
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doPost(ctx, endpoint, body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// ListAppointments returns all appointments (admin).
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	endpoint := fmt.Sprintf("%s/admin/appointments", c.baseURL)
	var appts []Appointment
	if err := c.doGet(ctx, endpoint, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// CancelAppointment deletes an appointment (admin).
func (c *Client) CancelAppointment(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/admin/appointments/%s", c.baseURL, url.PathEscape(id))
	return c.doDelete(ctx, endpoint)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) dropCache(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, key).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doDelete(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("x-auth-token", token)
		}
	}
}
