// Package backend is the typed HTTP client for the Barber Club REST
// backend. All persistence and scheduling authority lives there; this
// client only converts payloads once at the boundary.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"barberclub/internal/models"
)

// Client calls the booking backend over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for the given base URL. apiKey may be
// empty when the backend does not require one.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for catalog GETs.
// Appointment reads are never cached: the wizard depends on fresh
// occupancy data after every submit.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// CreateAppointmentRequest is the body for POST /api/agendamentos.
type CreateAppointmentRequest struct {
	UserID       int64  `json:"usuario_id"`
	ServiceID    int64  `json:"servico_id"`
	BarberID     int64  `json:"barbeiro_id"`
	BarbershopID int64  `json:"barbearia_id"`
	ScheduledAt  string `json:"dataAgendamento"` // RFC3339 with offset
}

// APIError is a non-2xx response from the backend, preserved so the UI
// can surface the server's own message on a failed submission.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend: http %d", e.StatusCode)
}

// ListServices returns the service catalog, optionally scoped to a shop.
func (c *Client) ListServices(ctx context.Context, barbershopID int64) ([]models.Service, error) {
	endpoint := c.baseURL + "/api/servicos"
	if barbershopID > 0 {
		endpoint += "?barbearia_id=" + url.QueryEscape(fmt.Sprint(barbershopID))
	}

	var services []models.Service
	cacheKey := fmt.Sprintf("services:%d", barbershopID)
	if c.readCache(ctx, cacheKey, &services) {
		return services, nil
	}
	if err := c.doGet(ctx, endpoint, &services); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	c.writeCache(ctx, cacheKey, services)
	return services, nil
}

// ListBarbers returns the barber catalog, optionally scoped to a shop.
func (c *Client) ListBarbers(ctx context.Context, barbershopID int64) ([]models.Barber, error) {
	endpoint := c.baseURL + "/api/barbeiros"
	if barbershopID > 0 {
		endpoint += "?barbearia_id=" + url.QueryEscape(fmt.Sprint(barbershopID))
	}

	var barbers []models.Barber
	cacheKey := fmt.Sprintf("barbers:%d", barbershopID)
	if c.readCache(ctx, cacheKey, &barbers) {
		return barbers, nil
	}
	if err := c.doGet(ctx, endpoint, &barbers); err != nil {
		return nil, fmt.Errorf("list barbers: %w", err)
	}
	c.writeCache(ctx, cacheKey, barbers)
	return barbers, nil
}

// ListBarbershops returns every barbershop.
func (c *Client) ListBarbershops(ctx context.Context) ([]models.Barbershop, error) {
	var shops []models.Barbershop
	if c.readCache(ctx, "barbershops", &shops) {
		return shops, nil
	}
	if err := c.doGet(ctx, c.baseURL+"/api/barbearias", &shops); err != nil {
		return nil, fmt.Errorf("list barbershops: %w", err)
	}
	c.writeCache(ctx, "barbershops", shops)
	return shops, nil
}

// ListPartnerBarbershops returns only partner shops, the locator's input.
func (c *Client) ListPartnerBarbershops(ctx context.Context) ([]models.Barbershop, error) {
	var shops []models.Barbershop
	if c.readCache(ctx, "barbershops:partners", &shops) {
		return shops, nil
	}
	if err := c.doGet(ctx, c.baseURL+"/api/barbearias/parceiras", &shops); err != nil {
		return nil, fmt.Errorf("list partner barbershops: %w", err)
	}
	c.writeCache(ctx, "barbershops:partners", shops)
	return shops, nil
}

// ListAppointments returns every appointment known to the backend.
// Scoping to a user or barber happens client-side.
func (c *Client) ListAppointments(ctx context.Context) ([]models.Appointment, error) {
	var appointments []models.Appointment
	if err := c.doGet(ctx, c.baseURL+"/api/agendamentos", &appointments); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// ListUserAppointments returns appointments belonging to the user.
func (c *Client) ListUserAppointments(ctx context.Context, userID int64) ([]models.Appointment, error) {
	all, err := c.ListAppointments(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]models.Appointment, 0, len(all))
	for _, a := range all {
		if a.UserID == userID {
			mine = append(mine, a)
		}
	}
	return mine, nil
}

// CreateAppointment submits one appointment creation. The backend
// creates it in status Pending and remains the scheduling authority.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*models.Appointment, error) {
	var created models.Appointment
	if err := c.doPost(ctx, c.baseURL+"/api/agendamentos", req, &created); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &created, nil
}

// ConfirmAppointment marks an appointment confirmed (admin surface).
func (c *Client) ConfirmAppointment(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/api/agendamentos/confirmar/%d", c.baseURL, id)
	if err := c.doPut(ctx, endpoint, nil, nil); err != nil {
		return fmt.Errorf("confirm appointment %d: %w", id, err)
	}
	return nil
}

// RejectAppointment cancels an appointment (admin surface).
func (c *Client) RejectAppointment(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/api/agendamentos/rejeitar/%d", c.baseURL, id)
	if err := c.doPut(ctx, endpoint, nil, nil); err != nil {
		return fmt.Errorf("reject appointment %d: %w", id, err)
	}
	return nil
}

// CancelAppointment deletes an appointment the user no longer wants.
func (c *Client) CancelAppointment(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/api/agendamentos/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("cancel appointment %d: %w", id, err)
	}
	return nil
}

// HealthCheck verifies the backend is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
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

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	return c.doWithBody(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) doPut(ctx context.Context, endpoint string, body, out any) error {
	return c.doWithBody(ctx, http.MethodPut, endpoint, body, out)
}

func (c *Client) doWithBody(ctx context.Context, method, endpoint string, body, out any) error {
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			if payload.Message != "" {
				apiErr.Message = payload.Message
			} else {
				apiErr.Message = payload.Error
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
