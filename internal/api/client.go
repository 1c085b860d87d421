package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"renewdesk/internal/cache"
	"renewdesk/internal/metrics"
)

const (
	defaultBaseURL      = "http://localhost:5000/api"
	defaultTimeout      = 30 * time.Second
	defaultDashboardTTL = time.Minute
	maxErrorBody        = 64 << 10
)

// Client provides typed access to the remote dashboard API.
type Client struct {
	logger       *slog.Logger
	baseURL      string
	http         *http.Client
	metrics      *metrics.Metrics
	cache        *cache.Redis
	dashboardTTL time.Duration
	validate     *validator.Validate
}

// Config holds API client configuration.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	DashboardTTL time.Duration
}

// New creates a new API client. metrics and redis may be nil.
func New(cfg Config, logger *slog.Logger, metrics *metrics.Metrics, redis *cache.Redis) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ttl := cfg.DashboardTTL
	if ttl <= 0 {
		ttl = defaultDashboardTTL
	}
	return &Client{
		logger:       logger.With("component", "api"),
		baseURL:      base,
		http:         &http.Client{Timeout: timeout},
		metrics:      metrics,
		cache:        redis,
		dashboardTTL: ttl,
		validate:     newValidator(),
	}
}

// newValidator reports fields by their wire names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// message is the acknowledgement body returned by mutating endpoints.
type message struct {
	Message string `json:"mensagem"`
}

type remoteError struct {
	Error string `json:"erro"`
}

func (c *Client) get(ctx context.Context, op, endpoint string, query url.Values, dest any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return c.do(ctx, op, http.MethodGet, endpoint, nil, dest)
}

func (c *Client) send(ctx context.Context, op, method, endpoint string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return validationError(op, "", fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, op, method, endpoint, body, dest)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body io.Reader, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return validationError(op, "", fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "renewdesk/api-client")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.observe(op, "error", start)
		return connectionError(op, err)
	}
	defer res.Body.Close()
	c.observe(op, strconv.Itoa(res.StatusCode), start)

	if res.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		var remote remoteError
		_ = json.Unmarshal(raw, &remote)
		apiErr := classifyHTTPError(op, res.StatusCode, remote.Error)
		c.logger.Debug("api request failed", "op", op, "status", res.StatusCode, "error", apiErr)
		return apiErr
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return &Error{Op: op, Status: res.StatusCode, Kind: ErrDecode, Err: err}
	}
	return nil
}

func (c *Client) observe(op, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.APIRequests.WithLabelValues(op, status).Inc()
	c.metrics.APILatency.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// check validates input before any request is made.
func (c *Client) check(op string, input any) error {
	if err := c.validate.Struct(input); err != nil {
		return validationError(op, describeValidation(err), err)
	}
	return nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Dados inválidos"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "Dados inválidos: " + strings.Join(fields, ", ")
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}

func setIf(q url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		q.Set(key, value)
	}
}

func setBool(q url.Values, key string, value *bool) {
	if value != nil {
		q.Set(key, strconv.FormatBool(*value))
	}
}

func setInt(q url.Values, key string, value int64) {
	if value > 0 {
		q.Set(key, strconv.FormatInt(value, 10))
	}
}
