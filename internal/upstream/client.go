package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/taxdesk/internal/observability"
	"github.com/geocoder89/taxdesk/internal/resilience"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ErrUpstream marks every failure of a downstream report or chat service.
var ErrUpstream = errors.New("upstream service failed")

const maxResponseBytes = 8 << 20

type HTTPStatusError struct {
	Service    string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s status: %s", e.Service, e.Status)
	}
	return fmt.Sprintf("%s status: %s: %s", e.Service, e.Status, strings.TrimSpace(e.Body))
}

// recordsBreakerFailure keeps requests the service rejected as malformed
// from opening the circuit for every other caller. 408 and 429 still count.
func recordsBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
			return false
		}
	}
	return true
}

// Service forwards JSON documents to one external endpoint.
type Service struct {
	name       string
	url        string
	httpClient *http.Client
	guard      *resilience.Guard
	prom       *observability.Prom
	log        *slog.Logger
}

type ServiceConfig struct {
	Name    string
	URL     string
	Timeout time.Duration
}

func NewService(cfg ServiceConfig, prom *observability.Prom, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	guard := resilience.NewGuard(cfg.Name, resilience.Config{
		Timeout:       cfg.Timeout,
		RecordFailure: recordsBreakerFailure,
	})

	return &Service{
		name: cfg.Name,
		url:  cfg.URL,
		// guard enforces the per-call deadline; this is a backstop
		httpClient: &http.Client{Timeout: cfg.Timeout + 5*time.Second},
		guard:      guard,
		prom:       prom,
		log:        log,
	}
}

func (s *Service) Name() string {
	return s.name
}

// Forward posts body unchanged and returns the service's JSON response verbatim.
func (s *Service) Forward(ctx context.Context, body []byte) (json.RawMessage, error) {
	start := time.Now()
	var out json.RawMessage

	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = s.post(ctx, body)
		return callErr
	})

	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			result = "circuit_open"
		}
		s.log.WarnContext(ctx, "upstream call failed", "service", s.name, "err", err)
	}
	if s.prom != nil {
		s.prom.ObserveUpstream(s.name, result, time.Since(start))
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, s.name, err)
	}

	return out, nil
}

func (s *Service) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", s.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", s.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", s.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > 2048 {
			snippet = snippet[:2048]
		}
		return nil, &HTTPStatusError{Service: s.name, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(snippet)}
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s returned a non-JSON body", s.name)
	}

	return json.RawMessage(raw), nil
}

type Config struct {
	ReportURL   string
	AIReportURL string
	ChatURL     string
	Timeout     time.Duration
}

// Client bundles the three downstream services the API proxies to.
type Client struct {
	Report   *Service
	AIReport *Service
	Chat     *Service
}

func NewClient(cfg Config, prom *observability.Prom, log *slog.Logger) *Client {
	return &Client{
		Report:   NewService(ServiceConfig{Name: "report", URL: cfg.ReportURL, Timeout: cfg.Timeout}, prom, log),
		AIReport: NewService(ServiceConfig{Name: "ai_report", URL: cfg.AIReportURL, Timeout: cfg.Timeout}, prom, log),
		Chat:     NewService(ServiceConfig{Name: "chat", URL: cfg.ChatURL, Timeout: cfg.Timeout}, prom, log),
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (c *Client) AskChat(ctx context.Context, message string) (json.RawMessage, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return nil, err
	}
	return c.Chat.Forward(ctx, body)
}
