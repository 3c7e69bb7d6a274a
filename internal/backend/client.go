// Package backend is the access layer to the REST backend of record.
//
// Client performs one HTTP round trip and maps failures onto the domain error
// taxonomy. Resource adds typed CRUD calls for one entity path, and Hook keeps
// the asynchronous, tag-routed contract used for reference data.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/metrics"
)

const (
	// DefaultTimeout bounds a single backend call.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read for its message.
	maxErrorBody = 64 * 1024
)

// Config contains configuration for the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, mostly for tests
}

// Client calls the REST backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a backend client rooted at cfg.BaseURL.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base URL must be http or https, got %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// BaseURL returns the backend root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string     // relative to the base URL, e.g. "/banques/findall"
	Query  url.Values // optional
	Body   any        // JSON-encoded when non-nil
	Tag    string     // operation tag, echoed on the response
	Token  string     // bearer token; omitted when empty
}

// Response is a successful (2xx) backend answer.
type Response struct {
	Tag         string
	Status      int
	ContentType string
	Body        []byte
}

// JSON decodes the body into v. An empty body leaves v untouched.
func (r *Response) JSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// StatusError is the underlying error of a non-2xx backend answer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// Do performs the request. Non-2xx answers and transport failures are
// returned as *domain.Error whose Op is the request tag.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	op := req.Tag
	if op == "" {
		op = "backend"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, domain.Internal(err, op, "build backend request")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		metrics.BackendCall(req.Method, req.Tag, metrics.OutcomeError, duration)
		c.logger.Error("backend call failed",
			"tag", req.Tag,
			"method", req.Method,
			"path", req.Path,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		if errors.Is(err, context.Canceled) {
			return nil, domain.Wrap(err, domain.EINTERNAL, op, "request canceled")
		}
		return nil, domain.Internal(err, op, "backend unreachable")
	}
	defer resp.Body.Close()

	logAttrs := []any{
		"tag", req.Tag,
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		metrics.BackendCall(req.Method, req.Tag, metrics.OutcomeError, duration)
		c.logger.Warn("backend call rejected", logAttrs...)
		return nil, classify(op, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BackendCall(req.Method, req.Tag, metrics.OutcomeError, duration)
		return nil, domain.Internal(err, op, "read backend response")
	}

	metrics.BackendCall(req.Method, req.Tag, metrics.OutcomeSuccess, duration)
	c.logger.Debug("backend call", logAttrs...)

	return &Response{
		Tag:         req.Tag,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	return httpReq, nil
}

// classify maps an HTTP status onto a domain error code.
func classify(op string, status int, body []byte) error {
	code := StatusCode(status)
	statusErr := &StatusError{Status: status, Body: strings.TrimSpace(string(body))}

	msg := backendMessage(body)
	if msg == "" {
		msg = defaultMessage(code)
	}
	return domain.Wrap(statusErr, code, op, msg)
}

// StatusCode returns the domain error code for an HTTP status.
func StatusCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.EINVALID
	case http.StatusUnauthorized:
		return domain.EUNAUTHORIZED
	case http.StatusForbidden:
		return domain.EFORBIDDEN
	case http.StatusNotFound:
		return domain.ENOTFOUND
	case http.StatusConflict:
		return domain.ECONFLICT
	case http.StatusTooManyRequests:
		return domain.ERATELIMIT
	default:
		return domain.EINTERNAL
	}
}

func defaultMessage(code string) string {
	switch code {
	case domain.EINVALID:
		return "La requête a été refusée par le serveur."
	case domain.EUNAUTHORIZED:
		return "Votre session a expiré. Veuillez vous reconnecter."
	case domain.EFORBIDDEN:
		return "Vous n'avez pas les droits pour cette opération."
	case domain.ENOTFOUND:
		return "Élément introuvable."
	case domain.ECONFLICT:
		return "Cet élément existe déjà ou a été modifié."
	case domain.ERATELIMIT:
		return "Trop de requêtes. Réessayez plus tard."
	default:
		return "Une erreur est survenue. Veuillez réessayer."
	}
}

// backendMessage extracts a human message from common error payloads.
func backendMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, s := range []string{payload.Message, payload.Detail, payload.Error} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
