// Package viacep queries the public ViaCEP address service.
package viacep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/cep-lookup-sample/internal/guard"
)

const (
	// DefaultBaseURL is the production ViaCEP endpoint.
	DefaultBaseURL = "https://viacep.com.br/ws"
	// Timeout bounds every outbound lookup.
	Timeout = 5 * time.Second
)

// Result is the decoded ViaCEP payload, kept as-is.
type Result map[string]any

// NotFound reports whether the service flagged the CEP as unknown.
func (r Result) NotFound() bool {
	_, ok := r["erro"]
	return ok
}

// Field returns the named string field, or "" when absent or not a string.
func (r Result) Field(name string) string {
	s, _ := r[name].(string)
	return s
}

// RequestError covers transport failures and non-2xx responses.
type RequestError struct {
	CEP        string
	StatusCode int
	Status     string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request cep %s: %v", e.CEP, e.Err)
	}
	return fmt.Sprintf("request cep %s: status %s", e.CEP, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ParseError means the body could not be decoded into a JSON object.
type ParseError struct {
	CEP string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("decode cep %s: %v", e.CEP, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Client performs single, unretried lookups.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *zap.SugaredLogger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another ViaCEP-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTransport swaps the HTTP transport. The timeout is unchanged.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// New returns a Client logging failures to log.
func New(log *zap.SugaredLogger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: Timeout},
		baseURL:    DefaultBaseURL,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the bound applied to each request.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

// URL returns the lookup URL for cep.
func (c *Client) URL(cep string) string {
	return c.baseURL + "/" + url.PathEscape(cep) + "/json/"
}

// Lookup fetches cep. Failures are logged with log_type erro_requisicao and
// returned as *RequestError or *ParseError.
func (c *Client) Lookup(ctx context.Context, cep string) (Result, error) {
	res, err := c.lookup(ctx, cep)
	if err != nil {
		c.log.Errorw("lookup failed",
			"log_type", "erro_requisicao",
			"mensagem", err.Error(),
			"cep", cep,
		)
		return nil, err
	}
	return res, nil
}

func (c *Client) lookup(ctx context.Context, cep string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(cep), nil)
	if err != nil {
		return nil, &RequestError{CEP: cep, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{CEP: cep, Err: err}
	}
	defer guard.Close(resp.Body, c.log)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{CEP: cep, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	b, err := guard.ReadBody(resp.Body)
	if err != nil {
		if errors.Is(err, guard.ErrBodyTooLarge) {
			return nil, &ParseError{CEP: cep, Err: err}
		}
		return nil, &RequestError{CEP: cep, Err: fmt.Errorf("read body: %w", err)}
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, &ParseError{CEP: cep, Err: err}
	}
	if res == nil {
		return nil, &ParseError{CEP: cep, Err: errors.New("body is not a JSON object")}
	}
	return res, nil
}
