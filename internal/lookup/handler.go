// Package lookup turns one Lambda invocation into one CEP lookup and an
// HTTP-shaped response.
package lookup

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/your-org/cep-lookup-sample/internal/audit"
	"github.com/your-org/cep-lookup-sample/internal/cep"
	"github.com/your-org/cep-lookup-sample/internal/viacep"
)

// Looker resolves a single CEP.
type Looker interface {
	Lookup(ctx context.Context, cep string) (viacep.Result, error)
}

// Response is the envelope returned to the caller.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Handler serves invocations. It is safe for concurrent use once built.
type Handler struct {
	candidates []string
	picker     cep.Picker
	client     Looker
	sink       audit.Sink
	log        *zap.SugaredLogger
	now        func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithCandidates replaces the built-in candidate list.
func WithCandidates(c []string) Option { return func(h *Handler) { h.candidates = c } }

// WithPicker replaces the crypto/rand picker.
func WithPicker(p cep.Picker) Option { return func(h *Handler) { h.picker = p } }

// WithSink sends every finished invocation to s.
func WithSink(s audit.Sink) Option { return func(h *Handler) { h.sink = s } }

// WithClock overrides time.Now for audit timestamps.
func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

// New builds a Handler around client.
func New(client Looker, log *zap.SugaredLogger, opts ...Option) *Handler {
	h := &Handler{
		candidates: cep.Default,
		picker:     cep.CryptoPicker{},
		client:     client,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle ignores the trigger payload. Failures are reported in the envelope,
// so the returned error is always nil.
func (h *Handler) Handle(ctx context.Context, _ json.RawMessage) (Response, error) {
	start := h.now()
	code, resp, outcome := h.serve(ctx)
	if h.sink != nil {
		e := audit.Entry{
			CEP:        code,
			Outcome:    outcome,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			At:         start,
			Latency:    h.now().Sub(start),
		}
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			e.RequestID = lc.AwsRequestID
		}
		if err := h.sink.Record(ctx, e); err != nil {
			h.log.Warnw("audit sink", "cep", code, "error", err)
		}
	}
	return resp, nil
}

func (h *Handler) serve(ctx context.Context) (string, Response, audit.Outcome) {
	code, err := cep.Choose(h.candidates, h.picker)
	if err != nil {
		return code, h.failure(code, err), audit.OutcomeError
	}
	res, err := h.client.Lookup(ctx, code)
	if err != nil {
		return code, h.failure(code, err), audit.OutcomeError
	}
	body, err := json.Marshal(res)
	if err != nil {
		return code, h.failure(code, err), audit.OutcomeError
	}

	outcome := audit.OutcomeFound
	if res.NotFound() {
		outcome = audit.OutcomeNotFound
		h.log.Warnw("cep not found",
			"log_type", "cep_invalido",
			"cep", code,
			"mensagem", "CEP não encontrado",
		)
	} else {
		h.log.Infow("cep found",
			"log_type", "consulta_cep",
			"cep", code,
			"localidade", res.Field("localidade"),
			"uf", res.Field("uf"),
			"bairro", res.Field("bairro"),
			"logradouro", res.Field("logradouro"),
		)
	}
	return code, Response{StatusCode: 200, Body: string(body)}, outcome
}

func (h *Handler) failure(code string, err error) Response {
	h.log.Errorw("invocation failed",
		"log_type", "erro",
		"mensagem", err.Error(),
		"cep", code,
	)
	body, _ := json.Marshal(map[string]string{"erro": err.Error()})
	return Response{StatusCode: 500, Body: string(body)}
}
