package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/your-org/cep-lookup-sample/internal/audit"
	"github.com/your-org/cep-lookup-sample/internal/cep"
	"github.com/your-org/cep-lookup-sample/internal/viacep"
)

type stubLooker struct {
	res   viacep.Result
	err   error
	calls []string
}

func (s *stubLooker) Lookup(ctx context.Context, code string) (viacep.Result, error) {
	s.calls = append(s.calls, code)
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

type recordingSink struct {
	entries []audit.Entry
	err     error
}

func (r *recordingSink) Record(ctx context.Context, e audit.Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func first() cep.Picker {
	return cep.PickerFunc(func(int) (int, error) { return 0, nil })
}

func found() viacep.Result {
	return viacep.Result{
		"cep":        "01001-000",
		"logradouro": "Praça da Sé",
		"bairro":     "Sé",
		"localidade": "São Paulo",
		"uf":         "SP",
	}
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("body is not JSON: %v (%s)", err, body)
	}
	return m
}

func TestHandleFound(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &stubLooker{res: found()}
	h := New(l, zap.New(core).Sugar(), WithPicker(first()))

	resp, err := h.Handle(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if got := decodeBody(t, resp.Body); !reflect.DeepEqual(got, map[string]any(found())) {
		t.Fatalf("body changed: %v", got)
	}
	if len(l.calls) != 1 || l.calls[0] != "01001000" {
		t.Fatalf("unexpected lookups %v", l.calls)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one log record, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Level != zapcore.InfoLevel {
		t.Fatalf("unexpected level %s", entry.Level)
	}
	want := map[string]any{
		"log_type":   "consulta_cep",
		"cep":        "01001000",
		"localidade": "São Paulo",
		"uf":         "SP",
		"bairro":     "Sé",
		"logradouro": "Praça da Sé",
	}
	if got := entry.ContextMap(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected fields: %v", got)
	}
}

func TestHandleFoundMissingFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := New(&stubLooker{res: viacep.Result{"cep": "01001-000"}}, zap.New(core).Sugar(), WithPicker(first()))
	resp, _ := h.Handle(context.Background(), nil)
	if resp.StatusCode != 200 || resp.Body != `{"cep":"01001-000"}` {
		t.Fatalf("unexpected response %+v", resp)
	}
	fields := logs.All()[0].ContextMap()
	if fields["localidade"] != "" || fields["logradouro"] != "" {
		t.Fatalf("expected empty fields, got %v", fields)
	}
}

func TestHandleNotFound(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := New(&stubLooker{res: viacep.Result{"erro": true}}, zap.New(core).Sugar(), WithPicker(first()))

	resp, err := h.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if resp.StatusCode != 200 || resp.Body != `{"erro":true}` {
		t.Fatalf("unexpected response %+v", resp)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one log record, got %d", logs.Len())
	}
	entry := logs.All()[0]
	fields := entry.ContextMap()
	if entry.Level != zapcore.WarnLevel || fields["log_type"] != "cep_invalido" ||
		fields["cep"] != "01001000" || fields["mensagem"] != "CEP não encontrado" {
		t.Fatalf("unexpected log %s %v", entry.Level, fields)
	}
}

func TestHandleLookupFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := New(&stubLooker{err: errors.New("Erro na requisição")}, zap.New(core).Sugar(), WithPicker(first()))

	resp, err := h.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("error escaped the invocation: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if got := decodeBody(t, resp.Body); !reflect.DeepEqual(got, map[string]any{"erro": "Erro na requisição"}) {
		t.Fatalf("unexpected body %v", got)
	}
	entries := logs.FilterField(zap.String("log_type", "erro")).All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("unexpected logs %v", logs.All())
	}
	fields := entries[0].ContextMap()
	if fields["mensagem"] != "Erro na requisição" || fields["cep"] != "01001000" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestHandlePickerFailure(t *testing.T) {
	l := &stubLooker{res: found()}
	boom := cep.PickerFunc(func(int) (int, error) { return 0, errors.New("entropy unavailable") })
	h := New(l, zap.NewNop().Sugar(), WithPicker(boom))
	resp, _ := h.Handle(context.Background(), nil)
	if resp.StatusCode != 500 || resp.Body != `{"erro":"entropy unavailable"}` {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(l.calls) != 0 {
		t.Fatal("lookup should not run without a cep")
	}
}

func TestHandleEmptyCandidates(t *testing.T) {
	h := New(&stubLooker{res: found()}, zap.NewNop().Sugar(), WithCandidates(nil))
	resp, _ := h.Handle(context.Background(), nil)
	if resp.StatusCode != 500 {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestHandleEveryCandidate(t *testing.T) {
	for i, code := range cep.Default {
		i := i
		l := &stubLooker{res: found()}
		pick := cep.PickerFunc(func(int) (int, error) { return i, nil })
		h := New(l, zap.NewNop().Sugar(), WithPicker(pick))
		resp, _ := h.Handle(context.Background(), nil)
		if !json.Valid([]byte(resp.Body)) {
			t.Fatalf("invalid JSON body for %s: %s", code, resp.Body)
		}
		if l.calls[0] != code {
			t.Fatalf("expected lookup of %s, got %v", code, l.calls)
		}
	}
}

func TestHandleRandomPickStaysInSet(t *testing.T) {
	l := &stubLooker{res: found()}
	h := New(l, zap.NewNop().Sugar())
	for i := 0; i < 50; i++ {
		h.Handle(context.Background(), nil)
	}
	allowed := make(map[string]bool)
	for _, c := range cep.Default {
		allowed[c] = true
	}
	for _, c := range l.calls {
		if !allowed[c] {
			t.Fatalf("picked cep outside the set: %s", c)
		}
	}
}

func TestHandleIdempotentEnvelopes(t *testing.T) {
	for name, l := range map[string]*stubLooker{
		"found":     {res: found()},
		"not found": {res: viacep.Result{"erro": true}},
		"failure":   {err: errors.New("timeout")},
	} {
		t.Run(name, func(t *testing.T) {
			h := New(l, zap.NewNop().Sugar())
			a, _ := h.Handle(context.Background(), nil)
			b, _ := h.Handle(context.Background(), json.RawMessage(`{"ignored":true}`))
			ja, _ := json.Marshal(a)
			jb, _ := json.Marshal(b)
			if string(ja) != string(jb) {
				t.Fatalf("envelopes differ: %s vs %s", ja, jb)
			}
		})
	}
}

func TestResponseJSONShape(t *testing.T) {
	b, err := json.Marshal(Response{StatusCode: 200, Body: `{"erro":true}`})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"statusCode":200,"body":"{\"erro\":true}"}` {
		t.Fatalf("unexpected envelope %s", b)
	}
}

func TestHandleAuditEntry(t *testing.T) {
	sink := &recordingSink{}
	tick := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(10 * time.Millisecond)
		return tick
	}
	h := New(&stubLooker{res: viacep.Result{"erro": true}}, zap.NewNop().Sugar(),
		WithPicker(first()), WithSink(sink), WithClock(clock))

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-9"})
	resp, _ := h.Handle(ctx, nil)
	if len(sink.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(sink.entries))
	}
	e := sink.entries[0]
	if e.CEP != "01001000" || e.RequestID != "req-9" || e.Outcome != audit.OutcomeNotFound ||
		e.StatusCode != resp.StatusCode || e.Body != resp.Body || e.Latency != 10*time.Millisecond {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestHandleAuditFailureKeepsEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := &recordingSink{err: errors.New("dynamo down")}
	h := New(&stubLooker{res: found()}, zap.New(core).Sugar(), WithPicker(first()), WithSink(sink))
	plain := New(&stubLooker{res: found()}, zap.NewNop().Sugar(), WithPicker(first()))

	got, err := h.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("handle error: %v", err)
	}
	want, _ := plain.Handle(context.Background(), nil)
	if got != want {
		t.Fatalf("sink failure changed envelope: %+v vs %+v", got, want)
	}
	if logs.FilterMessage("audit sink").Len() != 1 {
		t.Fatalf("expected audit warning, got %v", logs.All())
	}
	if sink.entries[0].Outcome != audit.OutcomeFound {
		t.Fatalf("unexpected outcome %s", sink.entries[0].Outcome)
	}
}

func TestHandleWithViaCEPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/00000000/json/" {
			io.WriteString(w, `{"erro": true}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core).Sugar()
	client := viacep.New(log, viacep.WithBaseURL(srv.URL))

	h := New(client, log, WithCandidates([]string{"00000000"}))
	resp, _ := h.Handle(context.Background(), nil)
	if resp.StatusCode != 200 || resp.Body != `{"erro":true}` {
		t.Fatalf("unexpected response %+v", resp)
	}

	h = New(client, log, WithCandidates([]string{"01001000"}))
	resp, _ = h.Handle(context.Background(), nil)
	if resp.StatusCode != 500 || !strings.Contains(resp.Body, "502 Bad Gateway") {
		t.Fatalf("unexpected response %+v", resp)
	}
	if logs.FilterField(zap.String("log_type", "erro_requisicao")).Len() != 1 ||
		logs.FilterField(zap.String("log_type", "erro")).Len() != 1 {
		t.Fatalf("unexpected logs %v", logs.All())
	}
}
