package profile

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/your-org/cep-lookup-sample/internal/validator"
)

// SSMAPI abstracts the SSM GetParameter operation for testability.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Loader retrieves and caches CEP candidate lists stored as JSON arrays in
// SSM Parameter Store.
type Loader struct {
	client SSMAPI
	cache  map[string][]string
	mu     sync.Mutex
	log    *zap.SugaredLogger
}

// New creates a Loader using the provided SSM client and logger.
func New(client SSMAPI, log *zap.SugaredLogger) *Loader {
	return &Loader{client: client, cache: make(map[string][]string), log: log}
}

// Load fetches and validates the candidate list stored under name.
func (l *Loader) Load(ctx context.Context, name string) ([]string, error) {
	l.mu.Lock()
	if p, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return p, nil
	}
	l.mu.Unlock()

	out, err := l.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s has no value", name)
	}

	list, err := validator.Candidates([]byte(*out.Parameter.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid candidates %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = list
	l.mu.Unlock()
	l.log.Infow("candidates loaded", "parameter", name, "count", len(list))
	return list, nil
}
