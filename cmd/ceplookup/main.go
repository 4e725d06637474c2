package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/your-org/cep-lookup-sample/internal/audit"
	"github.com/your-org/cep-lookup-sample/internal/lookup"
	"github.com/your-org/cep-lookup-sample/internal/profile"
	"github.com/your-org/cep-lookup-sample/internal/viacep"
)

var (
	start      = lambda.Start
	loadConfig = config.LoadDefaultConfig
	newLogger  = func() (*zap.Logger, error) { return zap.NewProduction() }

	newSSM = func(cfg aws.Config) profile.SSMAPI { return ssm.NewFromConfig(cfg) }
	newDDB = func(cfg aws.Config) audit.PutItemAPI { return dynamodb.NewFromConfig(cfg) }
	newS3  = func(cfg aws.Config) audit.PutObjectAPI { return s3.NewFromConfig(cfg) }
	newCW  = func(cfg aws.Config) audit.PutMetricDataAPI { return cloudwatch.NewFromConfig(cfg) }
)

// settings holds the optional environment configuration. Every field may be
// empty; the function then looks up the built-in list with no sinks.
type settings struct {
	BaseURL          string
	CandidatesParam  string
	AuditTable       string
	ArchiveBucket    string
	MetricsNamespace string
}

func settingsFromEnv() settings {
	return settings{
		BaseURL:          os.Getenv("VIACEP_BASE_URL"),
		CandidatesParam:  os.Getenv("CEP_LIST_PARAM"),
		AuditTable:       os.Getenv("AUDIT_TABLE"),
		ArchiveBucket:    os.Getenv("ARCHIVE_BUCKET"),
		MetricsNamespace: os.Getenv("METRICS_NAMESPACE"),
	}
}

func build(ctx context.Context, cfg aws.Config, s settings, log *zap.SugaredLogger) (*lookup.Handler, error) {
	var clientOpts []viacep.Option
	if s.BaseURL != "" {
		clientOpts = append(clientOpts, viacep.WithBaseURL(s.BaseURL))
	}
	client := viacep.New(log, clientOpts...)

	var opts []lookup.Option
	if s.CandidatesParam != "" {
		list, err := profile.New(newSSM(cfg), log).Load(ctx, s.CandidatesParam)
		if err != nil {
			return nil, fmt.Errorf("load candidates: %w", err)
		}
		opts = append(opts, lookup.WithCandidates(list))
	}

	var sinks audit.Fanout
	if s.AuditTable != "" {
		sinks = append(sinks, audit.NewDynamoSink(newDDB(cfg), s.AuditTable))
	}
	if s.ArchiveBucket != "" {
		sinks = append(sinks, audit.NewArchiveSink(newS3(cfg), s.ArchiveBucket))
	}
	if s.MetricsNamespace != "" {
		sinks = append(sinks, audit.NewMetricsSink(newCW(cfg), s.MetricsNamespace))
	}
	if len(sinks) > 0 {
		opts = append(opts, lookup.WithSink(sinks))
	}
	return lookup.New(client, log, opts...), nil
}

func run(ctx context.Context) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	log := logger.Sugar()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	h, err := build(ctx, cfg, settingsFromEnv(), log)
	if err != nil {
		return err
	}
	start(h.Handle)
	return nil
}

func main() {
	if err := run(context.Background()); err != nil {
		panic(err)
	}
}
