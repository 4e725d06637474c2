package audit

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// PutMetricDataAPI abstracts the CloudWatch PutMetricData operation.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsSink publishes a lookup counter and latency per invocation.
type MetricsSink struct {
	cw        PutMetricDataAPI
	namespace string
}

// NewMetricsSink returns a sink publishing under namespace.
func NewMetricsSink(cw PutMetricDataAPI, namespace string) *MetricsSink {
	return &MetricsSink{cw: cw, namespace: namespace}
}

// Record implements Sink.
func (m *MetricsSink) Record(ctx context.Context, e Entry) error {
	outcome := []cwtypes.Dimension{{Name: aws.String("Outcome"), Value: aws.String(string(e.Outcome))}}
	_, err := m.cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("Lookups"),
				Dimensions: outcome,
				Unit:       cwtypes.StandardUnitCount,
				Value:      aws.Float64(1),
			},
			{
				MetricName: aws.String("LookupLatencyMs"),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Value:      aws.Float64(float64(e.Latency.Milliseconds())),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metrics: %w", err)
	}
	return nil
}
