package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/your-org/cep-lookup-sample/internal/guard"
)

// PutItemAPI abstracts the DynamoDB PutItem operation.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoSink writes one audit item per invocation, keyed by CEP and request.
type DynamoSink struct {
	db    PutItemAPI
	table string
}

// NewDynamoSink returns a sink writing to table.
func NewDynamoSink(db PutItemAPI, table string) *DynamoSink {
	return &DynamoSink{db: db, table: table}
}

// Record implements Sink.
func (d *DynamoSink) Record(ctx context.Context, e Entry) error {
	_, err := d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &d.table,
		Item: map[string]types.AttributeValue{
			"CEP":        &types.AttributeValueMemberS{Value: e.CEP},
			"RequestId":  &types.AttributeValueMemberS{Value: objectID(e)},
			"Outcome":    &types.AttributeValueMemberS{Value: string(e.Outcome)},
			"StatusCode": &types.AttributeValueMemberN{Value: strconv.Itoa(e.StatusCode)},
			"BodySHA256": &types.AttributeValueMemberS{Value: guard.ComputeSHA256([]byte(e.Body))},
			"LookedUpAt": &types.AttributeValueMemberS{Value: e.At.UTC().Format(time.RFC3339Nano)},
			"LatencyMs":  &types.AttributeValueMemberN{Value: strconv.FormatInt(e.Latency.Milliseconds(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("put audit item: %w", err)
	}
	return nil
}
