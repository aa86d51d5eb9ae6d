package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/Dzaakk/playtime-gateway/internal/limiter"
)

const (
	DefaultRateLimitTable = "gaming-playtime-tracker-rate-limits"

	attrID        = "id"
	attrTimestamp = "timestamp"
	attrTTL       = "ttl"

	// putAttempts bounds the retries when two records of one identity land
	// on the same millisecond sort key.
	putAttempts = 5
)

// NewClient builds a DynamoDB client for region. A non-empty endpoint
// points it at a local emulator.
func NewClient(region, endpoint string) (*dynamodb.DynamoDB, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return dynamodb.New(sess), nil
}

// DynamoStore keeps one item per accepted request, partitioned by identity
// and sorted by millisecond timestamp. The ttl attribute is meant to be the
// table's TTL attribute so old items are reaped by DynamoDB itself.
type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func NewDynamoStore(client dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	if table == "" {
		table = DefaultRateLimitTable
	}
	return &DynamoStore{client: client, table: table}
}

func (d *DynamoStore) CountSince(ctx context.Context, identity string, since time.Time) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("#id = :id AND #ts >= :since"),
		ExpressionAttributeNames: map[string]*string{
			"#id": aws.String(attrID),
			"#ts": aws.String(attrTimestamp),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":id":    {S: aws.String(identity)},
			":since": {N: aws.String(strconv.FormatInt(since.UnixMilli(), 10))},
		},
		Select:         aws.String(dynamodb.SelectCount),
		ConsistentRead: aws.Bool(true),
	}

	total := 0
	for {
		out, err := d.client.QueryWithContext(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("dynamodb query: %w", err)
		}
		total += int(aws.Int64Value(out.Count))

		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (d *DynamoStore) Record(ctx context.Context, rec limiter.Record) error {
	ts := rec.Timestamp.UnixMilli()
	ttl := strconv.FormatInt(rec.ExpireAt.Unix(), 10)

	for attempt := 0; attempt < putAttempts; attempt++ {
		_, err := d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(d.table),
			Item: map[string]*dynamodb.AttributeValue{
				attrID:        {S: aws.String(rec.Identity)},
				attrTimestamp: {N: aws.String(strconv.FormatInt(ts, 10))},
				attrTTL:       {N: aws.String(ttl)},
			},
			ConditionExpression:      aws.String("attribute_not_exists(#ts)"),
			ExpressionAttributeNames: map[string]*string{"#ts": aws.String(attrTimestamp)},
		})
		if err == nil {
			return nil
		}
		if !isConditionFailed(err) {
			return fmt.Errorf("dynamodb put: %w", err)
		}
		ts++
	}
	return fmt.Errorf("dynamodb put: no free timestamp slot for %q after %d attempts", rec.Identity, putAttempts)
}

func isConditionFailed(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

var _ limiter.Store = (*DynamoStore)(nil)
