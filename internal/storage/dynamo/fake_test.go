package dynamo

import (
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// fakeDynamo keeps items in memory and understands only the expressions
// this package sends.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI

	mu       sync.Mutex
	items    []map[string]*dynamodb.AttributeValue
	pageSize int
	queries  int
	err      error
}

func sameKey(a, b map[string]*dynamodb.AttributeValue, names ...string) bool {
	for _, n := range names {
		if a[n] == nil || b[n] == nil {
			return false
		}
		if aws.StringValue(a[n].S) != aws.StringValue(b[n].S) || aws.StringValue(a[n].N) != aws.StringValue(b[n].N) {
			return false
		}
	}
	return true
}

func (f *fakeDynamo) QueryWithContext(_ aws.Context, in *dynamodb.QueryInput, _ ...request.Option) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return nil, f.err
	}

	id := aws.StringValue(in.ExpressionAttributeValues[":id"].S)
	since, _ := strconv.ParseInt(aws.StringValue(in.ExpressionAttributeValues[":since"].N), 10, 64)

	var matched int
	for _, it := range f.items {
		ts, _ := strconv.ParseInt(aws.StringValue(it[attrTimestamp].N), 10, 64)
		if aws.StringValue(it[attrID].S) == id && ts >= since {
			matched++
		}
	}

	offset := 0
	if in.ExclusiveStartKey != nil {
		offset, _ = strconv.Atoi(aws.StringValue(in.ExclusiveStartKey["offset"].N))
	}
	count := matched - offset
	out := &dynamodb.QueryOutput{}
	if f.pageSize > 0 && count > f.pageSize {
		count = f.pageSize
		out.LastEvaluatedKey = map[string]*dynamodb.AttributeValue{
			"offset": {N: aws.String(strconv.Itoa(offset + count))},
		}
	}
	out.Count = aws.Int64(int64(count))
	return out, nil
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	keys := []string{"key"}
	if _, ok := in.Item[attrID]; ok {
		keys = []string{attrID, attrTimestamp}
	}
	for i, it := range f.items {
		if sameKey(it, in.Item, keys...) {
			if in.ConditionExpression != nil {
				return nil, awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)
			}
			f.items[i] = in.Item
			return &dynamodb.PutItemOutput{}, nil
		}
	}
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, it := range f.items {
		if sameKey(it, in.Key, "key") {
			return &dynamodb.GetItemOutput{Item: it}, nil
		}
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItemWithContext(_ aws.Context, in *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i, it := range f.items {
		if sameKey(it, in.Key, "key") {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	return &dynamodb.DeleteItemOutput{}, nil
}
