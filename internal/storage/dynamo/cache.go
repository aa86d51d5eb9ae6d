package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
)

const DefaultCacheTable = "gaming-playtime-tracker-cache"

type cacheItem struct {
	Key   string `dynamodbav:"key"`
	Value string `dynamodbav:"value"`
	// ExpireAtMs is checked on read. TTL is the coarse second-resolution
	// attribute DynamoDB deletes by, which can lag by hours.
	ExpireAtMs int64 `dynamodbav:"expireAtMs"`
	TTL        int64 `dynamodbav:"ttl"`
}

type DynamoCache struct {
	client     dynamodbiface.DynamoDBAPI
	table      string
	defaultTTL time.Duration
	now        func() time.Time
}

func NewDynamoCache(client dynamodbiface.DynamoDBAPI, table string, defaultTTL time.Duration) *DynamoCache {
	if table == "" {
		table = DefaultCacheTable
	}
	if defaultTTL <= 0 {
		defaultTTL = playtime.DefaultCacheTTL
	}
	return &DynamoCache{client: client, table: table, defaultTTL: defaultTTL, now: time.Now}
}

func (c *DynamoCache) WithClock(now func() time.Time) *DynamoCache {
	if now != nil {
		c.now = now
	}
	return c
}

func (c *DynamoCache) keyOf(key string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{"key": {S: aws.String(key)}}
}

func (c *DynamoCache) Get(ctx context.Context, key string) (playtime.Response, bool, error) {
	out, err := c.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            c.keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return playtime.Response{}, false, fmt.Errorf("dynamodb get: %w", err)
	}
	if len(out.Item) == 0 {
		return playtime.Response{}, false, nil
	}

	var item cacheItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return playtime.Response{}, false, fmt.Errorf("decode cache item: %w", err)
	}
	if item.ExpireAtMs <= c.now().UnixMilli() {
		return playtime.Response{}, false, nil
	}

	var resp playtime.Response
	if err := json.Unmarshal([]byte(item.Value), &resp); err != nil {
		return playtime.Response{}, false, fmt.Errorf("decode cached response: %w", err)
	}
	return resp, true, nil
}

func (c *DynamoCache) Set(ctx context.Context, key string, value playtime.Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	expireAt := c.now().Add(ttl)
	item, err := dynamodbattribute.MarshalMap(cacheItem{
		Key:        key,
		Value:      string(raw),
		ExpireAtMs: expireAt.UnixMilli(),
		TTL:        expireAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode cache item: %w", err)
	}

	if _, err := c.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb put: %w", err)
	}
	return nil
}

func (c *DynamoCache) Delete(ctx context.Context, key string) error {
	if _, err := c.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.table),
		Key:       c.keyOf(key),
	}); err != nil {
		return fmt.Errorf("dynamodb delete: %w", err)
	}
	return nil
}

var _ playtime.Cache = (*DynamoCache)(nil)
