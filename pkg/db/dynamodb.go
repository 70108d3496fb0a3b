package db

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"scrapejob/pkg/domain"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoClient.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoClient writes records as schema-less DynamoDB items whose partition
// key is "id". PutItem replaces an existing item with the same id.
type DynamoClient struct {
	api DynamoAPI
}

// NewDynamoClient wraps a DynamoDB client.
func NewDynamoClient(api DynamoAPI) *DynamoClient {
	return &DynamoClient{api: api}
}

// PutRecord implements RowStore.
func (c *DynamoClient) PutRecord(ctx context.Context, table string, rec domain.Record) error {
	if err := checkRecord(table, rec); err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(map[string]string(rec))
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID(), err)
	}

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put %s into %s: %w", rec.ID(), table, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no connection to release.
func (c *DynamoClient) Close() error {
	return nil
}
