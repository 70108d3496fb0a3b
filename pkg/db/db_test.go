package db

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"

	"scrapejob/pkg/domain"
)

func newsRecord(seq int, content string) domain.Record {
	ts := "2024-01-01 00:00:00"
	return domain.Record{
		"id":          string(domain.MakeID(ts, seq)),
		"source":      "bloomberg.com/markets",
		"content":     content,
		"searched_on": ts,
	}
}

func TestValidateTable(t *testing.T) {
	require.NoError(t, ValidateTable("airfares.scraping"))
	require.NoError(t, ValidateTable("news_scraping"))
	require.ErrorIs(t, ValidateTable(""), ErrInvalidTable)
	require.ErrorIs(t, ValidateTable(`x"; DROP TABLE y; --`), ErrInvalidTable)
	require.ErrorIs(t, ValidateTable("1abc"), ErrInvalidTable)
}

func TestQuoteIdent(t *testing.T) {
	require.Equal(t, `"airfares"."scraping"`, quoteIdent("airfares.scraping"))
	require.Equal(t, `"news"`, quoteIdent("news"))
}

func TestMemoryStore_Overwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.PutRecord(ctx, "news", newsRecord(0, "X")))
	require.NoError(t, m.PutRecord(ctx, "news", newsRecord(0, "Y")))
	require.Equal(t, 1, m.Len("news"))
	require.Equal(t, 2, m.Puts())

	got, ok := m.Get("news", domain.MakeID("2024-01-01 00:00:00", 0))
	require.True(t, ok)
	require.Equal(t, "Y", got["content"])

	require.ErrorIs(t, m.PutRecord(ctx, "news", domain.Record{"content": "no id"}), ErrMissingID)
}

type fakeDynamo struct {
	inputs []*dynamodb.PutItemInput
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.inputs = append(f.inputs, in)
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoClient_PutRecord(t *testing.T) {
	fake := &fakeDynamo{}
	c := NewDynamoClient(fake)

	require.NoError(t, c.PutRecord(context.Background(), "airfares.scraping", newsRecord(3, "X")))
	require.Len(t, fake.inputs, 1)
	require.Equal(t, "airfares.scraping", aws.ToString(fake.inputs[0].TableName))

	var item map[string]string
	require.NoError(t, attributevalue.UnmarshalMap(fake.inputs[0].Item, &item))
	require.Equal(t, "2024-01-01 00:00:00-result3", item["id"])
	require.Equal(t, "X", item["content"])
}

func TestSQLiteClient_PutRecord(t *testing.T) {
	ctx := context.Background()
	c, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "rows.db"))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.PutRecord(ctx, "news_scraping", newsRecord(0, "X")))
	require.NoError(t, c.PutRecord(ctx, "news_scraping", newsRecord(1, "Y")))
	require.NoError(t, c.PutRecord(ctx, "news_scraping", newsRecord(1, "Z")))

	var n int
	require.NoError(t, c.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "news_scraping"`).Scan(&n))
	require.Equal(t, 2, n)

	var payload string
	require.NoError(t, c.DB().QueryRowContext(ctx,
		`SELECT payload FROM "news_scraping" WHERE id = ?`, "2024-01-01 00:00:00-result1").Scan(&payload))

	var rec domain.Record
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))
	require.Equal(t, "Z", rec["content"])
}
