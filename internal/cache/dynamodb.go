package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// DynamoAPI is the part of the DynamoDB client the store uses.
//
//go:generate mockgen -package=cache -destination=mock_dynamodb_test.go -source=dynamodb.go DynamoAPI
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// dateLayout sorts lexically in write order.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

// DynamoDB stores entries in the price-history table: partition key
// "symbol", sort key "date" (write time).
type DynamoDB struct {
	client DynamoAPI
	table  string
}

func NewDynamoDB(client DynamoAPI, table string) *DynamoDB {
	return &DynamoDB{client: client, table: table}
}

// DialDynamoDB loads the default AWS credential chain for region.
func DialDynamoDB(ctx context.Context, table, region string) (*DynamoDB, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewDynamoDB(dynamodb.NewFromConfig(cfg), table), nil
}

// dynamoDecimal stores a decimal as a DynamoDB number without going
// through float64.
type dynamoDecimal struct {
	decimal.Decimal
}

func (d dynamoDecimal) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: d.String()}, nil
}

func (d *dynamoDecimal) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var raw string
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		raw = v.Value
	case *types.AttributeValueMemberNULL:
		d.Decimal = decimal.Zero
		return nil
	default:
		return fmt.Errorf("unexpected attribute %T for decimal", av)
	}
	dec, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	d.Decimal = dec
	return nil
}

// dynamoItem is the table layout. Timestamp and CachedAt are unix seconds
// kept for readers of the table that predate ObservedAt.
type dynamoItem struct {
	Symbol        string        `dynamodbav:"symbol"`
	Date          string        `dynamodbav:"date"`
	Price         dynamoDecimal `dynamodbav:"price"`
	Change        dynamoDecimal `dynamodbav:"change"`
	ChangePercent dynamoDecimal `dynamodbav:"change_percent"`
	Currency      string        `dynamodbav:"currency"`
	Timestamp     int64         `dynamodbav:"timestamp"`
	ObservedAt    string        `dynamodbav:"observed_at,omitempty"`
	Source        string        `dynamodbav:"source"`
	CachedAt      int64         `dynamodbav:"cached_at"`
}

func (d *DynamoDB) Append(ctx context.Context, e Entry) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		Symbol:        e.Symbol,
		Date:          e.WrittenAt.UTC().Format(dateLayout),
		Price:         dynamoDecimal{e.Price},
		Change:        dynamoDecimal{e.Change},
		ChangePercent: dynamoDecimal{e.ChangePercent},
		Currency:      e.Currency,
		Timestamp:     e.ObservedAt.Unix(),
		ObservedAt:    e.ObservedAt.UTC().Format(time.RFC3339Nano),
		Source:        e.Source,
		CachedAt:      e.WrittenAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	return err
}

func (d *DynamoDB) QueryLatest(ctx context.Context, symbol string) (Entry, bool, error) {
	out, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("symbol = :symbol"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":symbol": &types.AttributeValueMemberS{Value: symbol},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return Entry{}, false, err
	}
	if len(out.Items) == 0 {
		return Entry{}, false, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return Entry{}, false, fmt.Errorf("unmarshal entry for %s: %w", symbol, err)
	}
	return item.entry(), true, nil
}

func (item dynamoItem) entry() Entry {
	e := Entry{
		Symbol:        item.Symbol,
		Price:         item.Price.Decimal,
		Change:        item.Change.Decimal,
		ChangePercent: item.ChangePercent.Decimal,
		Currency:      item.Currency,
		Source:        item.Source,
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}
	if t, err := time.Parse(time.RFC3339Nano, item.ObservedAt); err == nil {
		e.ObservedAt = t.UTC()
	} else {
		e.ObservedAt = time.Unix(item.Timestamp, 0).UTC()
	}
	if t, err := time.Parse(dateLayout, item.Date); err == nil {
		e.WrittenAt = t.UTC()
	} else if secs, err := strconv.ParseInt(item.Date, 10, 64); err == nil {
		e.WrittenAt = time.Unix(secs, 0).UTC()
	} else {
		e.WrittenAt = time.Unix(item.CachedAt, 0).UTC()
	}
	return e
}

// Close is a no-op; the SDK client holds no connections to release.
func (d *DynamoDB) Close() error { return nil }
