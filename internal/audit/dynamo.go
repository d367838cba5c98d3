package audit

import (
	"context"
	"strconv"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoLogger puts one item per render, partitioned by UTC day and sorted
// by epoch millis.
type DynamoLogger struct {
	Client DynamoAPI
	Table  string
}

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func (l *DynamoLogger) item(r Record) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"pk":        str("day#" + r.Day()),
		"sk":        &types.AttributeValueMemberN{Value: strconv.FormatInt(r.At.UnixMilli(), 10)},
		"name":      str(r.Name),
		"theme":     str(r.Theme),
		"color":     str(r.Color),
		"lang":      str(r.Lang),
		"country":   str(r.Country),
		"timeOfDay": str(r.TimeOfDay),
		"bagType":   str(r.BagType),
		"bagColor":  str(r.BagColor),
		"orderId":   str(r.OrderID),
		"jobId":     str(r.JobID),
		"s3_key":    str(r.S3Key),
		"s3_url":    str(r.S3URL),
	}
	if r.Email != "" {
		item["email"] = str(r.Email)
	}
	return item
}

func (l *DynamoLogger) Append(ctx context.Context, r Record) error {
	if l.Table == "" {
		return errs.Configuration("Missing AUDIT_TABLE")
	}
	log.FromContextOrDiscard(ctx).WithGroup("dynamodb").Info("writing audit row", "table", l.Table, "key", r.S3Key)

	_, err := l.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.Table),
		Item:      l.item(r),
	})
	return err
}

func (l *DynamoLogger) Ping(ctx context.Context) error {
	if l.Table == "" {
		return errs.Configuration("Missing AUDIT_TABLE")
	}
	_, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(l.Table)})
	return err
}
