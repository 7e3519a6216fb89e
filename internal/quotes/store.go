package quotes

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/charterops/lead-pipeline/internal/aws"
)

// RequestStore persists submitted quote requests keyed by their
// marketplace correlation id.
type RequestStore struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewRequestStore creates a RequestStore bound to a table.
func NewRequestStore(client aws.DynamoDBAPI, tableName string) *RequestStore {
	return &RequestStore{client: client, tableName: tableName}
}

// Record writes the submission. Requests are immutable, so an existing row
// is never overwritten.
func (s *RequestStore) Record(ctx context.Context, req QuoteRequest) error {
	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return fmt.Errorf("marshal quote request: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(quote_request_id)"),
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches a recorded submission by correlation id. Returns (nil, nil)
// if not found.
func (s *RequestStore) Get(ctx context.Context, correlationID string) (*QuoteRequest, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"quote_request_id": &types.AttributeValueMemberS{Value: correlationID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var req QuoteRequest
	if err := attributevalue.UnmarshalMap(out.Item, &req); err != nil {
		return nil, fmt.Errorf("unmarshal quote request: %w", err)
	}
	return &req, nil
}

func awsString(s string) *string { return &s }
