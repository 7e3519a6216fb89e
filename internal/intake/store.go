package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/charterops/lead-pipeline/internal/aws"
)

// ErrEmptyPayload is returned by Enqueue before any storage attempt when
// the raw payload is absent or blank.
var ErrEmptyPayload = errors.New("empty payload")

// ErrStorageUnavailable wraps a durable-store write failure. No partial
// state was created, so the caller may safely retry.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrNotFound indicates the referenced import does not exist.
var ErrNotFound = errors.New("pending import not found")

// InvalidTransitionError reports a rejected status change. Current carries
// the record's status at the time of the attempt for diagnosis.
type InvalidTransitionError struct {
	ImportID  string
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s -> %s", e.ImportID, e.Current, e.Requested)
}

// predecessor maps each reachable status to its sole legal prior status.
// Encoding the graph this way lets Transition express forward-only as a
// single conditional write: the row must still hold the predecessor.
var predecessor = map[string]string{
	StatusProcessing: StatusReceived,
	StatusCommitted:  StatusProcessing,
	StatusFailed:     StatusProcessing,
}

// Store owns the pending-import table. All status writes go through
// Transition; nothing else may touch the status attribute.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	newID     func() string
}

// NewStore creates a new intake Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

// Enqueue persists a new pending import with status "received" and returns
// its id. Every accepted call creates an independent record; duplicates
// from webhook retries are an explicit, documented trade-off handled
// downstream, never merged here.
func (s *Store) Enqueue(ctx context.Context, rawData, source string) (string, error) {
	if strings.TrimSpace(rawData) == "" {
		return "", ErrEmptyPayload
	}

	now := s.nowFunc().UTC()
	rec := PendingLeadImport{
		ImportID:  s.newID(),
		RawData:   rawData,
		Source:    source,
		Status:    StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return "", fmt.Errorf("marshal pending import: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
		// guard against id collision; the id is fresh so this never merges calls
		ConditionExpression: awsString("attribute_not_exists(import_id)"),
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		return "", fmt.Errorf("%w: put item: %v", ErrStorageUnavailable, err)
	}
	return rec.ImportID, nil
}

// Transition moves an import to newStatus. The forward-only invariant is
// enforced by a conditional update: the row must still hold newStatus's
// sole legal predecessor, so concurrent callers are serialized by the
// store itself and a losing racer gets InvalidTransitionError rather than
// a silent no-op.
func (s *Store) Transition(ctx context.Context, id, newStatus string) error {
	return s.transition(ctx, id, newStatus, "")
}

// TransitionWithNote is Transition plus a short diagnostic recorded on the
// row, typically the reason a consumer marked the import failed.
func (s *Store) TransitionWithNote(ctx context.Context, id, newStatus, note string) error {
	return s.transition(ctx, id, newStatus, note)
}

func (s *Store) transition(ctx context.Context, id, newStatus, note string) error {
	expected, ok := predecessor[newStatus]
	if !ok {
		// "received" or an unknown status can never be a transition target
		rec, err := s.Peek(ctx, id)
		if err != nil {
			return err
		}
		return &InvalidTransitionError{ImportID: id, Current: rec.Status, Requested: newStatus}
	}

	now := s.nowFunc().UTC()
	updateExpr := "SET #s = :new, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: newStatus},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":expected": &types.AttributeValueMemberS{Value: expected},
	}
	if note != "" {
		updateExpr += ", note = :n"
		values[":n"] = &types.AttributeValueMemberS{Value: note}
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"import_id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException" {
			// the row is not in the expected state; read it to report why
			rec, perr := s.Peek(ctx, id)
			if perr != nil {
				return perr
			}
			return &InvalidTransitionError{ImportID: id, Current: rec.Status, Requested: newStatus}
		}
		return fmt.Errorf("%w: update item: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Peek fetches a pending import by id.
func (s *Store) Peek(ctx context.Context, id string) (*PendingLeadImport, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"import_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get item: %v", ErrStorageUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var rec PendingLeadImport
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal pending import: %w", err)
	}
	return &rec, nil
}

func awsString(s string) *string { return &s }
