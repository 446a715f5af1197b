package debttable

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func init() {
	// Register DynamoDB types with gob
	gob.Register(map[string]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberBOOL{})
}

// Paginator handles pagination by converting last evaluated keys into string
// cursors for clients, and in turn converting client cursors into start keys
// to continue paging of query results.
type Paginator interface {
	// PageCursor generates a string token from the provided start key.
	// Implementors should return an empty token if the start key is nil or
	// empty.
	PageCursor(ctx context.Context, lastkey Item) (string, error)
	// StartKey generates a dynamodb start key from the provided cursor.
	// Implementors should return a nil item if the cursor is an empty string
	// or has expired.
	StartKey(ctx context.Context, cursor string) (Item, error)
}

// TablePaginator implements Paginator by storing start keys in the same
// table under "CURSOR#{id}" keys with a TTL attribute, keeping client
// cursors short and opaque.
type TablePaginator struct {
	table  *Table
	client DynamoDBClient
}

// Paginator returns a Paginator that stores cursors in the table.
func (t *Table) Paginator(client DynamoDBClient) Paginator {
	return &TablePaginator{table: t, client: client}
}

// cursorItem is the stored shape of a pagination cursor. Key holds the gob
// encoded form of the query's last evaluated key.
type cursorItem struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	EntityType string    `dynamodbav:"entity_type"`
	Key        []byte    `dynamodbav:"start_key"`
	Expires    time.Time `dynamodbav:"expires,unixtime"`
}

// PageCursor stores the last evaluated key in the table and returns the
// generated cursor id. If lastkey is empty, an empty string is returned.
func (p *TablePaginator) PageCursor(ctx context.Context, lastkey Item) (string, error) {
	if len(lastkey) == 0 {
		return "", nil
	}

	cursor, err := generateCursor()
	if err != nil {
		return "", fmt.Errorf("failed to generate cursor: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lastkey); err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}

	key, err := p.table.pageKey(cursor)
	if err != nil {
		return "", err
	}

	item, err := attributevalue.MarshalMap(cursorItem{
		PK:         key.Partition,
		SK:         key.Sort,
		EntityType: EntityTypeCursor,
		Key:        buf.Bytes(),
		Expires:    DefaultClock().Add(p.table.PaginationTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor item: %w", err)
	}

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.table.TableName),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store page cursor: %w", err)
	}

	return cursor, nil
}

// StartKey retrieves the cursor item referenced by cursor and decodes the
// stored start key. An unknown or expired cursor yields a nil start key,
// restarting the listing from the beginning.
func (p *TablePaginator) StartKey(ctx context.Context, cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	key, err := p.table.pageKey(cursor)
	if err != nil {
		return nil, err
	}

	out, err := p.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(p.table.TableName),
		Key:       marshalKey(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get page cursor: %w", err)
	}
	if out.Item == nil {
		// Cursor not found or expired
		return nil, nil
	}

	var stored cursorItem
	if err := attributevalue.UnmarshalMap(out.Item, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if len(stored.Key) == 0 {
		return nil, nil
	}
	// TTL deletion is lazy; treat an expired cursor as gone.
	if !stored.Expires.IsZero() && DefaultClock().After(stored.Expires) {
		return nil, nil
	}

	var startKey map[string]types.AttributeValue
	if err := gob.NewDecoder(bytes.NewReader(stored.Key)).Decode(&startKey); err != nil {
		return nil, fmt.Errorf("failed to decode start key: %w", err)
	}

	return startKey, nil
}

// generateCursor creates a unique cursor string using the current time and
// random bytes.
func generateCursor() (string, error) {
	timestamp := time.Now().UnixNano()

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	combined := fmt.Sprintf("%d_%s", timestamp, base64.URLEncoding.EncodeToString(randomBytes))
	return base64.URLEncoding.EncodeToString([]byte(combined)), nil
}
