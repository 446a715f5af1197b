package debttable_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/debttable/debttable"
	"github.com/debttable/debttable/debtmock"
)

func TestTablePaginator(t *testing.T) {
	ctx := context.Background()
	table := debttable.NewTable("debt-ledger")
	client := debtmock.NewMemoryClient()
	paginator := table.Paginator(client)

	lastkey := debttable.Item{
		"PK": &types.AttributeValueMemberS{Value: "USER#john"},
		"SK": &types.AttributeValueMemberS{Value: "DEBT#d5"},
	}

	t.Run("round trip", func(t *testing.T) {
		cursor, err := paginator.PageCursor(ctx, lastkey)
		if err != nil {
			t.Fatalf("Failed to create cursor: %v", err)
		}
		if cursor == "" {
			t.Fatal("Expected non-empty cursor")
		}

		startKey, err := paginator.StartKey(ctx, cursor)
		if err != nil {
			t.Fatalf("Failed to resolve cursor: %v", err)
		}
		if startKey == nil {
			t.Fatal("Expected start key")
		}
		if sk := startKey["SK"].(*types.AttributeValueMemberS).Value; sk != "DEBT#d5" {
			t.Errorf("Expected SK 'DEBT#d5', got %s", sk)
		}
	})

	t.Run("cursors are unique", func(t *testing.T) {
		first, err := paginator.PageCursor(ctx, lastkey)
		if err != nil {
			t.Fatalf("Failed to create cursor: %v", err)
		}
		second, err := paginator.PageCursor(ctx, lastkey)
		if err != nil {
			t.Fatalf("Failed to create cursor: %v", err)
		}
		if first == second {
			t.Error("Expected distinct cursors for separate pages")
		}
	})

	t.Run("empty last key", func(t *testing.T) {
		cursor, err := paginator.PageCursor(ctx, nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cursor != "" {
			t.Errorf("Expected empty cursor, got %q", cursor)
		}
	})

	t.Run("empty cursor", func(t *testing.T) {
		startKey, err := paginator.StartKey(ctx, "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if startKey != nil {
			t.Errorf("Expected nil start key, got %v", startKey)
		}
	})

	t.Run("unknown cursor restarts listing", func(t *testing.T) {
		startKey, err := paginator.StartKey(ctx, "bm8tc3VjaC1jdXJzb3I=")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if startKey != nil {
			t.Errorf("Expected nil start key, got %v", startKey)
		}
	})

	t.Run("expired cursor restarts listing", func(t *testing.T) {
		expiredTable := debttable.NewTable("debt-ledger")
		expiredTable.PaginationTTL = -time.Hour
		expired := expiredTable.Paginator(client)

		cursor, err := expired.PageCursor(ctx, lastkey)
		if err != nil {
			t.Fatalf("Failed to create cursor: %v", err)
		}

		startKey, err := expired.StartKey(ctx, cursor)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if startKey != nil {
			t.Errorf("Expected nil start key for expired cursor, got %v", startKey)
		}
	})
}
