package debtmock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/debttable/debttable"
)

// NewTestTable returns a Table with a unique name for test isolation.
func NewTestTable(prefix string) *debttable.Table {
	name := fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	return debttable.NewTable(name)
}

// WithLocalDynamoDB runs a test function against a local DynamoDB instance.
// The test is skipped when running with -short or when DynamoDB Local is
// not reachable on the given port.
func WithLocalDynamoDB(t *testing.T, port int, fn func(local *LocalDynamoDB)) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	local := NewLocalDynamoDB(port)
	ctx := context.Background()

	if !local.IsAvailable(ctx) {
		t.Skipf("DynamoDB Local not available on port %d", port)
	}

	fn(local)
}

// WithIsolatedTable runs a test function with a freshly created ledger
// table that is deleted afterwards, even if the test panics.
func WithIsolatedTable(t *testing.T, local *LocalDynamoDB, fn func(table *debttable.Table)) {
	ctx := context.Background()

	// Table names cannot contain the characters in subtest names.
	safeName := strings.NewReplacer("/", "-", "#", "-").Replace(t.Name())
	table := NewTestTable("test-" + safeName)

	if err := local.CreateLedgerTable(ctx, table); err != nil {
		t.Fatalf("Failed to create test table %s: %v", table.TableName, err)
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := local.DeleteTable(cleanupCtx, table.TableName); err != nil {
			t.Errorf("Failed to cleanup table %s: %v", table.TableName, err)
		}
	}()

	fn(table)
}

// RunIntegrationTest combines WithLocalDynamoDB and WithIsolatedTable using
// the default local port.
func RunIntegrationTest(t *testing.T, fn func(local *LocalDynamoDB, table *debttable.Table)) {
	WithLocalDynamoDB(t, DefaultLocalPort, func(local *LocalDynamoDB) {
		WithIsolatedTable(t, local, func(table *debttable.Table) {
			fn(local, table)
		})
	})
}
