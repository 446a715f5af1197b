// Package debttable implements the single-table DynamoDB storage core for a
// debt ledger.
//
// The package composes partition and sort keys for user and debt records,
// plans table and index queries for each supported access pattern, and
// converts typed records to and from the stored item shape.
//
// # Schema
//
// All records belonging to one user share a single partition:
//
//	| PK         | SK        | entity_type |
//	| ========== | ========= | =========== |
//	| USER#john  | USER#INFO | user        |
//	| USER#john  | DEBT#d1   | debt        |
//	| USER#john  | DEBT#d2   | debt        |
//
// This makes "list all debts for a user" a single partition query with a
// sort key prefix condition, rather than a table scan. A global secondary
// index (SK-PK-index by default) inverts the key pair so a debt's owner can
// be resolved from the debt id alone, which is how ownership is enforced
// without trusting client-supplied data.
//
// # Basic Usage
//
//	table := debttable.NewTable("debt-ledger")
//	store := debttable.NewStore(table, client)
//
//	caller := debttable.Caller{Username: "john"}
//	debt, err := store.CreateDebt(ctx, caller, debttable.DebtInput{
//	    DebtName:         "car loan",
//	    Principal:        "18000.00",
//	    InterestRate:     "4.5",
//	    StartDate:        time.Now(),
//	    PaymentFrequency: "monthly",
//	})
//
// The store acquires its DynamoDB client once at construction and reuses it
// across operations; construct one store per process and share it.
//
// # Authorization
//
// Every debt operation takes a Caller holding the username claim issued by
// the external auth boundary. Debt ownership is resolved from stored keys,
// never from request parameters: reads of another user's debt fail with
// ErrForbidden, and nonexistent debts fail with ErrNotFound.
//
// # Pagination
//
// ListDebts returns an opaque cursor when more pages remain. Cursors are
// stored in the same table with a TTL; an expired cursor restarts the
// listing from the beginning.
package debttable
