// Package debttable implements the single-table DynamoDB storage core for a
// debt ledger: key composition, access planning, and record encoding over the
// AWS SDK for Go v2 DynamoDB client.
package debttable

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors returned by key composition, planning, and store operations.
var (
	// ErrInvalidIdentifier is returned when an identifier is empty or would
	// corrupt the composite key format.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrNotFound is returned when a key resolves to no stored item.
	ErrNotFound = errors.New("item not found")
	// ErrForbidden is returned when a resolved item is owned by a different
	// user than the authenticated caller.
	ErrForbidden = errors.New("forbidden")
	// ErrMalformedRecord is returned when a stored item violates the schema
	// contract.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUserExists is returned when creating a user whose profile item
	// already exists.
	ErrUserExists = errors.New("user already exists")
)

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// Key prefixes and the profile sort key marker. Every item belonging to a
// user shares the partition key "USER#{username}"; the sort key
// disambiguates the record kind ("USER#INFO" for the profile,
// "DEBT#{debt_id}" for each debt).
const (
	userPrefix = "USER"
	debtPrefix = "DEBT"
	infoMarker = "INFO"
	pagePrefix = "CURSOR"
	pageMarker = "INFO"
)

// Table contains DynamoDB table configuration for the debt ledger schema.
type Table struct {
	TableName        string        // Main table name
	ReverseIndexName string        // GSI that inverts sort/partition keys
	KeyDelimiter     string        // Delimiter between key prefix and identifier. Default is '#'.
	PaginationTTL    time.Duration // TTL for pagination cursors stored in table
}

// NewTable creates a new Table with default configuration.
func NewTable(tableName string) *Table {
	return &Table{
		TableName:        tableName,
		ReverseIndexName: "SK-PK-index",
		KeyDelimiter:     "#",
		PaginationTTL:    24 * time.Hour,
	}
}

// Key is a composed partition/sort key pair for a stored item.
type Key struct {
	Partition string
	Sort      string
}

// UserKey composes the key for a user's profile item:
// partition "USER#{username}", sort "USER#INFO".
func (t *Table) UserKey(username string) (Key, error) {
	if err := t.validateIdentifier(username); err != nil {
		return Key{}, fmt.Errorf("username: %w", err)
	}
	return Key{
		Partition: t.join(userPrefix, username),
		Sort:      t.join(userPrefix, infoMarker),
	}, nil
}

// DebtKey composes the key for a debt item owned by username:
// partition "USER#{username}", sort "DEBT#{debtID}". Debts share their
// owner's partition, so listing a user's debts is a single partition query.
func (t *Table) DebtKey(username, debtID string) (Key, error) {
	if err := t.validateIdentifier(username); err != nil {
		return Key{}, fmt.Errorf("username: %w", err)
	}
	if err := t.validateIdentifier(debtID); err != nil {
		return Key{}, fmt.Errorf("debt id: %w", err)
	}
	return Key{
		Partition: t.join(userPrefix, username),
		Sort:      t.join(debtPrefix, debtID),
	}, nil
}

// DebtSortPrefix returns the sort key prefix shared by all debt items,
// used for partition-scoped list queries.
func (t *Table) DebtSortPrefix() string {
	return debtPrefix + t.delimiter()
}

// pageKey composes the key for a pagination cursor item. Cursors are
// infrastructure records and live outside any user's partition.
func (t *Table) pageKey(cursor string) (Key, error) {
	if err := t.validateIdentifier(cursor); err != nil {
		return Key{}, fmt.Errorf("cursor: %w", err)
	}
	return Key{
		Partition: t.join(pagePrefix, cursor),
		Sort:      t.join(pagePrefix, pageMarker),
	}, nil
}

// UsernameFromPartition extracts the username from a partition key of the
// form "USER#{username}".
func (t *Table) UsernameFromPartition(pk string) (string, error) {
	prefix := userPrefix + t.delimiter()
	if !strings.HasPrefix(pk, prefix) || len(pk) == len(prefix) {
		return "", fmt.Errorf("%w: partition key %q is not a user key", ErrMalformedRecord, pk)
	}
	return pk[len(prefix):], nil
}

// DebtIDFromSort extracts the debt id from a sort key of the form
// "DEBT#{debt_id}".
func (t *Table) DebtIDFromSort(sk string) (string, error) {
	prefix := t.DebtSortPrefix()
	if !strings.HasPrefix(sk, prefix) || len(sk) == len(prefix) {
		return "", fmt.Errorf("%w: sort key %q is not a debt key", ErrMalformedRecord, sk)
	}
	return sk[len(prefix):], nil
}

func (t *Table) join(prefix, id string) string {
	return prefix + t.delimiter() + id
}

func (t *Table) delimiter() string {
	if t.KeyDelimiter == "" {
		return "#"
	}
	return t.KeyDelimiter
}

// validateIdentifier rejects identifiers that are empty or contain the key
// delimiter, since either would corrupt parsing of the composite key on read.
func (t *Table) validateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidIdentifier)
	}
	if strings.Contains(id, t.delimiter()) {
		return fmt.Errorf("%w: %q contains the key delimiter %q", ErrInvalidIdentifier, id, t.delimiter())
	}
	return nil
}
