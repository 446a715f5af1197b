package debttable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoDBClient interface for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Caller is the authenticated identity supplied by the external auth
// boundary. The store treats the username claim as ground truth for
// ownership checks; it never validates tokens itself.
type Caller struct {
	Username string
}

// Store executes debt ledger operations against a DynamoDB table. The
// client is injected once at construction and reused across operations.
type Store struct {
	table  *Table
	client DynamoDBClient
	tick   Clock
	newID  func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the store's time source.
func WithClock(tick Clock) StoreOption {
	return func(s *Store) { s.tick = tick }
}

// WithIDGenerator overrides the store's debt id generator.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// NewStore creates a Store bound to the given table and client.
func NewStore(table *Table, client DynamoDBClient, opts ...StoreOption) *Store {
	s := &Store{
		table:  table,
		client: client,
		tick:   DefaultClock,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the store's table configuration.
func (s *Store) Table() *Table { return s.table }

// CreateUser stores a new user profile. The write is conditional on the
// profile not existing; a duplicate signup returns ErrUserExists.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	now := s.tick()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	input, err := s.table.MarshalPutUser(u, true)
	if err != nil {
		return User{}, err
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return User{}, fmt.Errorf("%w: %s", ErrUserExists, u.Username)
		}
		return User{}, fmt.Errorf("failed to put user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user profile by username.
func (s *Store) GetUser(ctx context.Context, username string) (User, error) {
	input, err := s.table.MarshalGetUser(username)
	if err != nil {
		return User{}, err
	}

	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	if out.Item == nil {
		return User{}, fmt.Errorf("%w: user %s", ErrNotFound, username)
	}
	return s.table.DecodeUser(out.Item)
}

// DebtInput carries the caller-supplied fields for a new debt. The debt id,
// owner, and timestamps are assigned by the store.
type DebtInput struct {
	DebtName         string
	Principal        string
	InterestRate     string
	StartDate        time.Time
	EndDate          time.Time
	Description      string
	Creditor         string
	PaymentFrequency string
	PaymentAmount    string
	MinimumPayment   string
	CurrentBalance   string
}

// CreateDebt stores a new debt for the authenticated caller. The owner is
// always taken from the caller identity, never from request data, and the
// debt id is a server-generated UUID.
func (s *Store) CreateDebt(ctx context.Context, caller Caller, in DebtInput) (Debt, error) {
	now := s.tick()
	debt := Debt{
		DebtID:           s.newID(),
		Username:         caller.Username,
		DebtName:         in.DebtName,
		Principal:        in.Principal,
		InterestRate:     in.InterestRate,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		Description:      in.Description,
		Creditor:         in.Creditor,
		PaymentFrequency: in.PaymentFrequency,
		PaymentAmount:    in.PaymentAmount,
		MinimumPayment:   in.MinimumPayment,
		CurrentBalance:   in.CurrentBalance,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	input, err := s.table.MarshalPutDebt(debt)
	if err != nil {
		return Debt{}, err
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		return Debt{}, fmt.Errorf("failed to put debt: %w", err)
	}
	return debt, nil
}

// GetDebt retrieves a debt by id on behalf of the caller. The true owner is
// resolved through the reverse index; a missing debt returns ErrNotFound
// and a debt owned by someone else returns ErrForbidden without revealing
// the owner.
func (s *Store) GetDebt(ctx context.Context, caller Caller, debtID string) (Debt, error) {
	item, err := s.resolveDebt(ctx, caller, debtID)
	if err != nil {
		return Debt{}, err
	}
	return s.table.DecodeDebt(item)
}

// ListDebtsOptions carries pagination parameters for ListDebts.
type ListDebtsOptions struct {
	Limit          int    // Maximum number of debts per page
	Cursor         string // Opaque cursor from a previous page
	SortDescending bool   // Reverse the sort key order
}

// DebtPage is one page of a debt listing.
type DebtPage struct {
	Debts      []Debt
	Summary    DebtSummary
	NextCursor string // Empty when there are no further pages
}

// ListDebts returns the caller's debts from their single partition,
// optionally limited and resumed from an opaque cursor.
func (s *Store) ListDebts(ctx context.Context, caller Caller, opts ListDebtsOptions) (DebtPage, error) {
	query := ListDebtsQuery{
		Limit:          opts.Limit,
		SortDescending: opts.SortDescending,
	}

	paginator := s.table.Paginator(s.client)
	if opts.Cursor != "" {
		startKey, err := paginator.StartKey(ctx, opts.Cursor)
		if err != nil {
			return DebtPage{}, fmt.Errorf("failed to resolve cursor: %w", err)
		}
		query.StartKey = startKey
	}

	input, err := s.table.MarshalListDebts(caller.Username, query)
	if err != nil {
		return DebtPage{}, err
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return DebtPage{}, fmt.Errorf("failed to query debts: %w", err)
	}

	page := DebtPage{Debts: make([]Debt, 0, len(out.Items))}
	for _, item := range out.Items {
		debt, err := s.table.DecodeDebt(item)
		if err != nil {
			return DebtPage{}, err
		}
		page.Debts = append(page.Debts, debt)
	}
	page.Summary = SummarizeDebts(page.Debts)

	if len(out.LastEvaluatedKey) > 0 {
		cursor, err := paginator.PageCursor(ctx, out.LastEvaluatedKey)
		if err != nil {
			return DebtPage{}, fmt.Errorf("failed to create cursor: %w", err)
		}
		page.NextCursor = cursor
	}

	return page, nil
}

// DebtUpdate carries a partial update to a debt. Nil fields are left
// unchanged; the debt id, owner, and creation timestamp are always
// preserved.
type DebtUpdate struct {
	DebtName         *string
	Principal        *string
	InterestRate     *string
	StartDate        *time.Time
	EndDate          *time.Time
	Description      *string
	Creditor         *string
	PaymentFrequency *string
	PaymentAmount    *string
	MinimumPayment   *string
	CurrentBalance   *string
}

// UpdateDebt applies a partial update to one of the caller's debts. The
// write overwrites the whole item; concurrent updates are last-writer-wins
// per the storage engine's native put semantics.
func (s *Store) UpdateDebt(ctx context.Context, caller Caller, debtID string, update DebtUpdate) (Debt, error) {
	item, err := s.resolveDebt(ctx, caller, debtID)
	if err != nil {
		return Debt{}, err
	}
	debt, err := s.table.DecodeDebt(item)
	if err != nil {
		return Debt{}, err
	}

	applyUpdate(&debt, update)
	debt.UpdatedAt = s.tick()

	input, err := s.table.MarshalPutDebt(debt)
	if err != nil {
		return Debt{}, err
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		return Debt{}, fmt.Errorf("failed to put debt: %w", err)
	}
	return debt, nil
}

// DeleteDebt removes one of the caller's debts after resolving ownership.
func (s *Store) DeleteDebt(ctx context.Context, caller Caller, debtID string) error {
	if _, err := s.resolveDebt(ctx, caller, debtID); err != nil {
		return err
	}

	input, err := s.table.MarshalDeleteDebt(caller.Username, debtID)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	return nil
}

// resolveDebt locates a debt by id on the reverse index and enforces the
// ownership invariant. Returns ErrNotFound when no item carries the debt's
// sort key, ErrForbidden when the owning partition does not belong to the
// caller.
func (s *Store) resolveDebt(ctx context.Context, caller Caller, debtID string) (Item, error) {
	input, err := s.table.MarshalDebtLookup(debtID)
	if err != nil {
		return nil, err
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve debt owner: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%w: debt %s", ErrNotFound, debtID)
	}

	callerKey, err := s.table.UserKey(caller.Username)
	if err != nil {
		return nil, err
	}
	for _, item := range out.Items {
		pk, ok := item[AttributeNamePartition].(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("%w: debt item missing partition key", ErrMalformedRecord)
		}
		if pk.Value == callerKey.Partition {
			return item, nil
		}
	}

	// The debt exists under a different owner. Do not reveal whose.
	return nil, fmt.Errorf("%w: debt %s", ErrForbidden, debtID)
}

func applyUpdate(debt *Debt, update DebtUpdate) {
	if update.DebtName != nil {
		debt.DebtName = *update.DebtName
	}
	if update.Principal != nil {
		debt.Principal = *update.Principal
	}
	if update.InterestRate != nil {
		debt.InterestRate = *update.InterestRate
	}
	if update.StartDate != nil {
		debt.StartDate = *update.StartDate
	}
	if update.EndDate != nil {
		debt.EndDate = *update.EndDate
	}
	if update.Description != nil {
		debt.Description = *update.Description
	}
	if update.Creditor != nil {
		debt.Creditor = *update.Creditor
	}
	if update.PaymentFrequency != nil {
		debt.PaymentFrequency = *update.PaymentFrequency
	}
	if update.PaymentAmount != nil {
		debt.PaymentAmount = *update.PaymentAmount
	}
	if update.MinimumPayment != nil {
		debt.MinimumPayment = *update.MinimumPayment
	}
	if update.CurrentBalance != nil {
		debt.CurrentBalance = *update.CurrentBalance
	}
}
