package debttable

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// Attribute names shared by all stored items.
const (
	AttributeNamePartition  = "PK"
	AttributeNameSort       = "SK"
	AttributeNameEntityType = "entity_type"
	AttributeNameExpires    = "expires"
)

// Entity type discriminator values. The discriminator lets queries filter
// heterogeneous items sharing a partition.
const (
	EntityTypeUser   = "user"
	EntityTypeDebt   = "debt"
	EntityTypeCursor = "cursor"
)

// PaymentFrequencies lists the accepted values for Debt.PaymentFrequency.
var PaymentFrequencies = []string{"weekly", "biweekly", "monthly", "quarterly", "annually"}

// User is a user profile record. Profiles are created once at signup and
// are immutable thereafter.
type User struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Debt is a debt record owned by exactly one user. Monetary fields are
// decimal strings to preserve precision across the wire.
type Debt struct {
	DebtID           string
	Username         string
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
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// userItem is the stored shape of a user profile.
type userItem struct {
	PK           string    `dynamodbav:"PK"`
	SK           string    `dynamodbav:"SK"`
	EntityType   string    `dynamodbav:"entity_type"`
	Email        string    `dynamodbav:"email"`
	FullName     string    `dynamodbav:"full_name"`
	PasswordHash string    `dynamodbav:"password"`
	CreatedAt    time.Time `dynamodbav:"created_at"`
	UpdatedAt    time.Time `dynamodbav:"updated_at"`
}

// debtItem is the stored shape of a debt.
type debtItem struct {
	PK               string    `dynamodbav:"PK"`
	SK               string    `dynamodbav:"SK"`
	EntityType       string    `dynamodbav:"entity_type"`
	DebtID           string    `dynamodbav:"debt_id"`
	DebtName         string    `dynamodbav:"debt_name"`
	Principal        string    `dynamodbav:"principal"`
	InterestRate     string    `dynamodbav:"interest_rate"`
	StartDate        time.Time `dynamodbav:"start_date"`
	EndDate          time.Time `dynamodbav:"end_date,omitempty"`
	Description      string    `dynamodbav:"description,omitempty"`
	Creditor         string    `dynamodbav:"creditor,omitempty"`
	PaymentFrequency string    `dynamodbav:"payment_frequency"`
	PaymentAmount    string    `dynamodbav:"payment_amount,omitempty"`
	MinimumPayment   string    `dynamodbav:"minimum_payment,omitempty"`
	CurrentBalance   string    `dynamodbav:"current_balance,omitempty"`
	CreatedAt        time.Time `dynamodbav:"created_at"`
	UpdatedAt        time.Time `dynamodbav:"updated_at"`
}

// EncodeUser converts a user record into the stored item shape, attaching
// the composed key and entity type discriminator.
func (t *Table) EncodeUser(u User) (Item, error) {
	key, err := t.UserKey(u.Username)
	if err != nil {
		return nil, err
	}
	if u.Email == "" {
		return nil, fmt.Errorf("%w: user email must not be empty", ErrInvalidIdentifier)
	}

	item, err := attributevalue.MarshalMap(userItem{
		PK:           key.Partition,
		SK:           key.Sort,
		EntityType:   EntityTypeUser,
		Email:        u.Email,
		FullName:     u.FullName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user item: %w", err)
	}
	return item, nil
}

// DecodeUser converts a stored item back into a user record. The username
// is recovered from the partition key rather than a duplicated attribute.
func (t *Table) DecodeUser(item Item) (User, error) {
	var stored userItem
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	username, err := t.UsernameFromPartition(stored.PK)
	if err != nil {
		return User{}, err
	}
	if stored.SK != t.join(userPrefix, infoMarker) {
		return User{}, fmt.Errorf("%w: sort key %q is not a user profile key", ErrMalformedRecord, stored.SK)
	}
	if stored.Email == "" {
		return User{}, fmt.Errorf("%w: user item missing email", ErrMalformedRecord)
	}

	return User{
		Username:     username,
		Email:        stored.Email,
		FullName:     stored.FullName,
		PasswordHash: stored.PasswordHash,
		CreatedAt:    stored.CreatedAt,
		UpdatedAt:    stored.UpdatedAt,
	}, nil
}

// EncodeDebt converts a debt record into the stored item shape, attaching
// the composed key and entity type discriminator.
func (t *Table) EncodeDebt(d Debt) (Item, error) {
	key, err := t.DebtKey(d.Username, d.DebtID)
	if err != nil {
		return nil, err
	}
	if err := validateDebtFields(d); err != nil {
		return nil, err
	}

	item, err := attributevalue.MarshalMap(debtItem{
		PK:               key.Partition,
		SK:               key.Sort,
		EntityType:       EntityTypeDebt,
		DebtID:           d.DebtID,
		DebtName:         d.DebtName,
		Principal:        d.Principal,
		InterestRate:     d.InterestRate,
		StartDate:        d.StartDate,
		EndDate:          d.EndDate,
		Description:      d.Description,
		Creditor:         d.Creditor,
		PaymentFrequency: d.PaymentFrequency,
		PaymentAmount:    d.PaymentAmount,
		MinimumPayment:   d.MinimumPayment,
		CurrentBalance:   d.CurrentBalance,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal debt item: %w", err)
	}
	return item, nil
}

// DecodeDebt converts a stored item back into a debt record. The owner and
// debt id are recovered from the composed keys so that stale or duplicated
// attributes cannot disagree with the key.
func (t *Table) DecodeDebt(item Item) (Debt, error) {
	var stored debtItem
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return Debt{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	username, err := t.UsernameFromPartition(stored.PK)
	if err != nil {
		return Debt{}, err
	}
	debtID, err := t.DebtIDFromSort(stored.SK)
	if err != nil {
		return Debt{}, err
	}

	debt := Debt{
		DebtID:           debtID,
		Username:         username,
		DebtName:         stored.DebtName,
		Principal:        stored.Principal,
		InterestRate:     stored.InterestRate,
		StartDate:        stored.StartDate,
		EndDate:          stored.EndDate,
		Description:      stored.Description,
		Creditor:         stored.Creditor,
		PaymentFrequency: stored.PaymentFrequency,
		PaymentAmount:    stored.PaymentAmount,
		MinimumPayment:   stored.MinimumPayment,
		CurrentBalance:   stored.CurrentBalance,
		CreatedAt:        stored.CreatedAt,
		UpdatedAt:        stored.UpdatedAt,
	}

	if err := validateDebtFields(debt); err != nil {
		return Debt{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return debt, nil
}

func validateDebtFields(d Debt) error {
	if d.DebtName == "" {
		return fmt.Errorf("debt name must not be empty")
	}
	if !validDecimal(d.Principal) {
		return fmt.Errorf("principal %q is not a decimal value", d.Principal)
	}
	if !validDecimal(d.InterestRate) {
		return fmt.Errorf("interest rate %q is not a decimal value", d.InterestRate)
	}
	for _, optional := range []string{d.PaymentAmount, d.MinimumPayment, d.CurrentBalance} {
		if optional != "" && !validDecimal(optional) {
			return fmt.Errorf("amount %q is not a decimal value", optional)
		}
	}
	if !validFrequency(d.PaymentFrequency) {
		return fmt.Errorf("payment frequency %q is not one of %v", d.PaymentFrequency, PaymentFrequencies)
	}
	return nil
}

func validDecimal(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func validFrequency(s string) bool {
	for _, f := range PaymentFrequencies {
		if s == f {
			return true
		}
	}
	return false
}

// DebtSummary aggregates a list of debts for reporting alongside list results.
type DebtSummary struct {
	TotalDebts          int
	TotalPrincipal      float64
	TotalCurrentBalance float64
}

// SummarizeDebts computes aggregate totals over decoded debt records.
// Records that fail decimal parsing contribute zero; decode already rejects
// malformed amounts, so this only applies to hand-built values.
func SummarizeDebts(debts []Debt) DebtSummary {
	summary := DebtSummary{TotalDebts: len(debts)}
	for _, d := range debts {
		if v, err := strconv.ParseFloat(d.Principal, 64); err == nil {
			summary.TotalPrincipal += v
		}
		if d.CurrentBalance == "" {
			continue
		}
		if v, err := strconv.ParseFloat(d.CurrentBalance, 64); err == nil {
			summary.TotalCurrentBalance += v
		}
	}
	return summary
}
