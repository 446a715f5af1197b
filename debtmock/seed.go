package debtmock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/debttable/debttable"
)

// Seeder persists fixture records into a table for tests. It works against
// any client implementing the store's interface, including MemoryClient.
type Seeder struct {
	table  *debttable.Table
	client debttable.DynamoDBClient
}

// NewSeeder creates a seeder bound to the given table and client.
func NewSeeder(table *debttable.Table, client debttable.DynamoDBClient) *Seeder {
	return &Seeder{table: table, client: client}
}

// SeedUser writes a user profile fixture.
func (s *Seeder) SeedUser(ctx context.Context, u debttable.User) error {
	input, err := s.table.MarshalPutUser(u, false)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", u.Username, err)
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put user %s: %w", u.Username, err)
	}
	return nil
}

// SeedDebt writes a debt fixture.
func (s *Seeder) SeedDebt(ctx context.Context, d debttable.Debt) error {
	input, err := s.table.MarshalPutDebt(d)
	if err != nil {
		return fmt.Errorf("failed to marshal debt %s: %w", d.DebtID, err)
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put debt %s: %w", d.DebtID, err)
	}
	return nil
}

// seedDocument is the JSON fixture format accepted by SeedFromJSON.
type seedDocument struct {
	Users []seedUser `json:"users"`
	Debts []seedDebt `json:"debts"`
}

type seedUser struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type seedDebt struct {
	DebtID           string    `json:"debt_id"`
	Username         string    `json:"username"`
	DebtName         string    `json:"debt_name"`
	Principal        string    `json:"principal"`
	InterestRate     string    `json:"interest_rate"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Description      string    `json:"description"`
	Creditor         string    `json:"creditor"`
	PaymentFrequency string    `json:"payment_frequency"`
	PaymentAmount    string    `json:"payment_amount"`
	MinimumPayment   string    `json:"minimum_payment"`
	CurrentBalance   string    `json:"current_balance"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SeedFromJSON reads a fixture document of users and debts and persists
// every record. Returns the number of records saved.
func (s *Seeder) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	var document seedDocument
	if err := json.NewDecoder(r).Decode(&document); err != nil {
		return 0, fmt.Errorf("failed to parse seed document: %w", err)
	}

	count := 0
	for i, u := range document.Users {
		user := debttable.User{
			Username:     u.Username,
			Email:        u.Email,
			FullName:     u.FullName,
			PasswordHash: u.Password,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		}
		if err := s.SeedUser(ctx, user); err != nil {
			return count, fmt.Errorf("user at index %d: %w", i, err)
		}
		count++
	}

	for i, d := range document.Debts {
		debt := debttable.Debt{
			DebtID:           d.DebtID,
			Username:         d.Username,
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
		}
		if err := s.SeedDebt(ctx, debt); err != nil {
			return count, fmt.Errorf("debt at index %d: %w", i, err)
		}
		count++
	}

	return count, nil
}
