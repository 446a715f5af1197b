package debttable_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/debttable/debttable"
	"github.com/debttable/debttable/debtmock"
)

func fixedClock(t time.Time) debttable.Clock {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newTestStore(opts ...debttable.StoreOption) (*debttable.Store, *debtmock.MemoryClient) {
	client := debtmock.NewMemoryClient()
	store := debttable.NewStore(debttable.NewTable("debt-ledger"), client, opts...)
	return store, client
}

func carLoan() debttable.DebtInput {
	return debttable.DebtInput{
		DebtName:         "car loan",
		Principal:        "18000.00",
		InterestRate:     "4.5",
		StartDate:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Creditor:         "First Bank",
		PaymentFrequency: "monthly",
		PaymentAmount:    "350.00",
		CurrentBalance:   "15200.50",
	}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store, _ := newTestStore(debttable.WithClock(fixedClock(now)))

	user, err := store.CreateUser(ctx, debttable.User{
		Username:     "john",
		Email:        "john@example.com",
		FullName:     "John Smith",
		PasswordHash: "c2FsdGVkaGFzaA==",
	})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if !user.CreatedAt.Equal(now) || !user.UpdatedAt.Equal(now) {
		t.Errorf("Expected timestamps %v, got created=%v updated=%v", now, user.CreatedAt, user.UpdatedAt)
	}

	got, err := store.GetUser(ctx, "john")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if got.Email != "john@example.com" {
		t.Errorf("Expected email 'john@example.com', got %s", got.Email)
	}

	t.Run("duplicate username", func(t *testing.T) {
		_, err := store.CreateUser(ctx, debttable.User{Username: "john", Email: "other@example.com"})
		if !errors.Is(err, debttable.ErrUserExists) {
			t.Errorf("Expected ErrUserExists, got %v", err)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := store.GetUser(ctx, "jane")
		if !errors.Is(err, debttable.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestCreateDebt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store, _ := newTestStore(
		debttable.WithClock(fixedClock(now)),
		debttable.WithIDGenerator(sequentialIDs("debt-")),
	)
	caller := debttable.Caller{Username: "john"}

	debt, err := store.CreateDebt(ctx, caller, carLoan())
	if err != nil {
		t.Fatalf("Failed to create debt: %v", err)
	}

	if debt.DebtID != "debt-1" {
		t.Errorf("Expected server-assigned id 'debt-1', got %s", debt.DebtID)
	}
	if debt.Username != "john" {
		t.Errorf("Expected owner 'john', got %s", debt.Username)
	}
	if !debt.CreatedAt.Equal(now) {
		t.Errorf("Expected creation time %v, got %v", now, debt.CreatedAt)
	}

	got, err := store.GetDebt(ctx, caller, "debt-1")
	if err != nil {
		t.Fatalf("Failed to get debt: %v", err)
	}
	if got != debt {
		t.Errorf("Read back mismatch:\n got %+v\nwant %+v", got, debt)
	}

	t.Run("invalid input rejected", func(t *testing.T) {
		bad := carLoan()
		bad.PaymentFrequency = "fortnightly"
		if _, err := store.CreateDebt(ctx, caller, bad); err == nil {
			t.Error("Expected error for unknown payment frequency")
		}
	})
}

func TestGetDebtAuthorization(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(debttable.WithIDGenerator(sequentialIDs("debt-")))
	owner := debttable.Caller{Username: "john"}
	intruder := debttable.Caller{Username: "jane"}

	if _, err := store.CreateDebt(ctx, owner, carLoan()); err != nil {
		t.Fatalf("Failed to create debt: %v", err)
	}

	t.Run("owner can read", func(t *testing.T) {
		if _, err := store.GetDebt(ctx, owner, "debt-1"); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		_, err := store.GetDebt(ctx, intruder, "debt-1")
		if !errors.Is(err, debttable.ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
	})

	t.Run("missing debt is not found", func(t *testing.T) {
		_, err := store.GetDebt(ctx, owner, "debt-99")
		if !errors.Is(err, debttable.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestUpdateDebt(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	clock := created
	store, _ := newTestStore(
		debttable.WithClock(func() time.Time { return clock }),
		debttable.WithIDGenerator(sequentialIDs("debt-")),
	)
	caller := debttable.Caller{Username: "john"}

	if _, err := store.CreateDebt(ctx, caller, carLoan()); err != nil {
		t.Fatalf("Failed to create debt: %v", err)
	}

	clock = updated
	balance := "14850.50"
	debt, err := store.UpdateDebt(ctx, caller, "debt-1", debttable.DebtUpdate{
		CurrentBalance: &balance,
	})
	if err != nil {
		t.Fatalf("Failed to update debt: %v", err)
	}

	if debt.CurrentBalance != "14850.50" {
		t.Errorf("Expected balance '14850.50', got %s", debt.CurrentBalance)
	}
	if debt.DebtName != "car loan" {
		t.Errorf("Expected untouched fields preserved, got name %s", debt.DebtName)
	}
	if !debt.CreatedAt.Equal(created) {
		t.Errorf("Expected creation time preserved at %v, got %v", created, debt.CreatedAt)
	}
	if !debt.UpdatedAt.Equal(updated) {
		t.Errorf("Expected update time %v, got %v", updated, debt.UpdatedAt)
	}

	t.Run("invalid update rejected", func(t *testing.T) {
		frequency := "hourly"
		_, err := store.UpdateDebt(ctx, caller, "debt-1", debttable.DebtUpdate{
			PaymentFrequency: &frequency,
		})
		if err == nil {
			t.Error("Expected error for unknown payment frequency")
		}
	})

	t.Run("other user cannot update", func(t *testing.T) {
		name := "hijacked"
		_, err := store.UpdateDebt(ctx, debttable.Caller{Username: "jane"}, "debt-1", debttable.DebtUpdate{
			DebtName: &name,
		})
		if !errors.Is(err, debttable.ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
	})
}

func TestDeleteDebt(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(debttable.WithIDGenerator(sequentialIDs("debt-")))
	caller := debttable.Caller{Username: "john"}

	if _, err := store.CreateDebt(ctx, caller, carLoan()); err != nil {
		t.Fatalf("Failed to create debt: %v", err)
	}

	t.Run("other user cannot delete", func(t *testing.T) {
		err := store.DeleteDebt(ctx, debttable.Caller{Username: "jane"}, "debt-1")
		if !errors.Is(err, debttable.ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
	})

	if err := store.DeleteDebt(ctx, caller, "debt-1"); err != nil {
		t.Fatalf("Failed to delete debt: %v", err)
	}

	t.Run("deleted debt is gone", func(t *testing.T) {
		if _, err := store.GetDebt(ctx, caller, "debt-1"); !errors.Is(err, debttable.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := store.DeleteDebt(ctx, caller, "debt-1"); !errors.Is(err, debttable.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestListDebts(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(debttable.WithIDGenerator(sequentialIDs("debt-")))
	caller := debttable.Caller{Username: "john"}

	for i := 0; i < 3; i++ {
		in := carLoan()
		in.DebtName = fmt.Sprintf("loan %d", i+1)
		if _, err := store.CreateDebt(ctx, caller, in); err != nil {
			t.Fatalf("Failed to create debt: %v", err)
		}
	}
	// Another user's debt must never appear in john's listing.
	if _, err := store.CreateDebt(ctx, debttable.Caller{Username: "jane"}, carLoan()); err != nil {
		t.Fatalf("Failed to create debt: %v", err)
	}

	t.Run("full listing with summary", func(t *testing.T) {
		page, err := store.ListDebts(ctx, caller, debttable.ListDebtsOptions{})
		if err != nil {
			t.Fatalf("Failed to list debts: %v", err)
		}
		if len(page.Debts) != 3 {
			t.Fatalf("Expected 3 debts, got %d", len(page.Debts))
		}
		for _, debt := range page.Debts {
			if debt.Username != "john" {
				t.Errorf("Expected only john's debts, got owner %s", debt.Username)
			}
		}
		if page.Summary.TotalDebts != 3 {
			t.Errorf("Expected summary of 3 debts, got %d", page.Summary.TotalDebts)
		}
		if page.Summary.TotalPrincipal != 54000.00 {
			t.Errorf("Expected total principal 54000.00, got %v", page.Summary.TotalPrincipal)
		}
		if page.NextCursor != "" {
			t.Errorf("Expected no cursor for full listing, got %q", page.NextCursor)
		}
	})

	t.Run("descending order", func(t *testing.T) {
		page, err := store.ListDebts(ctx, caller, debttable.ListDebtsOptions{SortDescending: true})
		if err != nil {
			t.Fatalf("Failed to list debts: %v", err)
		}
		if first := page.Debts[0].DebtID; first != "debt-3" {
			t.Errorf("Expected 'debt-3' first, got %s", first)
		}
	})

	t.Run("empty partition", func(t *testing.T) {
		page, err := store.ListDebts(ctx, debttable.Caller{Username: "ghost"}, debttable.ListDebtsOptions{})
		if err != nil {
			t.Fatalf("Failed to list debts: %v", err)
		}
		if len(page.Debts) != 0 {
			t.Errorf("Expected empty listing, got %d debts", len(page.Debts))
		}
	})
}

func TestListDebtsPagination(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(debttable.WithIDGenerator(sequentialIDs("debt-")))
	caller := debttable.Caller{Username: "john"}

	for i := 0; i < 5; i++ {
		if _, err := store.CreateDebt(ctx, caller, carLoan()); err != nil {
			t.Fatalf("Failed to create debt: %v", err)
		}
	}

	var seen []string
	cursor := ""
	pages := 0
	for {
		page, err := store.ListDebts(ctx, caller, debttable.ListDebtsOptions{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("Failed to list page %d: %v", pages+1, err)
		}
		pages++
		for _, debt := range page.Debts {
			seen = append(seen, debt.DebtID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		if pages > 5 {
			t.Fatal("Pagination did not terminate")
		}
	}

	if pages != 3 {
		t.Errorf("Expected 3 pages, got %d", pages)
	}
	if len(seen) != 5 {
		t.Fatalf("Expected 5 debts across pages, got %d", len(seen))
	}
	unique := map[string]bool{}
	for _, id := range seen {
		if unique[id] {
			t.Errorf("Debt %s appeared on multiple pages", id)
		}
		unique[id] = true
	}
}
