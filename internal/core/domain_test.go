package core

import (
	"errors"
	"testing"
)

func TestHouseValidate(t *testing.T) {
	if err := (House{Name: "Maple St"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (House{Name: "  "}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestRoommateValidate(t *testing.T) {
	if err := (Roommate{Name: "Alice", HouseID: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Roommate{Name: ""}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestBillValidate(t *testing.T) {
	good := Bill{Name: "Electric", Amount: Money{Cents: 6400}, HouseID: 1, OwnerID: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Bill{
		{Name: "", Amount: Money{Cents: 6400}},
		{Name: "Electric", Amount: Money{Cents: 0}},
		{Name: "Electric", Amount: Money{Cents: -100}},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPaymentAmountDue(t *testing.T) {
	p := Payment{Amount: Money{Cents: 1600}, AmountPaid: Money{Cents: 600}}
	if got := p.AmountDue(); got.Cents != 1000 {
		t.Fatalf("AmountDue = %d, want 1000", got.Cents)
	}
	// Due and paid are always complementary
	if p.AmountDue().Cents+p.AmountPaid.Cents != p.Amount.Cents {
		t.Fatalf("amount_due + amount_paid != amount")
	}
}

func TestPaymentIsPaid(t *testing.T) {
	p := Payment{Amount: Money{Cents: 1600}}
	if p.IsPaid() {
		t.Fatalf("fresh payment should not be paid")
	}
	p.AmountPaid = Money{Cents: 1600}
	if !p.IsPaid() {
		t.Fatalf("fully paid payment should report IsPaid")
	}
	if p.AmountDue().Cents != 0 {
		t.Fatalf("paid payment should have zero due, got %d", p.AmountDue().Cents)
	}
}

func TestPaymentCanApply(t *testing.T) {
	p := Payment{Amount: Money{Cents: 1600}, AmountPaid: Money{Cents: 800}}

	if err := p.CanApply(Money{Cents: 800}); err != nil {
		t.Fatalf("exact remaining balance should be accepted: %v", err)
	}
	if err := p.CanApply(Money{Cents: 100}); err != nil {
		t.Fatalf("partial amount should be accepted: %v", err)
	}
	if err := p.CanApply(Money{Cents: 801}); !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}
	if err := p.CanApply(Money{Cents: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := p.CanApply(Money{Cents: -50}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestBillAmountDue(t *testing.T) {
	b := Bill{Amount: Money{Cents: 6400}}
	if got := b.AmountDue(Money{Cents: 1600}); got.Cents != 4800 {
		t.Fatalf("AmountDue = %d, want 4800", got.Cents)
	}
}
