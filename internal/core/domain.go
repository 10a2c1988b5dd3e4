package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty name")
	ErrNoRoommates   = errors.New("house has no roommates")
	ErrOverpayment   = errors.New("amount is greater than the outstanding balance")
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized")
)

type (
	// User is a registered account. Users create houses and are the
	// authorization boundary for everything inside them.
	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// House is a named household group owning roommates and bills.
	// CreatorID is set at creation and never changes.
	House struct {
		ID         int64
		Name       string
		CreatorID  int64
		CreatedAt  time.Time
		ModifiedAt time.Time
	}

	// Roommate is a member of a house; the unit that owes and pays money.
	Roommate struct {
		ID      int64
		HouseID int64
		Name    string
	}

	// Bill is an expense owned by one roommate and split across all
	// roommates of its house.
	Bill struct {
		ID         int64
		HouseID    int64
		OwnerID    int64
		Name       string
		Amount     Money
		DueDate    time.Time // zero when no due date was given
		CreatedAt  time.Time
		ModifiedAt time.Time
	}

	// Payment is one roommate's share of a bill. AmountPaid accumulates
	// through payment events and is mutated nowhere else.
	Payment struct {
		ID         int64
		BillID     int64
		PayerID    int64
		Amount     Money
		AmountPaid Money
		CreatedAt  time.Time
		ModifiedAt time.Time
	}

	// PaymentEvent is an immutable record of a partial payment applied
	// to a payment. Events are append-only: never updated, never deleted.
	PaymentEvent struct {
		ID        int64
		PaymentID int64
		Amount    Money
		CreatedAt time.Time
	}

	// ActivityEntry is an append-only feed row for a house, written by the
	// background worker from bill and payment activity messages.
	// BillID is zero when the entry does not refer to a bill.
	ActivityEntry struct {
		ID        int64
		HouseID   int64
		BillID    int64
		Kind      string
		Message   string
		CreatedAt time.Time
	}

	// OwedAmount is a per-roommate total produced by the owed queries.
	OwedAmount struct {
		Roommate Roommate
		Amount   Money
	}
)

// Activity entry kinds.
const (
	ActivityBillCreated     = "bill_created"
	ActivityPaymentRecorded = "payment_recorded"
	ActivityBillDueReminder = "bill_due_reminder"
)

func (h House) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrEmptyName
	}
	if len(h.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (r Roommate) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// AmountDue is the bill's remaining balance given the already-paid total.
func (b Bill) AmountDue(paid Money) Money {
	return b.Amount.Sub(paid)
}

// AmountDue is the payment's remaining unpaid balance.
func (p Payment) AmountDue() Money {
	return p.Amount.Sub(p.AmountPaid)
}

// IsPaid reports whether the payment is fully settled.
func (p Payment) IsPaid() bool {
	return p.AmountPaid.Cents == p.Amount.Cents
}

// CanApply checks a prospective payment event amount against the payment's
// outstanding balance. It returns ErrInvalidAmount for non-positive amounts
// and ErrOverpayment when the amount exceeds AmountDue.
func (p Payment) CanApply(amount Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if amount.Cents > p.AmountDue().Cents {
		return ErrOverpayment
	}
	return nil
}
