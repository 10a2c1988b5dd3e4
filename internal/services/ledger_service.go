// Package services orchestrates ledger operations across storage and AMQP.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hausmate/internal/amqp"
	"hausmate/internal/core"
	"hausmate/internal/storage"
)

// ErrOwnerNotInHouse is returned when a bill names an owner that is not a
// roommate of the bill's house.
var ErrOwnerNotInHouse = errors.New("owner is not a roommate of this house")

// LedgerService owns every user-facing mutation of the ledger and the
// derived read views. Authorization is enforced here: all house-scoped
// operations require the requesting user to be the house creator.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// IsAuthorized reports whether the user may operate on the house.
func IsAuthorized(user *core.User, house *core.House) bool {
	return user != nil && house != nil && house.CreatorID == user.ID
}

// authorizeHouse loads the house and checks the creator. It returns
// core.ErrNotFound for a missing house and core.ErrNotAuthorized for a
// non-creator.
func (s *LedgerService) authorizeHouse(ctx context.Context, userID, houseID int64) (*core.House, error) {
	house, err := s.storage.GetHouse(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if house.CreatorID != userID {
		return nil, core.ErrNotAuthorized
	}
	return house, nil
}

// --- houses ---

// CreateHouse creates a house for the user and seeds it with one roommate
// named after the creator.
func (s *LedgerService) CreateHouse(ctx context.Context, user *core.User, name string) (*core.House, error) {
	house := &core.House{Name: name, CreatorID: user.ID}
	if err := house.Validate(); err != nil {
		return nil, err
	}
	if err := s.storage.CreateHouse(ctx, house, user.Name); err != nil {
		return nil, fmt.Errorf("create house: %w", err)
	}
	slog.InfoContext(ctx, "House created", "house_id", house.ID, "creator_id", user.ID)
	return house, nil
}

func (s *LedgerService) ListHouses(ctx context.Context, userID int64) ([]core.House, error) {
	return s.storage.ListHousesByCreator(ctx, userID)
}

func (s *LedgerService) GetHouse(ctx context.Context, userID, houseID int64) (*core.House, error) {
	return s.authorizeHouse(ctx, userID, houseID)
}

func (s *LedgerService) UpdateHouse(ctx context.Context, userID, houseID int64, name string) error {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return err
	}
	if err := (core.House{Name: name}).Validate(); err != nil {
		return err
	}
	return s.storage.UpdateHouseName(ctx, houseID, name)
}

func (s *LedgerService) DeleteHouse(ctx context.Context, userID, houseID int64) error {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return err
	}
	if err := s.storage.DeleteHouse(ctx, houseID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "House deleted", "house_id", houseID)
	return nil
}

// --- roommates ---

func (s *LedgerService) AddRoommate(ctx context.Context, userID, houseID int64, name string) (*core.Roommate, error) {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return nil, err
	}
	rm := &core.Roommate{HouseID: houseID, Name: name}
	if err := rm.Validate(); err != nil {
		return nil, err
	}
	if err := s.storage.CreateRoommate(ctx, rm); err != nil {
		return nil, fmt.Errorf("create roommate: %w", err)
	}
	return rm, nil
}

func (s *LedgerService) Roommates(ctx context.Context, userID, houseID int64) ([]core.Roommate, error) {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return nil, err
	}
	return s.storage.ListRoommates(ctx, houseID)
}

// --- bills ---

// CreateBill creates a bill and splits it evenly across the house's
// roommates in one transaction. The split happens exactly once, here.
func (s *LedgerService) CreateBill(ctx context.Context, userID, houseID, ownerID int64, name string, amount core.Money, dueDate time.Time) (*core.Bill, error) {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return nil, err
	}

	bill := &core.Bill{
		HouseID: houseID,
		OwnerID: ownerID,
		Name:    name,
		Amount:  amount,
		DueDate: dueDate,
	}
	if err := bill.Validate(); err != nil {
		return nil, err
	}

	// Roommates ordered by ascending ID: remainder cents land on the
	// earliest roommates, deterministically.
	roommates, err := s.storage.ListRoommates(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("list roommates: %w", err)
	}

	ownerFound := false
	for _, rm := range roommates {
		if rm.ID == ownerID {
			ownerFound = true
			break
		}
	}
	if !ownerFound {
		return nil, ErrOwnerNotInHouse
	}

	shares, err := core.SplitAmounts(amount, len(roommates))
	if err != nil {
		return nil, err
	}

	payments := make([]core.Payment, len(roommates))
	for i, rm := range roommates {
		payments[i] = core.Payment{PayerID: rm.ID, Amount: shares[i]}
	}

	if err := s.storage.CreateBillWithPayments(ctx, bill, payments); err != nil {
		return nil, fmt.Errorf("create bill with payments: %w", err)
	}

	slog.InfoContext(ctx, "Bill created",
		"bill_id", bill.ID,
		"house_id", houseID,
		"amount_cents", amount.Cents,
		"payments", len(payments))

	s.publishActivity(ctx, amqp.NewActivityMessage(
		houseID, bill.ID, core.ActivityBillCreated,
		fmt.Sprintf("Bill %q added for %s, split %d ways", bill.Name, bill.Amount, len(payments)),
	))

	return bill, nil
}

// PaymentDetail pairs a payment with its payer for display.
type PaymentDetail struct {
	Payment core.Payment
	Payer   core.Roommate
}

// BillDetail is everything the bill page shows.
type BillDetail struct {
	Bill     core.Bill
	Paid     core.Money
	Due      core.Money
	Payments []PaymentDetail
}

func (s *LedgerService) BillDetail(ctx context.Context, userID, houseID, billID int64) (*BillDetail, error) {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return nil, err
	}
	bill, err := s.storage.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.HouseID != houseID {
		return nil, core.ErrNotFound
	}

	payments, err := s.storage.ListPaymentsForBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	roommates, err := s.storage.ListRoommates(ctx, houseID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]core.Roommate, len(roommates))
	for _, rm := range roommates {
		byID[rm.ID] = rm
	}

	detail := &BillDetail{Bill: *bill}
	for _, p := range payments {
		detail.Paid = detail.Paid.Add(p.AmountPaid)
		detail.Payments = append(detail.Payments, PaymentDetail{Payment: p, Payer: byID[p.PayerID]})
	}
	detail.Due = bill.AmountDue(detail.Paid)
	return detail, nil
}

// --- payments ---

// RecordPayment validates and applies a payment event. The overpayment check
// runs here against the loaded payment; the storage layer repeats it inside
// the transaction so concurrent submissions cannot slip past.
func (s *LedgerService) RecordPayment(ctx context.Context, userID, paymentID int64, amount core.Money) (*core.PaymentEvent, error) {
	payment, err := s.storage.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	bill, err := s.storage.GetBill(ctx, payment.BillID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeHouse(ctx, userID, bill.HouseID); err != nil {
		return nil, err
	}

	if err := payment.CanApply(amount); err != nil {
		return nil, err
	}

	event, err := s.storage.RecordPaymentEvent(ctx, paymentID, amount)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Payment event recorded",
		"payment_id", paymentID,
		"event_id", event.ID,
		"amount_cents", amount.Cents)

	payerName := ""
	if payer, err := s.storage.GetRoommate(ctx, payment.PayerID); err == nil {
		payerName = payer.Name
	}
	s.publishActivity(ctx, amqp.NewActivityMessage(
		bill.HouseID, bill.ID, core.ActivityPaymentRecorded,
		fmt.Sprintf("%s paid %s toward %q", payerName, amount, bill.Name),
	))

	return event, nil
}

// PaymentContext loads a payment together with its bill for the payment
// form, enforcing house authorization.
func (s *LedgerService) PaymentContext(ctx context.Context, userID, paymentID int64) (*core.Payment, *core.Bill, error) {
	payment, err := s.storage.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	bill, err := s.storage.GetBill(ctx, payment.BillID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.authorizeHouse(ctx, userID, bill.HouseID); err != nil {
		return nil, nil, err
	}
	return payment, bill, nil
}

// --- derived views ---

// RoommateDetail is the roommate page: payment history plus the two owed
// tables.
type RoommateDetail struct {
	Roommate core.Roommate
	History  []core.PaymentEvent
	OwedFrom []core.OwedAmount
	OwedTo   []core.OwedAmount
}

func (s *LedgerService) RoommateDetail(ctx context.Context, userID, houseID, roommateID int64) (*RoommateDetail, error) {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return nil, err
	}
	rm, err := s.storage.GetRoommate(ctx, roommateID)
	if err != nil {
		return nil, err
	}
	if rm.HouseID != houseID {
		return nil, core.ErrNotFound
	}

	history, err := s.storage.PaymentHistory(ctx, roommateID)
	if err != nil {
		return nil, err
	}
	owedFrom, err := s.storage.AmountsOwedFromRoommates(ctx, roommateID)
	if err != nil {
		return nil, err
	}
	owedTo, err := s.storage.AmountsOwedToRoommates(ctx, roommateID)
	if err != nil {
		return nil, err
	}

	return &RoommateDetail{
		Roommate: *rm,
		History:  history,
		OwedFrom: owedFrom,
		OwedTo:   owedTo,
	}, nil
}

func (s *LedgerService) Bills(ctx context.Context, userID, houseID int64) ([]core.Bill, error) {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return nil, err
	}
	return s.storage.ListBills(ctx, houseID)
}

func (s *LedgerService) Activity(ctx context.Context, userID, houseID int64, limit int) ([]core.ActivityEntry, error) {
	if _, err := s.authorizeHouse(ctx, userID, houseID); err != nil {
		return nil, err
	}
	return s.storage.ListActivity(ctx, houseID, limit)
}

// publishActivity is best effort: the feed is a convenience, so publish
// failures are logged and never fail the request.
func (s *LedgerService) publishActivity(ctx context.Context, msg *amqp.ActivityMessage) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping activity message", "kind", msg.Kind)
		return
	}
	if err := s.amqpClient.PublishActivity(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish activity message",
			"error", err, "house_id", msg.HouseID, "kind", msg.Kind)
	}
}
