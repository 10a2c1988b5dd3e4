// Package worker contains the background jobs run by the hausmate-worker
// binary: persisting activity messages from AMQP and scanning for due bills.
package worker

import (
	"context"
	"fmt"
	"time"

	"hausmate/internal/amqp"
	"hausmate/internal/core"
	applog "hausmate/internal/log"
	"hausmate/internal/storage"
)

// ActivityWorker turns activity messages into activity_log rows.
type ActivityWorker struct {
	storage *storage.SQLiteRepository
	log     *applog.Logger
}

func NewActivityWorker(storage *storage.SQLiteRepository) *ActivityWorker {
	return &ActivityWorker{
		storage: storage,
		log:     applog.New("activity_worker"),
	}
}

// HandleActivityMessage persists one activity message. Returning an error
// makes the consumer nack and requeue the delivery.
func (w *ActivityWorker) HandleActivityMessage(msg *amqp.ActivityMessage) error {
	entry := &core.ActivityEntry{
		HouseID:   msg.HouseID,
		BillID:    msg.BillID,
		Kind:      msg.Kind,
		Message:   msg.Message,
		CreatedAt: msg.Timestamp,
	}
	if err := w.storage.AppendActivity(context.Background(), entry); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	w.log.Info("Activity entry recorded",
		"entry_id", entry.ID,
		"house_id", entry.HouseID,
		"kind", entry.Kind)
	return nil
}

// ReminderScanner periodically writes a reminder entry into each house's
// activity feed for bills that are due and still unpaid.
type ReminderScanner struct {
	storage *storage.SQLiteRepository
	log     *applog.Logger

	// window is how far past the due date a bill still produces reminders.
	window time.Duration
	// repeatAfter is the minimum gap between reminders for the same bill.
	repeatAfter time.Duration
}

func NewReminderScanner(storage *storage.SQLiteRepository, window time.Duration) *ReminderScanner {
	return &ReminderScanner{
		storage:     storage,
		log:         applog.New("reminder_scanner"),
		window:      window,
		repeatAfter: 24 * time.Hour,
	}
}

// Run scans on the given interval until the context is canceled.
func (s *ReminderScanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Scan(ctx); err != nil {
			s.log.ErrorContext(ctx, "Reminder scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Scan runs one pass over due bills and logs reminders for those that have
// not had one recently.
func (s *ReminderScanner) Scan(ctx context.Context) error {
	now := time.Now().UTC()
	bills, err := s.storage.ListDueBills(ctx, now)
	if err != nil {
		return fmt.Errorf("list due bills: %w", err)
	}

	reminded := 0
	for _, bill := range bills {
		if now.Sub(bill.DueDate) > s.window {
			continue
		}
		last, err := s.storage.LastReminderAt(ctx, bill.ID)
		if err != nil {
			return fmt.Errorf("last reminder for bill %d: %w", bill.ID, err)
		}
		if !last.IsZero() && now.Sub(last) < s.repeatAfter {
			continue
		}

		paid, err := s.storage.BillAmountPaid(ctx, bill.ID)
		if err != nil {
			return fmt.Errorf("amount paid for bill %d: %w", bill.ID, err)
		}
		entry := &core.ActivityEntry{
			HouseID: bill.HouseID,
			BillID:  bill.ID,
			Kind:    core.ActivityBillDueReminder,
			Message: fmt.Sprintf("Bill %q was due %s with %s outstanding", bill.Name, bill.DueDate.Format("2006-01-02"), bill.AmountDue(paid)),
		}
		if err := s.storage.AppendActivity(ctx, entry); err != nil {
			return fmt.Errorf("append reminder for bill %d: %w", bill.ID, err)
		}
		reminded++
	}

	if reminded > 0 {
		s.log.InfoContext(ctx, "Due bill reminders recorded", "count", reminded, "scanned", len(bills))
	}
	return nil
}
