// Package storage provides the SQLite-backed persistence layer.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hausmate/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	u.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.Name, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	u := &core.User{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?", email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	u := &core.User{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// --- houses ---

// CreateHouse inserts the house and its first roommate (named after the
// creator) in one transaction.
func (r *SQLiteRepository) CreateHouse(ctx context.Context, h *core.House, firstRoommate string) error {
	now := time.Now().UTC()
	h.CreatedAt = now
	h.ModifiedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO houses (name, creator_id, created_at, modified_at) VALUES (?, ?, ?, ?)",
		h.Name, h.CreatorID, h.CreatedAt, h.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert house: %w", err)
	}
	h.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("house id: %w", err)
	}

	if firstRoommate != "" {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO roommates (house_id, name) VALUES (?, ?)",
			h.ID, firstRoommate,
		); err != nil {
			return fmt.Errorf("insert first roommate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetHouse(ctx context.Context, id int64) (*core.House, error) {
	h := &core.House{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, creator_id, created_at, modified_at FROM houses WHERE id = ?", id,
	).Scan(&h.ID, &h.Name, &h.CreatorID, &h.CreatedAt, &h.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get house: %w", err)
	}
	return h, nil
}

func (r *SQLiteRepository) ListHousesByCreator(ctx context.Context, creatorID int64) ([]core.House, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, creator_id, created_at, modified_at FROM houses WHERE creator_id = ? ORDER BY id", creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	defer rows.Close()

	var houses []core.House
	for rows.Next() {
		var h core.House
		if err := rows.Scan(&h.ID, &h.Name, &h.CreatorID, &h.CreatedAt, &h.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan house: %w", err)
		}
		houses = append(houses, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate houses: %w", err)
	}
	return houses, nil
}

func (r *SQLiteRepository) UpdateHouseName(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE houses SET name = ?, modified_at = ? WHERE id = ?",
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update house: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteHouse removes the house; roommates, bills, payments, payment events
// and activity entries go with it via ON DELETE CASCADE.
func (r *SQLiteRepository) DeleteHouse(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM houses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete house: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- roommates ---

func (r *SQLiteRepository) CreateRoommate(ctx context.Context, rm *core.Roommate) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO roommates (house_id, name) VALUES (?, ?)",
		rm.HouseID, rm.Name,
	)
	if err != nil {
		return fmt.Errorf("insert roommate: %w", err)
	}
	rm.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("roommate id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRoommate(ctx context.Context, id int64) (*core.Roommate, error) {
	rm := &core.Roommate{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, house_id, name FROM roommates WHERE id = ?", id,
	).Scan(&rm.ID, &rm.HouseID, &rm.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get roommate: %w", err)
	}
	return rm, nil
}

// ListRoommates returns the house's roommates ordered by ascending ID; the
// split operation relies on this order for remainder-cent placement.
func (r *SQLiteRepository) ListRoommates(ctx context.Context, houseID int64) ([]core.Roommate, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, house_id, name FROM roommates WHERE house_id = ? ORDER BY id", houseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list roommates: %w", err)
	}
	defer rows.Close()

	var roommates []core.Roommate
	for rows.Next() {
		var rm core.Roommate
		if err := rows.Scan(&rm.ID, &rm.HouseID, &rm.Name); err != nil {
			return nil, fmt.Errorf("scan roommate: %w", err)
		}
		roommates = append(roommates, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roommates: %w", err)
	}
	return roommates, nil
}

// --- bills ---

// CreateBillWithPayments inserts the bill and its split payments as a single
// transaction: either all payments are created or none are.
func (r *SQLiteRepository) CreateBillWithPayments(ctx context.Context, b *core.Bill, payments []core.Payment) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.ModifiedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var due any
	if !b.DueDate.IsZero() {
		due = b.DueDate.UTC()
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO bills (house_id, owner_id, name, amount_cents, due_date, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		b.HouseID, b.OwnerID, b.Name, b.Amount.Cents, due, b.CreatedAt, b.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("bill id: %w", err)
	}

	for i := range payments {
		p := &payments[i]
		p.BillID = b.ID
		p.CreatedAt = now
		p.ModifiedAt = now
		res, err := tx.ExecContext(ctx,
			"INSERT INTO payments (bill_id, payer_id, amount_cents, amount_paid_cents, created_at, modified_at) VALUES (?, ?, ?, 0, ?, ?)",
			p.BillID, p.PayerID, p.Amount.Cents, p.CreatedAt, p.ModifiedAt,
		)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("payment id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanBill(scan func(...any) error) (*core.Bill, error) {
	b := &core.Bill{}
	var due sql.NullTime
	if err := scan(&b.ID, &b.HouseID, &b.OwnerID, &b.Name, &b.Amount.Cents, &due, &b.CreatedAt, &b.ModifiedAt); err != nil {
		return nil, err
	}
	if due.Valid {
		b.DueDate = due.Time
	}
	return b, nil
}

const billColumns = "id, house_id, owner_id, name, amount_cents, due_date, created_at, modified_at"

func (r *SQLiteRepository) GetBill(ctx context.Context, id int64) (*core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE id = ?", id,
	)
	b, err := scanBill(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context, houseID int64) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE house_id = ? ORDER BY id", houseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return bills, nil
}

// ListDueBills returns bills with a due date on or before the cutoff that
// still carry an outstanding balance.
func (r *SQLiteRepository) ListDueBills(ctx context.Context, cutoff time.Time) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM bills b
		WHERE b.due_date IS NOT NULL
		  AND b.due_date <= ?
		  AND b.amount_cents > (
			SELECT COALESCE(SUM(p.amount_paid_cents), 0) FROM payments p WHERE p.bill_id = b.id
		  )
		ORDER BY b.due_date, b.id`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due bills: %w", err)
	}
	return bills, nil
}

// --- payments ---

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (*core.Payment, error) {
	p := &core.Payment{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, bill_id, payer_id, amount_cents, amount_paid_cents, created_at, modified_at FROM payments WHERE id = ?", id,
	).Scan(&p.ID, &p.BillID, &p.PayerID, &p.Amount.Cents, &p.AmountPaid.Cents, &p.CreatedAt, &p.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListPaymentsForBill(ctx context.Context, billID int64) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, bill_id, payer_id, amount_cents, amount_paid_cents, created_at, modified_at FROM payments WHERE bill_id = ? ORDER BY id", billID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		var p core.Payment
		if err := rows.Scan(&p.ID, &p.BillID, &p.PayerID, &p.Amount.Cents, &p.AmountPaid.Cents, &p.CreatedAt, &p.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

// RecordPaymentEvent appends a payment event and bumps the payment's paid
// total in one transaction. The UPDATE carries the overpayment guard in its
// WHERE clause, so a concurrent submission that would push amount_paid past
// amount rolls the whole transaction back with ErrOverpayment.
func (r *SQLiteRepository) RecordPaymentEvent(ctx context.Context, paymentID int64, amount core.Money) (*core.PaymentEvent, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM payments WHERE id = ?", paymentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check payment: %w", err)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE payments SET amount_paid_cents = amount_paid_cents + ?, modified_at = ? WHERE id = ? AND amount_paid_cents + ? <= amount_cents",
		amount.Cents, now, paymentID, amount.Cents,
	)
	if err != nil {
		return nil, fmt.Errorf("apply payment event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, core.ErrOverpayment
	}

	event := &core.PaymentEvent{
		PaymentID: paymentID,
		Amount:    amount,
		CreatedAt: now,
	}
	ins, err := tx.ExecContext(ctx,
		"INSERT INTO payment_events (payment_id, amount_cents, created_at) VALUES (?, ?, ?)",
		event.PaymentID, event.Amount.Cents, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment event: %w", err)
	}
	event.ID, err = ins.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("payment event id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return event, nil
}

// --- derived ledger queries ---

// BillAmountPaid sums amount_paid over the bill's payments.
func (r *SQLiteRepository) BillAmountPaid(ctx context.Context, billID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_paid_cents), 0) FROM payments WHERE bill_id = ?", billID,
	).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("bill amount paid: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// PaymentHistory returns every payment event for payments owed by the
// roommate, newest first.
func (r *SQLiteRepository) PaymentHistory(ctx context.Context, roommateID int64) ([]core.PaymentEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.payment_id, e.amount_cents, e.created_at
		FROM payment_events e
		JOIN payments p ON p.id = e.payment_id
		WHERE p.payer_id = ?
		ORDER BY e.created_at DESC, e.id DESC`,
		roommateID,
	)
	if err != nil {
		return nil, fmt.Errorf("payment history: %w", err)
	}
	defer rows.Close()

	var events []core.PaymentEvent
	for rows.Next() {
		var e core.PaymentEvent
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.Amount.Cents, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment events: %w", err)
	}
	return events, nil
}

// AmountsOwedFromRoommates totals, per other roommate, the outstanding
// balances they owe on bills owned by the given roommate. A roommate appears
// as soon as they have at least one payment on such a bill; a zero total is
// kept (it means they are fully settled, not absent).
func (r *SQLiteRepository) AmountsOwedFromRoommates(ctx context.Context, roommateID int64) ([]core.OwedAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.house_id, r.name, SUM(p.amount_cents - p.amount_paid_cents)
		FROM payments p
		JOIN bills b ON b.id = p.bill_id
		JOIN roommates r ON r.id = p.payer_id
		WHERE b.owner_id = ? AND p.payer_id != ?
		GROUP BY r.id, r.house_id, r.name
		ORDER BY r.id`,
		roommateID, roommateID,
	)
	if err != nil {
		return nil, fmt.Errorf("amounts owed from roommates: %w", err)
	}
	defer rows.Close()

	return scanOwedAmounts(rows)
}

// AmountsOwedToRoommates totals, per other roommate, what the given roommate
// still owes on bills those roommates own. Only strictly positive totals are
// included.
func (r *SQLiteRepository) AmountsOwedToRoommates(ctx context.Context, roommateID int64) ([]core.OwedAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.house_id, r.name, SUM(p.amount_cents - p.amount_paid_cents)
		FROM payments p
		JOIN bills b ON b.id = p.bill_id
		JOIN roommates r ON r.id = b.owner_id
		WHERE p.payer_id = ? AND b.owner_id != ?
		GROUP BY r.id, r.house_id, r.name
		HAVING SUM(p.amount_cents - p.amount_paid_cents) > 0
		ORDER BY r.id`,
		roommateID, roommateID,
	)
	if err != nil {
		return nil, fmt.Errorf("amounts owed to roommates: %w", err)
	}
	defer rows.Close()

	return scanOwedAmounts(rows)
}

func scanOwedAmounts(rows *sql.Rows) ([]core.OwedAmount, error) {
	var owed []core.OwedAmount
	for rows.Next() {
		var o core.OwedAmount
		if err := rows.Scan(&o.Roommate.ID, &o.Roommate.HouseID, &o.Roommate.Name, &o.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan owed amount: %w", err)
		}
		owed = append(owed, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owed amounts: %w", err)
	}
	return owed, nil
}

// --- activity feed ---

func (r *SQLiteRepository) AppendActivity(ctx context.Context, a *core.ActivityEntry) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var billID any
	if a.BillID != 0 {
		billID = a.BillID
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO activity_log (house_id, bill_id, kind, message, created_at) VALUES (?, ?, ?, ?, ?)",
		a.HouseID, billID, a.Kind, a.Message, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("activity entry id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListActivity(ctx context.Context, houseID int64, limit int) ([]core.ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, house_id, COALESCE(bill_id, 0), kind, message, created_at
		FROM activity_log
		WHERE house_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		houseID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []core.ActivityEntry
	for rows.Next() {
		var a core.ActivityEntry
		if err := rows.Scan(&a.ID, &a.HouseID, &a.BillID, &a.Kind, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity entries: %w", err)
	}
	return entries, nil
}

// LastReminderAt returns when a due-bill reminder was last logged for the
// bill, or the zero time if none exists. The worker uses it to avoid
// repeating reminders every scan.
func (r *SQLiteRepository) LastReminderAt(ctx context.Context, billID int64) (time.Time, error) {
	var at time.Time
	err := r.db.QueryRowContext(ctx,
		"SELECT created_at FROM activity_log WHERE bill_id = ? AND kind = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		billID, core.ActivityBillDueReminder,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last reminder: %w", err)
	}
	return at, nil
}
