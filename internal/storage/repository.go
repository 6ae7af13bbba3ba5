// Package storage implements the ledger store on SQLite. The entries
// table is append-mostly and carries no derived totals; every aggregate
// the service reports is folded from rows at read time.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fondo/internal/core"
	"fondo/internal/ledger"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width UTC. Range filters compare the stored text
// directly, so the format must keep lexicographic order chronological
// even when timestamps carry fractional seconds.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

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

// AppendEntry validates the entry and its references, then inserts it.
// References must belong to the entry's owner; a cross-tenant wallet or
// goal id fails before any write.
func (r *SQLiteRepository) AppendEntry(ctx context.Context, e core.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if e.WalletID != nil {
		if err := r.checkOwner(ctx, "wallets", *e.WalletID, e.Owner); err != nil {
			return 0, err
		}
	}
	if e.GoalID != nil {
		if err := r.checkOwner(ctx, "savings_goals", *e.GoalID, e.Owner); err != nil {
			return 0, err
		}
	}

	recordedAt := e.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (owner, amount_cents, kind, wallet_id, goal_id, tag, transfer_kind, occurred_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Owner, e.Amount.Cents, string(e.Kind), nullInt(e.WalletID), nullInt(e.GoalID),
		e.Tag, string(e.TransferKind), e.OccurredAt.UTC().Format(timeLayout), recordedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("entry id: %w", err)
	}

	slog.InfoContext(ctx, "Entry appended",
		"id", id,
		"owner", e.Owner,
		"kind", string(e.Kind),
		"amount_cents", e.Amount.Cents)

	return id, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, owner string, id int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, amount_cents, kind, wallet_id, goal_id, tag, transfer_kind, occurred_at, recorded_at
		FROM entries WHERE id = ? AND owner = ?`, id, owner)
	return scanEntry(row)
}

// EditEntry applies a partial update to an owner's entry. Last writer
// wins; there is no version token for single-entry edits.
func (r *SQLiteRepository) EditEntry(ctx context.Context, owner string, id int64, patch core.EntryPatch) (core.Entry, error) {
	current, err := r.GetEntry(ctx, owner, id)
	if err != nil {
		return core.Entry{}, err
	}
	if patch.Amount != nil {
		current.Amount = *patch.Amount
	}
	if patch.Tag != nil {
		current.Tag = *patch.Tag
	}
	if patch.OccurredAt != nil {
		current.OccurredAt = *patch.OccurredAt
	}
	if err := current.Validate(); err != nil {
		return core.Entry{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE entries SET amount_cents = ?, tag = ?, occurred_at = ?
		WHERE id = ? AND owner = ?`,
		current.Amount.Cents, current.Tag, current.OccurredAt.UTC().Format(timeLayout), id, owner)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	return current, nil
}

func (r *SQLiteRepository) RemoveEntry(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Entries(ctx context.Context, f ledger.Filter) ([]core.Entry, error) {
	query := `SELECT id, owner, amount_cents, kind, wallet_id, goal_id, tag, transfer_kind, occurred_at, recorded_at FROM entries`
	var conds []string
	var args []any
	if f.Owner != "" {
		conds = append(conds, "owner = ?")
		args = append(args, f.Owner)
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.WalletID != nil {
		conds = append(conds, "wallet_id = ?")
		args = append(args, *f.WalletID)
	}
	if f.GoalID != nil {
		conds = append(conds, "goal_id = ?")
		args = append(args, *f.GoalID)
	}
	if f.Tag != "" {
		conds = append(conds, "tag = ?")
		args = append(args, f.Tag)
	}
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC().Format(timeLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at < ?")
		args = append(args, f.To.UTC().Format(timeLayout))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.Wallet) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO wallets (owner, name, icon) VALUES (?, ?, ?)`,
		w.Owner, w.Name, w.Icon)
	if err != nil {
		return 0, fmt.Errorf("insert wallet: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetWallet(ctx context.Context, owner string, id int64) (core.Wallet, error) {
	var w core.Wallet
	err := r.db.QueryRowContext(ctx, `SELECT id, owner, name, icon FROM wallets WHERE id = ? AND owner = ?`,
		id, owner).Scan(&w.ID, &w.Owner, &w.Name, &w.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (r *SQLiteRepository) ListWallets(ctx context.Context, owner string) ([]core.Wallet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, owner, name, icon FROM wallets WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []core.Wallet
	for rows.Next() {
		var w core.Wallet
		if err := rows.Scan(&w.ID, &w.Owner, &w.Name, &w.Icon); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWallet removes a wallet and every entry referencing it in one
// transaction, so a crash cannot leave half a cascade behind.
func (r *SQLiteRepository) DeleteWallet(ctx context.Context, owner string, id int64) error {
	return r.cascadeDelete(ctx, owner, id, "wallets", "wallet_id")
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.SavingsGoal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	var targetDate any
	if g.TargetDate != nil {
		targetDate = g.TargetDate.UTC().Format(timeLayout)
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO savings_goals (owner, name, target_cents, target_date) VALUES (?, ?, ?, ?)`,
		g.Owner, g.Name, g.TargetCents, targetDate)
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, owner string, id int64) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	var targetDate sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, owner, name, target_cents, target_date FROM savings_goals WHERE id = ? AND owner = ?`,
		id, owner).Scan(&g.ID, &g.Owner, &g.Name, &g.TargetCents, &targetDate)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	if targetDate.Valid {
		t, err := time.Parse(timeLayout, targetDate.String)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("parse target date: %w", err)
		}
		g.TargetDate = &t
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, owner, name, target_cents, target_date FROM savings_goals WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		var g core.SavingsGoal
		var targetDate sql.NullString
		if err := rows.Scan(&g.ID, &g.Owner, &g.Name, &g.TargetCents, &targetDate); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if targetDate.Valid {
			t, err := time.Parse(timeLayout, targetDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse target date: %w", err)
			}
			g.TargetDate = &t
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, owner string, id int64) error {
	return r.cascadeDelete(ctx, owner, id, "savings_goals", "goal_id")
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO budgets (owner, category, limit_cents, month, year) VALUES (?, ?, ?, ?, ?)`,
		b.Owner, b.Category, b.LimitCents, b.Month, b.Year)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ledger.ErrDuplicateBudget
		}
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, owner string, id int64) (core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx, `SELECT id, owner, category, limit_cents, month, year FROM budgets WHERE id = ? AND owner = ?`,
		id, owner).Scan(&b.ID, &b.Owner, &b.Category, &b.LimitCents, &b.Month, &b.Year)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, owner string, year, month int) ([]core.Budget, error) {
	query := `SELECT id, owner, category, limit_cents, month, year FROM budgets WHERE owner = ?`
	args := []any{owner}
	if year != 0 {
		query += " AND year = ?"
		args = append(args, year)
	}
	if month != 0 {
		query += " AND month = ?"
		args = append(args, month)
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Owner, &b.Category, &b.LimitCents, &b.Month, &b.Year); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// UnmirroredEntries returns entries not yet appended to the audit mirror,
// oldest first. The audit worker uses this as a backup scan for events
// lost between publish and consume.
func (r *SQLiteRepository) UnmirroredEntries(ctx context.Context, limit int) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, amount_cents, kind, wallet_id, goal_id, tag, transfer_kind, occurred_at, recorded_at
		FROM entries WHERE mirrored = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unmirrored entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE entries SET mirrored = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark entry mirrored: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) checkOwner(ctx context.Context, table string, id int64, owner string) error {
	var refOwner string
	err := r.db.QueryRowContext(ctx, `SELECT owner FROM `+table+` WHERE id = ?`, id).Scan(&refOwner)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check %s owner: %w", table, err)
	}
	if refOwner != owner {
		return ledger.ErrCrossOwnerRef
	}
	return nil
}

func (r *SQLiteRepository) cascadeDelete(ctx context.Context, owner string, id int64, table, refColumn string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE owner = ? AND `+refColumn+` = ?`, owner, id); err != nil {
		return fmt.Errorf("cascade delete entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade delete: %w", err)
	}

	slog.InfoContext(ctx, "Cascade delete completed", "table", table, "id", id, "owner", owner)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var e core.Entry
	var kind, transferKind, occurredAt, recordedAt string
	var walletID, goalID sql.NullInt64

	err := row.Scan(&e.ID, &e.Owner, &e.Amount.Cents, &kind, &walletID, &goalID,
		&e.Tag, &transferKind, &occurredAt, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Kind = core.EntryKind(kind)
	e.TransferKind = core.TransferKind(transferKind)
	if walletID.Valid {
		e.WalletID = &walletID.Int64
	}
	if goalID.Valid {
		e.GoalID = &goalID.Int64
	}
	if e.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
		return core.Entry{}, fmt.Errorf("parse occurred_at: %w", err)
	}
	if e.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
		return core.Entry{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return e, nil
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
