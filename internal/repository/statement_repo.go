package repository

import (
	"database/sql"
	"fmt"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// StatementRepo stores nostro/vostro statement entries. Entries are
// returned in insertion order: the matcher's first-match-wins rule
// depends on stable scan order.
type StatementRepo struct {
	db *sql.DB
}

func NewStatementRepo(db *sql.DB) *StatementRepo {
	return &StatementRepo{db: db}
}

func (r *StatementRepo) Insert(e *domain.StatementEntry) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO statement_entries
		(id, account_id, kind, value_date, currency, amount, direction, reference)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.AccountID, e.Kind, e.ValueDate, e.Currency, e.Amount,
		e.Direction, e.Reference,
	)
	if err != nil {
		return fmt.Errorf("insert statement entry: %w", err)
	}
	return nil
}

func (r *StatementRepo) BulkInsert(entries []domain.StatementEntry) (int, error) {
	inserted := 0
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO statement_entries
		(id, account_id, kind, value_date, currency, amount, direction, reference)
		VALUES (?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		res, err := stmt.Exec(e.ID, e.AccountID, e.Kind, e.ValueDate,
			e.Currency, e.Amount, e.Direction, e.Reference)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *StatementRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM statement_entries").Scan(&count)
	return count, err
}

// ListByKind returns statement entries of one kind in scan order.
func (r *StatementRepo) ListByKind(kind string) ([]domain.StatementEntry, error) {
	rows, err := r.db.Query(
		`SELECT id, account_id, kind, value_date, currency, amount, direction, reference
		 FROM statement_entries WHERE kind = ? ORDER BY rowid`, kind)
	if err != nil {
		return nil, fmt.Errorf("list statement entries: %w", err)
	}
	defer rows.Close()

	var out []domain.StatementEntry
	for rows.Next() {
		var e domain.StatementEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &e.ValueDate,
			&e.Currency, &e.Amount, &e.Direction, &e.Reference); err != nil {
			return nil, fmt.Errorf("scan statement entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
