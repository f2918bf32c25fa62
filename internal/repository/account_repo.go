package repository

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// AccountRepo stores ledger accounts and their posting history. Balance
// mutation is serialized per account: PostOperations takes the affected
// accounts' locks in sorted order before the transaction touches them.
type AccountRepo struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db, locks: make(map[string]*sync.Mutex)}
}

func (r *AccountRepo) lockFor(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.locks[id] = l
	return l
}

func (r *AccountRepo) Insert(a *domain.Account) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO accounts
		(id, holder, kind, currency, balance, authority, status, email)
		VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.Holder, string(a.Kind), a.Currency, a.Balance.String(),
		a.Authority, a.Status, a.Email,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepo) BulkInsert(accounts []domain.Account) (int, error) {
	inserted := 0
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO accounts
		(id, holder, kind, currency, balance, authority, status, email)
		VALUES (?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range accounts {
		a := &accounts[i]
		res, err := stmt.Exec(
			a.ID, a.Holder, string(a.Kind), a.Currency, a.Balance.String(),
			a.Authority, a.Status, a.Email,
		)
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

func (r *AccountRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count)
	return count, err
}

// Get returns the account or nil when unknown.
func (r *AccountRepo) Get(id string) (*domain.Account, error) {
	row := r.db.QueryRow(
		`SELECT id, holder, kind, currency, balance, authority, status, email
		 FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// List returns accounts, optionally filtered by kind.
func (r *AccountRepo) List(kind string) ([]domain.Account, error) {
	query := `SELECT id, holder, kind, currency, balance, authority, status, email
		 FROM accounts`
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccountRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// FindNostroForCurrency returns the nostro account for a currency,
// preferring an active one.
func (r *AccountRepo) FindNostroForCurrency(ccy string) (*domain.Account, error) {
	row := r.db.QueryRow(
		`SELECT id, holder, kind, currency, balance, authority, status, email
		 FROM accounts WHERE kind = ? AND currency = ?
		 ORDER BY CASE status WHEN 'Active' THEN 0 ELSE 1 END, id LIMIT 1`,
		string(domain.AccountNostro), strings.ToUpper(ccy))
	return scanAccount(row)
}

// FindVostroForBIC returns the vostro account held for the counterparty
// bank identified by bic in the given currency. The BIC is carried in
// the holder name.
func (r *AccountRepo) FindVostroForBIC(bic, ccy string) (*domain.Account, error) {
	row := r.db.QueryRow(
		`SELECT id, holder, kind, currency, balance, authority, status, email
		 FROM accounts WHERE kind = ? AND currency = ? AND holder LIKE ?
		 ORDER BY id LIMIT 1`,
		string(domain.AccountVostro), strings.ToUpper(ccy), "%"+bic+"%")
	return scanAccount(row)
}

// FindSuspense returns the suspense account for a currency, falling back
// to any suspense account.
func (r *AccountRepo) FindSuspense(ccy string) (*domain.Account, error) {
	row := r.db.QueryRow(
		`SELECT id, holder, kind, currency, balance, authority, status, email
		 FROM accounts WHERE kind = ?
		 ORDER BY CASE currency WHEN ? THEN 0 ELSE 1 END, id LIMIT 1`,
		string(domain.AccountSuspense), strings.ToUpper(ccy))
	return scanAccount(row)
}

// FindBranchSettlement returns the branch settlement account.
func (r *AccountRepo) FindBranchSettlement() (*domain.Account, error) {
	row := r.db.QueryRow(
		`SELECT id, holder, kind, currency, balance, authority, status, email
		 FROM accounts WHERE kind = ? ORDER BY id LIMIT 1`,
		string(domain.AccountBranchSettlement))
	return scanAccount(row)
}

// FindFCAByHolderToken returns the first active foreign-currency account
// whose holder name starts with the given token.
func (r *AccountRepo) FindFCAByHolderToken(token string) (*domain.Account, error) {
	if token == "" {
		return nil, nil
	}
	row := r.db.QueryRow(
		`SELECT id, holder, kind, currency, balance, authority, status, email
		 FROM accounts WHERE kind = ? AND status = 'Active' AND holder LIKE ?
		 ORDER BY id LIMIT 1`,
		string(domain.AccountFCA), token+"%")
	return scanAccount(row)
}

// FindFCAForHolder returns the first active FCA held under exactly this
// holder name.
func (r *AccountRepo) FindFCAForHolder(holder string) (*domain.Account, error) {
	row := r.db.QueryRow(
		`SELECT id, holder, kind, currency, balance, authority, status, email
		 FROM accounts WHERE kind = ? AND status = 'Active' AND holder = ?
		 ORDER BY id LIMIT 1`,
		string(domain.AccountFCA), holder)
	return scanAccount(row)
}

// OperationRequest describes one posting for PostOperations.
type OperationRequest struct {
	Kind           domain.OperationKind
	AccountID      string
	Amount         decimal.Decimal
	Currency       string
	CorrelationRef string
	ActionTag      string
}

// PostOperations applies the given postings as a single unit: either all
// balances move and all operation rows are recorded, or none are. The
// sequence numbers continue from the case's existing operations.
func (r *AccountRepo) PostOperations(caseID string, reqs []OperationRequest) ([]domain.AccountOperation, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	// Take per-account locks in sorted order so concurrent cases touching
	// the same accounts cannot deadlock or interleave read-modify-write.
	ids := make([]string, 0, len(reqs))
	seen := make(map[string]bool, len(reqs))
	for _, req := range reqs {
		if !seen[req.AccountID] {
			seen[req.AccountID] = true
			ids = append(ids, req.AccountID)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		l := r.lockFor(id)
		l.Lock()
		defer l.Unlock()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), -1) FROM account_operations WHERE case_id = ?`,
		caseID).Scan(&seq); err != nil {
		return nil, fmt.Errorf("read op sequence: %w", err)
	}

	now := time.Now().UTC()
	ops := make([]domain.AccountOperation, 0, len(reqs))

	for _, req := range reqs {
		var holder, kind, balanceStr string
		err := tx.QueryRow(
			`SELECT holder, kind, balance FROM accounts WHERE id = ?`,
			req.AccountID).Scan(&holder, &kind, &balanceStr)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("post to unknown account %s", req.AccountID)
		}
		if err != nil {
			return nil, fmt.Errorf("read account %s: %w", req.AccountID, err)
		}

		before, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("account %s balance %q: %w", req.AccountID, balanceStr, err)
		}

		var after decimal.Decimal
		switch req.Kind {
		case domain.OpDebit:
			after = before.Sub(req.Amount)
		case domain.OpCredit:
			after = before.Add(req.Amount)
		default:
			return nil, fmt.Errorf("unknown operation kind %q", req.Kind)
		}

		if _, err := tx.Exec(
			`UPDATE accounts SET balance = ? WHERE id = ?`,
			after.String(), req.AccountID); err != nil {
			return nil, fmt.Errorf("update balance %s: %w", req.AccountID, err)
		}

		seq++
		if _, err := tx.Exec(
			`INSERT INTO account_operations
			(case_id, seq, kind, account_id, account_name, account_kind,
			 amount, currency, balance_before, balance_after,
			 correlation_ref, action_tag, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			caseID, seq, string(req.Kind), req.AccountID, holder, kind,
			req.Amount.String(), req.Currency, before.String(), after.String(),
			req.CorrelationRef, req.ActionTag, now.Format(time.RFC3339),
		); err != nil {
			return nil, fmt.Errorf("record operation: %w", err)
		}

		ops = append(ops, domain.AccountOperation{
			Kind:           req.Kind,
			AccountID:      req.AccountID,
			AccountName:    holder,
			AccountKind:    domain.AccountKind(kind),
			Amount:         req.Amount,
			Currency:       req.Currency,
			BalanceBefore:  before,
			BalanceAfter:   after,
			CorrelationRef: req.CorrelationRef,
			CaseID:         caseID,
			ActionTag:      req.ActionTag,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ops, nil
}

// HasOperations reports whether the case has already posted to the
// ledger. Used to keep refund processing idempotent per case.
func (r *AccountRepo) HasOperations(caseID string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM account_operations WHERE case_id = ?`, caseID).
		Scan(&count)
	return count > 0, err
}

// OperationsForCase returns a case's recorded operations in posting
// order.
func (r *AccountRepo) OperationsForCase(caseID string) ([]domain.AccountOperation, error) {
	rows, err := r.db.Query(
		`SELECT kind, account_id, account_name, account_kind, amount,
		        currency, balance_before, balance_after, correlation_ref, action_tag
		 FROM account_operations WHERE case_id = ? ORDER BY seq`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var ops []domain.AccountOperation
	for rows.Next() {
		var op domain.AccountOperation
		var kind, acctKind, amount, before, after string
		if err := rows.Scan(&kind, &op.AccountID, &op.AccountName, &acctKind,
			&amount, &op.Currency, &before, &after, &op.CorrelationRef,
			&op.ActionTag); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op.Kind = domain.OperationKind(kind)
		op.AccountKind = domain.AccountKind(acctKind)
		if op.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("operation amount: %w", err)
		}
		if op.BalanceBefore, err = decimal.NewFromString(before); err != nil {
			return nil, fmt.Errorf("operation balance before: %w", err)
		}
		if op.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("operation balance after: %w", err)
		}
		op.CaseID = caseID
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	a, err := scanAccountRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func scanAccountRows(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var kind, balance string
	if err := row.Scan(&a.ID, &a.Holder, &kind, &a.Currency, &balance,
		&a.Authority, &a.Status, &a.Email); err != nil {
		return nil, err
	}
	a.Kind = domain.AccountKind(kind)
	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("account %s balance %q: %w", a.ID, balance, err)
	}
	return &a, nil
}
