package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"viralvision/internal/credits"
)

// CreateAccount inserts an account and records its opening balance as a grant.
func (s *Store) CreateAccount(ctx context.Context, in NewAccount) (*Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, errors.New("create account: email required")
	}
	if in.Balance < 0 {
		return nil, fmt.Errorf("create account: %w: negative opening balance", credits.ErrInvalidAmount)
	}
	plan := strings.TrimSpace(in.Plan)
	if plan == "" {
		plan = "free"
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (email, credits_milli, plan, primary_platform, primary_category, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			email, in.Balance.Milli(), plan, nullableString(in.PrimaryPlatform), nullableString(in.PrimaryCategory), now, now,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: %s", ErrAccountExists, email)
			}
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if in.Balance > 0 {
			return insertEntry(ctx, tx, id, nil, EntryGrant, in.Balance, in.Balance, now)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return s.GetAccount(ctx, id)
}

// GetAccount fetches an account by id, returning ErrNotFound when absent.
func (s *Store) GetAccount(ctx context.Context, id int64) (*Account, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// FindAccountByEmail fetches an account by email, returning ErrNotFound when absent.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+accountColumns+" FROM accounts WHERE email = ?", email)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

// ListAccounts returns all accounts ordered by id.
func (s *Store) ListAccounts(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Reserve answers whether the account can currently afford minCost. It holds
// no funds and writes nothing.
func (s *Store) Reserve(ctx context.Context, accountID int64, minCost credits.Amount) (bool, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.Balance >= minCost, nil
}

// Deduct atomically subtracts amount from the balance when it is covered and
// records the charge against jobID. It returns the balance after the charge.
// A balance below amount yields ErrInsufficientCredits and changes nothing.
func (s *Store) Deduct(ctx context.Context, accountID, jobID int64, amount credits.Amount) (credits.Amount, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("deduct: %w: amount must be positive", credits.ErrInvalidAmount)
	}
	var after credits.Amount
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET credits_milli = credits_milli - ?, updated_at = ?
             WHERE id = ? AND credits_milli >= ?`,
			amount.Milli(), now, accountID, amount.Milli(),
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM accounts WHERE id = ?", accountID).Scan(&exists); err != nil {
				return err
			}
			if exists == 0 {
				return fmt.Errorf("account %d: %w", accountID, ErrNotFound)
			}
			return ErrInsufficientCredits
		}
		var balance int64
		if err := tx.QueryRowContext(ctx, "SELECT credits_milli FROM accounts WHERE id = ?", accountID).Scan(&balance); err != nil {
			return err
		}
		after = credits.Amount(balance)

		var jobRef *int64
		if jobID > 0 {
			jobRef = &jobID
			if _, err := tx.ExecContext(ctx,
				"UPDATE analysis_jobs SET cost_milli = ?, updated_at = ? WHERE id = ?",
				amount.Milli(), now, jobID,
			); err != nil {
				return err
			}
		}
		return insertEntry(ctx, tx, accountID, jobRef, EntryAnalysisCharge, -amount, after, now)
	})
	if err != nil {
		return 0, fmt.Errorf("deduct %s credits from account %d: %w", amount, accountID, err)
	}
	return after, nil
}

// Grant adds credits to an account.
func (s *Store) Grant(ctx context.Context, accountID int64, amount credits.Amount) (credits.Amount, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant: %w: amount must be positive", credits.ErrInvalidAmount)
	}
	var after credits.Amount
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.ExecContext(ctx,
			"UPDATE accounts SET credits_milli = credits_milli + ?, updated_at = ? WHERE id = ?",
			amount.Milli(), now, accountID,
		)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err != nil {
			return err
		} else if affected == 0 {
			return fmt.Errorf("account %d: %w", accountID, ErrNotFound)
		}
		var balance int64
		if err := tx.QueryRowContext(ctx, "SELECT credits_milli FROM accounts WHERE id = ?", accountID).Scan(&balance); err != nil {
			return err
		}
		after = credits.Amount(balance)
		return insertEntry(ctx, tx, accountID, nil, EntryGrant, amount, after, now)
	})
	if err != nil {
		return 0, fmt.Errorf("grant credits: %w", err)
	}
	return after, nil
}

// CreditHistory returns ledger entries for an account, oldest first.
func (s *Store) CreditHistory(ctx context.Context, accountID int64) ([]CreditEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, account_id, job_id, entry_type, amount_milli, balance_after_milli, created_at
         FROM credit_entries WHERE account_id = ? ORDER BY id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("credit history: %w", err)
	}
	defer rows.Close()

	var entries []CreditEntry
	for rows.Next() {
		var (
			entry      CreditEntry
			jobID      sql.NullInt64
			entryType  string
			amount     int64
			after      int64
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &jobID, &entryType, &amount, &after, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan credit entry: %w", err)
		}
		if jobID.Valid {
			id := jobID.Int64
			entry.JobID = &id
		}
		entry.Type = EntryType(entryType)
		entry.Amount = credits.Amount(amount)
		entry.BalanceAfter = credits.Amount(after)
		entry.CreatedAt = parseTimeOrZero(createdRaw)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func insertEntry(ctx context.Context, tx *sql.Tx, accountID int64, jobID *int64, entryType EntryType, amount, after credits.Amount, now string) error {
	var job any
	if jobID != nil {
		job = *jobID
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO credit_entries (account_id, job_id, entry_type, amount_milli, balance_after_milli, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		accountID, job, string(entryType), amount.Milli(), after.Milli(), now,
	)
	return err
}
