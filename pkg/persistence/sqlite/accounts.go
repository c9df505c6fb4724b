package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence"
)

const accountColumns = `
	id
  , handle
  , status
  , proxy_id
  , last_checked_at
  , created_at
  , updated_at
`

// Accounts returns all managed accounts.
func (p *Persistence) Accounts(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer p.closeRows(ctx, rows)

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		accounts = append(accounts, account)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// AccountByID returns one account or ErrAccountNotFound.
func (p *Persistence) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	account, err := scanAccount(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("AccountByID", id, persistence.ErrAccountNotFound)
		}

		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	return account, nil
}

// SaveAccount inserts or replaces an account row.
func (p *Persistence) SaveAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, handle, status, proxy_id, last_checked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			handle = excluded.handle
		  , status = excluded.status
		  , proxy_id = excluded.proxy_id
		  , last_checked_at = excluded.last_checked_at
		  , updated_at = excluded.updated_at
	`

	_, err := p.db.ExecContext(ctx, query,
		account.ID, account.Handle, account.Status, account.ProxyID,
		account.LastCheckedAt, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveAccount", account.ID, err)
	}

	return nil
}

// ProxyByID returns one proxy or ErrProxyNotFound.
func (p *Persistence) ProxyByID(ctx context.Context, id string) (*models.Proxy, error) {
	query := `SELECT id, address, protocol, username, password FROM proxies WHERE id = ?`

	proxy := &models.Proxy{}

	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&proxy.ID, &proxy.Address, &proxy.Protocol, &proxy.Username, &proxy.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("ProxyByID", id, persistence.ErrProxyNotFound)
		}

		return nil, fmt.Errorf("failed to scan proxy: %w", err)
	}

	return proxy, nil
}

// SaveProxy inserts or replaces a proxy row.
func (p *Persistence) SaveProxy(ctx context.Context, proxy *models.Proxy) error {
	query := `
		INSERT INTO proxies (id, address, protocol, username, password)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address
		  , protocol = excluded.protocol
		  , username = excluded.username
		  , password = excluded.password
	`

	_, err := p.db.ExecContext(ctx, query,
		proxy.ID, proxy.Address, proxy.Protocol, proxy.Username, proxy.Password)
	if err != nil {
		return persistence.NewStoreError("SaveProxy", proxy.ID, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	account := &models.Account{}

	err := row.Scan(
		&account.ID, &account.Handle, &account.Status, &account.ProxyID,
		&account.LastCheckedAt, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return account, nil
}
