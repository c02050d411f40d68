package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
)

var _ repository.AccountRepository = (*AccountStore)(nil)

// AccountStore keeps at most one linked account per provider.
type AccountStore struct {
	db *DB
}

// Save links an account, replacing whatever was linked for the same
// provider before.
func (s *AccountStore) Save(ctx context.Context, account *model.Account) error {
	if account.LinkedAt.IsZero() {
		account.LinkedAt = time.Now().UTC()
	}

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO accounts (provider, username, access_token, linked_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(provider) DO UPDATE SET
		     username     = excluded.username,
		     access_token = excluded.access_token,
		     linked_at    = excluded.linked_at`,
		string(account.Provider),
		account.Username,
		account.AccessToken,
		account.LinkedAt.UTC(),
	)
	if err != nil {
		return apperror.Storage("saving "+string(account.Provider)+" account", err)
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, provider model.Provider) (*model.Account, error) {
	var (
		a    model.Account
		prov string
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT provider, username, access_token, linked_at FROM accounts WHERE provider = ?`,
		string(provider),
	).Scan(&prov, &a.Username, &a.AccessToken, &a.LinkedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", string(provider))
		}
		return nil, apperror.Storage("getting "+string(provider)+" account", err)
	}
	a.Provider = model.Provider(prov)
	return &a, nil
}

func (s *AccountStore) List(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT provider, username, access_token, linked_at FROM accounts ORDER BY provider`)
	if err != nil {
		return nil, apperror.Storage("listing accounts", err)
	}
	defer rows.Close()

	accounts := make([]model.Account, 0)
	for rows.Next() {
		var (
			a    model.Account
			prov string
		)
		if err := rows.Scan(&prov, &a.Username, &a.AccessToken, &a.LinkedAt); err != nil {
			return nil, apperror.Storage("scanning account row", err)
		}
		a.Provider = model.Provider(prov)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating accounts", err)
	}
	return accounts, nil
}

func (s *AccountStore) Delete(ctx context.Context, provider model.Provider) error {
	result, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM accounts WHERE provider = ?`, string(provider))
	if err != nil {
		return apperror.Storage("unlinking "+string(provider)+" account", err)
	}
	return requireAffected(result, "account", string(provider))
}
