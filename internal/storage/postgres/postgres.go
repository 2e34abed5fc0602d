// Package postgres is implementation of AccountStorage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/Hchautard/CerisoNet-back/internal/entities"
	"github.com/Hchautard/CerisoNet-back/internal/storage"
)

type pg struct {
	ext sqlx.ExtContext
}

type accountDTO struct {
	ID        int64        `db:"id"`
	Mail      string       `db:"mail"`
	Password  string       `db:"password"`
	FirstName string       `db:"prenom"`
	LastName  string       `db:"nom"`
	Avatar    string       `db:"avatar"`
	Connected bool         `db:"connecte"`
	LastLogin sql.NullTime `db:"derniere_connexion"`
}

// New creates new instance of pg.
func New(db *sql.DB) storage.AccountStorage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

func (s pg) CreateAccount(ctx context.Context, a *entities.Account) (int64, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO account(mail, password, prenom, nom, avatar, connecte)
			VALUES($1, $2, $3, $4, $5, FALSE)
			RETURNING id
		`,
		a.Mail, a.Password, a.FirstName, a.LastName, a.Avatar,
	); err != nil {
		return 0, fmt.Errorf("failed to exec: %w", err)
	}

	return id, nil
}

func (s pg) GetAccountByMail(ctx context.Context, mail string) (*entities.Account, error) {
	var a accountDTO

	if err := sqlx.GetContext(ctx, s.ext, &a, `
			SELECT id, mail, password, prenom, nom, avatar, connecte, derniere_connexion
			FROM account
			WHERE mail = $1
		`,
		mail,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toAccount(&a), nil
}

func (s pg) GetAccounts(ctx context.Context, id ...int64) ([]*entities.Account, error) {
	if len(id) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
			SELECT id, mail, password, prenom, nom, avatar, connecte, derniere_connexion
			FROM account
			WHERE id IN (?)
		`, int64sUnique(id))

	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var aa []*accountDTO

	if err := sqlx.SelectContext(ctx, s.ext, &aa, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Account, len(aa))
	for i, v := range aa {
		out[i] = toAccount(v)
	}

	return out, nil
}

func (s pg) SetConnected(ctx context.Context, id int64, connected bool) error {
	res, err := s.ext.ExecContext(ctx, `UPDATE account SET connecte=$2 WHERE id=$1`, id, connected)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) SetLastLogin(ctx context.Context, id int64, timestamp time.Time) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE account SET derniere_connexion=$2 WHERE id=$1`,
		id, timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListConnected(ctx context.Context) ([]*entities.ConnectedUser, error) {
	var aa []*accountDTO

	if err := sqlx.SelectContext(ctx, s.ext, &aa, `
			SELECT id, mail, password, prenom, nom, avatar, connecte, derniere_connexion
			FROM account
			WHERE connecte
			ORDER BY id
		`,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.ConnectedUser, len(aa))
	for i, v := range aa {
		out[i] = &entities.ConnectedUser{
			ID:        v.ID,
			Mail:      v.Mail,
			FirstName: v.FirstName,
			LastName:  v.LastName,
			Avatar:    v.Avatar,
		}
	}

	return out, nil
}

func (s pg) Ping(ctx context.Context) error {
	if _, err := s.ext.ExecContext(ctx, `SELECT 1`); err != nil {
		return fmt.Errorf("failed to ping: %w", err)
	}

	return nil
}

func toAccount(a *accountDTO) *entities.Account {
	out := entities.Account{
		ID:        a.ID,
		Mail:      a.Mail,
		Password:  a.Password,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Avatar:    a.Avatar,
		Connected: a.Connected,
	}

	if a.LastLogin.Valid {
		out.LastLogin = a.LastLogin.Time
	}

	return &out
}

func int64sUnique(s []int64) []int64 {
	m := make(map[int64]struct{}, len(s))
	out := make([]int64, 0, len(s))

	for _, v := range s {
		if _, ok := m[v]; !ok {
			m[v] = struct{}{}
			out = append(out, v)
		}
	}

	return out
}
