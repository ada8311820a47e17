package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRecord is the persisted user row. PasswordHash is empty for
// federated accounts, GoogleID is empty for local ones, Secret is empty
// until the user submits one.
type UserRecord struct {
	ID           int64
	Username     string
	PasswordHash string
	GoogleID     string
	Secret       string
	CreatedAt    time.Time
}

// PublicSecret is the anonymized projection shown on the secrets board.
type PublicSecret struct {
	Username string
	Secret   string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByID(ctx context.Context, id int64) (*UserRecord, error)
	Create(ctx context.Context, username, passwordHash string) (int64, error)
	// UpsertByGoogleID finds or creates the account for a federated
	// identity in a single atomic statement.
	UpsertByGoogleID(ctx context.Context, googleID, displayName string) (*UserRecord, error)
	UpdateSecret(ctx context.Context, id int64, secret string) error
	// ListSecrets returns every non-empty secret. Order is store-native
	// and unspecified.
	ListSecrets(ctx context.Context) ([]PublicSecret, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

// FindByUsername looks up a local account. Federated accounts are not
// addressable by username; they log in through their provider id.
func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	const q = `SELECT id, username, COALESCE(password_hash,''), COALESCE(google_id,''), COALESCE(secret,''), created_at
	           FROM users WHERE username=$1 AND password_hash IS NOT NULL`
	return r.scanOne(r.db.QueryRow(ctx, q, username))
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	const q = `SELECT id, username, COALESCE(password_hash,''), COALESCE(google_id,''), COALESCE(secret,''), created_at
	           FROM users WHERE id=$1`
	return r.scanOne(r.db.QueryRow(ctx, q, id))
}

func (r *PgUserRepository) scanOne(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.GoogleID, &u.Secret, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	const q = `INSERT INTO users (username, password_hash) VALUES ($1,$2) RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, q, username, passwordHash).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}
	return id, nil
}

// UpsertByGoogleID is a single conditional insert so that concurrent
// first-time logins for the same identity cannot create two rows. The
// no-op DO UPDATE makes RETURNING yield the existing row on conflict.
func (r *PgUserRepository) UpsertByGoogleID(ctx context.Context, googleID, displayName string) (*UserRecord, error) {
	const q = `INSERT INTO users (username, google_id) VALUES ($1,$2)
	           ON CONFLICT (google_id) DO UPDATE SET google_id = EXCLUDED.google_id
	           RETURNING id, username, COALESCE(password_hash,''), COALESCE(google_id,''), COALESCE(secret,''), created_at`
	return r.scanOne(r.db.QueryRow(ctx, q, displayName, googleID))
}

func (r *PgUserRepository) UpdateSecret(ctx context.Context, id int64, secret string) error {
	const q = `UPDATE users SET secret=$1 WHERE id=$2`
	ct, err := r.db.Exec(ctx, q, secret, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *PgUserRepository) ListSecrets(ctx context.Context) ([]PublicSecret, error) {
	rows, err := r.db.Query(ctx, `SELECT username, secret FROM users WHERE secret IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PublicSecret
	for rows.Next() {
		var s PublicSecret
		if err := rows.Scan(&s.Username, &s.Secret); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
