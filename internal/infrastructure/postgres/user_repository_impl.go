package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/internal/domain/repository"
)

const (
	insertUser = `
		INSERT INTO users (first_name, last_name, email, password_hash, role, is_active, avatar_key, is_oauth_user)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	selectUser = `
		SELECT id, first_name, last_name, email, password_hash, role, is_active,
		       avatar_key, hashed_refresh_token, is_oauth_user, created_at, updated_at
		FROM users`
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type UserRepository struct {
	db *sql.DB
	q  querier
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, q: db}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	u.Email = entity.NormalizeEmail(u.Email)
	row := r.q.QueryRowContext(ctx, insertUser,
		u.FirstName, u.LastName, u.Email, u.Password, string(u.Role), u.IsActive,
		nullString(u.AvatarKey), u.IsOAuthUser)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if postgresError(err) == pgerrcode.UniqueViolation {
			return repository.ErrUserAlreadyExists
		}
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, selectUser+` WHERE lower(email) = $1`, entity.NormalizeEmail(email)))
}

func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, id int64, hash *string) error {
	return r.update(ctx, id, map[string]any{"hashed_refresh_token": nullString(hash)})
}

func (r *UserRepository) SwapRefreshTokenHash(ctx context.Context, id int64, oldHash, newHash string) (bool, error) {
	query, args, err := psql.Update("users").
		Set("hashed_refresh_token", newHash).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "hashed_refresh_token": oldHash}).
		ToSql()
	if err != nil {
		return false, err
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("unexpected DB error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.update(ctx, id, map[string]any{"password_hash": hash})
}

func (r *UserRepository) UpdateAvatarKey(ctx context.Context, id int64, key string) error {
	return r.update(ctx, id, map[string]any{"avatar_key": key})
}

func (r *UserRepository) WithinTx(ctx context.Context, fn func(repository.UserRepository) error) error {
	if r.db == nil {
		// already inside a transaction
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&UserRepository{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *UserRepository) update(ctx context.Context, id int64, set map[string]any) error {
	query, args, err := psql.Update("users").
		SetMap(set).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*entity.User, error) {
	var (
		u       entity.User
		role    string
		avatar  sql.NullString
		refresh sql.NullString
	)
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &role, &u.IsActive,
		&avatar, &refresh, &u.IsOAuthUser, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	u.Role = entity.Role(role)
	if avatar.Valid {
		u.AvatarKey = &avatar.String
	}
	if refresh.Valid {
		u.HashedRefreshToken = &refresh.String
	}
	return &u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ repository.UserRepository = (*UserRepository)(nil)
