package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
)

// ErrDuplicateEmail signals that the users email constraint rejected a write.
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository defines persistence access for users. Absent rows are
// reported as nil results, never as errors.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, data domain.UserCreateData) (*domain.User, error)
	Update(ctx context.Context, id int64, data domain.UserUpdateData) (*domain.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
	WithTx(ctx context.Context, fn func(UserRepository) error) error
}

// Querier is the subset of pgx operations shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type userRepository struct {
	db   Querier
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{db: pool, pool: pool}
}

const userColumns = "id, email, name, created_at, updated_at"

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
        SELECT id, email, name, created_at, updated_at
        FROM users ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, email, name, created_at, updated_at
        FROM users WHERE id = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, email, name, created_at, updated_at
        FROM users WHERE email = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *userRepository) Create(ctx context.Context, data domain.UserCreateData) (*domain.User, error) {
	const query = `
        INSERT INTO users (email, name, created_at, updated_at)
        VALUES ($1, $2, NOW(), NOW())
        RETURNING id, email, name, created_at, updated_at`

	var u domain.User
	if err := r.db.QueryRow(ctx, query, data.Email, data.Name).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Update(ctx context.Context, id int64, data domain.UserUpdateData) (*domain.User, error) {
	if data.Empty() {
		return r.GetByID(ctx, id)
	}

	query, args := buildUserUpdate(id, data)
	user, err := r.scanOne(r.db.QueryRow(ctx, query, args...))
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	return user, err
}

func (r *userRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM users WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// WithTx runs fn with a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise; the
// connection is returned to the pool on every path.
func (r *userRepository) WithTx(ctx context.Context, fn func(UserRepository) error) error {
	if r.pool == nil {
		return errors.New("nested transactions are not supported")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&userRepository{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// buildUserUpdate assembles a partial UPDATE touching only supplied fields.
// Callers must ensure at least one field is set.
func buildUserUpdate(id int64, data domain.UserUpdateData) (string, []any) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if data.Email != nil {
		args = append(args, *data.Email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if data.Name != nil {
		args = append(args, *data.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)
	return query, args
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
