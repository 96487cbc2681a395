package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
)

func strptr(s string) *string { return &s }

func TestBuildUserUpdate_EmailOnly(t *testing.T) {
	query, args := buildUserUpdate(5, domain.UserUpdateData{Email: strptr("a@x.com")})

	assert.Equal(t,
		"UPDATE users SET email = $1, updated_at = NOW() WHERE id = $2 RETURNING id, email, name, created_at, updated_at",
		query)
	require.Len(t, args, 2)
	assert.Equal(t, "a@x.com", args[0])
	assert.Equal(t, int64(5), args[1])
}

func TestBuildUserUpdate_NameOnly(t *testing.T) {
	query, args := buildUserUpdate(5, domain.UserUpdateData{Name: strptr("B")})

	assert.Equal(t,
		"UPDATE users SET name = $1, updated_at = NOW() WHERE id = $2 RETURNING id, email, name, created_at, updated_at",
		query)
	require.Len(t, args, 2)
	assert.Equal(t, "B", args[0])
}

func TestBuildUserUpdate_BothFields(t *testing.T) {
	query, args := buildUserUpdate(5, domain.UserUpdateData{
		Email: strptr("a@x.com"),
		Name:  strptr("B"),
	})

	assert.Equal(t,
		"UPDATE users SET email = $1, name = $2, updated_at = NOW() WHERE id = $3 RETURNING id, email, name, created_at, updated_at",
		query)
	assert.Equal(t, []any{"a@x.com", "B", int64(5)}, args)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}
