package payment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("create webhook event: %w",
		&pgconn.PgError{Code: "23505", Message: "duplicate key value"})))

	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}

func TestTranslatePGError(t *testing.T) {
	translated := translatePGError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	var pgErr *pgconn.PgError
	assert.False(t, errors.As(translated, &pgErr), "driver error types must not leak past the repository")
	assert.Contains(t, translated.Error(), "23505")
	assert.Contains(t, translated.Error(), "duplicate key value")

	plain := errors.New("not a driver error")
	assert.Equal(t, plain, translatePGError(plain))
}
