package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/loandrop/internal/storage"
)

func TestMapWriteErr(t *testing.T) {
	dup := fmt.Errorf("exec: %w", &pgconn.PgError{Code: uniqueViolation})
	require.ErrorIs(t, mapWriteErr(dup), storage.ErrConflict)

	other := &pgconn.PgError{Code: "23503"}
	require.Same(t, other, mapWriteErr(other))

	plain := errors.New("conn reset")
	require.Equal(t, plain, mapWriteErr(plain))
}
