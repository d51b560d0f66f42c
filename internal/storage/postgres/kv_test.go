package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/focus-vault/internal/errs"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestKV_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewKV(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(selectValue)).
		WithArgs("focusVaultUsers").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(`{"a@b.c":{}}`))
	v, err := s.Get(ctx, "focusVaultUsers")
	require.NoError(t, err)
	require.JSONEq(t, `{"a@b.c":{}}`, string(v))

	mock.ExpectQuery(regexp.QuoteMeta(selectValue)).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)

	boom := errors.New("conn reset")
	mock.ExpectQuery(regexp.QuoteMeta(selectValue)).
		WithArgs("k").
		WillReturnError(boom)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKV_Set(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewKV(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(upsertValue)).
		WithArgs("currentFocusVaultUser", "null").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.Set(ctx, "currentFocusVaultUser", []byte("null")))

	mock.ExpectExec(regexp.QuoteMeta(upsertValue)).
		WithArgs("k", `{}`).
		WillReturnError(errors.New("read-only transaction"))
	require.Error(t, s.Set(ctx, "k", []byte(`{}`)))

	require.NoError(t, mock.ExpectationsWereMet())
}
