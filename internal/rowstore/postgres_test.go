package rowstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresStore(db), mock, db
}

func TestPostgresStore_ReadAll(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT id, fields FROM row_store WHERE table_name = \$1 ORDER BY id$`).
		WithArgs("videos").
		WillReturnRows(sqlmock.NewRows([]string{"id", "fields"}).
			AddRow(int64(4), []byte(`{"ID":"a","posted":"S"}`)).
			AddRow(int64(9), []byte(`{"ID":"b"}`)))

	rows, err := s.ReadAll(context.Background(), "videos")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(4), rows[0].Ref)
	assert.Equal(t, "S", rows[0].Get("posted"))
	assert.Equal(t, "b", rows[1].Get("ID"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateFields(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE row_store\s+SET fields = fields \|\| \$3::jsonb`).
		WithArgs("videos", int64(4), `{"posted":"Y"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateFields(context.Background(), "videos", 4, map[string]string{"posted": "Y"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateFieldsMissingRow(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE row_store`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateFields(context.Background(), "videos", 4, map[string]string{"posted": "Y"})
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestPostgresStore_Append(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT INTO row_store \(table_name, fields\).*RETURNING id`).
		WithArgs("videos", `{"ID":"a"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	ref, err := s.Append(context.Background(), "videos", map[string]string{"ID": "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), ref)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompareAndSwap(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	q := `(?s)UPDATE row_store\s+SET fields = jsonb_set.*COALESCE\(fields->>\$3, ''\) = \$4`
	mock.ExpectExec(q).
		WithArgs("videos", int64(4), "claim", "", "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs("videos", int64(4), "claim", "", "w2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.CompareAndSwap(context.Background(), "videos", 4, "claim", "", "w1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompareAndSwap(context.Background(), "videos", 4, "claim", "", "w2")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReadAllError(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, fields`).WillReturnError(errors.New("connection refused"))

	_, err := s.ReadAll(context.Background(), "videos")
	assert.Error(t, err)
}
