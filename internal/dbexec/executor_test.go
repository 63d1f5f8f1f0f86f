package dbexec

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardExecutorNilDB(t *testing.T) {
	_, err := NewStandardExecutor(nil).QueryContext(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestRunnerQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT F___0").
		WillReturnRows(sqlmock.NewRows([]string{"F___0", "F___1"}).
			AddRow([]byte("BE"), int64(42)).
			AddRow("NL", nil))

	result, err := NewRunner(NewStandardExecutor(db), time.Second).Query(context.Background(), "SELECT F___0, F___1 FROM t")
	require.NoError(t, err)
	assert.Equal(t, []string{"F___0", "F___1"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, []any{"BE", int64(42)}, result.Rows[0])
	assert.Equal(t, []any{"NL", nil}, result.Rows[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunnerQueryErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		wantMsg   string
	}{
		{
			name: "query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))
			},
			wantMsg: "failed to execute query",
		},
		{
			name: "row error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a"}).
					AddRow(1).
					RowError(0, errors.New("broken row")))
			},
			wantMsg: "failed to iterate rows",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(mock)

			_, err = NewRunner(NewStandardExecutor(db), 0).Query(context.Background(), "SELECT a FROM t")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
