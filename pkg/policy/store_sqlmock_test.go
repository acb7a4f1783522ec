package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const searchQueryPattern = `SELECT .+ FROM "policies" WHERE LOWER\(policy_number\) LIKE \$1 ESCAPE '!' OR LOWER\(customer_name\) LIKE \$2 ESCAPE '!'$`

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestStoreSearch_BindsEscapedPattern(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "policy_number", "customer_name", "premium", "issue_date"}).
		AddRow(int64(1), "POL-100", "Alice Smith", 1200.0, time.Date(2010, 1, 15, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery(searchQueryPattern).
		WithArgs("%pol-1%", "%pol-1%").
		WillReturnRows(rows)

	got, err := NewStore(db).Search(context.Background(), "POL-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Alice Smith", got[0].CustomerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSearch_InjectionStaysInParameters(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(searchQueryPattern).
		WithArgs("%!%' or 1=1 --%", "%!%' or 1=1 --%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "policy_number", "customer_name", "premium", "issue_date"}))

	got, err := NewStore(db).Search(context.Background(), "%' OR 1=1 --")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSearch_DisconnectSurfacesDataAccessError(t *testing.T) {
	db, mock := setupMockDB(t)

	cause := errors.New("read tcp 10.0.0.4:5432: connection reset by peer")
	mock.ExpectQuery(searchQueryPattern).
		WithArgs("%smith%", "%smith%").
		WillReturnError(cause)

	got, err := NewStore(db).Search(context.Background(), "smith")
	require.Error(t, err)
	assert.Nil(t, got, "no partial result on failure")

	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSearch_ScanFailureSurfacesDataAccessError(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "policy_number", "customer_name", "premium", "issue_date"}).
		AddRow(int64(1), "POL-100", "Alice Smith", 1200.0, time.Date(2010, 1, 15, 0, 0, 0, 0, time.UTC)).
		AddRow(int64(2), "POL-200", "Bob Jones", 1500.0, time.Date(2010, 3, 20, 0, 0, 0, 0, time.UTC)).
		RowError(1, errors.New("server closed the connection unexpectedly"))
	mock.ExpectQuery(searchQueryPattern).WillReturnRows(rows)

	got, err := NewStore(db).Search(context.Background(), "pol")
	require.Error(t, err)
	assert.Nil(t, got)
	var dae *DataAccessError
	assert.ErrorAs(t, err, &dae)
}
