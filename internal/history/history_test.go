package history

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/ggorockee/partfinder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStampsTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	store := New(db)
	store.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta(insertRecord)).
		WithArgs("42", "0445120012", "original", "any", "Москва", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Record(context.Background(), models.HistoryRecord{
		UserID:   "42",
		Query:    "0445120012",
		PartType: models.PartTypeOriginal,
		Price:    models.PriceAny,
		City:     "Москва",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertRecord)).WillReturnError(errors.New("conn closed"))

	err = New(db).Record(context.Background(), models.HistoryRecord{UserID: "1", Query: "X"})
	assert.ErrorIs(t, err, models.ErrCacheIO)
}

func TestRecentNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t1 := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectRecent)).
		WithArgs("42", RecentLimit).
		WillReturnRows(sqlmock.NewRows([]string{"query", "part_type", "price_filter", "city", "created_at"}).
			AddRow("611113112R", "used_oem", "under_5000", "Казань", t1).
			AddRow("0445120012", "bogus", "any", "Москва", t2))

	records, err := New(db).Recent(context.Background(), "42", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "611113112R", records[0].Query)
	assert.Equal(t, models.PartTypeUsedOEM, records[0].PartType)
	assert.Equal(t, models.PriceUnder5000, records[0].Price)
	assert.Equal(t, "42", records[0].UserID)
	assert.Equal(t, models.PartTypeAny, records[1].PartType)
	assert.True(t, records[0].CreatedAt.After(records[1].CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectRecent)).
		WithArgs("7", 5).
		WillReturnRows(sqlmock.NewRows([]string{"query", "part_type", "price_filter", "city", "created_at"}))

	records, err := New(db).Recent(context.Background(), "7", 5)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
