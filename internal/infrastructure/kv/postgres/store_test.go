package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &Store{db: db, now: time.Now}, mock, func() { _ = db.Close() }
}

func TestGetMissingKeyReturnsNilNil(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT value, expires_at").
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows([]string{"value", "expires_at"}))

	value, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != nil {
		t.Fatalf("expected nil value for missing key, got %q", value)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetLiveEntryReturnsValue(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT value, expires_at").
		WithArgs("place:p1").
		WillReturnRows(sqlmock.NewRows([]string{"value", "expires_at"}).
			AddRow([]byte(`{"id":"p1"}`), time.Now().Add(time.Hour)))

	value, err := store.Get(context.Background(), "place:p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(value) != `{"id":"p1"}` {
		t.Fatalf("unexpected value %q", value)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetExpiredEntryIsDeletedAndMisses(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT value, expires_at").
		WithArgs("place:stale").
		WillReturnRows(sqlmock.NewRows([]string{"value", "expires_at"}).
			AddRow([]byte("stale"), time.Now().Add(-time.Minute)))
	mock.ExpectExec("DELETE FROM kv_entries").
		WithArgs("place:stale").
		WillReturnResult(sqlmock.NewResult(0, 1))

	value, err := store.Get(context.Background(), "place:stale")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != nil {
		t.Fatalf("expected miss for expired entry, got %q", value)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetUpsertsWithExpiry(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("fingerprint_index", []byte("{}"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Set(context.Background(), "fingerprint_index", []byte("{}"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
