package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*RecordRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RecordRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, business_id, location_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDMapsNullCoordinate(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, business_id, location_id").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "business_id", "location_id", "business_name", "business_type", "lat", "lon", "description", "created_at",
		}).AddRow("r1", "ChIJabc", "", "Harbor Grill", "restaurant", nil, nil, "leaky faucet", time.Now()))

	record, err := repo.GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if record.Coordinate != nil {
		t.Fatalf("expected nil coordinate for null lat/lon")
	}
	if record.BusinessType != domain.TypeRestaurant {
		t.Fatalf("unexpected business type %s", record.BusinessType)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveMatchReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE maintenance_records").
		WithArgs("missing", "loc1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveMatch(context.Background(), "missing", "loc1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListAllMapsCoordinates(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, business_id, location_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "business_id", "location_id", "business_name", "business_type", "lat", "lon", "description", "created_at",
		}).
			AddRow("r1", "ChIJabc", "", "Harbor Grill", "restaurant", 10.0, 20.0, "", time.Now()).
			AddRow("r2", "", "loc2", "Corner Pharmacy", "pharmacy", nil, nil, "", time.Now()))

	records, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Coordinate == nil || records[0].Coordinate.Lat != 10.0 {
		t.Fatalf("first record coordinate not mapped: %+v", records[0].Coordinate)
	}
	if records[1].Coordinate != nil {
		t.Fatalf("second record should have nil coordinate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
