package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/terralytics/carbon-cli/internal/stats"
)

var errTest = errors.New("test error")

func TestPostgresCreateRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "gruenheide", 2018, 2023, "hansis", 0.75,
			"running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresFromPool(mock)
	if err := s.CreateRun(context.Background(), testRun()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCompleteRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostgresFromPool(mock)
	if err := s.CompleteRun(context.Background(), "run-1", &stats.Summary{NetEmissionsT: 36.5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "aoi_name", "start_year", "end_year", "source", "threshold",
		"status", "error", "summary", "created_at", "updated_at",
	}).AddRow("run-1", "gruenheide", 2018, 2023, "hansis", 0.75,
		"complete", "", []byte(`{"net_emissions_t":36.5}`), now, now)

	mock.ExpectQuery("SELECT").
		WithArgs("run-1").
		WillReturnRows(rows)

	s := NewPostgresFromPool(mock)
	run, err := s.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Summary == nil || run.Summary.NetEmissionsT != 36.5 {
		t.Errorf("summary = %+v", run.Summary)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresListRunsError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errTest)

	s := NewPostgresFromPool(mock)
	if _, err := s.ListRuns(context.Background(), RunFilter{}); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
