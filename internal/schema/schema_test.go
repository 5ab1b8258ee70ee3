package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/eralpk/studentreg/internal/pkg/apperrors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func expectExistenceCheck(mock pgxmock.PgxPoolIface, exists bool) {
	mock.ExpectQuery(`SELECT to_regclass\('public.students'\) IS NOT NULL`).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectSchemaLock(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(schemaLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
}

func TestEnsure_CreatesAndSeedsOnFirstRun(t *testing.T) {
	mock := newMock(t)

	expectExistenceCheck(mock, false)
	mock.ExpectBegin()
	expectSchemaLock(mock)
	expectExistenceCheck(mock, false)
	mock.ExpectExec(`CREATE TABLE students`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`INSERT INTO students`).
		WillReturnResult(pgxmock.NewResult("INSERT", 11))
	mock.ExpectExec(`SELECT setval`).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()

	result, err := Ensure(context.Background(), mock)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if !result.Created {
		t.Error("Ensure() on empty store reported Created = false")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet store expectations: %v", err)
	}
}

func TestEnsure_ExistingSchemaIsNoOp(t *testing.T) {
	mock := newMock(t)

	expectExistenceCheck(mock, true)

	result, err := Ensure(context.Background(), mock)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if result.Created {
		t.Error("Ensure() on initialized store reported Created = true")
	}

	// No transaction, no DDL, no duplicated seed rows.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet store expectations: %v", err)
	}
}

func TestEnsure_LostCreationRaceIsNoOp(t *testing.T) {
	mock := newMock(t)

	// Fast path sees no schema, but another process creates it before the
	// advisory lock is granted; the re-check backs off without DDL.
	expectExistenceCheck(mock, false)
	mock.ExpectBegin()
	expectSchemaLock(mock)
	expectExistenceCheck(mock, true)
	mock.ExpectCommit()

	result, err := Ensure(context.Background(), mock)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if result.Created {
		t.Error("Ensure() after losing the creation race reported Created = true")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet store expectations: %v", err)
	}
}

func TestEnsure_ConnectivityFailure(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT to_regclass`).
		WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})

	_, err := Ensure(context.Background(), mock)
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("Ensure() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestEnsure_CreateFailureRollsBack(t *testing.T) {
	mock := newMock(t)

	expectExistenceCheck(mock, false)
	mock.ExpectBegin()
	expectSchemaLock(mock)
	expectExistenceCheck(mock, false)
	mock.ExpectExec(`CREATE TABLE students`).
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied"})
	mock.ExpectRollback()

	_, err := Ensure(context.Background(), mock)
	if err == nil {
		t.Fatal("Ensure() succeeded despite a failed CREATE")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet store expectations: %v", err)
	}
}
