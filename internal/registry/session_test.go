package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/eralpk/studentreg/internal/app/models"
	"github.com/eralpk/studentreg/internal/pkg/apperrors"
	"github.com/eralpk/studentreg/internal/schema"
)

func newMockSession(t *testing.T) (*Session, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return NewSession(mock), mock
}

func checkExpectations(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet store expectations: %v", err)
	}
}

func TestSession_PersistInsertsAssignIdentity(t *testing.T) {
	session, mock := newMockSession(t)
	ctx := context.Background()

	dob := time.Date(2002, time.March, 8, 0, 0, 0, 0, time.UTC)
	student := &models.Student{FirstName: "Alice", LastName: "Brown", Email: "alice.brown@school.edu", DateOfBirth: dob}
	session.AddStudent(student)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs("Alice", "Brown", "alice.brown@school.edu", dob).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectCommit()

	affected, err := session.Persist(ctx)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if affected != 1 {
		t.Errorf("Persist() affected = %d, want 1", affected)
	}
	if student.ID != 4 {
		t.Errorf("student.ID = %d, want store-assigned 4", student.ID)
	}

	// A second persist with nothing staged and nothing dirty writes nothing.
	mock.ExpectBegin()
	mock.ExpectCommit()
	if affected, err = session.Persist(ctx); err != nil || affected != 0 {
		t.Errorf("idle Persist() = (%d, %v), want (0, nil)", affected, err)
	}

	checkExpectations(t, mock)
}

func TestSession_AddEnrollmentDefaultsDate(t *testing.T) {
	session, _ := newMockSession(t)

	e := &models.Enrollment{StudentID: 1, CourseID: 2}
	before := time.Now().UTC()
	session.AddEnrollment(e)

	if e.EnrolledAt.IsZero() {
		t.Fatal("AddEnrollment left EnrolledAt unset")
	}
	if e.EnrolledAt.Before(before.Add(-time.Second)) {
		t.Errorf("EnrolledAt = %v, want a current timestamp", e.EnrolledAt)
	}

	explicit := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	e2 := &models.Enrollment{StudentID: 1, CourseID: 3, EnrolledAt: explicit}
	session.AddEnrollment(e2)
	if !e2.EnrolledAt.Equal(explicit) {
		t.Errorf("AddEnrollment overwrote an explicit date: %v", e2.EnrolledAt)
	}
}

func TestSession_PersistValidationFailsEverything(t *testing.T) {
	session, mock := newMockSession(t)

	session.AddStudent(&models.Student{
		FirstName: "Valid", LastName: "Student", Email: "valid@school.edu",
		DateOfBirth: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	session.AddStudent(&models.Student{FirstName: "", LastName: "Nameless"})

	_, err := session.Persist(context.Background())
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("Persist() error = %v, want ErrValidationFailed", err)
	}

	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Persist() error is not a *ValidationError: %v", err)
	}
	if len(verr.Violations) == 0 {
		t.Error("ValidationError carries no violations")
	}

	// No store interaction at all: the valid student must not be written.
	checkExpectations(t, mock)
}

func TestSession_PersistDuplicateEnrollment(t *testing.T) {
	session, mock := newMockSession(t)

	session.AddEnrollment(&models.Enrollment{StudentID: 1, CourseID: 1})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO enrollments`).
		WithArgs(int64(1), int64(1), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: schema.UniqueEnrollmentConstraint})
	mock.ExpectRollback()

	_, err := session.Persist(context.Background())
	if !errors.Is(err, apperrors.ErrDuplicateEnrollment) {
		t.Fatalf("Persist() error = %v, want ErrDuplicateEnrollment", err)
	}

	checkExpectations(t, mock)
}

func TestSession_PersistMissingParent(t *testing.T) {
	session, mock := newMockSession(t)

	session.AddEnrollment(&models.Enrollment{StudentID: 99, CourseID: 1})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO enrollments`).
		WithArgs(int64(99), int64(1), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "enrollments_student_id_fkey"})
	mock.ExpectRollback()

	_, err := session.Persist(context.Background())
	if !errors.Is(err, apperrors.ErrEnrollmentParentMissing) {
		t.Fatalf("Persist() error = %v, want ErrEnrollmentParentMissing", err)
	}

	checkExpectations(t, mock)
}

func TestSession_PersistUpdatesDirtyEntities(t *testing.T) {
	session, mock := newMockSession(t)
	ctx := context.Background()

	dob := time.Date(2000, time.May, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, first_name, last_name, email, date_of_birth FROM students`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "email", "date_of_birth"}).
			AddRow(int64(1), "John", "Doe", "john.doe@school.edu", dob))

	students, err := session.Students(ctx)
	if err != nil {
		t.Fatalf("Students() error = %v", err)
	}

	students[0].Email = "john.d@school.edu"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE students SET first_name`).
		WithArgs("John", "Doe", "john.d@school.edu", dob, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	affected, err := session.Persist(ctx)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if affected != 1 {
		t.Errorf("Persist() affected = %d, want 1", affected)
	}

	// The snapshot is refreshed: persisting again is a no-op.
	mock.ExpectBegin()
	mock.ExpectCommit()
	if affected, err = session.Persist(ctx); err != nil || affected != 0 {
		t.Errorf("second Persist() = (%d, %v), want (0, nil)", affected, err)
	}

	checkExpectations(t, mock)
}

func TestSession_PersistDeletesStudentWithEnrollments(t *testing.T) {
	session, mock := newMockSession(t)

	student := &models.Student{ID: 2, FirstName: "Jane", LastName: "Smith", Email: "jane.smith@school.edu",
		DateOfBirth: time.Date(2001, time.September, 2, 0, 0, 0, 0, time.UTC)}
	session.RemoveStudent(student)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM enrollments WHERE student_id`).
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM students WHERE id`).
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	affected, err := session.Persist(context.Background())
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if affected != 3 {
		t.Errorf("Persist() affected = %d, want 3 (student plus two enrollments)", affected)
	}

	checkExpectations(t, mock)
}

func TestSession_RemoveUnpersistedUnstagesInsert(t *testing.T) {
	session, mock := newMockSession(t)

	student := &models.Student{FirstName: "Temp", LastName: "Entry", Email: "temp@school.edu",
		DateOfBirth: time.Date(2003, time.January, 1, 0, 0, 0, 0, time.UTC)}
	session.AddStudent(student)
	session.RemoveStudent(student)

	mock.ExpectBegin()
	mock.ExpectCommit()

	affected, err := session.Persist(context.Background())
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if affected != 0 {
		t.Errorf("Persist() affected = %d, want 0", affected)
	}

	checkExpectations(t, mock)
}

func TestSession_ClosedSessionRejectsUse(t *testing.T) {
	session, _ := newMockSession(t)
	session.Close()

	session.AddStudent(&models.Student{FirstName: "Late", LastName: "Arrival"})
	session.AddCourse(&models.Course{Code: "PHY101", Title: "Physics", Credits: 3})
	session.AddEnrollment(&models.Enrollment{StudentID: 1, CourseID: 1})
	if len(session.addedStudents)+len(session.addedCourses)+len(session.addedEnrollments) != 0 {
		t.Error("Add* after Close staged entities into a dead session")
	}

	if _, err := session.Persist(context.Background()); !errors.Is(err, apperrors.ErrSessionClosed) {
		t.Errorf("Persist() after Close = %v, want ErrSessionClosed", err)
	}
	if _, err := session.Students(context.Background()); !errors.Is(err, apperrors.ErrSessionClosed) {
		t.Errorf("Students() after Close = %v, want ErrSessionClosed", err)
	}
	if _, err := session.CountEnrollments(context.Background()); !errors.Is(err, apperrors.ErrSessionClosed) {
		t.Errorf("CountEnrollments() after Close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_PersistStoreUnavailable(t *testing.T) {
	session, mock := newMockSession(t)

	session.AddCourse(&models.Course{Code: "HIST10", Title: "History", Credits: 2})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO courses`).
		WithArgs("HIST10", "History", (*string)(nil), 2).
		WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})
	mock.ExpectRollback()

	_, err := session.Persist(context.Background())
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("Persist() error = %v, want ErrStoreUnavailable", err)
	}

	checkExpectations(t, mock)
}
