package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/eralpk/studentreg/internal/pkg/apperrors"
)

func studentRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "first_name", "last_name", "email", "date_of_birth"})
}

func TestSession_StudentsWithFilterAndOrder(t *testing.T) {
	session, mock := newMockSession(t)

	dob := time.Date(2000, time.May, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, first_name, last_name, email, date_of_birth FROM students WHERE first_name LIKE .* ORDER BY last_name, first_name`).
		WithArgs("J").
		WillReturnRows(studentRows().
			AddRow(int64(1), "John", "Doe", "john.doe@school.edu", dob).
			AddRow(int64(2), "Jane", "Smith", "jane.smith@school.edu", dob))

	students, err := session.Students(context.Background(),
		StudentFirstNameContains("J"),
		StudentOrderByLastName())
	if err != nil {
		t.Fatalf("Students() error = %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("Students() returned %d rows, want 2", len(students))
	}
	if students[0].FullName() != "John Doe" || students[1].FullName() != "Jane Smith" {
		t.Errorf("Students() = [%s, %s], want store order preserved", students[0].FullName(), students[1].FullName())
	}

	checkExpectations(t, mock)
}

func TestSession_RepeatedLoadsShareIdentity(t *testing.T) {
	session, mock := newMockSession(t)
	ctx := context.Background()

	dob := time.Date(2000, time.May, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM students`).
		WillReturnRows(studentRows().AddRow(int64(1), "John", "Doe", "john.doe@school.edu", dob))
	mock.ExpectQuery(`FROM students WHERE id`).
		WithArgs(int64(1)).
		WillReturnRows(studentRows().AddRow(int64(1), "John", "Doe", "john.doe@school.edu", dob))

	students, err := session.Students(ctx)
	if err != nil {
		t.Fatalf("Students() error = %v", err)
	}
	byID, err := session.StudentByID(ctx, 1)
	if err != nil {
		t.Fatalf("StudentByID() error = %v", err)
	}

	if students[0] != byID {
		t.Error("loading the same row twice yielded distinct instances")
	}

	checkExpectations(t, mock)
}

func TestSession_StudentByIDNotFound(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery(`FROM students WHERE id`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := session.StudentByID(context.Background(), 42)
	if !errors.Is(err, apperrors.ErrStudentNotFound) {
		t.Fatalf("StudentByID() error = %v, want ErrStudentNotFound", err)
	}

	checkExpectations(t, mock)
}

func TestSession_StudentsEagerLoadsEnrollmentCourses(t *testing.T) {
	session, mock := newMockSession(t)

	dob := time.Date(2000, time.May, 15, 0, 0, 0, 0, time.UTC)
	enrolled := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	grade := "A"

	mock.ExpectQuery(`FROM students`).
		WillReturnRows(studentRows().AddRow(int64(1), "John", "Doe", "john.doe@school.edu", dob))
	mock.ExpectQuery(`FROM enrollments e JOIN courses c ON c.id = e.course_id`).
		WithArgs([]int64{1}).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "student_id", "course_id", "grade", "enrolled_at",
			"id", "code", "title", "description", "credits",
		}).
			AddRow(int64(1), int64(1), int64(1), &grade, enrolled,
				int64(1), "CS101", "Introduction to Computer Science", (*string)(nil), 3).
			AddRow(int64(2), int64(1), int64(2), (*string)(nil), enrolled,
				int64(2), "MATH201", "Calculus II", (*string)(nil), 3))

	students, err := session.Students(context.Background(), StudentWithEnrollmentCourses())
	if err != nil {
		t.Fatalf("Students() error = %v", err)
	}
	if len(students) != 1 {
		t.Fatalf("Students() returned %d rows, want 1", len(students))
	}

	// Navigation is fully materialized; no further store reads happen.
	s := students[0]
	if len(s.Enrollments) != 2 {
		t.Fatalf("student has %d enrollments, want 2", len(s.Enrollments))
	}
	if s.Enrollments[0].Course == nil || s.Enrollments[0].Course.Code != "CS101" {
		t.Errorf("first enrollment course = %+v, want CS101", s.Enrollments[0].Course)
	}
	if s.Enrollments[0].Student != s {
		t.Error("enrollment does not point back at its owning student")
	}
	if !s.Enrollments[0].Graded() || s.Enrollments[1].Graded() {
		t.Error("grades not materialized as stored")
	}

	checkExpectations(t, mock)
}

func TestSession_CountEnrollmentsUngraded(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments WHERE enrollments.grade IS NULL`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	count, err := session.CountEnrollments(context.Background(), EnrollmentUngraded())
	if err != nil {
		t.Fatalf("CountEnrollments() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountEnrollments() = %d, want 1", count)
	}

	checkExpectations(t, mock)
}

func TestSession_AverageCourseCredits(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery(`SELECT COALESCE\(AVG\(credits\), 0\)::float8 FROM courses`).
		WillReturnRows(pgxmock.NewRows([]string{"avg"}).AddRow(3.0))

	average, err := session.AverageCourseCredits(context.Background())
	if err != nil {
		t.Fatalf("AverageCourseCredits() error = %v", err)
	}
	if average != 3.0 {
		t.Errorf("AverageCourseCredits() = %v, want 3.0", average)
	}

	checkExpectations(t, mock)
}

func TestSession_GroupCoursesByCredits(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery(`SELECT credits, COUNT\(\*\) FROM courses GROUP BY credits ORDER BY credits`).
		WillReturnRows(pgxmock.NewRows([]string{"credits", "count"}).
			AddRow(3, int64(2)).
			AddRow(4, int64(1)))

	groups, err := session.GroupCoursesByCredits(context.Background())
	if err != nil {
		t.Fatalf("GroupCoursesByCredits() error = %v", err)
	}

	want := []CreditGroup{{Credits: 3, Count: 2}, {Credits: 4, Count: 1}}
	if len(groups) != len(want) {
		t.Fatalf("GroupCoursesByCredits() returned %d groups, want %d", len(groups), len(want))
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Errorf("group[%d] = %+v, want %+v", i, groups[i], want[i])
		}
	}

	checkExpectations(t, mock)
}

func TestSession_EnrollmentsWithJoins(t *testing.T) {
	session, mock := newMockSession(t)

	dob := time.Date(2000, time.May, 15, 0, 0, 0, 0, time.UTC)
	enrolled := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM enrollments JOIN students s ON s.id = enrollments.student_id JOIN courses c ON c.id = enrollments.course_id WHERE enrollments.student_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "student_id", "course_id", "grade", "enrolled_at",
			"id", "first_name", "last_name", "email", "date_of_birth",
			"id", "code", "title", "description", "credits",
		}).AddRow(
			int64(1), int64(1), int64(1), (*string)(nil), enrolled,
			int64(1), "John", "Doe", "john.doe@school.edu", dob,
			int64(1), "CS101", "Introduction to Computer Science", (*string)(nil), 3,
		))

	enrollments, err := session.Enrollments(context.Background(),
		EnrollmentForStudent(1),
		EnrollmentWithStudent(),
		EnrollmentWithCourse())
	if err != nil {
		t.Fatalf("Enrollments() error = %v", err)
	}
	if len(enrollments) != 1 {
		t.Fatalf("Enrollments() returned %d rows, want 1", len(enrollments))
	}
	e := enrollments[0]
	if e.Student == nil || e.Student.FullName() != "John Doe" {
		t.Errorf("enrollment student = %+v, want John Doe", e.Student)
	}
	if e.Course == nil || e.Course.Code != "CS101" {
		t.Errorf("enrollment course = %+v, want CS101", e.Course)
	}

	checkExpectations(t, mock)
}

func TestBuildSelect(t *testing.T) {
	base := "SELECT id FROM students"

	if got := buildSelect(base, nil, nil); got != base {
		t.Errorf("buildSelect() without clauses = %q", got)
	}

	got := buildSelect(base, []string{"a = $1", "b = $2"}, []string{"c", "d"})
	want := "SELECT id FROM students WHERE a = $1 AND b = $2 ORDER BY c, d"
	if got != want {
		t.Errorf("buildSelect() = %q, want %q", got, want)
	}
}

func TestContainsOptions_EscapeLikeMetacharacters(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"100%", `100\%`},
		{"first_name", `first\_name`},
		{`back\slash`, `back\\slash`},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		q := &studentQuery{}
		StudentFirstNameContains(tt.value)(q)
		if q.args[0] != tt.want {
			t.Errorf("StudentFirstNameContains(%q) arg = %q, want %q", tt.value, q.args[0], tt.want)
		}
	}

	cq := &courseQuery{}
	CourseTitleContains("50%_off")(cq)
	if cq.args[0] != `50\%\_off` {
		t.Errorf("CourseTitleContains arg = %q, want %q", cq.args[0], `50\%\_off`)
	}
}

func TestStudentOptions_PlaceholderNumbering(t *testing.T) {
	q := &studentQuery{}
	StudentFirstNameContains("J")(q)
	StudentEnrolledIn("CS101")(q)

	if len(q.args) != 2 || q.args[0] != "J" || q.args[1] != "CS101" {
		t.Fatalf("args = %v, want [J CS101]", q.args)
	}
	if q.conds[0] != "first_name LIKE '%' || $1 || '%'" {
		t.Errorf("first cond = %q", q.conds[0])
	}
	if q.conds[1] != "EXISTS (SELECT 1 FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE e.student_id = students.id AND c.code = $2)" {
		t.Errorf("second cond = %q", q.conds[1])
	}
}
