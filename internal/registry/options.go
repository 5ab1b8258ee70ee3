package registry

import (
	"fmt"
	"strings"
)

// Query options compose into store reads: filter predicates, ascending order
// keys and relation-inclusion directives. Field references are fixed at
// compile time; there is no string-keyed field lookup to get wrong at runtime.

type studentQuery struct {
	conds           []string
	args            []any
	order           []string
	withEnrollments bool
	withCourses     bool
}

// StudentOption customizes a student query.
type StudentOption func(*studentQuery)

// likeEscaper neutralizes LIKE metacharacters so substring filters match them
// literally. Backslash is the default LIKE escape character in Postgres.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (q *studentQuery) placeholder(arg any) string {
	q.args = append(q.args, arg)
	return fmt.Sprintf("$%d", len(q.args))
}

// StudentFirstNameContains filters on a first-name substring.
func StudentFirstNameContains(value string) StudentOption {
	return func(q *studentQuery) {
		q.conds = append(q.conds, fmt.Sprintf("first_name LIKE '%%' || %s || '%%'", q.placeholder(likeEscaper.Replace(value))))
	}
}

// StudentLastNameContains filters on a last-name substring.
func StudentLastNameContains(value string) StudentOption {
	return func(q *studentQuery) {
		q.conds = append(q.conds, fmt.Sprintf("last_name LIKE '%%' || %s || '%%'", q.placeholder(likeEscaper.Replace(value))))
	}
}

// StudentEmailEquals filters on an exact email address.
func StudentEmailEquals(value string) StudentOption {
	return func(q *studentQuery) {
		q.conds = append(q.conds, fmt.Sprintf("email = %s", q.placeholder(value)))
	}
}

// StudentEnrolledIn keeps students having at least one enrollment in the
// course with the given code.
func StudentEnrolledIn(courseCode string) StudentOption {
	return func(q *studentQuery) {
		q.conds = append(q.conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE e.student_id = students.id AND c.code = %s)",
			q.placeholder(courseCode)))
	}
}

// StudentOrderByLastName orders ascending by last name, then first name.
func StudentOrderByLastName() StudentOption {
	return func(q *studentQuery) {
		q.order = append(q.order, "last_name", "first_name")
	}
}

// StudentOrderByFirstName orders ascending by first name.
func StudentOrderByFirstName() StudentOption {
	return func(q *studentQuery) {
		q.order = append(q.order, "first_name")
	}
}

// StudentWithEnrollments eager-loads each student's enrollments in the same
// logical read.
func StudentWithEnrollments() StudentOption {
	return func(q *studentQuery) {
		q.withEnrollments = true
	}
}

// StudentWithEnrollmentCourses eager-loads enrollments together with each
// enrollment's course, so enrollment.Course is navigable without further
// reads.
func StudentWithEnrollmentCourses() StudentOption {
	return func(q *studentQuery) {
		q.withEnrollments = true
		q.withCourses = true
	}
}

type courseQuery struct {
	conds []string
	args  []any
	order []string
}

// CourseOption customizes a course query.
type CourseOption func(*courseQuery)

func (q *courseQuery) placeholder(arg any) string {
	q.args = append(q.args, arg)
	return fmt.Sprintf("$%d", len(q.args))
}

// CourseCodeEquals filters on an exact course code.
func CourseCodeEquals(code string) CourseOption {
	return func(q *courseQuery) {
		q.conds = append(q.conds, fmt.Sprintf("code = %s", q.placeholder(code)))
	}
}

// CourseTitleContains filters on a title substring.
func CourseTitleContains(value string) CourseOption {
	return func(q *courseQuery) {
		q.conds = append(q.conds, fmt.Sprintf("title LIKE '%%' || %s || '%%'", q.placeholder(likeEscaper.Replace(value))))
	}
}

// CourseCreditsEquals filters on an exact credit count.
func CourseCreditsEquals(credits int) CourseOption {
	return func(q *courseQuery) {
		q.conds = append(q.conds, fmt.Sprintf("credits = %s", q.placeholder(credits)))
	}
}

// CourseOrderByCode orders ascending by course code.
func CourseOrderByCode() CourseOption {
	return func(q *courseQuery) {
		q.order = append(q.order, "code")
	}
}

// CourseOrderByTitle orders ascending by title.
func CourseOrderByTitle() CourseOption {
	return func(q *courseQuery) {
		q.order = append(q.order, "title")
	}
}

type enrollmentQuery struct {
	conds       []string
	args        []any
	order       []string
	withStudent bool
	withCourse  bool
}

// EnrollmentOption customizes an enrollment query.
type EnrollmentOption func(*enrollmentQuery)

func (q *enrollmentQuery) placeholder(arg any) string {
	q.args = append(q.args, arg)
	return fmt.Sprintf("$%d", len(q.args))
}

// EnrollmentForStudent filters on the owning student.
func EnrollmentForStudent(studentID int64) EnrollmentOption {
	return func(q *enrollmentQuery) {
		q.conds = append(q.conds, fmt.Sprintf("enrollments.student_id = %s", q.placeholder(studentID)))
	}
}

// EnrollmentForCourse filters on the owning course.
func EnrollmentForCourse(courseID int64) EnrollmentOption {
	return func(q *enrollmentQuery) {
		q.conds = append(q.conds, fmt.Sprintf("enrollments.course_id = %s", q.placeholder(courseID)))
	}
}

// EnrollmentUngraded keeps enrollments without a recorded grade.
func EnrollmentUngraded() EnrollmentOption {
	return func(q *enrollmentQuery) {
		q.conds = append(q.conds, "enrollments.grade IS NULL")
	}
}

// EnrollmentOrderByDate orders ascending by enrollment date.
func EnrollmentOrderByDate() EnrollmentOption {
	return func(q *enrollmentQuery) {
		q.order = append(q.order, "enrollments.enrolled_at")
	}
}

// EnrollmentWithStudent eager-loads each enrollment's student.
func EnrollmentWithStudent() EnrollmentOption {
	return func(q *enrollmentQuery) {
		q.withStudent = true
	}
}

// EnrollmentWithCourse eager-loads each enrollment's course.
func EnrollmentWithCourse() EnrollmentOption {
	return func(q *enrollmentQuery) {
		q.withCourse = true
	}
}
