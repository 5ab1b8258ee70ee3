// Command demo walks the student registry through every data-layer
// operation: schema creation, seeded reads, filtered and eager-loaded
// queries, aggregates, grouping, staged mutations and cascading deletes.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eralpk/studentreg/internal/app/models"
	"github.com/eralpk/studentreg/internal/bootstrap"
	"github.com/eralpk/studentreg/internal/db"
	"github.com/eralpk/studentreg/internal/registry"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("Demo failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return err
	}

	dbPool, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	session := registry.NewSession(dbPool)
	defer session.Close()

	if err := listStudents(ctx, session); err != nil {
		return err
	}
	if err := showEnrollments(ctx, session); err != nil {
		return err
	}
	if err := showAggregates(ctx, session); err != nil {
		return err
	}
	if err := filterStudents(ctx, session); err != nil {
		return err
	}

	newStudentID, err := createAndEnroll(ctx, session)
	if err != nil {
		return err
	}
	if err := gradeUngraded(ctx, session); err != nil {
		return err
	}
	if err := retargetCredits(ctx, session); err != nil {
		return err
	}
	if err := deleteWithCascade(ctx, dbPool, newStudentID); err != nil {
		return err
	}

	return nil
}

func header(title string) {
	fmt.Printf("\n=== %s ===\n", title)
}

func listStudents(ctx context.Context, session *registry.Session) error {
	header("Students ordered by last name")

	students, err := session.Students(ctx, registry.StudentOrderByLastName())
	if err != nil {
		return err
	}
	for _, student := range students {
		fmt.Printf("  #%d %-14s %-26s age %d\n", student.ID, student.FullName(), student.Email, student.Age())
	}
	return nil
}

func showEnrollments(ctx context.Context, session *registry.Session) error {
	header("Enrollments per student (eager-loaded)")

	students, err := session.Students(ctx,
		registry.StudentOrderByLastName(),
		registry.StudentWithEnrollmentCourses(),
	)
	if err != nil {
		return err
	}
	for _, student := range students {
		fmt.Printf("  %s:\n", student.FullName())
		for _, enrollment := range student.Enrollments {
			grade := "not graded"
			if enrollment.Grade != nil {
				grade = *enrollment.Grade
			}
			// Course is navigable here without another read
			fmt.Printf("    %-8s %-30s %s\n", enrollment.Course.Code, enrollment.Course.Title, grade)
		}
	}
	return nil
}

func showAggregates(ctx context.Context, session *registry.Session) error {
	header("Aggregates")

	ungraded, err := session.CountEnrollments(ctx, registry.EnrollmentUngraded())
	if err != nil {
		return err
	}
	average, err := session.AverageCourseCredits(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  ungraded enrollments: %d\n", ungraded)
	fmt.Printf("  average course credits: %.1f\n", average)
	return nil
}

func filterStudents(ctx context.Context, session *registry.Session) error {
	header("Students with 'J' in their first name")

	students, err := session.Students(ctx,
		registry.StudentFirstNameContains("J"),
		registry.StudentOrderByFirstName(),
	)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(students))
	for _, student := range students {
		names = append(names, student.FullName())
	}
	fmt.Printf("  %s\n", strings.Join(names, ", "))

	header("Students enrolled in CS101")

	enrolled, err := session.Students(ctx, registry.StudentEnrolledIn("CS101"))
	if err != nil {
		return err
	}
	for _, student := range enrolled {
		fmt.Printf("  %s\n", student.FullName())
	}
	return nil
}

func createAndEnroll(ctx context.Context, session *registry.Session) (int64, error) {
	header("Create a student and enroll them")

	student := &models.Student{
		FirstName:   "Alice",
		LastName:    "Brown",
		Email:       "alice.brown@school.edu",
		DateOfBirth: time.Date(2002, time.March, 8, 0, 0, 0, 0, time.UTC),
	}
	session.AddStudent(student)
	if _, err := session.Persist(ctx); err != nil {
		return 0, err
	}
	fmt.Printf("  created %s with id %d\n", student.FullName(), student.ID)

	courses, err := session.Courses(ctx, registry.CourseCodeEquals("ENG102"))
	if err != nil {
		return 0, err
	}
	if len(courses) == 0 {
		return 0, fmt.Errorf("seed course ENG102 missing")
	}

	session.AddEnrollment(&models.Enrollment{
		StudentID: student.ID,
		CourseID:  courses[0].ID,
	})
	if _, err := session.Persist(ctx); err != nil {
		return 0, err
	}
	fmt.Printf("  enrolled %s in %s\n", student.FullName(), courses[0].Title)

	return student.ID, nil
}

func gradeUngraded(ctx context.Context, session *registry.Session) error {
	header("Grade the ungraded enrollments")

	enrollments, err := session.Enrollments(ctx, registry.EnrollmentUngraded(), registry.EnrollmentWithCourse())
	if err != nil {
		return err
	}
	for _, enrollment := range enrollments {
		grade := "B"
		enrollment.Grade = &grade
		fmt.Printf("  enrollment #%d (%s) -> %s\n", enrollment.ID, enrollment.Course.Code, grade)
	}

	affected, err := session.Persist(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  %d rows updated\n", affected)
	return nil
}

func retargetCredits(ctx context.Context, session *registry.Session) error {
	header("Move all 3-credit courses to 4 credits")

	courses, err := session.Courses(ctx, registry.CourseCreditsEquals(3))
	if err != nil {
		return err
	}
	for _, course := range courses {
		course.Credits = 4
	}
	if _, err := session.Persist(ctx); err != nil {
		return err
	}

	groups, err := session.GroupCoursesByCredits(ctx)
	if err != nil {
		return err
	}
	for _, group := range groups {
		fmt.Printf("  %d credits: %d course(s)\n", group.Credits, group.Count)
	}
	return nil
}

func deleteWithCascade(ctx context.Context, dbPool db.DB, studentID int64) error {
	header("Delete the new student (cascades to enrollments)")

	// Fresh session: deletion should not depend on earlier tracked state
	session := registry.NewSession(dbPool)
	defer session.Close()

	student, err := session.StudentByID(ctx, studentID)
	if err != nil {
		return err
	}
	session.RemoveStudent(student)

	affected, err := session.Persist(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  %d rows deleted (student and enrollments)\n", affected)

	orphans, err := session.CountEnrollments(ctx, registry.EnrollmentForStudent(studentID))
	if err != nil {
		return err
	}
	fmt.Printf("  orphan enrollments remaining: %d\n", orphans)
	return nil
}
