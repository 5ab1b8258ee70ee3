package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Seed rows are pinned to fixed identities so the demo and the tests can
// refer to them. They are inserted exactly once, when the schema is first
// created; one enrollment is intentionally left ungraded.
const seedSQL = `
INSERT INTO students (id, first_name, last_name, email, date_of_birth) VALUES
	(1, 'John', 'Doe', 'john.doe@school.edu', '2000-05-15'),
	(2, 'Jane', 'Smith', 'jane.smith@school.edu', '2001-09-02'),
	(3, 'Bob', 'Johnson', 'bob.johnson@school.edu', '1999-12-20');

INSERT INTO courses (id, code, title, description, credits) VALUES
	(1, 'CS101', 'Introduction to Programming', 'Programming fundamentals with weekly lab work.', 3),
	(2, 'MATH201', 'Calculus I', 'Limits, derivatives and integrals of single-variable functions.', 3),
	(3, 'ENG102', 'Academic Writing', NULL, 3);

INSERT INTO enrollments (id, student_id, course_id, grade, enrolled_at) VALUES
	(1, 1, 1, 'A', '2024-09-02T09:00:00Z'),
	(2, 1, 2, 'B+', '2024-09-02T09:00:00Z'),
	(3, 2, 1, 'A-', '2024-09-03T10:30:00Z'),
	(4, 2, 3, NULL, '2024-09-03T10:30:00Z'),
	(5, 3, 2, 'C', '2024-09-04T14:15:00Z');
`

// advanceSequencesSQL moves the id sequences past the pinned seed ids so
// later inserts do not collide with them.
const advanceSequencesSQL = `
SELECT setval(pg_get_serial_sequence('students', 'id'), 3);
SELECT setval(pg_get_serial_sequence('courses', 'id'), 3);
SELECT setval(pg_get_serial_sequence('enrollments', 'id'), 5);
`

// applySeed inserts the seed rows inside the schema-creation transaction.
func applySeed(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, seedSQL); err != nil {
		return fmt.Errorf("failed to insert seed data: %w", err)
	}
	if _, err := tx.Exec(ctx, advanceSequencesSQL); err != nil {
		return fmt.Errorf("failed to advance id sequences: %w", err)
	}
	return nil
}
