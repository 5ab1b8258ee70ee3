package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eralpk/studentreg/internal/db"
	"github.com/eralpk/studentreg/internal/pkg/apperrors"
	"github.com/eralpk/studentreg/internal/pkg/dberrors"
)

// UniqueEnrollmentConstraint is the composite index guaranteeing a student is
// enrolled in any course at most once.
const UniqueEnrollmentConstraint = "enrollments_student_course_key"

// createTablesSQL declares the whole relational schema. Constraints mirror
// the validation rules in internal/app/models.
const createTablesSQL = `
CREATE TABLE students (
	id BIGSERIAL PRIMARY KEY,
	first_name VARCHAR(100) NOT NULL,
	last_name VARCHAR(100) NOT NULL,
	email VARCHAR(200) NOT NULL,
	date_of_birth DATE NOT NULL
);

CREATE TABLE courses (
	id BIGSERIAL PRIMARY KEY,
	code VARCHAR(10) NOT NULL,
	title VARCHAR(200) NOT NULL,
	description VARCHAR(1000),
	credits INTEGER NOT NULL CONSTRAINT courses_credits_range CHECK (credits BETWEEN 1 AND 6)
);

CREATE TABLE enrollments (
	id BIGSERIAL PRIMARY KEY,
	student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	grade VARCHAR(2),
	enrolled_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT enrollments_student_course_key UNIQUE (student_id, course_id)
);
`

// Result reports what Ensure did.
type Result struct {
	// Created is true when the schema was created (and seeded) by this call,
	// false when it already existed.
	Created bool
}

// schemaLockID keys the advisory lock serializing schema creation across
// processes that start against the same empty store.
const schemaLockID = int64(740915283)

// Ensure creates the schema and seed data if the store does not have them
// yet. Running it against an initialized store is a no-op: tables are left
// untouched and seed rows are not duplicated. Concurrent first runs are
// serialized on an advisory lock; the losers see the schema and back off.
func Ensure(ctx context.Context, database db.DB) (Result, error) {
	exists, err := schemaExists(ctx, database)
	if err != nil {
		return Result{}, fmt.Errorf("failed to check schema existence: %w", err)
	}
	if exists {
		return Result{Created: false}, nil
	}

	created := false
	err = db.WithTransaction(ctx, database, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
			return fmt.Errorf("failed to acquire schema lock: %w", err)
		}

		// Re-check under the lock: another process may have won the race
		// between the fast-path check and here.
		exists, err := schemaExists(ctx, tx)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		if _, err := tx.Exec(ctx, createTablesSQL); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
		if err := applySeed(ctx, tx); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if dberrors.IsConnectivityError(err) {
			return Result{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}
		return Result{}, err
	}

	return Result{Created: created}, nil
}

// rowQuerier is satisfied by both the pool and an open transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// schemaExists checks for the students table; the three tables are only ever
// created together.
func schemaExists(ctx context.Context, q rowQuerier) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT to_regclass('public.students') IS NOT NULL`).Scan(&exists)
	if err != nil {
		if dberrors.IsConnectivityError(err) {
			return false, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}
		return false, err
	}
	return exists, nil
}
