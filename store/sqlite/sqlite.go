/*
Package sqlite provides the SQLite-backed implementation of the
enrollment engine's storage interfaces.

PURPOSE:
  Implements every persistence interface in package enroll using SQLite.
  The same patterns apply to any backend offering single-row conditional
  writes - the engine never needs a multi-row transaction.

CONDITIONAL WRITES:
  Every conditional primitive is a single SQL statement whose predicate
  runs server-side, with RowsAffected deciding the outcome:

    ReserveSeat: UPDATE courses SET current_enrolled = current_enrolled + 1
                 WHERE course_id = ? AND current_enrolled < max_seats
    ReleaseSeat: UPDATE ... - 1 WHERE course_id = ? AND current_enrolled > 0
    Delete:      DELETE ... WHERE student_id = ? AND course_id = ?

  There is never a read followed by a dependent write inside a primitive,
  so two concurrent reservations of the last seat resolve to exactly one
  winner.

KEY TABLES:
  courses:      capacity counters (course_id PK)
  enrollments:  ledger rows ((student_id, course_id) PK)
  waitlist:     FIFO queue ((course_id, created_at) PK)
  drops:        append-only audit log (drop_id PK)
  students:     identity records
  email_index:  email uniqueness claims

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

CONCURRENCY:
  A sync.Mutex serializes writes; waitlist pops hold it across the
  read+delete pair so two pops never return the same head. With a
  server database the store's own conditional semantics take over.

SEE ALSO:
  - enroll/store.go: Interface definitions
  - enroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/campus/registration-engine/enroll"
)

// Store owns the database handle and exposes one sub-store per
// collection.
type Store struct {
	Courses     *Courses
	Enrollments *Enrollments
	Waitlist    *Waitlist
	Drops       *Drops
	Students    *Students
	Emails      *Emails

	db *conn
}

type conn struct {
	db *sql.DB
	mu sync.Mutex

	lastTick int64
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite allows a single writer, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	c := &conn{db: db}
	s := &Store{
		Courses:     &Courses{c},
		Enrollments: &Enrollments{c},
		Waitlist:    &Waitlist{c},
		Drops:       &Drops{c},
		Students:    &Students{c},
		Emails:      &Emails{c},
		db:          c,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		course_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		max_seats INTEGER NOT NULL,
		current_enrolled INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		student_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (student_id, course_id)
	);
	CREATE INDEX IF NOT EXISTS idx_enrollments_course
		ON enrollments(course_id);

	CREATE TABLE IF NOT EXISTS waitlist (
		course_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		student_id TEXT NOT NULL,
		name TEXT,
		email TEXT,
		PRIMARY KEY (course_id, created_at)
	);
	CREATE INDEX IF NOT EXISTS idx_waitlist_student
		ON waitlist(student_id);

	-- Append-only: no UPDATE or DELETE is ever issued against drops.
	CREATE TABLE IF NOT EXISTS drops (
		drop_id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		actor TEXT NOT NULL,
		reason TEXT NOT NULL,
		dropped_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_drops_pair
		ON drops(student_id, course_id);
	CREATE INDEX IF NOT EXISTS idx_drops_course
		ON drops(course_id);

	CREATE TABLE IF NOT EXISTS students (
		student_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS email_index (
		email TEXT PRIMARY KEY,
		student_id TEXT NOT NULL
	);
	`
	_, err := s.db.db.Exec(schema)
	return err
}

// tick returns a strictly increasing nanosecond timestamp for waitlist
// keys. Callers must hold mu.
func (c *conn) tick() int64 {
	now := time.Now().UnixNano()
	if now <= c.lastTick {
		now = c.lastTick + 1
	}
	c.lastTick = now
	return now
}

// =============================================================================
// COURSE STORE (enroll.CourseStore)
// =============================================================================

type Courses struct{ c *conn }

func (s *Courses) Get(ctx context.Context, courseID string) (enroll.Course, error) {
	var c enroll.Course
	err := s.c.db.QueryRowContext(ctx,
		`SELECT course_id, title, max_seats, current_enrolled FROM courses WHERE course_id = ?`,
		courseID,
	).Scan(&c.CourseID, &c.Title, &c.MaxSeats, &c.CurrentEnrolled)
	if err == sql.ErrNoRows {
		return enroll.Course{}, enroll.ErrCourseNotFound
	}
	if err != nil {
		return enroll.Course{}, fmt.Errorf("failed to get course: %w", err)
	}
	return c, nil
}

func (s *Courses) List(ctx context.Context) ([]enroll.Course, error) {
	rows, err := s.c.db.QueryContext(ctx,
		`SELECT course_id, title, max_seats, current_enrolled FROM courses ORDER BY course_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var out []enroll.Course
	for rows.Next() {
		var c enroll.Course
		if err := rows.Scan(&c.CourseID, &c.Title, &c.MaxSeats, &c.CurrentEnrolled); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Courses) Create(ctx context.Context, c enroll.Course) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	_, err := s.c.db.ExecContext(ctx,
		`INSERT INTO courses (course_id, title, max_seats, current_enrolled) VALUES (?, ?, ?, ?)`,
		c.CourseID, c.Title, c.MaxSeats, c.CurrentEnrolled)
	if err != nil {
		if isUniqueConstraintError(err) {
			return enroll.ErrCourseExists
		}
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

// UpdateMaxSeats touches max_seats only; current_enrolled stays owned by
// the reserve/release primitives.
func (s *Courses) UpdateMaxSeats(ctx context.Context, courseID string, maxSeats int) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	res, err := s.c.db.ExecContext(ctx,
		`UPDATE courses SET max_seats = ? WHERE course_id = ?`,
		maxSeats, courseID)
	if err != nil {
		return fmt.Errorf("failed to update seats: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enroll.ErrCourseNotFound
	}
	return nil
}

func (s *Courses) Delete(ctx context.Context, courseID string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	_, err := s.c.db.ExecContext(ctx, `DELETE FROM courses WHERE course_id = ?`, courseID)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}

// ReserveSeat is a single conditional UPDATE; the predicate runs in the
// database, so there is no read-then-write window.
func (s *Courses) ReserveSeat(ctx context.Context, courseID string) (bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	res, err := s.c.db.ExecContext(ctx,
		`UPDATE courses SET current_enrolled = current_enrolled + 1
		 WHERE course_id = ? AND current_enrolled < max_seats`,
		courseID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Courses) ReleaseSeat(ctx context.Context, courseID string) (bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	res, err := s.c.db.ExecContext(ctx,
		`UPDATE courses SET current_enrolled = current_enrolled - 1
		 WHERE course_id = ? AND current_enrolled > 0`,
		courseID)
	if err != nil {
		return false, fmt.Errorf("failed to release seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// =============================================================================
// ENROLLMENT STORE (enroll.EnrollmentStore)
// =============================================================================

type Enrollments struct{ c *conn }

func (s *Enrollments) Put(ctx context.Context, e enroll.Enrollment) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	_, err := s.c.db.ExecContext(ctx,
		`INSERT INTO enrollments (student_id, course_id, status, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(student_id, course_id) DO UPDATE SET status = excluded.status`,
		e.StudentID, e.CourseID, e.Status, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to put enrollment: %w", err)
	}
	return nil
}

func (s *Enrollments) Delete(ctx context.Context, studentID, courseID string) (bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	res, err := s.c.db.ExecContext(ctx,
		`DELETE FROM enrollments WHERE student_id = ? AND course_id = ?`,
		studentID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to delete enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Enrollments) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	var one int
	err := s.c.db.QueryRowContext(ctx,
		`SELECT 1 FROM enrollments WHERE student_id = ? AND course_id = ?`,
		studentID, courseID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return true, nil
}

func (s *Enrollments) ListByCourse(ctx context.Context, courseID string) ([]enroll.Enrollment, error) {
	return s.query(ctx,
		`SELECT student_id, course_id, status, created_at FROM enrollments
		 WHERE course_id = ? ORDER BY student_id`, courseID)
}

func (s *Enrollments) ListByStudent(ctx context.Context, studentID string) ([]enroll.Enrollment, error) {
	return s.query(ctx,
		`SELECT student_id, course_id, status, created_at FROM enrollments
		 WHERE student_id = ? ORDER BY course_id`, studentID)
}

func (s *Enrollments) ListAll(ctx context.Context) ([]enroll.Enrollment, error) {
	return s.query(ctx,
		`SELECT student_id, course_id, status, created_at FROM enrollments
		 ORDER BY course_id, student_id`)
}

func (s *Enrollments) query(ctx context.Context, q string, args ...any) ([]enroll.Enrollment, error) {
	rows, err := s.c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	var out []enroll.Enrollment
	for rows.Next() {
		var e enroll.Enrollment
		var createdAt string
		if err := rows.Scan(&e.StudentID, &e.CourseID, &e.Status, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// WAITLIST STORE (enroll.WaitlistStore)
// =============================================================================

type Waitlist struct{ c *conn }

func (s *Waitlist) Enqueue(ctx context.Context, courseID, studentID string, info enroll.DisplayInfo) (enroll.WaitlistEntry, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	entry := enroll.WaitlistEntry{
		CourseID:  courseID,
		CreatedAt: s.c.tick(),
		StudentID: studentID,
		Name:      info.Name,
		Email:     info.Email,
	}
	_, err := s.c.db.ExecContext(ctx,
		`INSERT INTO waitlist (course_id, created_at, student_id, name, email)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.CourseID, entry.CreatedAt, entry.StudentID, entry.Name, entry.Email)
	if err != nil {
		return enroll.WaitlistEntry{}, fmt.Errorf("failed to enqueue: %w", err)
	}
	return entry, nil
}

// PopOldest holds the write lock across the head read and its delete so
// concurrent pops never return the same entry. The read orders by the
// primary key, which is the insertion order.
func (s *Waitlist) PopOldest(ctx context.Context, courseID string) (string, bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	var studentID string
	var createdAt int64
	err := s.c.db.QueryRowContext(ctx,
		`SELECT student_id, created_at FROM waitlist
		 WHERE course_id = ? ORDER BY created_at ASC LIMIT 1`,
		courseID,
	).Scan(&studentID, &createdAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read waitlist head: %w", err)
	}

	res, err := s.c.db.ExecContext(ctx,
		`DELETE FROM waitlist WHERE course_id = ? AND created_at = ?`,
		courseID, createdAt)
	if err != nil {
		// The entry remains; a retry could double-pop this student. Known
		// race window, surfaced as an error rather than a silent success.
		return "", false, fmt.Errorf("failed to delete popped entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", false, nil
	}
	return studentID, true, nil
}

func (s *Waitlist) RemoveByStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	res, err := s.c.db.ExecContext(ctx,
		`DELETE FROM waitlist WHERE course_id = ? AND student_id = ?`,
		courseID, studentID)
	if err != nil {
		return false, fmt.Errorf("failed to remove waitlist entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Waitlist) RemoveEntry(ctx context.Context, courseID string, createdAt int64) (bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	res, err := s.c.db.ExecContext(ctx,
		`DELETE FROM waitlist WHERE course_id = ? AND created_at = ?`,
		courseID, createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to remove waitlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Waitlist) Contains(ctx context.Context, courseID, studentID string) (bool, error) {
	var one int
	err := s.c.db.QueryRowContext(ctx,
		`SELECT 1 FROM waitlist WHERE course_id = ? AND student_id = ? LIMIT 1`,
		courseID, studentID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check waitlist: %w", err)
	}
	return true, nil
}

func (s *Waitlist) ListByCourse(ctx context.Context, courseID string) ([]enroll.WaitlistEntry, error) {
	return s.query(ctx,
		`SELECT course_id, created_at, student_id, name, email FROM waitlist
		 WHERE course_id = ? ORDER BY created_at ASC`, courseID)
}

func (s *Waitlist) ListByStudent(ctx context.Context, studentID string) ([]enroll.WaitlistEntry, error) {
	return s.query(ctx,
		`SELECT course_id, created_at, student_id, name, email FROM waitlist
		 WHERE student_id = ? ORDER BY created_at ASC`, studentID)
}

func (s *Waitlist) query(ctx context.Context, q string, args ...any) ([]enroll.WaitlistEntry, error) {
	rows, err := s.c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist: %w", err)
	}
	defer rows.Close()

	var out []enroll.WaitlistEntry
	for rows.Next() {
		var e enroll.WaitlistEntry
		var name, email sql.NullString
		if err := rows.Scan(&e.CourseID, &e.CreatedAt, &e.StudentID, &name, &email); err != nil {
			return nil, err
		}
		e.Name = name.String
		e.Email = email.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// DROP STORE (enroll.DropStore)
// =============================================================================

type Drops struct{ c *conn }

// Record writes the audit row and reads it back before reporting
// success: a write that cannot subsequently be read is a failed write.
func (s *Drops) Record(ctx context.Context, r enroll.DropRecord) (bool, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	_, err := s.c.db.ExecContext(ctx,
		`INSERT INTO drops (drop_id, student_id, course_id, actor, reason, dropped_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.DropID, r.StudentID, r.CourseID, string(r.Actor), r.Reason,
		r.DroppedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("failed to record drop: %w", err)
	}

	var one int
	err = s.c.db.QueryRowContext(ctx,
		`SELECT 1 FROM drops WHERE drop_id = ?`, r.DropID,
	).Scan(&one)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Drops) HasDropped(ctx context.Context, studentID, courseID string) (bool, error) {
	var one int
	err := s.c.db.QueryRowContext(ctx,
		`SELECT 1 FROM drops WHERE student_id = ? AND course_id = ? LIMIT 1`,
		studentID, courseID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check drop history: %w", err)
	}
	return true, nil
}

func (s *Drops) ListByCourse(ctx context.Context, courseID string) ([]enroll.DropRecord, error) {
	rows, err := s.c.db.QueryContext(ctx,
		`SELECT drop_id, student_id, course_id, actor, reason, dropped_at FROM drops
		 WHERE course_id = ? ORDER BY dropped_at ASC`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drops: %w", err)
	}
	defer rows.Close()

	var out []enroll.DropRecord
	for rows.Next() {
		var r enroll.DropRecord
		var actor, droppedAt string
		if err := rows.Scan(&r.DropID, &r.StudentID, &r.CourseID, &actor, &r.Reason, &droppedAt); err != nil {
			return nil, err
		}
		r.Actor = enroll.Actor(actor)
		r.DroppedAt, _ = time.Parse(time.RFC3339Nano, droppedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// STUDENT STORE (enroll.StudentStore)
// =============================================================================

type Students struct{ c *conn }

func (s *Students) Put(ctx context.Context, st enroll.Student) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	_, err := s.c.db.ExecContext(ctx,
		`INSERT INTO students (student_id, name, email, password_hash) VALUES (?, ?, ?, ?)`,
		st.StudentID, st.Name, st.Email, st.PasswordHash)
	if err != nil {
		if isUniqueConstraintError(err) {
			return enroll.ErrStudentExists
		}
		return fmt.Errorf("failed to put student: %w", err)
	}
	return nil
}

func (s *Students) Get(ctx context.Context, studentID string) (enroll.Student, error) {
	var st enroll.Student
	err := s.c.db.QueryRowContext(ctx,
		`SELECT student_id, name, email, password_hash FROM students WHERE student_id = ?`,
		studentID,
	).Scan(&st.StudentID, &st.Name, &st.Email, &st.PasswordHash)
	if err == sql.ErrNoRows {
		return enroll.Student{}, enroll.ErrStudentNotFound
	}
	if err != nil {
		return enroll.Student{}, fmt.Errorf("failed to get student: %w", err)
	}
	return st, nil
}

func (s *Students) UpdatePassword(ctx context.Context, studentID, passwordHash string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	res, err := s.c.db.ExecContext(ctx,
		`UPDATE students SET password_hash = ? WHERE student_id = ?`,
		passwordHash, studentID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enroll.ErrStudentNotFound
	}
	return nil
}

// =============================================================================
// EMAIL INDEX STORE (enroll.EmailIndexStore)
// =============================================================================

type Emails struct{ c *conn }

func (s *Emails) Claim(ctx context.Context, email, studentID string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	_, err := s.c.db.ExecContext(ctx,
		`INSERT INTO email_index (email, student_id) VALUES (?, ?)`,
		email, studentID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return enroll.ErrEmailTaken
		}
		return fmt.Errorf("failed to claim email: %w", err)
	}
	return nil
}

func (s *Emails) Exists(ctx context.Context, email string) (bool, error) {
	var one int
	err := s.c.db.QueryRowContext(ctx,
		`SELECT 1 FROM email_index WHERE email = ?`, email,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return true, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
