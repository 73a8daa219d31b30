/*
store.go - Persistence interfaces for the enrollment engine

PURPOSE:
  Defines the contract between the Registrar and the backing store.
  Every collection is an independent keyed table supporting point lookup,
  conditional put, conditional delete, and filtered scans with strong
  read consistency. There is NO multi-collection transaction: the
  conditional single-row write is the only concurrency-control primitive.

CONDITIONAL WRITE CONTRACT:
  ReserveSeat, ReleaseSeat, and Delete-style operations must be a single
  round trip against the store (predicate evaluated server-side), never a
  read followed by a write. This closes the race window between two
  concurrent mutations of the same row.

IMPLEMENTATIONS:
  - enroll/store (memory.go): In-memory, for testing/dev
  - store/sqlite: Production SQLite

SEE ALSO:
  - registrar.go: Sole writer of enrollments and waitlist rows
  - admin.go: Course lifecycle operations
*/
package enroll

import "context"

// =============================================================================
// COURSE STORE - Capacity counter lives here
// =============================================================================

type CourseStore interface {
	// Get returns the course or ErrCourseNotFound.
	Get(ctx context.Context, courseID string) (Course, error)

	// List returns all courses.
	List(ctx context.Context) ([]Course, error)

	// Create inserts the course iff the id is not taken (conditional put).
	// Returns ErrCourseExists otherwise.
	Create(ctx context.Context, c Course) error

	// UpdateMaxSeats sets maxSeats without touching currentEnrolled.
	UpdateMaxSeats(ctx context.Context, courseID string, maxSeats int) error

	// Delete removes the course record unconditionally.
	Delete(ctx context.Context, courseID string) error

	// ReserveSeat atomically increments currentEnrolled iff the course
	// exists and currentEnrolled < maxSeats. Returns false (no mutation)
	// when the predicate fails; that is "no seat", not an error.
	ReserveSeat(ctx context.Context, courseID string) (bool, error)

	// ReleaseSeat atomically decrements currentEnrolled iff > 0.
	// False means nothing to release; not an error.
	ReleaseSeat(ctx context.Context, courseID string) (bool, error)
}

// =============================================================================
// ENROLLMENT STORE - Source of truth for "is this student seated"
// =============================================================================

type EnrollmentStore interface {
	// Put upserts the ENROLLED row. Called only after a successful seat
	// reservation, so no existence race is expected here.
	Put(ctx context.Context, e Enrollment) error

	// Delete removes the row iff it exists (conditional delete).
	// False means there was nothing to drop.
	Delete(ctx context.Context, studentID, courseID string) (bool, error)

	// Exists is a strongly-consistent membership check.
	Exists(ctx context.Context, studentID, courseID string) (bool, error)

	ListByCourse(ctx context.Context, courseID string) ([]Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
	ListAll(ctx context.Context) ([]Enrollment, error)
}

// =============================================================================
// WAITLIST STORE - FIFO queue keyed by (course, createdAt)
// =============================================================================

type WaitlistStore interface {
	// Enqueue inserts an entry with a fresh strictly-increasing createdAt
	// assigned by the store. No dedup at this layer; the Registrar checks
	// membership first.
	Enqueue(ctx context.Context, courseID, studentID string, info DisplayInfo) (WaitlistEntry, error)

	// PopOldest removes and returns the oldest entry's student id using a
	// strongly-consistent read before the delete. ok=false when the
	// waitlist is empty.
	PopOldest(ctx context.Context, courseID string) (studentID string, ok bool, err error)

	// RemoveByStudent deletes every entry matching (course, student).
	// False when none matched.
	RemoveByStudent(ctx context.Context, courseID, studentID string) (bool, error)

	// RemoveEntry deletes a single entry by primary key.
	RemoveEntry(ctx context.Context, courseID string, createdAt int64) (bool, error)

	// Contains is the membership check used to prevent double waitlisting.
	Contains(ctx context.Context, courseID, studentID string) (bool, error)

	// ListByCourse returns entries ordered by createdAt ascending.
	ListByCourse(ctx context.Context, courseID string) ([]WaitlistEntry, error)
	ListByStudent(ctx context.Context, studentID string) ([]WaitlistEntry, error)
}

// =============================================================================
// DROP STORE - Append-only audit log
// =============================================================================

type DropStore interface {
	// Record writes an immutable drop record and verifies it is readable
	// before reporting success. A write that cannot be read back is a
	// failed write (recorded=false).
	Record(ctx context.Context, r DropRecord) (recorded bool, err error)

	// HasDropped is a strongly-consistent existence check across all
	// historical records for the pair.
	HasDropped(ctx context.Context, studentID, courseID string) (bool, error)

	ListByCourse(ctx context.Context, courseID string) ([]DropRecord, error)
}

// =============================================================================
// STUDENT + EMAIL INDEX - Identity persistence (see identity package)
// =============================================================================

type StudentStore interface {
	// Put inserts iff the student id is not taken (conditional put).
	Put(ctx context.Context, s Student) error

	// Get returns the student or ErrStudentNotFound.
	Get(ctx context.Context, studentID string) (Student, error)

	UpdatePassword(ctx context.Context, studentID, passwordHash string) error
}

// EmailIndexStore maps normalized emails to student ids so signup can
// enforce email uniqueness with a conditional put.
type EmailIndexStore interface {
	// Claim reserves the email iff unclaimed; ErrEmailTaken otherwise.
	Claim(ctx context.Context, email, studentID string) error

	Exists(ctx context.Context, email string) (bool, error)
}
