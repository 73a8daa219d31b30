/*
Package enroll provides the core seat-allocation and waitlist-promotion engine.

PURPOSE:
  This package contains the domain types and the orchestration logic for
  course enrollment: a bounded per-course seat counter, a FIFO waitlist,
  an enrollment ledger, and an append-only drop audit log, tied together
  by the Registrar state machine.

KEY CONCEPTS IN THIS FILE (types.go):
  - Course: Capacity record (maxSeats, currentEnrolled)
  - Enrollment: (student, course) -> ENROLLED ledger row
  - WaitlistEntry: FIFO entry keyed by (course, createdAt)
  - DropRecord: Immutable audit record of every withdrawal/promotion
  - Actor: Who initiated a state change (student, system, admin)

DESIGN PRINCIPLES:
  1. No in-process locking between operations: every invariant (capacity
     bound, no duplicate enrollment) is enforced by the store's
     conditional-write primitives, so the service can be replicated.
  2. No multi-row transactions: each step of a multi-step operation is
     individually interpreted; partial failures are surfaced, never masked.
  3. Append-only audit: drop records are never updated or deleted.

SEE ALSO:
  - store.go: Persistence interfaces (conditional-write contracts)
  - registrar.go: Enroll/Drop/Promote state machine
  - admin.go: Administrative course operations
*/
package enroll

import (
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// NormalizeCourseID trims and upper-cases a course identifier so that
// "cse101" and "CSE101" refer to the same course.
func NormalizeCourseID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// =============================================================================
// ACTOR - Who initiated a state change
// =============================================================================

type Actor string

const (
	ActorStudent Actor = "STUDENT"
	ActorSystem  Actor = "SYSTEM"
	ActorAdmin   Actor = "ADMIN"
)

// =============================================================================
// COURSE - Capacity record
// =============================================================================

// Course tracks seats as a bounded counter, not as identified slots.
// CurrentEnrolled is mutated only through the ReserveSeat/ReleaseSeat
// conditional primitives; admin seat updates touch MaxSeats only.
type Course struct {
	CourseID        string
	Title           string
	MaxSeats        int
	CurrentEnrolled int
}

// SeatsLeft reports remaining capacity, never negative.
func (c Course) SeatsLeft() int {
	left := c.MaxSeats - c.CurrentEnrolled
	if left < 0 {
		return 0
	}
	return left
}

// =============================================================================
// ENROLLMENT - Ledger row
// =============================================================================

const StatusEnrolled = "ENROLLED"

type Enrollment struct {
	StudentID string
	CourseID  string
	Status    string
	CreatedAt time.Time
}

// =============================================================================
// WAITLIST ENTRY - FIFO queue row
// =============================================================================

// WaitlistEntry is keyed by (CourseID, CreatedAt). CreatedAt is a strictly
// increasing nanosecond timestamp assigned by the store at enqueue time;
// it is the FIFO tie-breaker, not wall-clock truth.
type WaitlistEntry struct {
	CourseID  string
	CreatedAt int64
	StudentID string
	Name      string
	Email     string
}

// DisplayInfo carries optional student display fields captured at enqueue time.
type DisplayInfo struct {
	Name  string
	Email string
}

// =============================================================================
// DROP RECORD - Append-only audit row
// =============================================================================

// DropRecord is immutable once written. Promotions also write a record
// (ActorSystem) so the log doubles as a generic audit trail.
type DropRecord struct {
	DropID    string
	StudentID string
	CourseID  string
	Actor     Actor
	Reason    string
	DroppedAt time.Time
}

// =============================================================================
// STUDENT - Identity record (owned by the identity layer, persisted here)
// =============================================================================

type Student struct {
	StudentID    string
	Name         string
	Email        string
	PasswordHash string
}
