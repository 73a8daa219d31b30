/*
admin.go - Administrative course lifecycle and operational reporting

PURPOSE:
  Course CRUD, explicit promotion, waitlist/drop-history views, and the
  capacity-vs-ledger reconciliation report. Admin seat updates mutate
  maxSeats only; currentEnrolled is owned by the reserve/release
  primitives.

CASCADE DELETE:
  Deleting a course removes every enrollment (each with an ADMIN-actor
  audit record) and every waitlist entry (no audit record), then deletes
  the course row. The steps are not transactional; failures on individual
  rows are collected and reported, not hidden.
*/
package enroll

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Admin performs administrator operations. Authorization is the caller's
// concern (see identity.Authorizer); this layer assumes the actor is
// already vetted.
type Admin struct {
	courses     CourseStore
	enrollments EnrollmentStore
	waitlist    WaitlistStore
	drops       DropStore

	registrar *Registrar
}

func NewAdmin(courses CourseStore, enrollments EnrollmentStore, waitlist WaitlistStore, drops DropStore, registrar *Registrar) *Admin {
	return &Admin{
		courses:     courses,
		enrollments: enrollments,
		waitlist:    waitlist,
		drops:       drops,
		registrar:   registrar,
	}
}

// =============================================================================
// COURSE LIFECYCLE
// =============================================================================

// AddCourse creates a course with zero enrollment. The id is
// case-normalized; duplicates are rejected by the store's conditional put.
func (a *Admin) AddCourse(ctx context.Context, courseID, title string, maxSeats int) (Course, error) {
	courseID = NormalizeCourseID(courseID)
	title = strings.TrimSpace(title)
	if courseID == "" || title == "" || maxSeats <= 0 {
		return Course{}, ErrInvalidInput
	}

	c := Course{
		CourseID:        courseID,
		Title:           title,
		MaxSeats:        maxSeats,
		CurrentEnrolled: 0,
	}
	if err := a.courses.Create(ctx, c); err != nil {
		return Course{}, err
	}
	return c, nil
}

// UpdateCourseSeats changes maxSeats. Shrinking below the current
// enrollment count is rejected with no mutation.
func (a *Admin) UpdateCourseSeats(ctx context.Context, courseID string, newSeats int) error {
	courseID = NormalizeCourseID(courseID)
	if courseID == "" || newSeats <= 0 {
		return ErrInvalidInput
	}

	c, err := a.courses.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if newSeats < c.CurrentEnrolled {
		return &SeatReductionError{
			CourseID:        courseID,
			Requested:       newSeats,
			CurrentEnrolled: c.CurrentEnrolled,
		}
	}
	return a.courses.UpdateMaxSeats(ctx, courseID, newSeats)
}

// DeleteCourse removes the course and cascades cleanup: one ADMIN audit
// record per removed enrollment, no audit record for waitlist removals.
// Returns the number of enrollments and waitlist entries removed.
func (a *Admin) DeleteCourse(ctx context.Context, courseID string) (enrollmentsRemoved, waitlistRemoved int, err error) {
	courseID = NormalizeCourseID(courseID)
	if courseID == "" {
		return 0, 0, ErrInvalidInput
	}
	if _, err := a.courses.Get(ctx, courseID); err != nil {
		return 0, 0, err
	}

	enrollments, err := a.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return 0, 0, storeErr("list enrollments", err)
	}
	for _, e := range enrollments {
		deleted, err := a.enrollments.Delete(ctx, e.StudentID, courseID)
		if err != nil || !deleted {
			continue
		}
		enrollmentsRemoved++
		// Best-effort audit; a failed record does not stop the cascade.
		a.drops.Record(ctx, DropRecord{
			DropID:    uuid.NewString(),
			StudentID: e.StudentID,
			CourseID:  courseID,
			Actor:     ActorAdmin,
			Reason:    "Course deleted by admin",
			DroppedAt: a.registrar.now(),
		})
	}

	entries, err := a.waitlist.ListByCourse(ctx, courseID)
	if err != nil {
		return enrollmentsRemoved, 0, storeErr("list waitlist", err)
	}
	for _, w := range entries {
		if removed, err := a.waitlist.RemoveEntry(ctx, courseID, w.CreatedAt); err == nil && removed {
			waitlistRemoved++
		}
	}

	if err := a.courses.Delete(ctx, courseID); err != nil {
		return enrollmentsRemoved, waitlistRemoved, storeErr("delete course", err)
	}
	return enrollmentsRemoved, waitlistRemoved, nil
}

// Promote runs an explicit waitlist promotion for the course.
func (a *Admin) Promote(ctx context.Context, courseID string) (Result, error) {
	return a.registrar.Promote(ctx, courseID)
}

// =============================================================================
// REPORTING
// =============================================================================

// ListWaitlist returns the course's waitlist in FIFO order.
func (a *Admin) ListWaitlist(ctx context.Context, courseID string) ([]WaitlistEntry, error) {
	courseID = NormalizeCourseID(courseID)
	if _, err := a.courses.Get(ctx, courseID); err != nil {
		return nil, err
	}
	return a.waitlist.ListByCourse(ctx, courseID)
}

// DropHistory returns every audit record for the course.
func (a *Admin) DropHistory(ctx context.Context, courseID string) ([]DropRecord, error) {
	courseID = NormalizeCourseID(courseID)
	if _, err := a.courses.Get(ctx, courseID); err != nil {
		return nil, err
	}
	return a.drops.ListByCourse(ctx, courseID)
}

// ListEnrollments is a full ledger dump for administrative views.
func (a *Admin) ListEnrollments(ctx context.Context) ([]Enrollment, error) {
	return a.enrollments.ListAll(ctx)
}

// =============================================================================
// RECONCILIATION - Capacity counter vs. enrollment ledger
// =============================================================================

// CourseAudit compares a course's counter against its ledger rows.
// Utilization is exact (decimal), avoiding float drift in reports that
// get summed downstream.
type CourseAudit struct {
	CourseID        string
	MaxSeats        int
	CurrentEnrolled int
	LedgerCount     int
	Consistent      bool
	Utilization     decimal.Decimal // CurrentEnrolled / MaxSeats
}

// Reconcile scans every course and reports counter/ledger mismatches,
// the observable residue of partial failures. Read-only: it never
// repairs state.
func (a *Admin) Reconcile(ctx context.Context) ([]CourseAudit, error) {
	courses, err := a.courses.List(ctx)
	if err != nil {
		return nil, storeErr("list courses", err)
	}

	audits := make([]CourseAudit, 0, len(courses))
	for _, c := range courses {
		rows, err := a.enrollments.ListByCourse(ctx, c.CourseID)
		if err != nil {
			return nil, storeErr("list enrollments", err)
		}

		util := decimal.Zero
		if c.MaxSeats > 0 {
			util = decimal.NewFromInt(int64(c.CurrentEnrolled)).
				Div(decimal.NewFromInt(int64(c.MaxSeats))).
				Round(4)
		}
		audits = append(audits, CourseAudit{
			CourseID:        c.CourseID,
			MaxSeats:        c.MaxSeats,
			CurrentEnrolled: c.CurrentEnrolled,
			LedgerCount:     len(rows),
			Consistent:      len(rows) == c.CurrentEnrolled,
			Utilization:     util,
		})
	}
	return audits, nil
}
