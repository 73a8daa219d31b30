/*
registrar.go - Enroll/Drop/Promote state machine

PURPOSE:
  The Registrar coordinates the capacity counter, enrollment ledger,
  waitlist queue, and drop audit log. It is the sole writer of enrollment
  and waitlist rows during enroll/drop/promote.

STATE MACHINE (per student+course pair):
  NONE -> ENROLLED          enroll with a free seat
  NONE -> WAITLISTED        enroll with consent on a full course
  ENROLLED -> NONE          drop (one-shot, ever)
  WAITLISTED -> NONE        withdraw
  WAITLISTED -> ENROLLED    promotion
  There is no transition back into WAITLISTED from ENROLLED.

SEQUENCING:
  Writes happen in a fixed order with no surrounding transaction. Each
  step's success/failure is interpreted individually:
    enroll:  reserve seat -> insert enrollment
    drop:    delete enrollment -> record audit -> release seat -> promote
    promote: pop waitlist -> reserve seat -> insert enrollment -> record audit
  A later-step failure after an earlier commit is reported as
  KindPartialFailure, never masked (see outcome.go).

KNOWN RACE WINDOWS (accepted, documented):
  - Between PopOldest's read and delete: a crash can double-pop on retry.
  - Between a drop's ReleaseSeat and the promotion's ReserveSeat: another
    enroll can take the freed seat; the popped student is re-enqueued at
    the BACK of the queue (new createdAt), breaking strict FIFO fairness.
*/
package enroll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Registrar orchestrates enrollment state transitions. All coordination
// happens through the stores' conditional writes; Registrar holds no
// mutable state and is safe for concurrent use.
type Registrar struct {
	courses     CourseStore
	enrollments EnrollmentStore
	waitlist    WaitlistStore
	drops       DropStore
	students    StudentStore

	// now is swappable for tests.
	now func() time.Time
}

func NewRegistrar(courses CourseStore, enrollments EnrollmentStore, waitlist WaitlistStore, drops DropStore, students StudentStore) *Registrar {
	return &Registrar{
		courses:     courses,
		enrollments: enrollments,
		waitlist:    waitlist,
		drops:       drops,
		students:    students,
		now:         time.Now,
	}
}

// =============================================================================
// ENROLL
// =============================================================================

// Enroll seats the student if capacity remains, else queues them when
// waitlistConsent is true. With consent false on a full course it returns
// KindFullNeedsConsent without mutating state, making the operation
// two-phase from the caller's perspective.
func (r *Registrar) Enroll(ctx context.Context, studentID, courseID string, waitlistConsent bool) (Result, error) {
	studentID = strings.TrimSpace(studentID)
	courseID = NormalizeCourseID(courseID)
	if studentID == "" || courseID == "" {
		return Result{}, ErrInvalidInput
	}

	student, err := r.students.Get(ctx, studentID)
	if err != nil {
		return Result{}, err
	}

	enrolled, err := r.enrollments.Exists(ctx, studentID, courseID)
	if err != nil {
		return Result{}, storeErr("check enrollment", err)
	}
	if enrolled {
		return outcome(KindAlreadyEnrolled, "already enrolled in this course"), nil
	}

	queued, err := r.waitlist.Contains(ctx, courseID, studentID)
	if err != nil {
		return Result{}, storeErr("check waitlist", err)
	}
	if queued {
		return outcome(KindAlreadyWaitlisted, "already on the waitlist for this course"), nil
	}

	if _, err := r.courses.Get(ctx, courseID); err != nil {
		return Result{}, err
	}

	reserved, err := r.courses.ReserveSeat(ctx, courseID)
	if err != nil {
		return Result{}, storeErr("reserve seat", err)
	}
	if reserved {
		e := Enrollment{
			StudentID: studentID,
			CourseID:  courseID,
			Status:    StatusEnrolled,
			CreatedAt: r.now(),
		}
		if err := r.enrollments.Put(ctx, e); err != nil {
			// Seat committed, ledger row did not. Surface the gap.
			return outcome(KindPartialFailure,
				fmt.Sprintf("seat reserved but enrollment write failed: %v", err)), nil
		}
		return ok("enrolled"), nil
	}

	if !waitlistConsent {
		return outcome(KindFullNeedsConsent, "course full; waitlist requires consent"), nil
	}

	info := DisplayInfo{Name: student.Name, Email: student.Email}
	if _, err := r.waitlist.Enqueue(ctx, courseID, studentID, info); err != nil {
		return Result{}, storeErr("enqueue waitlist", err)
	}
	return outcome(KindWaitlisted, "course full; added to waitlist"), nil
}

// =============================================================================
// DROP
// =============================================================================

// Drop removes the student from the course. A student may drop a given
// course at most once, ever; a prior drop blocks the call even after
// re-enrollment. On a successful enrolled-drop the freed seat triggers an
// automatic promotion attempt.
func (r *Registrar) Drop(ctx context.Context, studentID, courseID string) (Result, error) {
	studentID = strings.TrimSpace(studentID)
	courseID = NormalizeCourseID(courseID)
	if studentID == "" || courseID == "" {
		return Result{}, ErrInvalidInput
	}

	if _, err := r.students.Get(ctx, studentID); err != nil {
		return Result{}, err
	}
	if _, err := r.courses.Get(ctx, courseID); err != nil {
		return Result{}, err
	}

	dropped, err := r.drops.HasDropped(ctx, studentID, courseID)
	if err != nil {
		return Result{}, storeErr("check drop history", err)
	}
	if dropped {
		return outcome(KindAlreadyDropped, "course was already dropped earlier"), nil
	}

	enrolled, err := r.enrollments.Exists(ctx, studentID, courseID)
	if err != nil {
		return Result{}, storeErr("check enrollment", err)
	}
	if enrolled {
		return r.dropEnrolled(ctx, studentID, courseID)
	}

	removed, err := r.waitlist.RemoveByStudent(ctx, courseID, studentID)
	if err != nil {
		return Result{}, storeErr("remove waitlist entries", err)
	}
	if removed {
		// Waitlist withdrawals are audited; a failed write degrades the
		// outcome but the withdrawal itself stands.
		recorded, err := r.record(ctx, studentID, courseID, ActorStudent, "Removed from waitlist by student")
		if err != nil || !recorded {
			return outcome(KindPartialFailure, "removed from waitlist but audit record failed"), nil
		}
		return ok("removed from waitlist"), nil
	}

	return outcome(KindNotRegistered, "not enrolled or waitlisted for this course"), nil
}

// dropEnrolled handles ENROLLED -> NONE: delete ledger row, audit,
// release seat, attempt promotion.
func (r *Registrar) dropEnrolled(ctx context.Context, studentID, courseID string) (Result, error) {
	deleted, err := r.enrollments.Delete(ctx, studentID, courseID)
	if err != nil {
		return Result{}, storeErr("delete enrollment", err)
	}
	if !deleted {
		// Lost a race with a concurrent drop or admin delete. No side
		// effects have happened; the caller may retry.
		return outcome(KindConcurrencyLost, "enrollment was removed concurrently"), nil
	}

	recorded, err := r.record(ctx, studentID, courseID, ActorStudent, "Dropped from enrolled course")
	if err != nil || !recorded {
		// The ledger row is gone but the audit write failed: capacity and
		// audit are now inconsistent until reconciled. Degraded success.
		return outcome(KindPartialFailure, "enrollment removed but drop record failed; contact admin"), nil
	}

	// A false release means the counter was already 0; nothing to do.
	if _, err := r.courses.ReleaseSeat(ctx, courseID); err != nil {
		return outcome(KindPartialFailure, "dropped but seat release failed"), nil
	}

	res, err := r.Promote(ctx, courseID)
	if err != nil {
		return outcome(KindPartialFailure, "dropped but promotion errored"), nil
	}
	switch res.Kind {
	case KindOK:
		return Result{Kind: KindOK, Detail: "dropped; promoted " + res.Promoted + " from waitlist", Promoted: res.Promoted}, nil
	case KindNothingToPromote:
		return ok("dropped"), nil
	case KindConcurrencyLost:
		return ok("dropped; promotion skipped due to concurrency"), nil
	default:
		return Result{Kind: res.Kind, Detail: "dropped; promotion: " + res.Detail}, nil
	}
}

// =============================================================================
// PROMOTE
// =============================================================================

// Promote moves the oldest waitlisted student into a seat. Invoked both
// by an explicit admin action and automatically after a successful drop.
// When the seat reservation loses a race the popped student is
// re-enqueued with a NEW createdAt, demoting them to the back of the
// queue.
func (r *Registrar) Promote(ctx context.Context, courseID string) (Result, error) {
	courseID = NormalizeCourseID(courseID)
	if courseID == "" {
		return Result{}, ErrInvalidInput
	}
	if _, err := r.courses.Get(ctx, courseID); err != nil {
		return Result{}, err
	}

	next, popped, err := r.waitlist.PopOldest(ctx, courseID)
	if err != nil {
		return Result{}, storeErr("pop waitlist", err)
	}
	if !popped {
		return outcome(KindNothingToPromote, "no students on waitlist"), nil
	}

	reserved, err := r.courses.ReserveSeat(ctx, courseID)
	if err != nil {
		return Result{}, storeErr("reserve seat", err)
	}
	if !reserved {
		// Another reservation won the race. Requeue at the back.
		if _, err := r.waitlist.Enqueue(ctx, courseID, next, DisplayInfo{}); err != nil {
			return outcome(KindPartialFailure, "promotion failed and requeue failed for "+next), nil
		}
		return outcome(KindConcurrencyLost, "no seat available; student requeued"), nil
	}

	e := Enrollment{
		StudentID: next,
		CourseID:  courseID,
		Status:    StatusEnrolled,
		CreatedAt: r.now(),
	}
	if err := r.enrollments.Put(ctx, e); err != nil {
		return outcome(KindPartialFailure,
			fmt.Sprintf("seat reserved for %s but enrollment write failed", next)), nil
	}

	// Promotion is logged through the drop store as a SYSTEM audit entry,
	// not a true drop.
	if recorded, err := r.record(ctx, next, courseID, ActorSystem, "Promoted from waitlist"); err != nil || !recorded {
		return Result{Kind: KindPartialFailure, Detail: "promoted " + next + " but audit record failed", Promoted: next}, nil
	}

	return Result{Kind: KindOK, Detail: "promoted " + next, Promoted: next}, nil
}

// =============================================================================
// READ-ONLY VIEWS
// =============================================================================

// CourseStanding is a student's relationship to one course.
type CourseStanding struct {
	CourseID string
	Title    string
	Status   string // ENROLLED or WAITLIST
}

// ListCourses returns every course.
func (r *Registrar) ListCourses(ctx context.Context) ([]Course, error) {
	return r.courses.List(ctx)
}

// MyCourses returns the student's enrollments followed by waitlist
// positions, skipping waitlist rows for courses already listed.
func (r *Registrar) MyCourses(ctx context.Context, studentID string) ([]CourseStanding, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, ErrInvalidInput
	}

	var standings []CourseStanding
	seen := make(map[string]bool)

	enrollments, err := r.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("list enrollments", err)
	}
	for _, e := range enrollments {
		standings = append(standings, CourseStanding{
			CourseID: e.CourseID,
			Title:    r.courseTitle(ctx, e.CourseID),
			Status:   e.Status,
		})
		seen[e.CourseID] = true
	}

	entries, err := r.waitlist.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("list waitlist", err)
	}
	for _, w := range entries {
		if seen[w.CourseID] {
			continue
		}
		standings = append(standings, CourseStanding{
			CourseID: w.CourseID,
			Title:    r.courseTitle(ctx, w.CourseID),
			Status:   "WAITLIST",
		})
		seen[w.CourseID] = true
	}
	return standings, nil
}

func (r *Registrar) courseTitle(ctx context.Context, courseID string) string {
	c, err := r.courses.Get(ctx, courseID)
	if err != nil {
		return "(unknown title)"
	}
	return c.Title
}

// record writes a drop-audit row, substituting sentinel strings for
// blank inputs rather than rejecting the call.
func (r *Registrar) record(ctx context.Context, studentID, courseID string, actor Actor, reason string) (bool, error) {
	if strings.TrimSpace(studentID) == "" {
		studentID = "UNKNOWN_STUDENT"
	}
	if strings.TrimSpace(courseID) == "" {
		courseID = "UNKNOWN_COURSE"
	}
	if actor == "" {
		actor = "UNKNOWN"
	}
	return r.drops.Record(ctx, DropRecord{
		DropID:    uuid.NewString(),
		StudentID: studentID,
		CourseID:  courseID,
		Actor:     actor,
		Reason:    reason,
		DroppedAt: r.now(),
	})
}
