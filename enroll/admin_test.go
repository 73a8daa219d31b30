package enroll_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus/registration-engine/enroll"
)

// =============================================================================
// COURSE LIFECYCLE
// =============================================================================

func TestAddCourse_RejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.admin.AddCourse(ctx, "CS101", "Intro", 10)
	require.NoError(t, err)

	_, err = f.admin.AddCourse(ctx, "cs101", "Intro again", 5)
	assert.ErrorIs(t, err, enroll.ErrCourseExists, "ids are case-normalized before the conditional put")
}

func TestAddCourse_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name     string
		courseID string
		title    string
		seats    int
	}{
		{"empty id", "", "Intro", 10},
		{"blank title", "CS101", "   ", 10},
		{"zero seats", "CS101", "Intro", 0},
		{"negative seats", "CS101", "Intro", -3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.admin.AddCourse(ctx, tc.courseID, tc.title, tc.seats)
			assert.ErrorIs(t, err, enroll.ErrInvalidInput)
		})
	}
}

func TestUpdateCourseSeats_BelowEnrolled_Rejected(t *testing.T) {
	// GIVEN: A course with 2 enrolled students
	// WHEN: Shrinking maxSeats to 1
	// THEN: Rejected with the enrollment count, and maxSeats is unchanged

	ctx := context.Background()
	f := newFixture(t)
	f.addCourse(t, "CS101", 3)
	f.addStudent(t, "s1")
	f.addStudent(t, "s2")

	_, err := f.registrar.Enroll(ctx, "s1", "CS101", false)
	require.NoError(t, err)
	_, err = f.registrar.Enroll(ctx, "s2", "CS101", false)
	require.NoError(t, err)

	err = f.admin.UpdateCourseSeats(ctx, "CS101", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, enroll.ErrSeatsBelowEnrolled)

	var sre *enroll.SeatReductionError
	require.ErrorAs(t, err, &sre)
	assert.Equal(t, 2, sre.CurrentEnrolled)
	assert.Equal(t, 1, sre.Requested)

	c, err := f.mem.Courses.Get(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 3, c.MaxSeats)
}

func TestUpdateCourseSeats_GrowPreservesEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCourse(t, "CS101", 1)
	f.addStudent(t, "s1")

	_, err := f.registrar.Enroll(ctx, "s1", "CS101", false)
	require.NoError(t, err)

	require.NoError(t, f.admin.UpdateCourseSeats(ctx, "CS101", 5))

	c, err := f.mem.Courses.Get(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 5, c.MaxSeats)
	assert.Equal(t, 1, c.CurrentEnrolled)
	assert.Equal(t, 4, c.SeatsLeft())
}

func TestDeleteCourse_CascadesWithAudit(t *testing.T) {
	// GIVEN: A course with 2 enrolled and 1 waitlisted student
	// WHEN: The admin deletes it
	// THEN: Counts are (2, 1), each enrollment removal is audited with the
	//       ADMIN actor, and the waitlist removal leaves no audit record

	ctx := context.Background()
	f := newFixture(t)
	f.addCourse(t, "CS101", 2)
	for _, sid := range []string{"s1", "s2", "s3"} {
		f.addStudent(t, sid)
	}

	_, err := f.registrar.Enroll(ctx, "s1", "CS101", false)
	require.NoError(t, err)
	_, err = f.registrar.Enroll(ctx, "s2", "CS101", false)
	require.NoError(t, err)
	_, err = f.registrar.Enroll(ctx, "s3", "CS101", true)
	require.NoError(t, err)

	enrollmentsRemoved, waitlistRemoved, err := f.admin.DeleteCourse(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 2, enrollmentsRemoved)
	assert.Equal(t, 1, waitlistRemoved)

	_, err = f.mem.Courses.Get(ctx, "CS101")
	assert.ErrorIs(t, err, enroll.ErrCourseNotFound)

	records, err := f.mem.Drops.ListByCourse(ctx, "CS101")
	require.NoError(t, err)
	require.Len(t, records, 2, "waitlist removals are not audited")
	for _, r := range records {
		assert.Equal(t, enroll.ActorAdmin, r.Actor)
		assert.NotEmpty(t, r.DropID)
	}
}

func TestDeleteCourse_Unknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.admin.DeleteCourse(ctx, "NOPE")
	assert.ErrorIs(t, err, enroll.ErrCourseNotFound)
}

// =============================================================================
// REPORTING
// =============================================================================

func TestListWaitlist_UnknownCourse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.admin.ListWaitlist(ctx, "NOPE")
	assert.ErrorIs(t, err, enroll.ErrCourseNotFound)
}

func TestDropHistory_ReturnsCourseRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCourse(t, "CS101", 1)
	f.addStudent(t, "s1")

	_, err := f.registrar.Enroll(ctx, "s1", "CS101", false)
	require.NoError(t, err)
	_, err = f.registrar.Drop(ctx, "s1", "CS101")
	require.NoError(t, err)

	records, err := f.admin.DropHistory(ctx, "CS101")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "s1", records[0].StudentID)
	assert.Equal(t, enroll.ActorStudent, records[0].Actor)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcile_ConsistentCourses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCourse(t, "CS101", 4)
	f.addStudent(t, "s1")

	_, err := f.registrar.Enroll(ctx, "s1", "CS101", false)
	require.NoError(t, err)

	audits, err := f.admin.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 1)

	a := audits[0]
	assert.True(t, a.Consistent)
	assert.Equal(t, 1, a.LedgerCount)
	assert.True(t, a.Utilization.Equal(decimal.RequireFromString("0.25")), "got %s", a.Utilization)
}

func TestReconcile_FlagsCounterLedgerMismatch(t *testing.T) {
	// GIVEN: A reserved seat whose ledger write never happened
	// WHEN: Reconciling
	// THEN: The course is flagged inconsistent; nothing is repaired

	ctx := context.Background()
	f := newFixture(t)
	f.addCourse(t, "CS101", 2)

	reserved, err := f.mem.Courses.ReserveSeat(ctx, "CS101")
	require.NoError(t, err)
	require.True(t, reserved)

	audits, err := f.admin.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.False(t, audits[0].Consistent)
	assert.Equal(t, 1, audits[0].CurrentEnrolled)
	assert.Equal(t, 0, audits[0].LedgerCount)

	// Read-only: the counter keeps its value.
	c, err := f.mem.Courses.Get(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 1, c.CurrentEnrolled)
}
