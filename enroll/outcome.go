/*
outcome.go - Tagged outcome taxonomy for multi-step operations

PURPOSE:
  Every Registrar operation (enroll, drop, promote) classifies its outcome
  into a stable kind so callers branch on the kind, never on message text.
  Expected conditions (full course, already enrolled, nothing to promote)
  are outcomes, not errors.

PARTIAL FAILURE:
  The engine never wraps its dependent writes in a transaction. When a
  later step fails after an earlier step committed (seat reserved but
  enrollment insert failed; enrollment deleted but audit write failed),
  the operation reports KindPartialFailure with a detail describing what
  committed. It is never masked as plain success or total failure.
*/
package enroll

// OutcomeKind classifies the result of an enroll/drop/promote operation.
type OutcomeKind string

const (
	// KindOK: the operation fully succeeded.
	KindOK OutcomeKind = "ok"

	// KindWaitlisted: the course was full and the student was queued.
	KindWaitlisted OutcomeKind = "waitlisted"

	// KindFullNeedsConsent: the course is full and the caller did not
	// consent to waitlisting. No state was mutated; the caller is expected
	// to re-invoke with consent.
	KindFullNeedsConsent OutcomeKind = "full_needs_consent"

	// KindAlreadyEnrolled / KindAlreadyWaitlisted: duplicate request.
	KindAlreadyEnrolled   OutcomeKind = "already_enrolled"
	KindAlreadyWaitlisted OutcomeKind = "already_waitlisted"

	// KindAlreadyDropped: the student has dropped this course before.
	// Dropping a given course is a one-shot action, ever.
	KindAlreadyDropped OutcomeKind = "already_dropped"

	// KindNotRegistered: the student is neither enrolled nor waitlisted.
	KindNotRegistered OutcomeKind = "not_registered"

	// KindNothingToPromote: the waitlist for the course is empty.
	KindNothingToPromote OutcomeKind = "nothing_to_promote"

	// KindConcurrencyLost: a conditional write lost a race. Retryable by
	// the caller; this layer never retries.
	KindConcurrencyLost OutcomeKind = "concurrency_lost"

	// KindPartialFailure: an earlier step committed but a later dependent
	// step failed. State needs manual reconciliation (see Admin.Reconcile).
	KindPartialFailure OutcomeKind = "partial_failure"
)

// Result is the tagged outcome of a Registrar operation.
type Result struct {
	Kind   OutcomeKind
	Detail string

	// Promoted carries the student id promoted from the waitlist as a
	// side effect of a drop, when any.
	Promoted string
}

func ok(detail string) Result {
	return Result{Kind: KindOK, Detail: detail}
}

func outcome(kind OutcomeKind, detail string) Result {
	return Result{Kind: kind, Detail: detail}
}

// Terminal reports whether the outcome ends the caller's interaction.
// Only KindFullNeedsConsent expects a follow-up call (with consent).
func (r Result) Terminal() bool {
	return r.Kind != KindFullNeedsConsent
}
