/*
dto.go - Request/response shapes for the HTTP API

PURPOSE:
  JSON transfer objects, kept separate from domain types so the wire
  format can evolve without touching the engine. Callers branch on the
  outcome `kind` field, never on message text.
*/
package api

import (
	"github.com/campus/registration-engine/enroll"
)

// =============================================================================
// REQUESTS
// =============================================================================

type SignupRequest struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
}

type ResetPasswordRequest struct {
	StudentID   string `json:"studentId"`
	NewPassword string `json:"newPassword"`
}

type EnrollRequest struct {
	StudentID       string `json:"studentId"`
	CourseID        string `json:"courseId"`
	WaitlistConsent bool   `json:"waitlistConsent"`
}

type DropRequest struct {
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId"`
}

type CreateCourseRequest struct {
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	MaxSeats int    `json:"maxSeats"`
}

type UpdateSeatsRequest struct {
	MaxSeats int `json:"maxSeats"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type OutcomeDTO struct {
	Kind     string `json:"kind"`
	Detail   string `json:"detail,omitempty"`
	Promoted string `json:"promoted,omitempty"`
}

func toOutcomeDTO(r enroll.Result) OutcomeDTO {
	return OutcomeDTO{
		Kind:     string(r.Kind),
		Detail:   r.Detail,
		Promoted: r.Promoted,
	}
}

type CourseDTO struct {
	CourseID        string `json:"courseId"`
	Title           string `json:"title"`
	MaxSeats        int    `json:"maxSeats"`
	CurrentEnrolled int    `json:"currentEnrolled"`
	SeatsLeft       int    `json:"seatsLeft"`
}

func toCourseDTO(c enroll.Course) CourseDTO {
	return CourseDTO{
		CourseID:        c.CourseID,
		Title:           c.Title,
		MaxSeats:        c.MaxSeats,
		CurrentEnrolled: c.CurrentEnrolled,
		SeatsLeft:       c.SeatsLeft(),
	}
}

type StandingDTO struct {
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	Status   string `json:"status"`
}

type WaitlistEntryDTO struct {
	CourseID  string `json:"courseId"`
	CreatedAt int64  `json:"createdAt"`
	StudentID string `json:"studentId"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type DropRecordDTO struct {
	DropID    string `json:"dropId"`
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId"`
	Actor     string `json:"actor"`
	Reason    string `json:"reason"`
	DroppedAt string `json:"droppedAt"`
}

type CourseAuditDTO struct {
	CourseID        string `json:"courseId"`
	MaxSeats        int    `json:"maxSeats"`
	CurrentEnrolled int    `json:"currentEnrolled"`
	LedgerCount     int    `json:"ledgerCount"`
	Consistent      bool   `json:"consistent"`
	Utilization     string `json:"utilization"`
}

type ErrorDTO struct {
	Error string `json:"error"`
}
