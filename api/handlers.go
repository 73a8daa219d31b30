/*
handlers.go - HTTP handlers for the registration engine

PURPOSE:
  Thin translation layer: decode JSON, call the engine, map the outcome
  kind or error onto an HTTP status, encode JSON. No business logic.

STATUS MAPPING:
  ok / waitlisted / nothing_to_promote       200
  full_needs_consent, already_*, not_registered,
  concurrency_lost                           409
  partial_failure                            500 (with kind in the body)
  NotFound errors                            404
  validation / conflict errors               400 / 409
  store failures                             503

SEE ALSO:
  - server.go: Router configuration
  - dto.go: Wire shapes
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campus/registration-engine/enroll"
	"github.com/campus/registration-engine/identity"
)

// Handler wires the engine's services to HTTP routes.
type Handler struct {
	Registrar *enroll.Registrar
	Admin     *enroll.Admin
	Identity  *identity.Service
	Auth      identity.Authorizer
}

func NewHandler(registrar *enroll.Registrar, admin *enroll.Admin, id *identity.Service, auth identity.Authorizer) *Handler {
	return &Handler{Registrar: registrar, Admin: admin, Identity: id, Auth: auth}
}

// =============================================================================
// AUTH
// =============================================================================

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Identity.SignUp(r.Context(), req.StudentID, req.Name, req.Email, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"studentId": req.StudentID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Identity.Login(r.Context(), req.StudentID, req.Password); err != nil {
		if errors.Is(err, identity.ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"studentId": req.StudentID})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Identity.ResetPassword(r.Context(), req.StudentID, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"studentId": req.StudentID})
}

// =============================================================================
// STUDENT-FACING
// =============================================================================

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.Registrar.ListCourses(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CourseDTO, 0, len(courses))
	for _, c := range courses {
		dtos = append(dtos, toCourseDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.Registrar.Enroll(r.Context(), req.StudentID, req.CourseID, req.WaitlistConsent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, outcomeStatus(res.Kind), toOutcomeDTO(res))
}

func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.Registrar.Drop(r.Context(), req.StudentID, req.CourseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, outcomeStatus(res.Kind), toOutcomeDTO(res))
}

func (h *Handler) MyCourses(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	standings, err := h.Registrar.MyCourses(r.Context(), studentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]StandingDTO, 0, len(standings))
	for _, s := range standings {
		dtos = append(dtos, StandingDTO{CourseID: s.CourseID, Title: s.Title, Status: s.Status})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN
// =============================================================================

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.Admin.AddCourse(r.Context(), req.CourseID, req.Title, req.MaxSeats)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCourseDTO(c))
}

func (h *Handler) UpdateCourseSeats(w http.ResponseWriter, r *http.Request) {
	var req UpdateSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Admin.UpdateCourseSeats(r.Context(), chi.URLParam(r, "id"), req.MaxSeats); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"maxSeats": req.MaxSeats})
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	enrollments, waitlisted, err := h.Admin.DeleteCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"enrollmentsRemoved": enrollments,
		"waitlistRemoved":    waitlisted,
	})
}

func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	res, err := h.Admin.Promote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, outcomeStatus(res.Kind), toOutcomeDTO(res))
}

func (h *Handler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Admin.ListWaitlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]WaitlistEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, WaitlistEntryDTO{
			CourseID:  e.CourseID,
			CreatedAt: e.CreatedAt,
			StudentID: e.StudentID,
			Name:      e.Name,
			Email:     e.Email,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) DropHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.Admin.DropHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]DropRecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, DropRecordDTO{
			DropID:    rec.DropID,
			StudentID: rec.StudentID,
			CourseID:  rec.CourseID,
			Actor:     string(rec.Actor),
			Reason:    rec.Reason,
			DroppedAt: rec.DroppedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	audits, err := h.Admin.Reconcile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CourseAuditDTO, 0, len(audits))
	for _, a := range audits {
		dtos = append(dtos, CourseAuditDTO{
			CourseID:        a.CourseID,
			MaxSeats:        a.MaxSeats,
			CurrentEnrolled: a.CurrentEnrolled,
			LedgerCount:     a.LedgerCount,
			Consistent:      a.Consistent,
			Utilization:     a.Utilization.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func outcomeStatus(kind enroll.OutcomeKind) int {
	switch kind {
	case enroll.KindOK, enroll.KindWaitlisted, enroll.KindNothingToPromote:
		return http.StatusOK
	case enroll.KindPartialFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case enroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case enroll.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case enroll.IsClientError(err),
		errors.Is(err, identity.ErrInvalidStudentID),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrPasswordTooShort),
		errors.Is(err, identity.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, enroll.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorDTO{Error: message})
}
