package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus/registration-engine/api"
	"github.com/campus/registration-engine/enroll"
	"github.com/campus/registration-engine/enroll/store"
	"github.com/campus/registration-engine/identity"
)

const adminToken = "test-admin-token"

func newServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	registrar := enroll.NewRegistrar(m.Courses, m.Enrollments, m.Waitlist, m.Drops, m.Students)
	admin := enroll.NewAdmin(m.Courses, m.Enrollments, m.Waitlist, m.Drops, registrar)
	id := identity.NewService(m.Students, m.Emails)
	h := api.NewHandler(registrar, admin, id, identity.StaticCredential(adminToken))

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, m
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Admin-Credential": adminToken}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func signup(t *testing.T, srv *httptest.Server, studentID string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", map[string]any{
		"studentId": studentID,
		"name":      "Student " + studentID,
		"email":     studentID + "@campus.edu",
		"password":  "Secur3!pass",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func createCourse(t *testing.T, srv *httptest.Server, courseID string, maxSeats int) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/courses", map[string]any{
		"courseId": courseID,
		"title":    "Course " + courseID,
		"maxSeats": maxSeats,
	}, adminHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// AUTH
// =============================================================================

func TestSignupAndLogin(t *testing.T) {
	srv, _ := newServer(t)
	signup(t, srv, "stu001")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", map[string]any{
		"studentId": "stu001",
		"password":  "Secur3!pass",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", map[string]any{
		"studentId": "stu001",
		"password":  "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignup_WeakPassword(t *testing.T) {
	srv, _ := newServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", map[string]any{
		"studentId": "stu001",
		"name":      "Ada",
		"email":     "ada@campus.edu",
		"password":  "password",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResetPassword(t *testing.T) {
	srv, _ := newServer(t)
	signup(t, srv, "stu001")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/reset", map[string]any{
		"studentId":   "stu001",
		"newPassword": "new1",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", map[string]any{
		"studentId": "stu001",
		"password":  "new1",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// ADMIN GATE
// =============================================================================

func TestAdminRoutes_RequireCredential(t *testing.T) {
	srv, _ := newServer(t)

	body := map[string]any{"courseId": "CS101", "title": "Intro", "maxSeats": 2}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/courses", body, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/courses", body,
		map[string]string{"X-Admin-Credential": "wrong-token"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/courses", body, adminHeaders())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// ENROLL / DROP OUTCOMES
// =============================================================================

func TestEnroll_OutcomeKindsAndStatuses(t *testing.T) {
	srv, _ := newServer(t)
	signup(t, srv, "stu001")
	signup(t, srv, "stu002")
	createCourse(t, srv, "CS101", 1)

	enrollReq := func(studentID string, consent bool) (*http.Response, api.OutcomeDTO) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]any{
			"studentId":       studentID,
			"courseId":        "CS101",
			"waitlistConsent": consent,
		}, nil)
		return resp, decode[api.OutcomeDTO](t, resp)
	}

	resp, out := enrollReq("stu001", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out.Kind)

	resp, out = enrollReq("stu001", false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_enrolled", out.Kind)

	resp, out = enrollReq("stu002", false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "full_needs_consent", out.Kind)

	resp, out = enrollReq("stu002", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "waitlisted", out.Kind)
}

func TestDrop_PromotesAndReportsInBody(t *testing.T) {
	srv, _ := newServer(t)
	signup(t, srv, "stu001")
	signup(t, srv, "stu002")
	createCourse(t, srv, "CS101", 1)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]any{
		"studentId": "stu001", "courseId": "CS101",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]any{
		"studentId": "stu002", "courseId": "CS101", "waitlistConsent": true,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/drops", map[string]any{
		"studentId": "stu001", "courseId": "CS101",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[api.OutcomeDTO](t, resp)
	assert.Equal(t, "ok", out.Kind)
	assert.Equal(t, "stu002", out.Promoted)
}

func TestEnroll_UnknownCourse_404(t *testing.T) {
	srv, _ := newServer(t)
	signup(t, srv, "stu001")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]any{
		"studentId": "stu001", "courseId": "NOPE",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

func TestListCourses_IncludesSeatsLeft(t *testing.T) {
	srv, _ := newServer(t)
	signup(t, srv, "stu001")
	createCourse(t, srv, "CS101", 3)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]any{
		"studentId": "stu001", "courseId": "CS101",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/courses", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	courses := decode[[]api.CourseDTO](t, resp)
	require.Len(t, courses, 1)
	assert.Equal(t, 2, courses[0].SeatsLeft)
}

func TestMyCourses_ReportsStatusPerCourse(t *testing.T) {
	srv, _ := newServer(t)
	signup(t, srv, "stu001")
	signup(t, srv, "stu002")
	createCourse(t, srv, "CS101", 2)
	createCourse(t, srv, "CS102", 1)

	for _, req := range []map[string]any{
		{"studentId": "stu001", "courseId": "CS101"},
		{"studentId": "stu002", "courseId": "CS102"},
		{"studentId": "stu001", "courseId": "CS102", "waitlistConsent": true},
	} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", req, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/students/stu001/courses", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	standings := decode[[]api.StandingDTO](t, resp)
	require.Len(t, standings, 2)

	byCourse := map[string]string{}
	for _, s := range standings {
		byCourse[s.CourseID] = s.Status
	}
	assert.Equal(t, "ENROLLED", byCourse["CS101"])
	assert.Equal(t, "WAITLIST", byCourse["CS102"])
}

func TestAdminWaitlistAndReconcile(t *testing.T) {
	srv, _ := newServer(t)
	createCourse(t, srv, "CS101", 1)
	for i := 1; i <= 2; i++ {
		signup(t, srv, fmt.Sprintf("stu%03d", i))
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]any{
		"studentId": "stu001", "courseId": "CS101",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]any{
		"studentId": "stu002", "courseId": "CS101", "waitlistConsent": true,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/admin/courses/CS101/waitlist", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]api.WaitlistEntryDTO](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "stu002", entries[0].StudentID)
	assert.Equal(t, "stu002@campus.edu", entries[0].Email)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/admin/reconcile", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	audits := decode[[]api.CourseAuditDTO](t, resp)
	require.Len(t, audits, 1)
	assert.True(t, audits[0].Consistent)
	assert.Equal(t, "1", audits[0].Utilization)
}

func TestAdminPromote_EmptyWaitlist(t *testing.T) {
	srv, _ := newServer(t)
	createCourse(t, srv, "CS101", 1)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/courses/CS101/promote", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[api.OutcomeDTO](t, resp)
	assert.Equal(t, "nothing_to_promote", out.Kind)
}

func TestAdminDeleteCourse_ReturnsCounts(t *testing.T) {
	srv, _ := newServer(t)
	createCourse(t, srv, "CS101", 1)
	signup(t, srv, "stu001")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/enrollments", map[string]any{
		"studentId": "stu001", "courseId": "CS101",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/admin/courses/CS101", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counts := decode[map[string]int](t, resp)
	assert.Equal(t, 1, counts["enrollmentsRemoved"])
	assert.Equal(t, 0, counts["waitlistRemoved"])
}
