package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus/registration-engine/enroll"
	"github.com/campus/registration-engine/enroll/store"
	"github.com/campus/registration-engine/identity"
)

func newService() (*identity.Service, *store.Memory) {
	m := store.NewMemory()
	return identity.NewService(m.Students, m.Emails), m
}

// =============================================================================
// SIGNUP
// =============================================================================

func TestSignUp_Success(t *testing.T) {
	ctx := context.Background()
	svc, m := newService()

	err := svc.SignUp(ctx, "stu001", "Ada Lovelace", "Ada@Campus.Edu", "Analyt1c@l")
	require.NoError(t, err)

	s, err := m.Students.Get(ctx, "stu001")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", s.Name)
	assert.Equal(t, "ada@campus.edu", s.Email, "emails are normalized before storage")
	assert.NotEmpty(t, s.PasswordHash)
	assert.NotEqual(t, "Analyt1c@l", s.PasswordHash)

	taken, err := m.Emails.Exists(ctx, "ada@campus.edu")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestSignUp_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	cases := []struct {
		name     string
		id       string
		fullName string
		email    string
		password string
		want     error
	}{
		{"missing fields", "", "Ada", "a@b.co", "Analyt1c@l", identity.ErrMissingCredentials},
		{"bad id", "a!", "Ada", "a@b.co", "Analyt1c@l", identity.ErrInvalidStudentID},
		{"bad email", "stu001", "Ada", "not-an-email", "Analyt1c@l", identity.ErrInvalidEmail},
		{"weak password", "stu001", "Ada", "a@b.co", "password", identity.ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.SignUp(ctx, tc.id, tc.fullName, tc.email, tc.password)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSignUp_DuplicateStudentID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	require.NoError(t, svc.SignUp(ctx, "stu001", "Ada", "ada@campus.edu", "Analyt1c@l"))

	err := svc.SignUp(ctx, "stu001", "Imposter", "other@campus.edu", "Analyt1c@l")
	assert.ErrorIs(t, err, enroll.ErrStudentExists)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	require.NoError(t, svc.SignUp(ctx, "stu001", "Ada", "ada@campus.edu", "Analyt1c@l"))

	err := svc.SignUp(ctx, "stu002", "Other", "ADA@campus.edu", "Analyt1c@l")
	assert.ErrorIs(t, err, enroll.ErrEmailTaken, "email uniqueness is case-insensitive")
}

// =============================================================================
// LOGIN
// =============================================================================

func TestLogin_Roundtrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	require.NoError(t, svc.SignUp(ctx, "stu001", "Ada", "ada@campus.edu", "Analyt1c@l"))

	assert.NoError(t, svc.Login(ctx, "stu001", "Analyt1c@l"))
	assert.ErrorIs(t, svc.Login(ctx, "stu001", "wrong-password"), identity.ErrBadCredentials)
}

func TestLogin_UnknownStudent_SameError(t *testing.T) {
	// An unknown id and a wrong password are indistinguishable to the
	// caller.
	ctx := context.Background()
	svc, _ := newService()

	assert.ErrorIs(t, svc.Login(ctx, "ghost", "whatever"), identity.ErrBadCredentials)
}

// =============================================================================
// RESET
// =============================================================================

func TestResetPassword_Roundtrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	require.NoError(t, svc.SignUp(ctx, "stu001", "Ada", "ada@campus.edu", "Analyt1c@l"))
	require.NoError(t, svc.ResetPassword(ctx, "stu001", "new1"))

	assert.NoError(t, svc.Login(ctx, "stu001", "new1"))
	assert.ErrorIs(t, svc.Login(ctx, "stu001", "Analyt1c@l"), identity.ErrBadCredentials)
}

func TestResetPassword_TooShort(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	require.NoError(t, svc.SignUp(ctx, "stu001", "Ada", "ada@campus.edu", "Analyt1c@l"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, "stu001", "abc"), identity.ErrPasswordTooShort)
}

func TestResetPassword_UnknownStudent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	assert.ErrorIs(t, svc.ResetPassword(ctx, "ghost", "new1"), enroll.ErrStudentNotFound)
}

// =============================================================================
// AUTHORIZER
// =============================================================================

func TestStaticCredential(t *testing.T) {
	auth := identity.StaticCredential("hunter2")
	assert.True(t, auth.Authorize(context.Background(), "hunter2"))
	assert.False(t, auth.Authorize(context.Background(), ""))
	assert.False(t, auth.Authorize(context.Background(), "guess"))
}
