/*
Package identity handles student accounts and administrator authorization.

PURPOSE:
  Signup (conditional insert on student id plus an email-index claim for
  email uniqueness), login (bcrypt verify), and password reset. The
  enrollment engine treats this package as an external collaborator: it
  only ever reads students through enroll.StudentStore.

PARTIAL FAILURE:
  Signup writes the student row and then claims the email. The two writes
  are not transactional; a crash in between leaves the email unclaimed.
  The next signup with that email will claim it, so the window is benign.

AUTHORIZATION:
  Admin access is an injected Authorizer. StaticCredential is the
  fixed-credential implementation; production deployments can substitute
  a policy service without touching the engine.
*/
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/campus/registration-engine/enroll"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrInvalidStudentID   = errors.New("invalid student id format")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("weak password: need 8+ chars with upper, lower and special")
	ErrBadCredentials     = errors.New("invalid student id or password")
	ErrPasswordTooShort   = errors.New("password must be at least 4 characters")
	ErrMissingCredentials = errors.New("all fields are required")
)

// =============================================================================
// SERVICE
// =============================================================================

// Service provides account operations over the student store and the
// email uniqueness index.
type Service struct {
	students enroll.StudentStore
	emails   enroll.EmailIndexStore
}

func NewService(students enroll.StudentStore, emails enroll.EmailIndexStore) *Service {
	return &Service{students: students, emails: emails}
}

// SignUp creates a student account. The student row is a conditional
// insert (duplicate id rejected by the store); the email is claimed in
// the index so two accounts can never share one address.
func (s *Service) SignUp(ctx context.Context, studentID, name, email, password string) error {
	if studentID == "" || name == "" || email == "" || password == "" {
		return ErrMissingCredentials
	}
	studentID = strings.TrimSpace(studentID)
	email = NormalizeEmail(email)

	if !ValidStudentID(studentID) {
		return ErrInvalidStudentID
	}
	if !ValidEmail(email) {
		return ErrInvalidEmail
	}
	if !ValidPassword(password) {
		return ErrWeakPassword
	}

	if taken, err := s.emails.Exists(ctx, email); err != nil {
		return fmt.Errorf("check email: %w", err)
	} else if taken {
		return enroll.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.students.Put(ctx, enroll.Student{
		StudentID:    studentID,
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
	}); err != nil {
		return err
	}
	return s.emails.Claim(ctx, email, studentID)
}

// Login verifies the student's password.
func (s *Service) Login(ctx context.Context, studentID, password string) error {
	st, err := s.students.Get(ctx, strings.TrimSpace(studentID))
	if err != nil {
		if errors.Is(err, enroll.ErrStudentNotFound) {
			return ErrBadCredentials
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)) != nil {
		return ErrBadCredentials
	}
	return nil
}

// ResetPassword replaces the student's password hash. The length floor
// here is intentionally looser than signup's strength rule.
func (s *Service) ResetPassword(ctx context.Context, studentID, newPassword string) error {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return ErrMissingCredentials
	}
	if len(newPassword) < 4 {
		return ErrPasswordTooShort
	}

	if _, err := s.students.Get(ctx, studentID); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.students.UpdatePassword(ctx, studentID, string(hash))
}

// =============================================================================
// ADMIN AUTHORIZATION
// =============================================================================

// Authorizer decides whether a presented credential grants admin access.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) bool
}

// StaticCredential authorizes a single fixed credential.
type StaticCredential string

func (c StaticCredential) Authorize(_ context.Context, credential string) bool {
	return credential != "" && credential == string(c)
}
