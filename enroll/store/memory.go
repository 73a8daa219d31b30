// Package store provides an in-memory implementation of the enrollment
// engine's persistence interfaces, for testing and development.
//
// All collections share a single mutex, which makes every operation
// trivially a single linearizable "round trip". The conditional
// semantics (reserve-if-room, delete-if-exists, put-if-absent) match the
// production SQLite backend exactly.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campus/registration-engine/enroll"
)

// Memory bundles one store per collection over shared state.
type Memory struct {
	Courses     *MemoryCourses
	Enrollments *MemoryEnrollments
	Waitlist    *MemoryWaitlist
	Drops       *MemoryDrops
	Students    *MemoryStudents
	Emails      *MemoryEmails
}

func NewMemory() *Memory {
	s := &state{
		courses:    make(map[string]enroll.Course),
		enrolls:    make(map[pairKey]enroll.Enrollment),
		waitlist:   make(map[string][]enroll.WaitlistEntry),
		students:   make(map[string]enroll.Student),
		emailIndex: make(map[string]string),
	}
	return &Memory{
		Courses:     &MemoryCourses{s},
		Enrollments: &MemoryEnrollments{s},
		Waitlist:    &MemoryWaitlist{s},
		Drops:       &MemoryDrops{s},
		Students:    &MemoryStudents{s},
		Emails:      &MemoryEmails{s},
	}
}

type state struct {
	mu         sync.Mutex
	courses    map[string]enroll.Course
	enrolls    map[pairKey]enroll.Enrollment
	waitlist   map[string][]enroll.WaitlistEntry // courseID -> entries, createdAt ascending
	dropLog    []enroll.DropRecord
	students   map[string]enroll.Student
	emailIndex map[string]string // normalized email -> studentID

	lastTick int64
}

type pairKey struct {
	StudentID string
	CourseID  string
}

// tick returns a strictly increasing nanosecond timestamp. Callers must
// hold mu.
func (s *state) tick() int64 {
	now := time.Now().UnixNano()
	if now <= s.lastTick {
		now = s.lastTick + 1
	}
	s.lastTick = now
	return now
}

// =============================================================================
// COURSE STORE
// =============================================================================

type MemoryCourses struct{ s *state }

func (m *MemoryCourses) Get(_ context.Context, courseID string) (enroll.Course, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, found := m.s.courses[courseID]
	if !found {
		return enroll.Course{}, enroll.ErrCourseNotFound
	}
	return c, nil
}

func (m *MemoryCourses) List(_ context.Context) ([]enroll.Course, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	out := make([]enroll.Course, 0, len(m.s.courses))
	for _, c := range m.s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (m *MemoryCourses) Create(_ context.Context, c enroll.Course) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, taken := m.s.courses[c.CourseID]; taken {
		return enroll.ErrCourseExists
	}
	m.s.courses[c.CourseID] = c
	return nil
}

func (m *MemoryCourses) UpdateMaxSeats(_ context.Context, courseID string, maxSeats int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, found := m.s.courses[courseID]
	if !found {
		return enroll.ErrCourseNotFound
	}
	c.MaxSeats = maxSeats
	m.s.courses[courseID] = c
	return nil
}

func (m *MemoryCourses) Delete(_ context.Context, courseID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	delete(m.s.courses, courseID)
	return nil
}

// ReserveSeat evaluates the predicate and increments under one lock,
// matching the single-round-trip conditional write of the production
// store: exactly one of N concurrent callers gets the last seat.
func (m *MemoryCourses) ReserveSeat(_ context.Context, courseID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, found := m.s.courses[courseID]
	if !found || c.CurrentEnrolled >= c.MaxSeats {
		return false, nil
	}
	c.CurrentEnrolled++
	m.s.courses[courseID] = c
	return true, nil
}

func (m *MemoryCourses) ReleaseSeat(_ context.Context, courseID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, found := m.s.courses[courseID]
	if !found || c.CurrentEnrolled <= 0 {
		return false, nil
	}
	c.CurrentEnrolled--
	m.s.courses[courseID] = c
	return true, nil
}

// =============================================================================
// ENROLLMENT STORE
// =============================================================================

type MemoryEnrollments struct{ s *state }

func (m *MemoryEnrollments) Put(_ context.Context, e enroll.Enrollment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.enrolls[pairKey{e.StudentID, e.CourseID}] = e
	return nil
}

func (m *MemoryEnrollments) Delete(_ context.Context, studentID, courseID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	k := pairKey{studentID, courseID}
	if _, found := m.s.enrolls[k]; !found {
		return false, nil
	}
	delete(m.s.enrolls, k)
	return true, nil
}

func (m *MemoryEnrollments) Exists(_ context.Context, studentID, courseID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	_, found := m.s.enrolls[pairKey{studentID, courseID}]
	return found, nil
}

func (m *MemoryEnrollments) ListByCourse(_ context.Context, courseID string) ([]enroll.Enrollment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []enroll.Enrollment
	for _, e := range m.s.enrolls {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *MemoryEnrollments) ListByStudent(_ context.Context, studentID string) ([]enroll.Enrollment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []enroll.Enrollment
	for _, e := range m.s.enrolls {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (m *MemoryEnrollments) ListAll(_ context.Context) ([]enroll.Enrollment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	out := make([]enroll.Enrollment, 0, len(m.s.enrolls))
	for _, e := range m.s.enrolls {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

// =============================================================================
// WAITLIST STORE
// =============================================================================

type MemoryWaitlist struct{ s *state }

func (m *MemoryWaitlist) Enqueue(_ context.Context, courseID, studentID string, info enroll.DisplayInfo) (enroll.WaitlistEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	entry := enroll.WaitlistEntry{
		CourseID:  courseID,
		CreatedAt: m.s.tick(),
		StudentID: studentID,
		Name:      info.Name,
		Email:     info.Email,
	}
	// tick() is strictly increasing, so appending keeps ascending order.
	m.s.waitlist[courseID] = append(m.s.waitlist[courseID], entry)
	return entry, nil
}

// PopOldest reads and deletes the head under one lock: two concurrent
// pops can never return the same student.
func (m *MemoryWaitlist) PopOldest(_ context.Context, courseID string) (string, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	entries := m.s.waitlist[courseID]
	if len(entries) == 0 {
		return "", false, nil
	}
	head := entries[0]
	m.s.waitlist[courseID] = entries[1:]
	return head.StudentID, true, nil
}

func (m *MemoryWaitlist) RemoveByStudent(_ context.Context, courseID, studentID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	entries := m.s.waitlist[courseID]
	kept := entries[:0:0]
	removed := false
	for _, e := range entries {
		if e.StudentID == studentID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	m.s.waitlist[courseID] = kept
	return removed, nil
}

func (m *MemoryWaitlist) RemoveEntry(_ context.Context, courseID string, createdAt int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	entries := m.s.waitlist[courseID]
	for i, e := range entries {
		if e.CreatedAt == createdAt {
			m.s.waitlist[courseID] = append(entries[:i:i], entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryWaitlist) Contains(_ context.Context, courseID, studentID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, e := range m.s.waitlist[courseID] {
		if e.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryWaitlist) ListByCourse(_ context.Context, courseID string) ([]enroll.WaitlistEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	out := make([]enroll.WaitlistEntry, len(m.s.waitlist[courseID]))
	copy(out, m.s.waitlist[courseID])
	return out, nil
}

func (m *MemoryWaitlist) ListByStudent(_ context.Context, studentID string) ([]enroll.WaitlistEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []enroll.WaitlistEntry
	for _, entries := range m.s.waitlist {
		for _, e := range entries {
			if e.StudentID == studentID {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// =============================================================================
// DROP STORE
// =============================================================================

type MemoryDrops struct{ s *state }

func (m *MemoryDrops) Record(_ context.Context, r enroll.DropRecord) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.dropLog = append(m.s.dropLog, r)

	// Read-back verification. Trivially true in memory, but kept so the
	// contract matches the durable backend.
	for _, rec := range m.s.dropLog {
		if rec.DropID == r.DropID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryDrops) HasDropped(_ context.Context, studentID, courseID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, r := range m.s.dropLog {
		if r.StudentID == studentID && r.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryDrops) ListByCourse(_ context.Context, courseID string) ([]enroll.DropRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []enroll.DropRecord
	for _, r := range m.s.dropLog {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out, nil
}

// =============================================================================
// STUDENT STORE
// =============================================================================

type MemoryStudents struct{ s *state }

func (m *MemoryStudents) Put(_ context.Context, st enroll.Student) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, taken := m.s.students[st.StudentID]; taken {
		return enroll.ErrStudentExists
	}
	m.s.students[st.StudentID] = st
	return nil
}

func (m *MemoryStudents) Get(_ context.Context, studentID string) (enroll.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	st, found := m.s.students[studentID]
	if !found {
		return enroll.Student{}, enroll.ErrStudentNotFound
	}
	return st, nil
}

func (m *MemoryStudents) UpdatePassword(_ context.Context, studentID, passwordHash string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	st, found := m.s.students[studentID]
	if !found {
		return enroll.ErrStudentNotFound
	}
	st.PasswordHash = passwordHash
	m.s.students[studentID] = st
	return nil
}

// =============================================================================
// EMAIL INDEX STORE
// =============================================================================

type MemoryEmails struct{ s *state }

func (m *MemoryEmails) Claim(_ context.Context, email, studentID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, taken := m.s.emailIndex[email]; taken {
		return enroll.ErrEmailTaken
	}
	m.s.emailIndex[email] = studentID
	return nil
}

func (m *MemoryEmails) Exists(_ context.Context, email string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	_, found := m.s.emailIndex[email]
	return found, nil
}
