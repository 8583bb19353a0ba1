package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/app/repositories"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
)

// fakeLedger is an in-memory SeatLedger. The mutex stands in for the section
// row lock and the state copy taken before each callback stands in for
// transaction rollback, so service logic sees the same atomicity it gets
// from the real ledger.
type fakeLedger struct {
	mu          sync.Mutex
	users       map[int64]*models.User
	sections    map[int64]*models.Section
	enrollments map[int64]map[int64]*models.Enrollment // sectionID -> studentID
	waitlist    []*models.WaitlistEntry
	nextID      int64
	clock       time.Time

	// failLocks makes the next N WithSectionLock calls fail with
	// ErrLockTimeout before running the callback.
	failLocks int
	lockCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		users:       make(map[int64]*models.User),
		sections:    make(map[int64]*models.Section),
		enrollments: make(map[int64]map[int64]*models.Enrollment),
		clock:       time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
	}
}

func (l *fakeLedger) nextIdentity() int64 {
	l.nextID++
	return l.nextID
}

func (l *fakeLedger) tick() time.Time {
	l.clock = l.clock.Add(time.Second)
	return l.clock
}

func (l *fakeLedger) addUser(name string) *models.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	user := &models.User{
		ID:        l.nextIdentity(),
		Email:     fmt.Sprintf("%s@test.edu", name),
		FirstName: name,
		RoleType:  models.RoleStudent,
	}
	l.users[user.ID] = user
	return user
}

func (l *fakeLedger) addSection(capacity int, semester, scheduleText string) *models.Section {
	l.mu.Lock()
	defer l.mu.Unlock()
	section := &models.Section{
		ID:       l.nextIdentity(),
		CourseID: 1,
		Semester: semester,
		Capacity: capacity,
		Schedule: scheduleText,
		Course:   &models.Course{ID: 1, Code: "CS101"},
	}
	l.sections[section.ID] = section
	l.enrollments[section.ID] = make(map[int64]*models.Enrollment)
	return section
}

func (l *fakeLedger) addEnrollment(studentID, sectionID int64) *models.Enrollment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.createEnrollmentLocked(studentID, sectionID)
}

func (l *fakeLedger) createEnrollmentLocked(studentID, sectionID int64) *models.Enrollment {
	enrollment := &models.Enrollment{
		ID:         l.nextIdentity(),
		StudentID:  studentID,
		SectionID:  sectionID,
		EnrolledAt: l.tick(),
	}
	l.enrollments[sectionID][studentID] = enrollment
	return enrollment
}

func (l *fakeLedger) addWaitlistEntry(studentID, sectionID int64) *models.WaitlistEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := &models.WaitlistEntry{
		ID:        l.nextIdentity(),
		StudentID: studentID,
		SectionID: sectionID,
		JoinedAt:  l.tick(),
	}
	l.waitlist = append(l.waitlist, entry)
	return entry
}

func (l *fakeLedger) enrolledCount(sectionID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.enrollments[sectionID])
}

func (l *fakeLedger) waitlistFor(sectionID int64) []*models.WaitlistEntry {
	var entries []*models.WaitlistEntry
	for _, e := range l.waitlist {
		if e.SectionID == sectionID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].JoinedAt.Equal(entries[j].JoinedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
	return entries
}

func (l *fakeLedger) snapshot() (map[int64]map[int64]*models.Enrollment, []*models.WaitlistEntry) {
	enrollments := make(map[int64]map[int64]*models.Enrollment, len(l.enrollments))
	for sectionID, bySection := range l.enrollments {
		inner := make(map[int64]*models.Enrollment, len(bySection))
		for studentID, e := range bySection {
			inner[studentID] = e
		}
		enrollments[sectionID] = inner
	}
	waitlist := make([]*models.WaitlistEntry, len(l.waitlist))
	copy(waitlist, l.waitlist)
	return enrollments, waitlist
}

// WithSectionLock implements the services.SeatLedger interface.
func (l *fakeLedger) WithSectionLock(ctx context.Context, sectionID int64, fn func(ctx context.Context, tx repositories.SectionTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lockCalls++
	if l.failLocks > 0 {
		l.failLocks--
		return fmt.Errorf("%w: section %d", apperrors.ErrLockTimeout, sectionID)
	}

	section, ok := l.sections[sectionID]
	if !ok {
		return apperrors.ErrSectionNotFound
	}

	savedEnrollments, savedWaitlist := l.snapshot()
	err := fn(ctx, &fakeSectionTx{ledger: l, section: section})
	if err != nil {
		l.enrollments = savedEnrollments
		l.waitlist = savedWaitlist
	}
	return err
}

// fakeSectionTx implements repositories.SectionTx against the fake ledger's
// state. The ledger mutex is already held for the whole callback.
type fakeSectionTx struct {
	ledger  *fakeLedger
	section *models.Section
}

func (t *fakeSectionTx) Section() *models.Section { return t.section }

func (t *fakeSectionTx) EnrolledCount(context.Context) (int, error) {
	return len(t.ledger.enrollments[t.section.ID]), nil
}

func (t *fakeSectionTx) HasEnrollment(_ context.Context, studentID int64) (bool, error) {
	_, ok := t.ledger.enrollments[t.section.ID][studentID]
	return ok, nil
}

func (t *fakeSectionTx) CreateEnrollment(_ context.Context, studentID int64) (*models.Enrollment, error) {
	if _, ok := t.ledger.enrollments[t.section.ID][studentID]; ok {
		return nil, apperrors.ErrAlreadyEnrolled
	}
	return t.ledger.createEnrollmentLocked(studentID, t.section.ID), nil
}

func (t *fakeSectionTx) DeleteEnrollment(_ context.Context, studentID int64) (bool, error) {
	if _, ok := t.ledger.enrollments[t.section.ID][studentID]; !ok {
		return false, nil
	}
	delete(t.ledger.enrollments[t.section.ID], studentID)
	return true, nil
}

func (t *fakeSectionTx) HasWaitlistEntry(_ context.Context, studentID int64) (bool, error) {
	for _, e := range t.ledger.waitlist {
		if e.SectionID == t.section.ID && e.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeSectionTx) EnqueueWaitlist(_ context.Context, studentID int64) (*models.WaitlistEntry, error) {
	for _, e := range t.ledger.waitlist {
		if e.SectionID == t.section.ID && e.StudentID == studentID {
			return nil, apperrors.ErrAlreadyWaitlisted
		}
	}
	entry := &models.WaitlistEntry{
		ID:        t.ledger.nextIdentity(),
		StudentID: studentID,
		SectionID: t.section.ID,
		JoinedAt:  t.ledger.tick(),
	}
	t.ledger.waitlist = append(t.ledger.waitlist, entry)
	return entry, nil
}

func (t *fakeSectionTx) WaitlistHead(context.Context) (*models.WaitlistEntry, error) {
	entries := t.ledger.waitlistFor(t.section.ID)
	if len(entries) == 0 {
		return nil, apperrors.ErrWaitlistEntryNotFound
	}
	return entries[0], nil
}

func (t *fakeSectionTx) WaitlistEntryByID(_ context.Context, entryID int64) (*models.WaitlistEntry, error) {
	for _, e := range t.ledger.waitlist {
		if e.ID == entryID {
			return e, nil
		}
	}
	return nil, apperrors.ErrWaitlistEntryNotFound
}

func (t *fakeSectionTx) RemoveWaitlistEntry(_ context.Context, entryID int64) (bool, error) {
	for i, e := range t.ledger.waitlist {
		if e.ID == entryID {
			t.ledger.waitlist = append(t.ledger.waitlist[:i:i], t.ledger.waitlist[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeSectionTx) WaitlistPosition(_ context.Context, entry *models.WaitlistEntry) (int, error) {
	for i, e := range t.ledger.waitlistFor(entry.SectionID) {
		if e.ID == entry.ID {
			return i + 1, nil
		}
	}
	return 0, apperrors.ErrWaitlistEntryNotFound
}

func (t *fakeSectionTx) StudentEnrollments(_ context.Context, studentID int64, semester string) ([]*models.Enrollment, error) {
	var result []*models.Enrollment
	for sectionID, bySection := range t.ledger.enrollments {
		enrollment, ok := bySection[studentID]
		if !ok {
			continue
		}
		section := t.ledger.sections[sectionID]
		if section == nil || section.Semester != semester {
			continue
		}
		attached := *enrollment
		attached.Section = section
		result = append(result, &attached)
	}
	return result, nil
}

// fakeReaders adapts the ledger's state to the unlocked read interfaces the
// services take.
type fakeReaders struct {
	ledger *fakeLedger
}

func (r *fakeReaders) GetByStudent(_ context.Context, studentID int64) ([]*models.Enrollment, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	var result []*models.Enrollment
	for sectionID, bySection := range r.ledger.enrollments {
		if enrollment, ok := bySection[studentID]; ok {
			attached := *enrollment
			attached.Section = r.ledger.sections[sectionID]
			result = append(result, &attached)
		}
	}
	return result, nil
}

type fakeWaitlistReader struct {
	ledger *fakeLedger
}

func (r *fakeWaitlistReader) GetByID(_ context.Context, id int64) (*models.WaitlistEntry, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	for _, e := range r.ledger.waitlist {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, apperrors.ErrWaitlistEntryNotFound
}

func (r *fakeWaitlistReader) GetByStudentAndSection(_ context.Context, studentID, sectionID int64) (*models.WaitlistEntry, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	for _, e := range r.ledger.waitlist {
		if e.StudentID == studentID && e.SectionID == sectionID {
			return e, nil
		}
	}
	return nil, apperrors.ErrWaitlistEntryNotFound
}

func (r *fakeWaitlistReader) Position(_ context.Context, entry *models.WaitlistEntry) (int, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	for i, e := range r.ledger.waitlistFor(entry.SectionID) {
		if e.ID == entry.ID {
			return i + 1, nil
		}
	}
	return 0, apperrors.ErrWaitlistEntryNotFound
}

func (r *fakeWaitlistReader) GetByStudent(_ context.Context, studentID int64) ([]*models.WaitlistEntry, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	var result []*models.WaitlistEntry
	for _, e := range r.ledger.waitlist {
		if e.StudentID == studentID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *fakeWaitlistReader) GetBySection(_ context.Context, sectionID int64) ([]*models.WaitlistEntry, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	var result []*models.WaitlistEntry
	for _, e := range r.ledger.waitlistFor(sectionID) {
		attached := *e
		attached.Student = r.ledger.users[e.StudentID]
		result = append(result, &attached)
	}
	return result, nil
}

func (r *fakeWaitlistReader) MarkNotified(_ context.Context, id int64) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	for _, e := range r.ledger.waitlist {
		if e.ID == id {
			e.Notified = true
			return nil
		}
	}
	return apperrors.ErrWaitlistEntryNotFound
}

type fakeSectionGetter struct {
	ledger *fakeLedger
}

func (g *fakeSectionGetter) GetByID(_ context.Context, id int64) (*models.Section, error) {
	g.ledger.mu.Lock()
	defer g.ledger.mu.Unlock()
	section, ok := g.ledger.sections[id]
	if !ok {
		return nil, apperrors.ErrSectionNotFound
	}
	return section, nil
}

type fakeUserGetter struct {
	ledger *fakeLedger
}

func (g *fakeUserGetter) GetByID(_ context.Context, id int64) (*models.User, error) {
	g.ledger.mu.Lock()
	defer g.ledger.mu.Unlock()
	user, ok := g.ledger.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

// fakeScheduler records scheduled jobs instead of dispatching them.
type fakeScheduler struct {
	mu         sync.Mutex
	promotions []int64
	positions  []int64
}

func (s *fakeScheduler) SchedulePromotion(_ context.Context, sectionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promotions = append(s.promotions, sectionID)
	return nil
}

func (s *fakeScheduler) SchedulePositionNotifications(_ context.Context, sectionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, sectionID)
	return nil
}

// fakeNotifier records sent notifications.
type positionNote struct {
	studentID int64
	position  int
	total     int
}

type fakeNotifier struct {
	mu        sync.Mutex
	promoted  []int64
	conflicts []int64
	positions []positionNote
}

func (n *fakeNotifier) NotifyPromoted(student *models.User, _ *models.Section) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.promoted = append(n.promoted, student.ID)
	return nil
}

func (n *fakeNotifier) NotifyConflictSkipped(student *models.User, _, _ *models.Section) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conflicts = append(n.conflicts, student.ID)
	return nil
}

func (n *fakeNotifier) NotifyPositionChanged(student *models.User, _ *models.Section, position, total int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.positions = append(n.positions, positionNote{studentID: student.ID, position: position, total: total})
	return nil
}
