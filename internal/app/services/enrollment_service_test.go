package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okaya/courseregistry/internal/pkg/apperrors"
)

func newEnrollmentHarness() (*fakeLedger, *fakeScheduler, *EnrollmentService) {
	ledger := newFakeLedger()
	scheduler := &fakeScheduler{}
	service := NewEnrollmentService(
		ledger,
		&fakeReaders{ledger: ledger},
		&fakeWaitlistReader{ledger: ledger},
		scheduler,
		nil,
	)
	return ledger, scheduler, service
}

func TestEnrollClaimsSeat(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	section := ledger.addSection(2, "Fall 2026", "Mon/Wed 10:00-11:30")

	outcome, err := service.Enroll(context.Background(), student.ID, section.ID)
	require.NoError(t, err)

	assert.True(t, outcome.Enrolled)
	require.NotNil(t, outcome.Enrollment)
	assert.Equal(t, student.ID, outcome.Enrollment.StudentID)
	assert.Equal(t, 1, ledger.enrolledCount(section.ID))
}

func TestEnrollFullSectionJoinsWaitlist(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	first := ledger.addUser("ada")
	second := ledger.addUser("grace")
	third := ledger.addUser("edsger")
	section := ledger.addSection(1, "Fall 2026", "Mon/Wed 10:00-11:30")
	ledger.addEnrollment(first.ID, section.ID)

	outcome, err := service.Enroll(context.Background(), second.ID, section.ID)
	require.NoError(t, err)
	assert.False(t, outcome.Enrolled)
	assert.Equal(t, 1, outcome.Position)

	outcome, err = service.Enroll(context.Background(), third.ID, section.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Position)

	// The seat count never moved.
	assert.Equal(t, 1, ledger.enrolledCount(section.ID))
}

func TestEnrollRejectsDuplicateEnrollment(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	section := ledger.addSection(5, "Fall 2026", "")
	ledger.addEnrollment(student.ID, section.ID)

	_, err := service.Enroll(context.Background(), student.ID, section.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyEnrolled)
}

func TestEnrollRejectsDuplicateWaitlistEntry(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	section := ledger.addSection(5, "Fall 2026", "")
	ledger.addWaitlistEntry(student.ID, section.ID)

	_, err := service.Enroll(context.Background(), student.ID, section.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyWaitlisted)
}

func TestEnrollSectionNotFound(t *testing.T) {
	_, _, service := newEnrollmentHarness()

	_, err := service.Enroll(context.Background(), 1, 99)
	assert.ErrorIs(t, err, apperrors.ErrSectionNotFound)
}

func TestEnrollScheduleConflict(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	existing := ledger.addSection(10, "Fall 2026", "Mon/Wed 10:00-11:30")
	ledger.addEnrollment(student.ID, existing.ID)

	overlapping := ledger.addSection(10, "Fall 2026", "Mon 11:00-12:00")
	_, err := service.Enroll(context.Background(), student.ID, overlapping.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrScheduleConflict)

	var custom *apperrors.CustomError
	require.ErrorAs(t, err, &custom)
	assert.Equal(t, existing.ID, custom.Details["conflictingSectionId"])

	// The failed attempt must not leave anything behind.
	assert.Equal(t, 0, ledger.enrolledCount(overlapping.ID))
}

func TestEnrollTouchingMeetingTimesDoNotConflict(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	existing := ledger.addSection(10, "Fall 2026", "Mon 10:00-11:30")
	ledger.addEnrollment(student.ID, existing.ID)

	adjacent := ledger.addSection(10, "Fall 2026", "Mon 11:30-13:00")
	outcome, err := service.Enroll(context.Background(), student.ID, adjacent.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Enrolled)
}

func TestEnrollDifferentSemesterNeverConflicts(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	existing := ledger.addSection(10, "Fall 2026", "Mon/Wed 10:00-11:30")
	ledger.addEnrollment(student.ID, existing.ID)

	spring := ledger.addSection(10, "Spring 2027", "Mon/Wed 10:00-11:30")
	outcome, err := service.Enroll(context.Background(), student.ID, spring.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Enrolled)
}

func TestEnrollUnparseableScheduleNeverConflicts(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	existing := ledger.addSection(10, "Fall 2026", "Mon/Wed 10:00-11:30")
	ledger.addEnrollment(student.ID, existing.ID)

	tba := ledger.addSection(10, "Fall 2026", "TBA")
	outcome, err := service.Enroll(context.Background(), student.ID, tba.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Enrolled)
}

func TestEnrollWaitlistPathSkipsConflictCheck(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	taken := ledger.addUser("grace")
	existing := ledger.addSection(10, "Fall 2026", "Mon/Wed 10:00-11:30")
	ledger.addEnrollment(student.ID, existing.ID)

	// Full section whose meeting times collide with the student's existing
	// enrollment: joining the waitlist is still allowed, the conflict is
	// re-evaluated at promotion time.
	full := ledger.addSection(1, "Fall 2026", "Mon 10:30-11:00")
	ledger.addEnrollment(taken.ID, full.ID)

	outcome, err := service.Enroll(context.Background(), student.ID, full.ID)
	require.NoError(t, err)
	assert.False(t, outcome.Enrolled)
	assert.Equal(t, 1, outcome.Position)
}

func TestEnrollRetriesOnceAfterLockTimeout(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	section := ledger.addSection(2, "Fall 2026", "")
	ledger.failLocks = 1

	outcome, err := service.Enroll(context.Background(), student.ID, section.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Enrolled)
	assert.Equal(t, 2, ledger.lockCalls)
}

func TestEnrollSurfacesLockTimeoutAfterRetry(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	section := ledger.addSection(2, "Fall 2026", "")
	ledger.failLocks = 2

	_, err := service.Enroll(context.Background(), student.ID, section.ID)
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)
	assert.Equal(t, 2, ledger.lockCalls)
}

func TestDropFreesSeatAndSchedulesPromotion(t *testing.T) {
	ledger, scheduler, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	section := ledger.addSection(1, "Fall 2026", "")
	ledger.addEnrollment(student.ID, section.ID)

	err := service.Drop(context.Background(), student.ID, section.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, ledger.enrolledCount(section.ID))
	assert.Equal(t, []int64{section.ID}, scheduler.promotions)
}

func TestDropNotEnrolled(t *testing.T) {
	ledger, scheduler, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	section := ledger.addSection(1, "Fall 2026", "")

	err := service.Drop(context.Background(), student.ID, section.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotEnrolled)
	assert.Empty(t, scheduler.promotions)
}

func TestLeaveWaitlistRemovesEntryAndSchedulesPositionNotifications(t *testing.T) {
	ledger, scheduler, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	behind := ledger.addUser("grace")
	section := ledger.addSection(0, "Fall 2026", "")
	entry := ledger.addWaitlistEntry(student.ID, section.ID)
	ledger.addWaitlistEntry(behind.ID, section.ID)

	err := service.LeaveWaitlist(context.Background(), student.ID, entry.ID)
	require.NoError(t, err)

	remaining := ledger.waitlistFor(section.ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, behind.ID, remaining[0].StudentID)
	assert.Equal(t, []int64{section.ID}, scheduler.positions)
}

func TestLeaveWaitlistRejectsForeignEntry(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	owner := ledger.addUser("ada")
	other := ledger.addUser("grace")
	section := ledger.addSection(0, "Fall 2026", "")
	entry := ledger.addWaitlistEntry(owner.ID, section.ID)

	err := service.LeaveWaitlist(context.Background(), other.ID, entry.ID)
	assert.ErrorIs(t, err, apperrors.ErrWaitlistEntryNotOwned)

	// The entry survives.
	assert.Len(t, ledger.waitlistFor(section.ID), 1)
}

func TestLeaveWaitlistMissingEntry(t *testing.T) {
	_, _, service := newEnrollmentHarness()

	err := service.LeaveWaitlist(context.Background(), 1, 42)
	assert.ErrorIs(t, err, apperrors.ErrWaitlistEntryNotFound)
}

func TestPositionReportsFIFOOrder(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	first := ledger.addUser("ada")
	second := ledger.addUser("grace")
	section := ledger.addSection(0, "Fall 2026", "")
	ledger.addWaitlistEntry(first.ID, section.ID)
	ledger.addWaitlistEntry(second.ID, section.ID)

	_, position, err := service.Position(context.Background(), first.ID, section.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	_, position, err = service.Position(context.Background(), second.ID, section.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, position)
}

func TestPositionTieBreaksOnIdentity(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	first := ledger.addUser("ada")
	second := ledger.addUser("grace")
	section := ledger.addSection(0, "Fall 2026", "")
	a := ledger.addWaitlistEntry(first.ID, section.ID)
	b := ledger.addWaitlistEntry(second.ID, section.ID)
	b.JoinedAt = a.JoinedAt

	_, position, err := service.Position(context.Background(), first.ID, section.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	_, position, err = service.Position(context.Background(), second.ID, section.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, position)
}

func TestPositionNotWaitlisted(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	section := ledger.addSection(0, "Fall 2026", "")

	_, _, err := service.Position(context.Background(), student.ID, section.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotWaitlisted)
}

func TestConcurrentEnrollmentNeverOversubscribes(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	section := ledger.addSection(3, "Fall 2026", "")

	const students = 10
	ids := make([]int64, students)
	for i := range ids {
		ids[i] = ledger.addUser("student").ID
	}

	var wg sync.WaitGroup
	outcomes := make([]*EnrollmentOutcome, students)
	errs := make([]error, students)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, studentID int64) {
			defer wg.Done()
			outcomes[i], errs[i] = service.Enroll(context.Background(), studentID, section.ID)
		}(i, id)
	}
	wg.Wait()

	enrolled, waitlisted := 0, 0
	for i := range outcomes {
		require.NoError(t, errs[i])
		if outcomes[i].Enrolled {
			enrolled++
		} else {
			waitlisted++
		}
	}

	assert.Equal(t, 3, enrolled)
	assert.Equal(t, 7, waitlisted)
	assert.Equal(t, 3, ledger.enrolledCount(section.ID))
	assert.Len(t, ledger.waitlistFor(section.ID), 7)
}

func TestEnrollmentAndWaitlistStayMutuallyExclusive(t *testing.T) {
	ledger, _, service := newEnrollmentHarness()
	student := ledger.addUser("ada")
	taken := ledger.addUser("grace")
	section := ledger.addSection(1, "Fall 2026", "")
	ledger.addEnrollment(taken.ID, section.ID)

	outcome, err := service.Enroll(context.Background(), student.ID, section.ID)
	require.NoError(t, err)
	require.False(t, outcome.Enrolled)

	// A second attempt while waitlisted is rejected, never double-queued.
	_, err = service.Enroll(context.Background(), student.ID, section.ID)
	require.ErrorIs(t, err, apperrors.ErrAlreadyWaitlisted)
	assert.Len(t, ledger.waitlistFor(section.ID), 1)

	// After the seat frees up and the student is enrolled directly, the
	// stale waitlist state cannot coexist with the enrollment.
	err = service.Drop(context.Background(), taken.ID, section.ID)
	require.NoError(t, err)

	entry := ledger.waitlistFor(section.ID)[0]
	err = service.LeaveWaitlist(context.Background(), student.ID, entry.ID)
	require.NoError(t, err)

	outcome, err = service.Enroll(context.Background(), student.ID, section.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Enrolled)
	assert.Empty(t, ledger.waitlistFor(section.ID))
}

func TestDropRollsBackNothingOnUnknownSection(t *testing.T) {
	ledger, scheduler, service := newEnrollmentHarness()
	student := ledger.addUser("ada")

	err := service.Drop(context.Background(), student.ID, 404)
	assert.True(t, errors.Is(err, apperrors.ErrSectionNotFound))
	assert.Empty(t, scheduler.promotions)
}
