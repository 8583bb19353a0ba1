package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okaya/courseregistry/internal/pkg/apperrors"
)

func newPromotionHarness() (*fakeLedger, *fakeNotifier, *PromotionService) {
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	service := NewPromotionService(
		ledger,
		&fakeWaitlistReader{ledger: ledger},
		&fakeSectionGetter{ledger: ledger},
		&fakeUserGetter{ledger: ledger},
		notifier,
		nil,
	)
	return ledger, notifier, service
}

func TestPromoteFillsFreedSeatInFIFOOrder(t *testing.T) {
	ledger, notifier, service := newPromotionHarness()
	first := ledger.addUser("ada")
	second := ledger.addUser("grace")
	section := ledger.addSection(1, "Fall 2026", "Mon/Wed 10:00-11:30")
	ledger.addWaitlistEntry(first.ID, section.ID)
	ledger.addWaitlistEntry(second.ID, section.ID)

	outcome, err := service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionCompleted, outcome)

	// The head got the seat, the runner-up moved to the front.
	assert.Equal(t, 1, ledger.enrolledCount(section.ID))
	remaining := ledger.waitlistFor(section.ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].StudentID)
	assert.Equal(t, []int64{first.ID}, notifier.promoted)
}

func TestPromoteNoOpWhenSectionStillFull(t *testing.T) {
	ledger, notifier, service := newPromotionHarness()
	holder := ledger.addUser("ada")
	waiting := ledger.addUser("grace")
	section := ledger.addSection(1, "Fall 2026", "")
	ledger.addEnrollment(holder.ID, section.ID)
	ledger.addWaitlistEntry(waiting.ID, section.ID)

	outcome, err := service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionNoOp, outcome)

	assert.Len(t, ledger.waitlistFor(section.ID), 1)
	assert.Empty(t, notifier.promoted)
}

func TestPromoteNoOpOnEmptyWaitlist(t *testing.T) {
	ledger, notifier, service := newPromotionHarness()
	section := ledger.addSection(1, "Fall 2026", "")

	outcome, err := service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionNoOp, outcome)
	assert.Empty(t, notifier.promoted)
}

func TestPromoteDropsStaleHeadEntry(t *testing.T) {
	ledger, notifier, service := newPromotionHarness()
	stale := ledger.addUser("ada")
	next := ledger.addUser("grace")
	section := ledger.addSection(2, "Fall 2026", "")
	ledger.addEnrollment(stale.ID, section.ID)
	ledger.addWaitlistEntry(stale.ID, section.ID)
	ledger.addWaitlistEntry(next.ID, section.ID)

	outcome, err := service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionNoOp, outcome)

	// The stale entry is gone, nobody was enrolled or notified, and the
	// next entry waits for a later run.
	remaining := ledger.waitlistFor(section.ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, next.ID, remaining[0].StudentID)
	assert.Equal(t, 1, ledger.enrolledCount(section.ID))
	assert.Empty(t, notifier.promoted)
}

func TestPromoteSkipsConflictedCandidateWithoutRetrying(t *testing.T) {
	ledger, notifier, service := newPromotionHarness()
	conflicted := ledger.addUser("ada")
	next := ledger.addUser("grace")

	other := ledger.addSection(10, "Fall 2026", "Mon/Wed 10:00-11:30")
	ledger.addEnrollment(conflicted.ID, other.ID)

	section := ledger.addSection(1, "Fall 2026", "Mon 10:30-11:00")
	ledger.addWaitlistEntry(conflicted.ID, section.ID)
	ledger.addWaitlistEntry(next.ID, section.ID)

	outcome, err := service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionSkippedConflict, outcome)

	// The conflicted entry is removed and told why; the seat stays free for
	// a later run rather than cascading down the queue.
	remaining := ledger.waitlistFor(section.ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, next.ID, remaining[0].StudentID)
	assert.Equal(t, 0, ledger.enrolledCount(section.ID))
	assert.Equal(t, []int64{conflicted.ID}, notifier.conflicts)
	assert.Empty(t, notifier.promoted)

	// The next trigger promotes the now-head entry.
	outcome, err = service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionCompleted, outcome)
	assert.Equal(t, []int64{next.ID}, notifier.promoted)
}

func TestPromoteIsIdempotentAcrossDuplicateDeliveries(t *testing.T) {
	ledger, notifier, service := newPromotionHarness()
	waiting := ledger.addUser("ada")
	section := ledger.addSection(1, "Fall 2026", "")
	ledger.addWaitlistEntry(waiting.ID, section.ID)

	outcome, err := service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionCompleted, outcome)

	// A redelivered job finds the seat taken and the queue empty.
	outcome, err = service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionNoOp, outcome)

	assert.Equal(t, 1, ledger.enrolledCount(section.ID))
	assert.Equal(t, []int64{waiting.ID}, notifier.promoted)
}

func TestPromoteRetriesOnceAfterLockTimeout(t *testing.T) {
	ledger, _, service := newPromotionHarness()
	waiting := ledger.addUser("ada")
	section := ledger.addSection(1, "Fall 2026", "")
	ledger.addWaitlistEntry(waiting.ID, section.ID)
	ledger.failLocks = 1

	outcome, err := service.PromoteWaitlist(context.Background(), section.ID)
	require.NoError(t, err)
	assert.Equal(t, PromotionCompleted, outcome)
	assert.Equal(t, 2, ledger.lockCalls)
}

func TestPromoteSurfacesLockTimeoutAfterRetry(t *testing.T) {
	ledger, _, service := newPromotionHarness()
	section := ledger.addSection(1, "Fall 2026", "")
	ledger.failLocks = 2

	_, err := service.PromoteWaitlist(context.Background(), section.ID)
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)
}

func TestPromoteUnknownSection(t *testing.T) {
	_, _, service := newPromotionHarness()

	_, err := service.PromoteWaitlist(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrSectionNotFound)
}

func TestNotifyPositionsWalksQueueInOrder(t *testing.T) {
	ledger, notifier, service := newPromotionHarness()
	first := ledger.addUser("ada")
	second := ledger.addUser("grace")
	section := ledger.addSection(1, "Fall 2026", "")
	entryA := ledger.addWaitlistEntry(first.ID, section.ID)
	entryB := ledger.addWaitlistEntry(second.ID, section.ID)

	err := service.NotifyPositions(context.Background(), section.ID)
	require.NoError(t, err)

	require.Len(t, notifier.positions, 2)
	assert.Equal(t, positionNote{studentID: first.ID, position: 1, total: 2}, notifier.positions[0])
	assert.Equal(t, positionNote{studentID: second.ID, position: 2, total: 2}, notifier.positions[1])
	assert.True(t, entryA.Notified)
	assert.True(t, entryB.Notified)
}

func TestNotifyPositionsIgnoresMissingSection(t *testing.T) {
	_, notifier, service := newPromotionHarness()

	err := service.NotifyPositions(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, notifier.positions)
}
