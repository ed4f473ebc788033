package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
)

// Wednesday, so the daily and weekly periods roll at different boundaries.
var fixedNow = time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)

type questFixture struct {
	svc      *QuestProgressService
	catalog  *QuestCatalogService
	quests   *fakeQuestRepo
	progress *fakeProgressRepo
	migrator *QuestMigrator
}

func newQuestFixture() *questFixture {
	quests := newFakeQuestRepo()
	progress := newFakeProgressRepo()

	migrator := NewQuestMigrator(quests, progress, time.UTC)
	migrator.now = func() time.Time { return fixedNow }

	catalog := NewQuestCatalogService(quests, migrator)

	svc := NewQuestProgressService(catalog, progress, migrator, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	return &questFixture{
		svc:      svc,
		catalog:  catalog,
		quests:   quests,
		progress: progress,
		migrator: migrator,
	}
}

func (f *questFixture) view(t *testing.T, questType string) *QuestView {
	t.Helper()
	views, err := f.svc.GetProgress(context.Background(), testGuild, testUser)
	require.NoError(t, err)
	for _, v := range views {
		if v.QuestType == questType {
			return v
		}
	}
	t.Fatalf("no %s view", questType)
	return nil
}

func (f *questFixture) objective(t *testing.T, questType, objectiveID string) ObjectiveView {
	t.Helper()
	for _, obj := range f.view(t, questType).Objectives {
		if obj.ObjectiveID == objectiveID {
			return obj
		}
	}
	t.Fatalf("objective %s not in %s view", objectiveID, questType)
	return ObjectiveView{}
}

func TestPeriodKeys(t *testing.T) {
	assert.Equal(t, "2026-03-04", DailyKey(fixedNow, time.UTC))
	assert.Equal(t, "2026-W10", WeeklyKey(fixedNow, time.UTC))

	// Late evening in UTC is already the next day in Tokyo.
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	evening := time.Date(2026, time.March, 4, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-05", DailyKey(evening, tokyo))

	// A Sunday and the following Monday land in different ISO weeks.
	sunday := time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC)
	monday := sunday.AddDate(0, 0, 1)
	assert.Equal(t, "2026-W10", WeeklyKey(sunday, time.UTC))
	assert.Equal(t, "2026-W11", WeeklyKey(monday, time.UTC))
}

func TestRecordActivityFeedsBothCadences(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		completions, err := f.svc.RecordActivity(ctx, testGuild, testUser, false)
		require.NoError(t, err)
		assert.Empty(t, completions)
	}

	completions, err := f.svc.RecordActivity(ctx, testGuild, testUser, false)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, "daily_messages_10", completions[0].ObjectiveID)
	assert.Equal(t, models.QuestTypeDaily, completions[0].QuestType)
	assert.Equal(t, int64(25), completions[0].XPReward)

	daily := f.objective(t, models.QuestTypeDaily, "daily_messages_10")
	assert.True(t, daily.Completed)
	assert.False(t, daily.Claimed)
	assert.Equal(t, 10, daily.Current)

	// The same 10 messages also advanced the weekly counter.
	weekly := f.objective(t, models.QuestTypeWeekly, "weekly_messages_100")
	assert.Equal(t, 10, weekly.Current)
	assert.Equal(t, 100, weekly.Target)
	assert.False(t, weekly.Completed)
}

func TestSuccessMessageCountsBothDimensions(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	completions, err := f.svc.RecordActivity(ctx, testGuild, testUser, true)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, "daily_success_1", completions[0].ObjectiveID)

	assert.Equal(t, 1, f.objective(t, models.QuestTypeDaily, "daily_messages_10").Current)
	assert.Equal(t, 1, f.objective(t, models.QuestTypeDaily, "daily_success_3").Current)
	assert.Equal(t, 1, f.objective(t, models.QuestTypeWeekly, "weekly_success_10").Current)
}

func TestCompletedObjectiveStopsCounting(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := f.svc.RecordActivity(ctx, testGuild, testUser, false)
		require.NoError(t, err)
	}

	daily := f.objective(t, models.QuestTypeDaily, "daily_messages_10")
	assert.Equal(t, 10, daily.Current, "a completed objective's counter is frozen")

	weekly := f.objective(t, models.QuestTypeWeekly, "weekly_messages_100")
	assert.Equal(t, 12, weekly.Current)
}

func TestClaimLifecycle(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	_, err := f.svc.RecordActivity(ctx, testGuild, testUser, false)
	require.NoError(t, err)

	// Open objective, no reward yet.
	_, err = f.svc.ClaimObjective(ctx, testGuild, testUser, "daily_success_1")
	assert.ErrorIs(t, err, ErrNotCompleted)

	_, err = f.svc.RecordActivity(ctx, testGuild, testUser, true)
	require.NoError(t, err)

	xp, err := f.svc.ClaimObjective(ctx, testGuild, testUser, "daily_success_1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), xp)

	_, err = f.svc.ClaimObjective(ctx, testGuild, testUser, "daily_success_1")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	obj := f.objective(t, models.QuestTypeDaily, "daily_success_1")
	assert.True(t, obj.Completed)
	assert.True(t, obj.Claimed)
}

func TestClaimUnknownObjective(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	require.NoError(t, f.catalog.EnsureSeeded(ctx, testGuild))

	_, err := f.svc.ClaimObjective(ctx, testGuild, testUser, "no_such_objective")
	assert.ErrorIs(t, err, ErrObjectiveNotFound)
}

func TestSeenFlagLifecycle(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	view := f.view(t, models.QuestTypeDaily)
	assert.True(t, view.Seen, "an untouched period has nothing unread")

	_, err := f.svc.RecordActivity(ctx, testGuild, testUser, true)
	require.NoError(t, err)

	view = f.view(t, models.QuestTypeDaily)
	assert.False(t, view.Seen, "a completion marks the period unread")
	assert.Equal(t, 1, view.Unclaimed)

	require.NoError(t, f.svc.MarkSeen(ctx, testGuild, testUser, models.QuestTypeDaily))
	assert.True(t, f.view(t, models.QuestTypeDaily).Seen)
}

func TestNewPeriodStartsFresh(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := f.svc.RecordActivity(ctx, testGuild, testUser, false)
		require.NoError(t, err)
	}
	assert.True(t, f.objective(t, models.QuestTypeDaily, "daily_messages_10").Completed)

	// Next day: daily rolls over, the weekly period does not.
	nextDay := fixedNow.AddDate(0, 0, 1)
	f.svc.now = func() time.Time { return nextDay }
	f.migrator.now = f.svc.now

	daily := f.objective(t, models.QuestTypeDaily, "daily_messages_10")
	assert.Equal(t, 0, daily.Current)
	assert.False(t, daily.Completed)

	weekly := f.objective(t, models.QuestTypeWeekly, "weekly_messages_100")
	assert.Equal(t, 10, weekly.Current)
}

func TestOrphanedRowsNotSurfaced(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	_, err := f.svc.RecordActivity(ctx, testGuild, testUser, false)
	require.NoError(t, err)

	inactive := false
	require.NoError(t, f.catalog.UpdateObjective(ctx, testGuild, "daily_messages_10",
		repositories.ObjectivePatch{Active: &inactive}))

	for _, obj := range f.view(t, models.QuestTypeDaily).Objectives {
		assert.NotEqual(t, "daily_messages_10", obj.ObjectiveID)
	}
}

func TestOrphanedRowsFrozenByActivity(t *testing.T) {
	f := newQuestFixture()
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := f.svc.RecordActivity(ctx, testGuild, testUser, false)
		require.NoError(t, err)
	}

	inactive := false
	require.NoError(t, f.catalog.UpdateObjective(ctx, testGuild, "daily_messages_10",
		repositories.ObjectivePatch{Active: &inactive}))

	// Two more messages would push the orphan past its target if it still
	// counted; it must neither complete nor clear the period's seen flag.
	for i := 0; i < 2; i++ {
		completions, err := f.svc.RecordActivity(ctx, testGuild, testUser, false)
		require.NoError(t, err)
		for _, c := range completions {
			assert.NotEqual(t, "daily_messages_10", c.ObjectiveID)
		}
	}

	periodKey := DailyKey(fixedNow, time.UTC)
	row, err := f.progress.GetObjective(ctx, testGuild, testUser, models.QuestTypeDaily, periodKey, "daily_messages_10")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 8, row.CurrentMessages, "orphaned row frozen at deactivation")
	assert.False(t, row.Completed)

	assert.True(t, f.view(t, models.QuestTypeDaily).Seen)
}
