package services

import (
	"context"
	"fmt"
	"time"

	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
)

// ObjectiveView is one objective as shown to a member: the counted dimension
// collapsed to a single current/target pair, current clamped to target.
type ObjectiveView struct {
	ObjectiveID string
	Title       string
	Description string
	Current     int
	Target      int
	XPReward    int64
	Ord         int
	Completed   bool
	Claimed     bool
}

// QuestView is a member's full picture of one cadence for the current period.
type QuestView struct {
	QuestType  string
	PeriodKey  string
	Objectives []ObjectiveView
	// Unclaimed counts completed objectives whose reward is still pending.
	Unclaimed int
	// Seen is false when a completion happened since the member last looked.
	Seen bool
}

// Completion identifies an objective that just crossed its target.
type Completion struct {
	QuestType   string
	ObjectiveID string
	Title       string
	XPReward    int64
}

// QuestProgressService tracks per-member objective counters across the daily
// and weekly cadences. Period rollover is implicit: progress rows are keyed
// by period key, so a new day or ISO week simply addresses fresh rows and
// the old period's records go cold in place.
type QuestProgressService struct {
	catalog  *QuestCatalogService
	progress repositories.ProgressRepository
	migrator *QuestMigrator
	loc      *time.Location
	now      func() time.Time
}

func NewQuestProgressService(catalog *QuestCatalogService, progress repositories.ProgressRepository, migrator *QuestMigrator, loc *time.Location) *QuestProgressService {
	return &QuestProgressService{
		catalog:  catalog,
		progress: progress,
		migrator: migrator,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *QuestProgressService) periodKey(questType string) string {
	return PeriodKey(questType, s.now(), s.loc)
}

// ensurePeriod lazily materializes the member's rows for the period: the
// seen-state row plus one counter row per active catalog objective. Every
// insert is ON CONFLICT DO NOTHING, so concurrent first events both converge
// on the same rows. Returns the active objective ids so callers can scope
// their mutations to catalog objectives and leave orphaned rows untouched.
func (s *QuestProgressService) ensurePeriod(ctx context.Context, guildID, userID, questType, periodKey string) ([]string, error) {
	if err := s.catalog.EnsureSeeded(ctx, guildID); err != nil {
		return nil, err
	}
	if err := s.progress.EnsurePeriodState(ctx, guildID, userID, questType, periodKey); err != nil {
		return nil, fmt.Errorf("failed to ensure period state: %w", err)
	}

	objectives, err := s.catalog.ActiveObjectives(ctx, guildID, questType)
	if err != nil {
		return nil, err
	}
	if err := s.progress.SeedObjectives(ctx, newProgressRows(guildID, userID, questType, periodKey, objectives)); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(objectives))
	for _, obj := range objectives {
		ids = append(ids, obj.ObjectiveID)
	}
	return ids, nil
}

// RecordActivity feeds one message event into both cadences and returns any
// objectives it pushed across their target. A success message counts toward
// the message dimension and the success dimension of every open objective.
func (s *QuestProgressService) RecordActivity(ctx context.Context, guildID, userID string, isSuccess bool) ([]Completion, error) {
	var completions []Completion

	for _, questType := range models.QuestTypes {
		periodKey := s.periodKey(questType)
		ids, err := s.ensurePeriod(ctx, guildID, userID, questType, periodKey)
		if err != nil {
			return nil, err
		}
		if err := s.progress.IncrementCounters(ctx, guildID, userID, questType, periodKey, ids, isSuccess); err != nil {
			return nil, err
		}

		done, err := s.collectCompletions(ctx, guildID, userID, questType, periodKey, ids)
		if err != nil {
			return nil, err
		}
		completions = append(completions, done...)
	}
	return completions, nil
}

// collectCompletions flips newly satisfied objectives, resolves their display
// fields, and marks the period unseen when anything completed.
func (s *QuestProgressService) collectCompletions(ctx context.Context, guildID, userID, questType, periodKey string, objectiveIDs []string) ([]Completion, error) {
	ids, err := s.progress.DetectCompletions(ctx, guildID, userID, questType, periodKey, objectiveIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.progress.SetSeen(ctx, guildID, userID, questType, periodKey, false); err != nil {
		return nil, err
	}

	completions := make([]Completion, 0, len(ids))
	for _, id := range ids {
		row, err := s.progress.GetObjective(ctx, guildID, userID, questType, periodKey, id)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		completions = append(completions, Completion{
			QuestType:   questType,
			ObjectiveID: row.ObjectiveID,
			Title:       row.Title,
			XPReward:    row.XPReward,
		})
	}
	return completions, nil
}

// ClaimObjective redeems a completed objective's reward. The transition is a
// single conditional update, so a member spamming the claim button gets the
// reward exactly once: every losing racer sees ErrAlreadyClaimed.
func (s *QuestProgressService) ClaimObjective(ctx context.Context, guildID, userID, objectiveID string) (int64, error) {
	entry, err := s.catalog.FindObjective(ctx, guildID, objectiveID)
	if err != nil {
		return 0, err
	}

	periodKey := s.periodKey(entry.QuestType)
	if _, err := s.ensurePeriod(ctx, guildID, userID, entry.QuestType, periodKey); err != nil {
		return 0, err
	}

	row, err := s.progress.TryClaim(ctx, guildID, userID, entry.QuestType, periodKey, objectiveID)
	if err != nil {
		return 0, err
	}
	if row != nil {
		return row.XPReward, nil
	}

	// The claim didn't land; inspect the row to say why.
	current, err := s.progress.GetObjective(ctx, guildID, userID, entry.QuestType, periodKey, objectiveID)
	if err != nil {
		return 0, err
	}
	if current != nil && current.Claimed {
		return 0, ErrAlreadyClaimed
	}
	return 0, ErrNotCompleted
}

// GetProgress builds the member's current-period view for both cadences. It
// reconciles the records against the catalog first, then runs completion
// detection, so an objective satisfied by a target lowered moments ago shows
// as completed the first time anyone looks. Orphaned rows, left behind by
// objectives since removed from the catalog, are not surfaced.
func (s *QuestProgressService) GetProgress(ctx context.Context, guildID, userID string) ([]*QuestView, error) {
	views := make([]*QuestView, 0, 2)

	for _, questType := range models.QuestTypes {
		periodKey := s.periodKey(questType)
		ids, err := s.ensurePeriod(ctx, guildID, userID, questType, periodKey)
		if err != nil {
			return nil, err
		}
		if err := s.migrator.reconcilePeriod(ctx, guildID, userID, questType, periodKey); err != nil {
			return nil, err
		}
		if _, err := s.collectCompletions(ctx, guildID, userID, questType, periodKey, ids); err != nil {
			return nil, err
		}

		view, err := s.buildView(ctx, guildID, userID, questType, periodKey)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *QuestProgressService) buildView(ctx context.Context, guildID, userID, questType, periodKey string) (*QuestView, error) {
	active, err := s.catalog.ActiveObjectives(ctx, guildID, questType)
	if err != nil {
		return nil, err
	}
	inCatalog := make(map[string]bool, len(active))
	for _, obj := range active {
		inCatalog[obj.ObjectiveID] = true
	}

	rows, err := s.progress.GetObjectives(ctx, guildID, userID, questType, periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load objective progress: %w", err)
	}

	view := &QuestView{QuestType: questType, PeriodKey: periodKey, Seen: true}
	for _, row := range rows {
		if !inCatalog[row.ObjectiveID] {
			continue
		}
		current, target := row.Current(), row.Target()
		if current > target {
			current = target
		}
		if row.Completed && !row.Claimed {
			view.Unclaimed++
		}
		view.Objectives = append(view.Objectives, ObjectiveView{
			ObjectiveID: row.ObjectiveID,
			Title:       row.Title,
			Description: row.Description,
			Current:     current,
			Target:      target,
			XPReward:    row.XPReward,
			Ord:         row.Ord,
			Completed:   row.Completed,
			Claimed:     row.Claimed,
		})
	}

	state, err := s.progress.GetPeriodState(ctx, guildID, userID, questType, periodKey)
	if err != nil {
		return nil, err
	}
	if state != nil {
		view.Seen = state.Seen
	}
	return view, nil
}

// MarkSeen acknowledges the completion indicator for a cadence's current
// period.
func (s *QuestProgressService) MarkSeen(ctx context.Context, guildID, userID, questType string) error {
	return s.progress.SetSeen(ctx, guildID, userID, questType, s.periodKey(questType), true)
}
