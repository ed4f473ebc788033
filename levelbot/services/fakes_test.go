package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
)

// In-memory repositories mirroring the conditional-update semantics of the
// SQL implementations, so service tests exercise the same state machines the
// production statements enforce.

func memberKey(guildID, userID string) string {
	return guildID + "|" + userID
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.UserProgress
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.UserProgress{}}
}

func (r *fakeUserRepo) GetOrCreate(_ context.Context, guildID, userID string) (*models.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memberKey(guildID, userID)
	if u, ok := r.users[key]; ok {
		cp := *u
		return &cp, nil
	}
	u := &models.UserProgress{GuildID: guildID, UserID: userID, CreatedAt: time.Now()}
	r.users[key] = u
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Get(_ context.Context, guildID, userID string) (*models.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[memberKey(guildID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) ApplyActivity(_ context.Context, guildID, userID string, xpDelta int64, isSuccess bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[memberKey(guildID, userID)]
	u.TotalXP += xpDelta
	u.MessagesSent++
	if isSuccess {
		u.SuccessMessagesSent++
	}
	return u.TotalXP, nil
}

func (r *fakeUserRepo) ApplyReward(_ context.Context, guildID, userID string, xp int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[memberKey(guildID, userID)]
	u.TotalXP += xp
	return u.TotalXP, nil
}

func (r *fakeUserRepo) ApplyVoice(_ context.Context, guildID, userID string, minutes, xp int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[memberKey(guildID, userID)]
	u.TotalXP += xp
	u.VoiceMinutes += minutes
	return u.TotalXP, nil
}

func (r *fakeUserRepo) PromoteLevel(_ context.Context, guildID, userID string, newLevel int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[memberKey(guildID, userID)]
	if u.Level >= newLevel {
		return false, nil
	}
	u.Level = newLevel
	u.LevelUpPending = true
	return true, nil
}

func (r *fakeUserRepo) AcknowledgeLevelUp(_ context.Context, guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[memberKey(guildID, userID)].LevelUpPending = false
	return nil
}

func (r *fakeUserRepo) setBadgeLocked(u *models.UserProgress, badge string, unlocked bool) {
	switch badge {
	case models.BadgeBronze:
		u.BadgeBronze = unlocked
	case models.BadgeSilver:
		u.BadgeSilver = unlocked
	case models.BadgeGold:
		u.BadgeGold = unlocked
	case models.BadgePlatinum:
		u.BadgePlatinum = unlocked
	case models.BadgeApex:
		u.BadgeApex = unlocked
	}
}

func (r *fakeUserRepo) UnlockBadges(_ context.Context, guildID, userID string, badges []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[memberKey(guildID, userID)]
	for _, b := range badges {
		r.setBadgeLocked(u, b, true)
	}
	return nil
}

func (r *fakeUserRepo) SetBadge(_ context.Context, guildID, userID, badge string, unlocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setBadgeLocked(r.users[memberKey(guildID, userID)], badge, unlocked)
	return nil
}

func (r *fakeUserRepo) UpdateIdentity(_ context.Context, guildID, userID, username, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[memberKey(guildID, userID)]
	u.Username = username
	u.AvatarURL = avatarURL
	return nil
}

func (r *fakeUserRepo) UpdateRoles(_ context.Context, guildID, userID string, roles []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[memberKey(guildID, userID)].Roles = roles
	return nil
}

func (r *fakeUserRepo) GetTop(_ context.Context, guildID string, limit, offset int) ([]*models.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UserProgress
	for _, u := range r.users {
		if u.GuildID == guildID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalXP > out[j].TotalXP })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUserRepo) CountMembers(_ context.Context, guildID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.users {
		if u.GuildID == guildID {
			n++
		}
	}
	return n, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.LevelNotification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Append(_ context.Context, n *models.LevelNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeNotificationRepo) ListUnseen(_ context.Context, guildID, userID string) ([]*models.LevelNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LevelNotification
	for _, n := range r.notifications {
		if n.GuildID == guildID && n.UserID == userID && !n.Seen {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkAllSeen(_ context.Context, guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.GuildID == guildID && n.UserID == userID {
			n.Seen = true
		}
	}
	return nil
}

type fakeQuestRepo struct {
	mu   sync.Mutex
	defs map[string]*models.QuestDefinition // guild|type
}

func newFakeQuestRepo() *fakeQuestRepo {
	return &fakeQuestRepo{defs: map[string]*models.QuestDefinition{}}
}

func (r *fakeQuestRepo) GetDefinition(_ context.Context, guildID, questType string) (*models.QuestDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[guildID+"|"+questType]
	if !ok {
		return nil, nil
	}
	cp := *def
	cp.Objectives = make([]*models.ObjectiveDefinition, len(def.Objectives))
	for i, obj := range def.Objectives {
		o := *obj
		cp.Objectives[i] = &o
	}
	sort.Slice(cp.Objectives, func(i, j int) bool {
		if cp.Objectives[i].Ord != cp.Objectives[j].Ord {
			return cp.Objectives[i].Ord < cp.Objectives[j].Ord
		}
		return cp.Objectives[i].ObjectiveID < cp.Objectives[j].ObjectiveID
	})
	return &cp, nil
}

func (r *fakeQuestRepo) CreateDefinition(_ context.Context, def *models.QuestDefinition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := def.GuildID + "|" + def.Type
	if _, ok := r.defs[key]; ok {
		return false, nil
	}
	r.defs[key] = def
	return true, nil
}

func (r *fakeQuestRepo) FindObjective(_ context.Context, guildID, objectiveID string) (*repositories.CatalogObjective, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, def := range r.defs {
		if !strings.HasPrefix(key, guildID+"|") {
			continue
		}
		for _, obj := range def.Objectives {
			if obj.ObjectiveID == objectiveID {
				o := *obj
				return &repositories.CatalogObjective{QuestType: def.Type, Objective: &o}, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeQuestRepo) UpdateObjective(_ context.Context, guildID, objectiveID string, patch repositories.ObjectivePatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, def := range r.defs {
		if !strings.HasPrefix(key, guildID+"|") {
			continue
		}
		for _, obj := range def.Objectives {
			if obj.ObjectiveID != objectiveID {
				continue
			}
			if patch.Title != nil {
				obj.Title = *patch.Title
			}
			if patch.Description != nil {
				obj.Description = *patch.Description
			}
			if patch.MessageTarget != nil {
				obj.MessageTarget = *patch.MessageTarget
			}
			if patch.SuccessMessageTarget != nil {
				obj.SuccessMessageTarget = *patch.SuccessMessageTarget
			}
			if patch.XPReward != nil {
				obj.XPReward = *patch.XPReward
			}
			if patch.Ord != nil {
				obj.Ord = *patch.Ord
			}
			if patch.Active != nil {
				obj.Active = *patch.Active
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeQuestRepo) ListObjectives(ctx context.Context, guildID string) ([]*repositories.CatalogObjective, error) {
	var out []*repositories.CatalogObjective
	for _, questType := range models.QuestTypes {
		def, err := r.GetDefinition(ctx, guildID, questType)
		if err != nil {
			return nil, err
		}
		if def == nil {
			continue
		}
		for _, obj := range def.Objectives {
			out = append(out, &repositories.CatalogObjective{QuestType: questType, Objective: obj})
		}
	}
	return out, nil
}

// addObjective appends a definition directly, for catalog-change scenarios.
func (r *fakeQuestRepo) addObjective(guildID, questType string, obj *models.ObjectiveDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def := r.defs[guildID+"|"+questType]
	def.Objectives = append(def.Objectives, obj)
}

type fakeProgressRepo struct {
	mu     sync.Mutex
	rows   map[string]*models.ObjectiveProgress // guild|user|type|period|objective
	states map[string]*models.QuestPeriodState  // guild|user|type|period
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{
		rows:   map[string]*models.ObjectiveProgress{},
		states: map[string]*models.QuestPeriodState{},
	}
}

func progressKey(guildID, userID, questType, periodKey, objectiveID string) string {
	return guildID + "|" + userID + "|" + questType + "|" + periodKey + "|" + objectiveID
}

func stateKey(guildID, userID, questType, periodKey string) string {
	return guildID + "|" + userID + "|" + questType + "|" + periodKey
}

func (r *fakeProgressRepo) SeedObjectives(_ context.Context, rows []*models.ObjectiveProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		key := progressKey(row.GuildID, row.UserID, row.QuestType, row.PeriodKey, row.ObjectiveID)
		if _, ok := r.rows[key]; ok {
			continue
		}
		cp := *row
		r.rows[key] = &cp
	}
	return nil
}

func (r *fakeProgressRepo) match(guildID, userID, questType, periodKey string) []*models.ObjectiveProgress {
	var out []*models.ObjectiveProgress
	for _, row := range r.rows {
		if row.GuildID == guildID && row.UserID == userID && row.QuestType == questType && row.PeriodKey == periodKey {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ord != out[j].Ord {
			return out[i].Ord < out[j].Ord
		}
		return out[i].ObjectiveID < out[j].ObjectiveID
	})
	return out
}

func (r *fakeProgressRepo) GetObjectives(_ context.Context, guildID, userID, questType, periodKey string) ([]*models.ObjectiveProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.match(guildID, userID, questType, periodKey)
	out := make([]*models.ObjectiveProgress, len(rows))
	for i, row := range rows {
		cp := *row
		out[i] = &cp
	}
	return out, nil
}

func (r *fakeProgressRepo) GetObjective(_ context.Context, guildID, userID, questType, periodKey, objectiveID string) (*models.ObjectiveProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[progressKey(guildID, userID, questType, periodKey, objectiveID)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func idSet(objectiveIDs []string) map[string]bool {
	set := make(map[string]bool, len(objectiveIDs))
	for _, id := range objectiveIDs {
		set[id] = true
	}
	return set
}

func (r *fakeProgressRepo) IncrementCounters(_ context.Context, guildID, userID, questType, periodKey string, objectiveIDs []string, isSuccess bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := idSet(objectiveIDs)
	for _, row := range r.match(guildID, userID, questType, periodKey) {
		if row.Completed || !in[row.ObjectiveID] {
			continue
		}
		if row.MessageTarget > 0 {
			row.CurrentMessages++
		}
		if isSuccess && row.SuccessMessageTarget > 0 {
			row.CurrentSuccessMessages++
		}
	}
	return nil
}

func (r *fakeProgressRepo) DetectCompletions(_ context.Context, guildID, userID, questType, periodKey string, objectiveIDs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := idSet(objectiveIDs)
	var completed []string
	now := time.Now()
	for _, row := range r.match(guildID, userID, questType, periodKey) {
		if row.Completed || !in[row.ObjectiveID] {
			continue
		}
		satisfied := (row.MessageTarget > 0 && row.CurrentMessages >= row.MessageTarget) ||
			(row.SuccessMessageTarget > 0 && row.CurrentSuccessMessages >= row.SuccessMessageTarget)
		if satisfied {
			row.Completed = true
			row.CompletedAt = &now
			completed = append(completed, row.ObjectiveID)
		}
	}
	return completed, nil
}

func (r *fakeProgressRepo) TryClaim(_ context.Context, guildID, userID, questType, periodKey, objectiveID string) (*models.ObjectiveProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[progressKey(guildID, userID, questType, periodKey, objectiveID)]
	if !ok || !row.Completed || row.Claimed {
		return nil, nil
	}
	now := time.Now()
	row.Claimed = true
	row.ClaimedAt = &now
	cp := *row
	return &cp, nil
}

func (r *fakeProgressRepo) SyncDefinition(_ context.Context, guildID, questType, periodKey string, def *models.ObjectiveDefinition, onlyUser string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, row := range r.rows {
		if row.GuildID != guildID || row.QuestType != questType || row.PeriodKey != periodKey || row.ObjectiveID != def.ObjectiveID {
			continue
		}
		if onlyUser != "" && row.UserID != onlyUser {
			continue
		}
		if row.Title == def.Title && row.Description == def.Description &&
			row.MessageTarget == def.MessageTarget && row.SuccessMessageTarget == def.SuccessMessageTarget &&
			row.XPReward == def.XPReward && row.Ord == def.Ord {
			continue
		}

		if def.MessageTarget > 0 {
			if row.MessageTarget > 0 {
				rescaled := row.CurrentMessages * def.MessageTarget / row.MessageTarget
				if rescaled > def.MessageTarget {
					rescaled = def.MessageTarget
				}
				row.CurrentMessages = rescaled
			} else {
				row.CurrentMessages = 0
			}
		}
		if def.SuccessMessageTarget > 0 {
			if row.SuccessMessageTarget > 0 {
				rescaled := row.CurrentSuccessMessages * def.SuccessMessageTarget / row.SuccessMessageTarget
				if rescaled > def.SuccessMessageTarget {
					rescaled = def.SuccessMessageTarget
				}
				row.CurrentSuccessMessages = rescaled
			} else {
				row.CurrentSuccessMessages = 0
			}
		}

		row.Title = def.Title
		row.Description = def.Description
		row.MessageTarget = def.MessageTarget
		row.SuccessMessageTarget = def.SuccessMessageTarget
		row.XPReward = def.XPReward
		row.Ord = def.Ord
		affected++
	}
	return affected, nil
}

func (r *fakeProgressRepo) ListUsers(_ context.Context, guildID, questType, periodKey string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var users []string
	for _, row := range r.rows {
		if row.GuildID == guildID && row.QuestType == questType && row.PeriodKey == periodKey && !seen[row.UserID] {
			seen[row.UserID] = true
			users = append(users, row.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (r *fakeProgressRepo) EnsurePeriodState(_ context.Context, guildID, userID, questType, periodKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := stateKey(guildID, userID, questType, periodKey)
	if _, ok := r.states[key]; ok {
		return nil
	}
	r.states[key] = &models.QuestPeriodState{
		GuildID:   guildID,
		UserID:    userID,
		QuestType: questType,
		PeriodKey: periodKey,
		Seen:      true,
	}
	return nil
}

func (r *fakeProgressRepo) GetPeriodState(_ context.Context, guildID, userID, questType, periodKey string) (*models.QuestPeriodState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[stateKey(guildID, userID, questType, periodKey)]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

func (r *fakeProgressRepo) SetSeen(_ context.Context, guildID, userID, questType, periodKey string, seen bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[stateKey(guildID, userID, questType, periodKey)]; ok {
		state.Seen = seen
	}
	return nil
}
