package services

import (
	"context"
	"log/slog"

	"github.com/guildxp/levelbot/levelbot/database/repositories"
)

// MemberIdentity carries the display fields cached alongside progression so
// profile and leaderboard renders never need a gateway round trip.
type MemberIdentity struct {
	Username  string
	AvatarURL string
	Roles     []string
}

// TrackResult is everything a single tracked message produced.
type TrackResult struct {
	Award       *AwardResult
	Completions []Completion
}

// ActivityService is the single entry point message handlers feed. One
// message fans out to the XP ledger and both quest cadences; a failure in
// one leg is logged and does not block the others, so a quest hiccup never
// costs a member their message XP.
type ActivityService struct {
	users        repositories.UserRepository
	xp           *XPService
	quests       *QuestProgressService
	xpPerMessage int64
}

func NewActivityService(users repositories.UserRepository, xp *XPService, quests *QuestProgressService, xpPerMessage int64) *ActivityService {
	return &ActivityService{
		users:        users,
		xp:           xp,
		quests:       quests,
		xpPerMessage: xpPerMessage,
	}
}

// TrackMessage processes one member message: refreshes the cached identity,
// awards message XP, and advances quest counters.
func (s *ActivityService) TrackMessage(ctx context.Context, guildID, userID string, identity MemberIdentity, isSuccess bool) (*TrackResult, error) {
	award, err := s.xp.AwardActivity(ctx, guildID, userID, s.xpPerMessage, isSuccess)
	if err != nil {
		return nil, err
	}

	if err := s.refreshIdentity(ctx, guildID, userID, identity); err != nil {
		slog.Error("Failed to refresh member identity",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Any("error", err))
	}

	completions, err := s.quests.RecordActivity(ctx, guildID, userID, isSuccess)
	if err != nil {
		slog.Error("Failed to record quest activity",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Any("error", err))
		completions = nil
	}

	return &TrackResult{Award: award, Completions: completions}, nil
}

func (s *ActivityService) refreshIdentity(ctx context.Context, guildID, userID string, identity MemberIdentity) error {
	if identity.Username != "" {
		if err := s.users.UpdateIdentity(ctx, guildID, userID, identity.Username, identity.AvatarURL); err != nil {
			return err
		}
	}
	if identity.Roles != nil {
		if err := s.users.UpdateRoles(ctx, guildID, userID, identity.Roles); err != nil {
			return err
		}
	}
	return nil
}
