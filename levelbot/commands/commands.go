package commands

import "github.com/disgoorg/disgo/discord"

var Commands = []discord.ApplicationCommandCreate{
	Profile,
	Quests,
	Claim,
	Leaderboard,
	QuestEdit,
	BadgeSet,
	GrantXP,
}
