package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guildxp/levelbot/levelbot/database/models"
	"github.com/guildxp/levelbot/levelbot/services"
)

func TestBoardIndicatorsSuppressActiveTab(t *testing.T) {
	views := []*services.QuestView{
		{QuestType: models.QuestTypeDaily, Seen: false},
		{QuestType: models.QuestTypeWeekly, Seen: false},
	}

	unread := boardIndicators(views, models.QuestTypeDaily)
	assert.False(t, unread[models.QuestTypeDaily], "viewing a tab acknowledges its indicator")
	assert.True(t, unread[models.QuestTypeWeekly])

	unread = boardIndicators(views, models.QuestTypeWeekly)
	assert.True(t, unread[models.QuestTypeDaily])
	assert.False(t, unread[models.QuestTypeWeekly])
}

func TestBoardIndicatorsSeenStaysClear(t *testing.T) {
	views := []*services.QuestView{
		{QuestType: models.QuestTypeDaily, Seen: true},
		{QuestType: models.QuestTypeWeekly, Seen: true},
	}

	unread := boardIndicators(views, models.QuestTypeDaily)
	assert.False(t, unread[models.QuestTypeDaily])
	assert.False(t, unread[models.QuestTypeWeekly])
}
