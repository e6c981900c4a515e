package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/webhook"
	"github.com/worlddex/worlddex/worlddex/database/models"
	"github.com/worlddex/worlddex/worlddex/services"
)

const (
	colorQuest       = 0x57F287
	colorAchievement = 0xFEE75C
)

// Discord announces quest completions and achievements through a webhook.
// Delivery is best effort: failures are logged and dropped.
type Discord struct {
	client webhook.Client
}

func NewDiscord(webhookURL string) (*Discord, error) {
	client, err := webhook.NewWithURL(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook client: %w", err)
	}
	return &Discord{client: client}, nil
}

func (d *Discord) QuestCompleted(ctx context.Context, quest *models.Quest) {
	_, err := d.client.CreateMessage(discord.NewWebhookMessageCreateBuilder().
		AddEmbeds(discord.NewEmbedBuilder().
			SetTitle("Quest completed").
			SetDescription(fmt.Sprintf("**%s**\n%s\n+%d points", quest.Title, quest.Description, quest.RewardPoints)).
			SetColor(colorQuest).
			Build()).
		Build())
	if err != nil {
		slog.Warn("Failed to announce quest completion",
			slog.String("quest_id", quest.QuestID),
			slog.Any("error", err))
	}
}

func (d *Discord) AchievementUnlocked(ctx context.Context, achievement services.Achievement) {
	_, err := d.client.CreateMessage(discord.NewWebhookMessageCreateBuilder().
		AddEmbeds(discord.NewEmbedBuilder().
			SetTitle("Achievement unlocked").
			SetDescription(fmt.Sprintf("**%s**\n%s", achievement.Title, achievement.Description)).
			SetColor(colorAchievement).
			Build()).
		Build())
	if err != nil {
		slog.Warn("Failed to announce achievement",
			slog.String("achievement", achievement.ID),
			slog.Any("error", err))
	}
}

func (d *Discord) Close(ctx context.Context) {
	d.client.Close(ctx)
}
