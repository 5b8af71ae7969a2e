package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
	"vibedojo-ledger/services"
)

const completionColor = 0x22C55E

// DiscordAnnouncer posts completion, belt and badge embeds to a Discord webhook.
type DiscordAnnouncer struct {
	client webhook.Client
	log    *logger.Logger
}

// NewDiscordAnnouncer returns nil when no webhook URL is configured.
func NewDiscordAnnouncer(webhookURL string, log *logger.Logger) (*DiscordAnnouncer, error) {
	if webhookURL == "" {
		return nil, nil
	}
	client, err := webhook.NewWithURL(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("discord webhook: %w", err)
	}
	return &DiscordAnnouncer{client: client, log: log.With("component", "DiscordAnnouncer")}, nil
}

func (a *DiscordAnnouncer) AnnounceCompletion(ctx context.Context, userID string, chapter models.Chapter, res services.CompletionResult) error {
	embeds := CompletionEmbeds(userID, chapter, res)
	if _, err := a.client.CreateEmbeds(embeds, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("discord announce: %w", err)
	}
	a.log.Debug("completion announced", "user_id", userID, "chapter", chapter.ID, "embeds", len(embeds))
	return nil
}

func (a *DiscordAnnouncer) Close(ctx context.Context) {
	a.client.Close(ctx)
}

// CompletionEmbeds builds the completion embed plus one per belt-up and new badge.
func CompletionEmbeds(userID string, chapter models.Chapter, res services.CompletionResult) []discord.Embed {
	who := shortID(userID)
	now := time.Now()

	main := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("📗 Chapter %s complete", chapter.ID)).
		SetDescription(fmt.Sprintf("**%s** finished *%s*", who, chapter.Title)).
		SetColor(completionColor).
		AddField("XP", fmt.Sprintf("+%d", res.AppliedXP), true).
		AddField("Total", fmt.Sprintf("%d", res.TotalXP), true).
		SetTimestamp(now)
	if res.QuizBonusApplied {
		main.AddField("Quiz", "perfect 💯", true)
	}
	embeds := []discord.Embed{main.Build()}

	if res.BeltUp != nil {
		embeds = append(embeds, discord.NewEmbedBuilder().
			SetTitle("🥋 Belt up!").
			SetDescription(fmt.Sprintf("**%s**: %s → %s", who, res.BeltUp.From.Name, res.BeltUp.To.Name)).
			SetColor(res.BeltUp.To.Color).
			SetTimestamp(now).
			Build())
	}
	for _, b := range res.NewBadges {
		embeds = append(embeds, discord.NewEmbedBuilder().
			SetTitle(fmt.Sprintf("%s %s", b.Icon, b.Name)).
			SetDescription(fmt.Sprintf("**%s** earned a %s badge: %s", who, b.Rarity, b.Description)).
			SetColor(0xFACC15).
			SetTimestamp(now).
			Build())
	}
	// Discord rejects more than 10 embeds per message.
	if len(embeds) > 10 {
		embeds = embeds[:10]
	}
	return embeds
}

func shortID(userID string) string {
	id := strings.ReplaceAll(userID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return "dojo#" + id
}
