package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
)

// Callback actions offered when a plan already exists for next week.
const (
	actionRedo = "redo"
	actionNext = "next"
)

const helpText = `🍽 *Meal Planner*

/plan - plan next week from your favorites
/rotation - show where you are in the rotation
/publish - save next week's plan as a Ghost draft
/stats - generation report (admin)

Send a recipe link to add it to your favorites.`

// sender is the subset of the Bot API used by the handlers.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram API and the meal planner application.
type Bot struct {
	api    sender
	app    *app.App
	cfg    *config.Config
	logger zerolog.Logger
	dbPath string
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, application *app.App, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger = logger.With().Str("component", "telegram").Logger()
	logger.Info().Str("account", api.Self.UserName).Msg("authorized on telegram")

	wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.Telegram.WebhookURL, err)
	}
	logger.Info().Str("response", resp.Description).Msg("webhook set")

	return newBot(api, cfg, application, logger), nil
}

func newBot(api sender, cfg *config.Config, application *app.App, logger zerolog.Logger) *Bot {
	return &Bot{
		api:    api,
		app:    application,
		cfg:    cfg,
		logger: logger,
		dbPath: cfg.Database.Path,
	}
}

// RegisterHandlers registers the webhook handler on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn().Err(err).Msg("failed to parse update")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	switch {
	case update.CallbackQuery != nil:
		if !b.isAllowed(update.CallbackQuery.From) {
			return
		}
		go b.handleCallbackQuery(update.CallbackQuery)
	case update.Message != nil:
		if !b.isAllowed(update.Message.From) {
			return
		}
		go b.processMessage(update.Message)
	}
}

func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if b.cfg.Telegram.AllowUserID != 0 && from.ID != b.cfg.Telegram.AllowUserID {
		b.logger.Warn().Int64("user_id", from.ID).Str("username", from.UserName).Msg("unauthorized access attempt")
		return false
	}
	return true
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := strconv.FormatInt(msg.From.ID, 10)

	switch msg.Command() {
	case "start", "help":
		b.sendMarkdown(msg.Chat.ID, helpText)
	case "rotation":
		b.handleRotation(ctx, msg.Chat.ID, userID)
	case "stats":
		b.handleStats(ctx, msg.Chat.ID, msg.From.ID)
	case "publish":
		b.handlePublish(ctx, msg.Chat.ID, userID)
	default:
		text := strings.TrimSpace(msg.Text)
		if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
			b.handleClip(ctx, msg.Chat.ID, userID, text)
			return
		}
		b.handlePlanRequest(ctx, msg.Chat.ID, userID)
	}
}

func (b *Bot) handleClip(ctx context.Context, chatID int64, userID, url string) {
	r, err := b.app.ClipRecipe(ctx, userID, url)
	if err != nil {
		b.logger.Error().Err(err).Str("url", url).Msg("failed to clip recipe")
		b.sendMarkdown(chatID, "❌ Could not import a recipe from that link.")
		return
	}
	b.sendMarkdown(chatID, fmt.Sprintf("✅ *Added to favorites:* %s", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, r.Title)))
}

func (b *Bot) handlePlanRequest(ctx context.Context, chatID int64, userID string) {
	sent, err := b.api.Send(markdownMessage(chatID, "🧑‍🍳 *Planning...*"))
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to send initial reply")
		return
	}

	week := b.app.NextWeekStart()
	exists, err := b.app.PlanExists(ctx, userID, week)
	if err != nil {
		b.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to check for existing plan")
	}
	if exists {
		prompt := fmt.Sprintf("🗓️ A plan already exists for next week (starting *%s*).\nWhat would you like to do?", week)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Redo Next Week", actionRedo),
				tgbotapi.NewInlineKeyboardButtonData("⏭️ Plan Following Week", actionNext),
			),
		)
		edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, prompt)
		edit.ParseMode = tgbotapi.ModeMarkdown
		edit.ReplyMarkup = &keyboard
		b.send(edit)
		return
	}

	b.generateAndSendPlan(ctx, userID, chatID, sent.MessageID, week)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	ctx := context.Background()
	userID := strconv.FormatInt(query.From.ID, 10)

	week, ok := b.callbackWeek(query.Data)
	if !ok {
		b.logger.Warn().Str("data", query.Data).Msg("unknown callback action")
		return
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("failed to answer callback")
	}

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, "🧑‍🍳 *Planning...*")
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)

	b.generateAndSendPlan(ctx, userID, query.Message.Chat.ID, query.Message.MessageID, week)
}

// callbackWeek resolves a callback action to the week it plans.
func (b *Bot) callbackWeek(action string) (string, bool) {
	next, err := planner.ParseWeekStart(b.app.NextWeekStart())
	if err != nil {
		return "", false
	}
	switch action {
	case actionRedo:
		return planner.FormatDate(next), true
	case actionNext:
		return planner.FormatDate(next.AddDate(0, 0, planner.DaysPerWeek)), true
	}
	return "", false
}

func (b *Bot) generateAndSendPlan(ctx context.Context, userID string, chatID int64, messageID int, week string) {
	res, err := b.app.GenerateWeek(ctx, userID, app.GenerateRequest{WeekStart: week})
	if err != nil {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, errorText(err))
		edit.ParseMode = tgbotapi.ModeMarkdown
		b.send(edit)
		return
	}

	sides, err := b.app.AccompanimentTitles(ctx, res.Plan)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to resolve accompaniment titles")
	}
	chunks := splitMessage(formatPlanMarkdown(res.Plan, sides), maxMessageLength)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, chunks[0])
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)
	for _, chunk := range chunks[1:] {
		b.send(markdownMessage(chatID, chunk))
	}
}

func errorText(err error) string {
	var insufficient *planner.InsufficientRecipesError
	switch {
	case errors.As(err, &insufficient):
		return fmt.Sprintf("🥲 *Not enough recipes*\n%s", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, insufficient.Error()))
	case errors.Is(err, app.ErrGenerationTimeout):
		return "⏳ *Planning took too long.* Please try again."
	}
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *Error generating plan:*\n```\n%v\n```", safeErr)
}

func (b *Bot) handleRotation(ctx context.Context, chatID int64, userID string) {
	status, err := b.app.RotationStatus(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load rotation status")
		b.sendMarkdown(chatID, "❌ Error fetching rotation.")
		return
	}
	b.sendMarkdown(chatID, formatRotationMarkdown(status))
}

func (b *Bot) handlePublish(ctx context.Context, chatID int64, userID string) {
	week := b.app.NextWeekStart()
	post, err := b.app.PublishPlan(ctx, userID, week, false)
	if err != nil {
		b.logger.Error().Err(err).Str("user_id", userID).Msg("failed to publish plan")
		b.sendMarkdown(chatID, "❌ Could not publish the plan for "+week+".")
		return
	}
	b.sendMarkdown(chatID, fmt.Sprintf("✅ *Draft saved:* %s", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, post.Title)))
}

func (b *Bot) handleStats(ctx context.Context, chatID, fromID int64) {
	if b.cfg.Telegram.AllowUserID == 0 || fromID != b.cfg.Telegram.AllowUserID {
		b.sendMarkdown(chatID, "⛔ *Access Denied*: Admin only.")
		return
	}
	summary, err := b.app.Stats(ctx, 7)
	if err != nil {
		b.sendMarkdown(chatID, "❌ Error fetching metrics.")
		return
	}
	b.sendMarkdown(chatID, formatStatsMarkdown(summary, metrics.ReadHealth(b.dbPath)))
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	for _, chunk := range splitMessage(text, maxMessageLength) {
		b.send(markdownMessage(chatID, chunk))
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn().Err(err).Msg("failed to send telegram message")
	}
}

func markdownMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

// formatPlanMarkdown renders a plan grouped by day.
func formatPlanMarkdown(plan *planner.WeekPlan, sides map[string]string) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Meal Plan: week of %s*\n", plan.WeekStart))

	day := -1
	for _, a := range plan.Assignments {
		if a.Slot.DayIndex != day {
			day = a.Slot.DayIndex
			sb.WriteString(fmt.Sprintf("\n*%s* (%s)\n", a.Slot.Weekday(), planner.FormatDate(a.Slot.Date)))
		}
		sb.WriteString(fmt.Sprintf("• %s: %s", titleCase(string(a.Slot.MealType)), esc(a.RecipeTitle)))
		if side := sides[a.AccompanimentID]; side != "" {
			sb.WriteString(" with " + esc(side))
		}
		if a.PrepRequired {
			sb.WriteString(" ⏰")
		}
		sb.WriteString("\n")
		if a.Reasoning != "" {
			sb.WriteString(fmt.Sprintf("  _%s_\n", esc(a.Reasoning)))
		}
	}

	if len(plan.Warnings) > 0 {
		sb.WriteString("\n⚠️ *Notes*\n")
		for _, w := range plan.Warnings {
			sb.WriteString("• " + esc(w) + "\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\n🔁 Rotation cycle %d", plan.Rotation.CycleNumber))
	return sb.String()
}

func formatRotationMarkdown(s *app.RotationStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔁 *Rotation cycle %d*\n\n", s.CycleNumber))
	sb.WriteString(fmt.Sprintf("• Favorites: %d\n", s.Favorites))
	sb.WriteString(fmt.Sprintf("• Used this cycle: %d\n", len(s.Used)))
	sb.WriteString(fmt.Sprintf("• Remaining: %d\n", s.Remaining))
	return sb.String()
}

func formatStatsMarkdown(summary []metrics.DailySummary, health metrics.Health) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Generations*\n")
	if len(summary) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range summary {
		sb.WriteString(fmt.Sprintf("• *%s*: %d runs, %d failed, %.0fms avg\n", d.Date, d.Runs, d.Failures, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Heap) / %dMB (Sys)\n", health.HeapMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Database: %s\n", metrics.FormatBytes(health.DBBytes)))
	return sb.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
