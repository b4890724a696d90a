package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/scheduler"
	"planboard/internal/service"
)

const defaultFreeDays = 7

// Bot exposes the planner over Telegram commands.
type Bot struct {
	api      *tgbotapi.BotAPI
	userRepo *repository.UserRepository
	planner  *service.PlannerService
	agenda   *service.AgendaService
	log      zerolog.Logger
}

func New(api *tgbotapi.BotAPI, userRepo *repository.UserRepository, planner *service.PlannerService, agenda *service.AgendaService, log zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		userRepo: userRepo,
		planner:  planner,
		agenda:   agenda,
		log:      log.With().Str("component", "bot").Logger(),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Str("account", b.api.Self.UserName).Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error().Err(err).Int64("from", update.Message.From.ID).Msg("handle message")
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Я понимаю только команды. Загляни в /help.")
	}

	b.log.Info().Int64("from", msg.From.ID).Str("command", msg.Command()).Str("args", msg.CommandArguments()).Msg("command")

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "plan":
		return b.handlePlan(ctx, msg)
	case "push":
		return b.handlePush(ctx, msg)
	case "free":
		return b.handleFree(ctx, msg)
	case "today":
		return b.handleToday(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я планировщик: раскладываю задачи по календарю.</b>\n\nКоманды:\n"+
			"• /plan &lt;задача&gt; &lt;часы&gt; [дата] — распланировать задачу\n"+
			"• /push &lt;задача&gt; &lt;часы&gt; &lt;дата&gt; — вставить срочную задачу, сдвинув остальные\n"+
			"• /free [work|hobby] [дней] — свободные часы\n"+
			"• /today — план на сегодня\n"+
			"• /help — подсказки",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /plan &lt;задача&gt; &lt;часы&gt; [дата] — распланировать задачу с даты (по умолчанию с сегодня), например /plan 3 10 2026-09-01\n" +
		"• /push &lt;задача&gt; &lt;часы&gt; &lt;дата&gt; — вставить срочную задачу, остальные сдвинутся позже\n" +
		"• /free [work|hobby] [дней] — свободные часы по дням (по умолчанию work на 7 дней)\n" +
		"• /today — план на сегодня"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 || len(args) > 3 {
		return b.sendText(msg.Chat.ID, "Формат: /plan &lt;задача&gt; &lt;часы&gt; [дата], например /plan 3 10 2026-09-01")
	}

	taskID, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Номер задачи должен быть числом.")
	}
	hours, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Часы должны быть числом, например 10 или 2.5.")
	}
	from := scheduler.Midnight(time.Now())
	if len(args) == 3 {
		from, err = time.Parse("2006-01-02", args[2])
		if err != nil {
			return b.sendText(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2026-09-01</code>.")
		}
	}

	task, err := b.planner.PlanTask(ctx, user.ID, taskID, hours, from)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError("распланировать задачу", err))
	}
	if task.PlannedEndDate != nil {
		if err := b.planner.ReplanDependents(ctx, user.ID, task.ID, *task.PlannedEndDate); err != nil {
			b.log.Warn().Err(err).Uint("task_id", task.ID).Msg("replan dependents")
		}
	}

	return b.sendText(msg.Chat.ID, planSummary(task))
}

func (b *Bot) handlePush(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		return b.sendText(msg.Chat.ID, "Формат: /push &lt;задача&gt; &lt;часы&gt; &lt;дата&gt;, например /push 7 8 2026-09-01")
	}

	taskID, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Номер задачи должен быть числом.")
	}
	hours, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Часы должны быть числом, например 8.")
	}
	from, err := time.Parse("2006-01-02", args[2])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2026-09-01</code>.")
	}

	if err := b.planner.PushForward(ctx, user.ID, user.ID, from, taskID, hours); err != nil {
		return b.sendText(msg.Chat.ID, userError("вставить задачу", err))
	}

	return b.sendText(msg.Chat.ID, fmt.Sprintf("🚀 Задача №%d вставлена с %s, остальные сдвинуты позже.", taskID, from.Format("02.01.2006")))
}

func (b *Bot) handleFree(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	mode := model.ModeWork
	days := defaultFreeDays
	for _, arg := range strings.Fields(msg.CommandArguments()) {
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			days = n
			continue
		}
		candidate := model.Mode(strings.ToLower(arg))
		if !candidate.Valid() {
			return b.sendText(msg.Chat.ID, "Формат: /free [work|hobby] [дней], например /free hobby 14")
		}
		mode = candidate
	}
	if days > 60 {
		days = 60
	}

	from := scheduler.Midnight(time.Now())
	to := from.AddDate(0, 0, days-1)
	availability, err := b.planner.Availability(ctx, user.ID, mode, from, to, nil)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError("посчитать свободные часы", err))
	}

	return b.sendText(msg.Chat.ID, freeSummary(mode, availability))
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	text, err := b.agenda.DailyAgenda(ctx, *user, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, userError("собрать план на день", err))
	}
	if text == "" {
		text = "🎉 На сегодня ничего не запланировано."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	user, err := b.userRepo.FindByTelegramID(ctx, from.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user by telegram id: %w", err)
	}

	name := strings.TrimSpace(strings.TrimSpace(from.FirstName) + " " + strings.TrimSpace(from.LastName))
	user = &model.User{TelegramID: from.ID, Name: name}
	if err := b.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func planSummary(task *model.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Задача <b>%s</b> распланирована.", escape(task.Title))
	if task.PlannedStartDate != nil && task.PlannedEndDate != nil {
		fmt.Fprintf(&sb, "\nСроки: %s — %s.",
			task.PlannedStartDate.Format("02.01.2006"),
			task.PlannedEndDate.Format("02.01.2006"))
	}
	return sb.String()
}

func freeSummary(mode model.Mode, days []scheduler.DayAvailability) string {
	icon := "💼"
	if mode == model.ModeHobby {
		icon = "🎨"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>Свободные часы (%s)</b>\n", icon, mode)
	total := 0.0
	for _, day := range days {
		if day.CapacityHours == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s: %.2g из %.2g ч\n", day.Date.Format("02.01 Mon"), day.AvailableHours, day.CapacityHours)
		total += day.AvailableHours
	}
	fmt.Fprintf(&sb, "Итого свободно: %.2g ч", total)
	return sb.String()
}

func userError(action string, err error) string {
	switch {
	case errors.Is(err, scheduler.ErrInvalidInput):
		return fmt.Sprintf("⚠️ Не получилось %s: %s", action, escape(err.Error()))
	case errors.Is(err, scheduler.ErrInsufficientCapacity):
		return fmt.Sprintf("⛔ Не получилось %s: не хватает свободного времени.", action)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Sprintf("🔍 Не получилось %s: запись не найдена.", action)
	default:
		return fmt.Sprintf("Не получилось %s, попробуй позже.", action)
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
