package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"planboard/internal/model"
	"planboard/internal/notify"
	"planboard/internal/repository"
	"planboard/internal/scheduler"
)

// AgendaService builds per-user daily schedules for the morning
// notification: the day's allocations in both modes merged with the day's
// recurring commitments, in time order.
type AgendaService struct {
	users     *repository.UserRepository
	tasks     *repository.TaskRepository
	allocs    *repository.AllocationRepository
	recurring *repository.RecurringRepository
	notifier  notify.Notifier
	log       zerolog.Logger
}

func NewAgendaService(users *repository.UserRepository, tasks *repository.TaskRepository, allocs *repository.AllocationRepository, recurring *repository.RecurringRepository, notifier notify.Notifier, log zerolog.Logger) *AgendaService {
	return &AgendaService{
		users:     users,
		tasks:     tasks,
		allocs:    allocs,
		recurring: recurring,
		notifier:  notifier,
		log:       log,
	}
}

// SendDailyAgendas delivers today's agenda to every user with a Telegram
// chat configured. Users with an empty day are skipped.
func (s *AgendaService) SendDailyAgendas(ctx context.Context, now time.Time) error {
	users, err := s.users.ListNotifiable(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, user := range users {
		text, err := s.DailyAgenda(ctx, user, now)
		if err != nil {
			s.log.Warn().Err(err).Uint("user", user.ID).Msg("build agenda failed")
			continue
		}
		if text == "" {
			continue
		}
		if err := s.notifier.Send(ctx, user.TelegramID, text); err != nil {
			s.log.Warn().Err(err).Uint("user", user.ID).Msg("send agenda failed")
		}
	}
	return nil
}

type agendaEntry struct {
	startMinutes int
	endMinutes   int
	icon         string
	taskID       uint // 0 for recurring blocks
}

// DailyAgenda renders one user's schedule for the day, or "" when the day
// is empty.
func (s *AgendaService) DailyAgenda(ctx context.Context, user model.User, now time.Time) (string, error) {
	date := scheduler.Midnight(now)

	var entries []agendaEntry
	for _, mode := range []model.Mode{model.ModeWork, model.ModeHobby} {
		rows, err := s.allocs.ListForUserOnDate(ctx, user.ID, mode, date)
		if err != nil {
			return "", err
		}
		icon := "💼"
		if mode == model.ModeHobby {
			icon = "🎨"
		}
		for _, row := range rows {
			entries = append(entries, agendaEntry{
				startMinutes: row.StartMinutes,
				endMinutes:   row.EndMinutes,
				icon:         icon,
				taskID:       row.TaskID,
			})
		}
	}

	blocks, err := s.recurring.ListBlocks(ctx, user.ID, date, date)
	if err != nil {
		return "", err
	}
	for _, b := range blocks {
		entries = append(entries, agendaEntry{
			startMinutes: b.StartMinutes,
			endMinutes:   b.EndMinutes,
			icon:         "📌",
		})
	}

	if len(entries) == 0 {
		return "", nil
	}

	titles, err := s.taskTitles(ctx, entries)
	if err != nil {
		return "", err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].startMinutes < entries[j].startMinutes
	})

	var builder strings.Builder
	builder.WriteString("🗓 <b>План на день</b>\n")
	builder.WriteString(fmt.Sprintf("%s\n\n", date.Format("02.01.2006")))
	for _, e := range entries {
		label := "занято"
		if e.taskID != 0 {
			label = titles[e.taskID]
		}
		builder.WriteString(fmt.Sprintf("%s %s–%s %s\n",
			e.icon, scheduler.Clock(e.startMinutes), scheduler.Clock(e.endMinutes), label))
	}
	return strings.TrimSpace(builder.String()), nil
}

// taskTitles resolves the entries' task titles in one query.
func (s *AgendaService) taskTitles(ctx context.Context, entries []agendaEntry) (map[uint]string, error) {
	seen := make(map[uint]bool)
	var ids []uint
	for _, e := range entries {
		if e.taskID != 0 && !seen[e.taskID] {
			seen[e.taskID] = true
			ids = append(ids, e.taskID)
		}
	}

	titles := make(map[uint]string, len(ids))
	tasks, err := s.tasks.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		titles[t.ID] = html.EscapeString(strings.TrimSpace(t.Title))
	}
	for _, id := range ids {
		if titles[id] == "" {
			titles[id] = fmt.Sprintf("задача #%d", id)
		}
	}
	return titles, nil
}
