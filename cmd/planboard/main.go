package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"planboard/internal/bot"
	"planboard/internal/config"
	"planboard/internal/notify"
	"planboard/internal/repository"
	"planboard/internal/scheduler"
	"planboard/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("load config")
	}

	log := newLogger(cfg.LogLevel)

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	allocRepo := repository.NewAllocationRepository(db)
	recurringRepo := repository.NewRecurringRepository(db)

	var notifier notify.Notifier = notify.Noop{}
	var api *tgbotapi.BotAPI
	if cfg.TelegramToken != "" {
		api, err = tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.Fatal().Err(err).Msg("create bot api")
		}
		notifier = notify.NewTelegram(api)
	}

	planner := service.NewPlannerService(db, notifier, log)
	agenda := service.NewAgendaService(userRepo, taskRepo, allocRepo, recurringRepo, notifier, log)
	recurring := service.NewRecurringService(recurringRepo, log)

	if err := recurring.Materialize(ctx, scheduler.Midnight(time.Now()), cfg.RecurringHorizonDays); err != nil {
		log.Fatal().Err(err).Msg("materialize recurring commitments")
	}

	cronSvc := service.NewCronService(time.Local)
	if _, err := cronSvc.ScheduleDaily(cfg.AgendaTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := agenda.SendDailyAgendas(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("send daily agendas")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule daily agendas")
	}
	if _, err := cronSvc.ScheduleInterval(24*time.Hour, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := recurring.Materialize(jobCtx, scheduler.Midnight(time.Now()), cfg.RecurringHorizonDays); err != nil {
			log.Error().Err(err).Msg("materialize recurring commitments")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule recurring materialization")
	}
	cronSvc.Start()
	defer cronSvc.Stop()

	log.Info().Msg("planboard started")

	if api != nil {
		tgBot := bot.New(api, userRepo, planner, agenda, log)
		if err := tgBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("bot stopped")
		}
	} else {
		log.Warn().Msg("no telegram token configured, running without bot")
		<-ctx.Done()
	}

	log.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}
