package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/simple-mercari/listing/internal/bot"
	"github.com/simple-mercari/listing/internal/config"
	"github.com/simple-mercari/listing/internal/mercari"
)

const logFileName = "listing-bot.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()
	if missing := config.MissingRequired(); len(missing) > 0 {
		if !config.IsInteractiveTerminal() {
			log.Fatal().Strs("missing", missing).Msg("missing required config")
		}
		if !config.RunSetupWizard() {
			os.Exit(1)
		}
	}
	cfg := config.Load()

	if cfg.BotToken == "" {
		log.Fatal().Msg("BOT_TOKEN is not set")
	}

	closeLog := setupLogging()
	defer closeLog()

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telegram bot")
		closeLog()
		os.Exit(1)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	bot.RegisterCommands(tg)

	client := mercari.NewClient(mercari.ClientOpts{BaseURL: cfg.ServerOrigin})
	log.Info().Str("server", client.BaseURL()).Str("itemsURL", cfg.ItemsURL()).Msg("posting listings")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runBot(ctx, tg, client)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// setupLogging writes to stderr, and also to a log file unless running under
// systemd. The returned func closes the file.
func setupLogging() func() {
	// JOURNAL_STREAM is set by systemd, which already collects stderr.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return func() {}
	}

	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open log file")
	}

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Info().Str("logFile", logFileName).Msg("logging to file")

	var once sync.Once
	return func() {
		once.Do(func() { logFile.Close() })
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, client *mercari.Client) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := bot.NewBot(tg, client)
	defer b.Shutdown()

	// Updates are queued in arrival order; each user's worker applies them.
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}
