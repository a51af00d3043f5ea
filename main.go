package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	myanthropic "github.com/pathakanu/waremind/internal/anthropic"
	"github.com/pathakanu/waremind/internal/bot"
	"github.com/pathakanu/waremind/internal/config"
	"github.com/pathakanu/waremind/internal/database"
	"github.com/pathakanu/waremind/internal/intent"
	myopenai "github.com/pathakanu/waremind/internal/openai"
	"github.com/pathakanu/waremind/internal/oracle"
	"github.com/pathakanu/waremind/internal/scheduler"
	"github.com/pathakanu/waremind/internal/store"
	"github.com/pathakanu/waremind/internal/twilio"
)

func main() {
	logger := log.New(os.Stdout, "[waremind] ", log.LstdFlags|log.Lshortfile)
	cfg := config.Load()

	persister, err := newPersister(cfg, logger)
	if err != nil {
		logger.Fatalf("storage init failed: %v", err)
	}
	reminders := store.New(persister)
	if err := reminders.Load(); err != nil {
		logger.Fatalf("load reminders: %v", err)
	}
	logger.Printf("loaded %d saved reminders", reminders.Len())

	completer := newCompleter(cfg)
	logger.Printf("using %s for intent extraction", cfg.LLMProvider)
	twilioClient := twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger)

	reminderBot := bot.New(reminders, intent.NewResolver(completer), oracle.NewGate(completer), logger)
	sched := scheduler.New(reminders, twilioClient, oracle.NewEnricher(completer), cfg.LocalTimezone, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalf("scheduler start: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/twilio/webhook", reminderBot.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	waitForShutdown(server, sched, logger)
}

func newPersister(cfg *config.Config, logger *log.Logger) (store.Persister, error) {
	if cfg.ReminderFile != "" {
		logger.Printf("storage: using JSON file %s", cfg.ReminderFile)
		return store.NewFilePersister(cfg.ReminderFile), nil
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return database.NewPersister(db), nil
}

func newCompleter(cfg *config.Config) oracle.Completer {
	if cfg.LLMProvider == config.ProviderAnthropic {
		return myanthropic.New(cfg.AnthropicAPIKey)
	}
	return myopenai.New(cfg.OpenAIAPIKey)
}

func waitForShutdown(server *http.Server, sched *scheduler.Scheduler, logger *log.Logger) {
	stopCtx := make(chan os.Signal, 1)
	signal.Notify(stopCtx, syscall.SIGINT, syscall.SIGTERM)
	<-stopCtx
	logger.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
	sched.Stop()
}
