package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"wachat/internal/config"
	"wachat/internal/domain"
	"wachat/internal/feed"
	"wachat/internal/httpserver"
	"wachat/internal/logging"
	"wachat/internal/security"
	"wachat/internal/service"
	"wachat/internal/store/postgres"
	"wachat/internal/store/sqlite"
	"wachat/internal/ws"
)

type repos struct {
	profiles      domain.ProfileRepository
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
}

func openStore(cfg *config.Config) (*sql.DB, repos, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, repos{}, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, repos{}, err
		}
		return db, repos{
			profiles:      sqlite.NewProfileRepo(db),
			conversations: sqlite.NewConversationRepo(db),
			participants:  sqlite.NewParticipantRepo(db),
			messages:      sqlite.NewMessageRepo(db),
		}, nil
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, repos{}, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, repos{}, err
		}
		return db, repos{
			profiles:      postgres.NewProfileRepo(db),
			conversations: postgres.NewConversationRepo(db),
			participants:  postgres.NewParticipantRepo(db),
			messages:      postgres.NewMessageRepo(db),
		}, nil
	}
}

func openFeed(cfg *config.Config, log zerolog.Logger) (feed.Feed, error) {
	if cfg.RedisURL == "" {
		return feed.NewMemory(log), nil
	}
	r, err := feed.NewRedisFromURL(cfg.RedisURL, log)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// @title           wachat API
// @version         1.0
// @description     Chat backend: profiles, conversations, messages and a realtime change feed over /ws.
// @BasePath        /api
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	issueFor := flag.String("issue-token", "", "print an access token for this user id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.Debug)

	tokens := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	if *issueFor != "" {
		tok, err := tokens.CreateForUser(*issueFor)
		if err != nil {
			log.Fatal().Err(err).Msg("issue token")
		}
		fmt.Println(tok)
		return
	}

	db, store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	defer db.Close()

	broker, err := openFeed(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open change feed")
	}
	defer broker.Close()

	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	profiles := service.NewProfileService(store.profiles)
	conversations := service.NewConversationService(store.conversations, store.participants, broker, log)
	messages := service.NewMessageService(store.participants, store.messages, encryptor, broker, log)
	hub := ws.NewHub(profiles, log)

	router := httpserver.NewRouter(httpserver.Deps{
		Config:        cfg,
		Log:           log,
		Tokens:        tokens,
		Profiles:      profiles,
		Conversations: conversations,
		Messages:      messages,
		Hub:           hub,
		Feed:          broker,
		Limiter:       httpserver.NewSendLimiter(cfg.SendRatePerSecond, cfg.SendBurst),
	})

	// No WriteTimeout: /ws connections are long-lived.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Str("driver", cfg.DBDriver).Msg("starting wachat server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.CloseAll()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
