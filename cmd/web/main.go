package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/beforeigo/beforeigo/internal/broker"
	"github.com/beforeigo/beforeigo/internal/catalog"
	"github.com/beforeigo/beforeigo/internal/envstruct"
	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/beforeigo/beforeigo/internal/logging"
	"github.com/beforeigo/beforeigo/internal/mailer"
	"github.com/beforeigo/beforeigo/internal/media"
	"github.com/beforeigo/beforeigo/internal/pprofserver"
	"github.com/beforeigo/beforeigo/internal/repositories"
	"github.com/beforeigo/beforeigo/internal/session"
	"github.com/beforeigo/beforeigo/internal/speech"
	"github.com/beforeigo/beforeigo/internal/sqlite"
	"github.com/beforeigo/beforeigo/internal/webauthnhandler"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
)

type application struct {
	logger          *slog.Logger
	sessionManager  *scs.SessionManager
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	stories         *repositories.StoryRepository
	responses       *repositories.ResponseRepository
	sessions        *session.Manager
	catalog         *catalog.Catalog
	speech          *speech.Service
	mailer          *mailer.Mailer
	mediaStore      *media.Store
	events          *broker.ChannelBroker[string, progressEvent]
	htmx            *htmx.HTMX
	baseURL         string
}

type config struct {
	Addr          string `env:"BEFOREIGO_ADDR" envDefault:"localhost:4000"`
	FQDN          string `env:"BEFOREIGO_FQDN" envDefault:"localhost"`
	SqliteURL     string `env:"BEFOREIGO_SQLITE_URL" envDefault:"./beforeigo.sqlite"`
	RecordingDir  string `env:"BEFOREIGO_RECORDING_DIR" envDefault:""`
	MediaBucket   string `env:"BEFOREIGO_MEDIA_BUCKET" envDefault:""`
	EmailFrom     string `env:"BEFOREIGO_EMAIL_FROM" envDefault:"Before I Go <hello@beforeigo.app>"`
	PprofPort     string `env:"BEFOREIGO_PPROF_PORT" envDefault:""`
	ElevenLabsKey string `env:"ELEVENLABS_API_KEY" envDefault:""`
	OpenAIKey     string `env:"OPENAI_API_KEY" envDefault:""`
	ResendKey     string `env:"RESEND_API_KEY" envDefault:""`
}

// run wires the application and starts the server. It is separated from main
// so that the end-to-end tests can run the whole server in-process.
func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "parse config")
	}

	if cfg.PprofPort != "" {
		pprofserver.Launch(cfg.PprofPort, logger)
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()
	go db.StartDatabaseOptimizer(ctx)

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 24*time.Hour)
	sessionManager.Lifetime = 12 * time.Hour

	webAuthnHandler, err := webauthnhandler.New(
		cfg.FQDN,
		[]string{fmt.Sprintf("http://%s", cfg.Addr)},
		logger,
		sessionManager,
		db,
	)
	if err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	questionCatalog, err := catalog.Default()
	if err != nil {
		return errors.Wrap(err, "load question catalog")
	}

	appMailer, err := mailer.NewMailer(cfg.ResendKey, cfg.EmailFrom, logger)
	if err != nil {
		return errors.Wrap(err, "new mailer")
	}

	var mediaStore *media.Store
	if cfg.MediaBucket != "" {
		if mediaStore, err = media.NewStore(ctx, cfg.MediaBucket, logger); err != nil {
			return errors.Wrap(err, "new media store")
		}
	}

	stories := repositories.NewStoryRepository(db, logger)
	responses := repositories.NewResponseRepository(db, logger)

	events := broker.NewChannelBroker[string, progressEvent]()
	go events.Start()
	defer events.Stop()

	app := application{
		logger:          logger,
		sessionManager:  sessionManager,
		webAuthnHandler: webAuthnHandler,
		stories:         stories,
		responses:       responses,
		sessions:        session.NewManager(stories, responses, cfg.RecordingDir, logger),
		catalog:         questionCatalog,
		speech:          speech.NewService(cfg.ElevenLabsKey, cfg.OpenAIKey, logger),
		mailer:          appMailer,
		mediaStore:      mediaStore,
		events:          events,
		htmx:            htmx.New(),
		baseURL:         fmt.Sprintf("http://%s", cfg.Addr),
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}))
	logger := slog.New(loggerHandler)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Error("load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(context.Background(), logger, os.LookupEnv); err != nil {
		logger.Error("server exited", errors.SlogError(err))
		os.Exit(1)
	}
}
