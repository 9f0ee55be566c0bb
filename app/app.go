package prism

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/putto11262002/prism/core"
	"github.com/putto11262002/prism/pkg/logger"
	"github.com/putto11262002/prism/pkg/router"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *Config
	db      *core.SQLiteDB
	context context.Context
	server  *http.Server
	logger  *slog.Logger
	router  *router.Router

	kv        core.KVStore
	identity  *core.IdentityStore
	themes    *core.ThemeStore
	events    *core.Broadcaster
	lifecycle *core.Lifecycle
	views     *ViewManager

	roomHandler *RoomHandler
	userHandler *UserHandler

	cleanupFuncs []func(context.Context)

	wg sync.WaitGroup
}

type options struct {
	logOutput      io.Writer
	random         core.Random
	lifecycleOpts  []core.LifecycleOption
	viewOpts       []ViewOption
	fallback       func(any) ErrorResponse
	extraEndpoints func(r *router.Router)
}

type Option func(*options)

// WithLogOutput sets where logs are written. The default is stdout.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// WithRandom sets the source used for simulated outcomes and generated tokens.
func WithRandom(r core.Random) Option {
	return func(o *options) {
		o.random = r
	}
}

// WithLifecycleOptions passes extra options to the lifecycle manager. They
// are applied after the ones derived from the configuration.
func WithLifecycleOptions(opts ...core.LifecycleOption) Option {
	return func(o *options) {
		o.lifecycleOpts = append(o.lifecycleOpts, opts...)
	}
}

func WithViewOptions(opts ...ViewOption) Option {
	return func(o *options) {
		o.viewOpts = append(o.viewOpts, opts...)
	}
}

// WithFallback replaces the response served when a handler panics.
func WithFallback(f func(any) ErrorResponse) Option {
	return func(o *options) {
		o.fallback = f
	}
}

// WithEndpoints registers additional handlers under /api.
func WithEndpoints(f func(r *router.Router)) Option {
	return func(o *options) {
		o.extraEndpoints = f
	}
}

func New(ctx context.Context, config *Config, opts ...Option) (*App, error) {
	o := &options{
		logOutput: os.Stdout,
		random:    core.SystemRandom,
	}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{}
	if ctx == nil {
		ctx, _ = signal.NotifyContext(
			context.Background(),
			syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	}
	app.context = ctx

	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%s", FormatValidationErrors(err))
	}
	app.config = config

	level, err := logger.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}
	app.logger = logger.New(o.logOutput, level)

	if err := app.openStore(); err != nil {
		return nil, err
	}

	app.identity = core.NewIdentityStore(app.kv, app.logger)
	app.themes = core.NewThemeStore(app.kv)
	app.events = core.NewBroadcaster(app.logger)

	lifecycleOpts := append([]core.LifecycleOption{
		core.WithRandom(o.random),
		core.WithLatency(config.Simulation.Latency),
		core.WithReplyDelay(config.Simulation.ReplyDelay),
		core.WithJoinFailureRate(config.Simulation.JoinFailureRate),
		core.WithBroadcaster(app.events),
		core.WithLogger(app.logger),
	}, o.lifecycleOpts...)
	app.lifecycle = core.NewLifecycle(app.identity, lifecycleOpts...)

	viewOpts := append([]ViewOption{WithCheckOrigin(app.checkOrigin)}, o.viewOpts...)
	app.views = NewViewManager(app.context, &app.wg, app.lifecycle, app.events, app.logger, viewOpts...)

	app.roomHandler = NewRoomHandler(app.lifecycle, o.random)
	app.userHandler = NewUserHandler(app.lifecycle, app.themes)

	app.router = router.New(router.WithLogger(app.logger), router.WithErrorMapper(appErrorMapper))

	app.router.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))
	app.router.Use(Supervise(app.logger, o.fallback))

	app.router.Router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := app.views.Connect(w, r); err != nil {
			app.logger.Error(err.Error())
		}
	})

	api := router.New(router.WithLogger(app.logger), router.WithErrorMapper(appErrorMapper))

	api.Get("/healthz", HealthHandler)
	api.Get("/state", app.roomHandler.StateHandler)

	api.Route("/rooms", func(r *router.Router) {
		r.Post("/", app.roomHandler.CreateRoomHandler)
		r.Post("/join", app.roomHandler.JoinRoomHandler)
		r.Patch("/current", app.roomHandler.UpdateSettingsHandler)
		r.Delete("/current", app.roomHandler.LeaveRoomHandler)
	})
	api.Post("/messages", app.roomHandler.SendMessageHandler)

	api.Route("/me", func(r *router.Router) {
		r.Get("/", app.userHandler.MeHandler)
		r.Put("/name", app.userHandler.UpdateNameHandler)
		r.Put("/theme", app.userHandler.UpdateThemeHandler)
	})

	api.Route("/tokens", func(r *router.Router) {
		r.Get("/invite-code", app.roomHandler.InviteCodeHandler)
		r.Get("/password", app.roomHandler.PasswordHandler)
	})

	if o.extraEndpoints != nil {
		o.extraEndpoints(api)
	}

	app.router.Mount("/api", api)

	app.server = &http.Server{
		Addr:    app.config.Addr(),
		Handler: app.router.Router,
		BaseContext: func(listener net.Listener) context.Context {
			return app.context
		},
	}

	return app, nil
}

func (app *App) openStore() error {
	if app.config.Store.Driver == MemoryStore {
		app.kv = core.NewMemoryKV()
		return nil
	}

	sqliteOptions := &core.SQLiteDBOption{
		Mode:        "rwc",
		Cache:       "shared",
		JournalMode: "WAL",
	}
	db, err := core.NewSQLiteDB(app.config.Store.File, sqliteOptions)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	app.db = db
	app.AddCleanupFunc(func(ctx context.Context) {
		app.db.Close()
	})
	if err := app.db.Migrate(); err != nil {
		app.db.Close()
		return fmt.Errorf("migrate database: %w", err)
	}
	app.kv = core.NewSQLiteKV(app.db.DB)
	return nil
}

func (app *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range app.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Handler returns the root HTTP handler.
func (app *App) Handler() http.Handler {
	return app.router.Router
}

func (app *App) Lifecycle() *core.Lifecycle {
	return app.lifecycle
}

func (app *App) Logger() *slog.Logger {
	return app.logger
}

// Start serves HTTP until the app context is done, then shuts down gracefully.
func (app *App) Start() error {
	app.AddCleanupFunc(func(ctx context.Context) {
		app.server.Shutdown(ctx)
	})

	errc := make(chan error, 1)
	go func() {
		app.logger.Info(fmt.Sprintf("app running in %s mode on: %s", app.config.Mode, app.config.Addr()))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case serveErr = <-errc:
	case <-app.context.Done():
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer closeCancel()
	return errors.Join(serveErr, app.Shutdown(closeCtx))
}

// Shutdown runs the cleanup functions and waits for view connections to
// close. It fails when ctx is done first.
func (app *App) Shutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, f := range app.cleanupFuncs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("app shutdown gracefully")
		return nil
	case <-ctx.Done():
		app.logger.Info("app shutdown timed out")
		return ctx.Err()
	}
}

func (app *App) AddCleanupFunc(f func(context.Context)) {
	app.cleanupFuncs = append(app.cleanupFuncs, f)
}
