package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/pkg/replay"
	"github.com/shandysiswandi/totpguard/internal/pkg/router"
	"github.com/shandysiswandi/totpguard/internal/pkg/totp"
	"github.com/shandysiswandi/totpguard/internal/pkg/uid"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uuid      uid.StringID

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	guard     replay.Guard
	verifier  *totp.Verifier
	messaging messaging.Publisher

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initVerifier()
	app.initJanitor()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
