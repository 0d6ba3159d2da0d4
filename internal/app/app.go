// Package app builds the service graph from configuration.
package app

import (
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/vladimiradmaev/glucose-guide/internal/clinical"
	"github.com/vladimiradmaev/glucose-guide/internal/config"
	"github.com/vladimiradmaev/glucose-guide/internal/database"
	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	"github.com/vladimiradmaev/glucose-guide/internal/events"
	"github.com/vladimiradmaev/glucose-guide/internal/interfaces"
	"github.com/vladimiradmaev/glucose-guide/internal/locker"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
	"github.com/vladimiradmaev/glucose-guide/internal/notify"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

// App holds the wired services and the resources they share.
type App struct {
	Users          interfaces.UserServiceInterface
	BloodSugar     interfaces.BloodSugarServiceInterface
	Insulin        interfaces.InsulinServiceInterface
	Alerts         interfaces.AlertServiceInterface
	Recommendation interfaces.RecommendationServiceInterface
	Adherence      interfaces.AdherenceServiceInterface

	db      *gorm.DB
	ownsDB  bool
	closers []io.Closer
}

// Options carries the dependencies New would otherwise build from config.
// Zero fields are built from config.
type Options struct {
	Locker   domain.Locker
	Notifier domain.Notifier
	Profile  *clinical.Profile
	Location *time.Location
}

// New connects to the database, runs migrations and wires every service.
func New(cfg *config.Config) (*App, error) {
	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Database connection established and migrations completed")

	a, err := NewWithDB(cfg, db, Options{})
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	a.ownsDB = true
	return a, nil
}

// NewWithDB wires the services on an already migrated database. The caller
// keeps ownership of db.
func NewWithDB(cfg *config.Config, db *gorm.DB, opts Options) (*App, error) {
	a := &App{db: db}

	lock := opts.Locker
	if lock == nil {
		var err error
		if lock, err = a.newLocker(cfg); err != nil {
			return nil, err
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = newNotifier(cfg)
	}

	var profile clinical.Profile
	if opts.Profile != nil {
		profile = *opts.Profile
	} else {
		var err error
		if profile, err = clinical.LoadProfile(cfg.ClinicalProfile); err != nil {
			a.closeResources()
			return nil, err
		}
	}

	loc := opts.Location
	if loc == nil {
		loc = cfg.Location()
	}

	store := repository.NewStore(db)
	bus := events.NewBus()

	insulin := services.NewInsulinService(store, lock)
	alerts := services.NewAlertService(store, lock, profile.Windows, notifier, loc)
	services.Subscribe(bus, insulin, alerts)

	a.Users = services.NewUserService(store)
	a.BloodSugar = services.NewBloodSugarService(store, lock, profile.Windows, bus, loc)
	a.Insulin = insulin
	a.Alerts = alerts
	a.Recommendation = services.NewRecommendationService(store, lock, profile.Catalog, loc)
	a.Adherence = services.NewAdherenceService(store, lock)

	logger.Info("Services initialized successfully",
		"windows", profile.Windows.Len(),
		"rules", profile.Catalog.Len(),
		"timezone", loc.String())
	return a, nil
}

func (a *App) newLocker(cfg *config.Config) (domain.Locker, error) {
	if cfg.Lock.Backend != config.LockBackendRedis {
		return locker.NewMemoryLocker(cfg.Lock.Wait), nil
	}
	rl, err := locker.NewRedisLocker(cfg.Redis, cfg.Lock)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rl)
	logger.Info("Using Redis locks", "addr", cfg.Redis.Addr())
	return rl, nil
}

// newNotifier falls back to logging when Telegram is not configured or unreachable.
func newNotifier(cfg *config.Config) domain.Notifier {
	if cfg.TelegramToken == "" {
		return notify.NewLogNotifier()
	}
	tn, err := notify.NewTelegramNotifier(cfg.TelegramToken)
	if err != nil {
		logger.Warn("Telegram notifier unavailable, logging notifications instead", "error", err)
		return notify.NewLogNotifier()
	}
	return tn
}

func (a *App) closeResources() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

// Close releases the lock backend and, when New opened it, the database.
func (a *App) Close() error {
	a.closeResources()
	if !a.ownsDB {
		return nil
	}
	return database.Close(a.db)
}
