// Package maintenance runs scheduled housekeeping: expired sessions, expired cache entries
// and old import history.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/mysite19/mysite/internal/auth"
	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/pkg/logger"
)

const (
	defaultImportRetention = 90 * 24 * time.Hour
	defaultSessionSpec     = "@hourly"
	defaultCacheSpec       = "@hourly"
	defaultImportJobsSpec  = "@daily"
)

// CachePurger drops expired entries from a cache backend.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner schedules the housekeeping jobs. Jobs whose dependency is nil are skipped.
type Cleaner struct {
	db        *gorm.DB
	sessions  *iauth.SessionService
	cache     CachePurger
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration

	sessionSchedule string
	cacheSchedule   string
	importSchedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured scheduler.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithImportRetention sets how long import history is kept.
func WithImportRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithSchedules overrides the cron specs; empty specs keep the defaults.
func WithSchedules(sessions, cacheSpec, imports string) Option {
	return func(cleaner *Cleaner) {
		if sessions != "" {
			cleaner.sessionSchedule = sessions
		}
		if cacheSpec != "" {
			cleaner.cacheSchedule = cacheSpec
		}
		if imports != "" {
			cleaner.importSchedule = imports
		}
	}
}

// NewCleaner builds a Cleaner. purger may be nil when the cache backend expires entries itself.
func NewCleaner(db *gorm.DB, sessions *iauth.SessionService, purger CachePurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		sessions:        sessions,
		cache:           purger,
		now:             time.Now,
		retention:       defaultImportRetention,
		sessionSchedule: defaultSessionSpec,
		cacheSchedule:   defaultCacheSpec,
		importSchedule:  defaultImportJobsSpec,
		log:             logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(cleaner)
	}
	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the enabled jobs and starts the scheduler.
func (c *Cleaner) Start() error {
	jobs := 0
	add := func(spec, name string, run func(context.Context) (int64, error)) error {
		_, err := c.cron.AddFunc(spec, func() {
			removed, err := run(context.Background())
			if err != nil {
				c.log.Warn(name+" cleanup failed", zap.Error(err))
				return
			}
			if removed > 0 {
				c.log.Info(name+" cleanup completed", zap.Int64("removed", removed))
			}
		})
		if err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", name, err)
		}
		jobs++
		return nil
	}

	if c.sessions != nil {
		if err := add(c.sessionSchedule, "session", c.sessions.CleanupExpired); err != nil {
			return err
		}
	}
	if c.cache != nil {
		if err := add(c.cacheSchedule, "cache", c.cache.PurgeExpired); err != nil {
			return err
		}
	}
	if c.db != nil {
		if err := add(c.importSchedule, "import job", c.pruneImportJobs); err != nil {
			return err
		}
	}

	if jobs > 0 {
		c.cron.Start()
	}
	return nil
}

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce runs every enabled job immediately and combines their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error
	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.cache != nil {
		if _, err := c.cache.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.db != nil {
		if _, err := c.pruneImportJobs(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Cleaner) pruneImportJobs(ctx context.Context) (int64, error) {
	return PruneImportJobs(ctx, c.db, c.now().Add(-c.retention))
}

// PruneImportJobs deletes import history created before cutoff.
func PruneImportJobs(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("prune import jobs: db is required")
	}
	result := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ImportJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune import jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
