// file: internals/features/payments/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"tutorhub_backend/internals/constants"
	linkSvc "tutorhub_backend/internals/features/payments/links/service"
	partialSvc "tutorhub_backend/internals/features/payments/partials/service"
	remSvc "tutorhub_backend/internals/features/payments/reminders/service"
	"tutorhub_backend/internals/helpers/cache"
	helperOSS "tutorhub_backend/internals/helpers/oss"
	"tutorhub_backend/internals/helpers/report"
)

type Config struct {
	RemindersSpec   string
	ExpireLinksSpec string
	OverdueSpec     string
	ExportReapSpec  string
	ExportRetention time.Duration
	JobTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		RemindersSpec:   "@every 1m",
		ExpireLinksSpec: "@every 15m",
		OverdueSpec:     "@hourly",
		ExportReapSpec:  "15 2 * * *",
		ExportRetention: 7 * 24 * time.Hour,
		JobTimeout:      4 * time.Minute,
	}
}

type Jobs struct {
	DB        *gorm.DB
	Links     *linkSvc.Service
	Reminders *remSvc.Service
	Exports   helperOSS.ExportStore
	Cache     cache.Store
	Now       func() time.Time
}

// RunDueReminders dispatches scheduled reminders whose time has come.
func (j *Jobs) RunDueReminders(ctx context.Context) error {
	n, err := j.Reminders.RunDue(ctx, j.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[REMINDER-CRON] dispatched %d scheduled reminder(s)", n)
		cache.Invalidate(ctx, j.Cache, append([]string{constants.TagAnalytics}, constants.ReminderTags...)...)
	}
	return nil
}

func (j *Jobs) ExpireLinks(ctx context.Context) error {
	n, err := j.Links.ExpireDue(ctx, j.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[LINK-EXPIRY] %d link(s) expired", n)
		cache.Invalidate(ctx, j.Cache, constants.TagLinks, constants.TagAnalytics)
	}
	return nil
}

func (j *Jobs) MarkOverdue(ctx context.Context) error {
	n, err := partialSvc.MarkOverdue(ctx, j.DB, j.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[OVERDUE] %d partial payment(s) now overdue", n)
		cache.Invalidate(ctx, j.Cache, constants.TagPartials, constants.TagAnalytics)
	}
	return nil
}

func (j *Jobs) ReapExports(ctx context.Context, retention time.Duration) error {
	if j.Exports == nil {
		return nil
	}
	n, err := j.Exports.Reap(ctx, retention)
	if err != nil {
		return err
	}
	log.Printf("[EXPORT-REAPER] removed %d file(s)", n)
	return nil
}

// Start registers every job on a cron that skips overlapping runs.
// The caller stops it on shutdown.
func Start(j *Jobs, cfg Config) (*cron.Cron, error) {
	if j.Now == nil {
		j.Now = time.Now
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	add := func(spec, tag string, fn func(context.Context) error) error {
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
			defer cancel()
			if err := fn(ctx); err != nil {
				report.Error(tag, err, nil)
			}
		})
		return err
	}

	if err := add(cfg.RemindersSpec, "REMINDER-CRON", j.RunDueReminders); err != nil {
		return nil, err
	}
	if err := add(cfg.ExpireLinksSpec, "LINK-EXPIRY", j.ExpireLinks); err != nil {
		return nil, err
	}
	if err := add(cfg.OverdueSpec, "OVERDUE", j.MarkOverdue); err != nil {
		return nil, err
	}
	if err := add(cfg.ExportReapSpec, "EXPORT-REAPER", func(ctx context.Context) error {
		return j.ReapExports(ctx, cfg.ExportRetention)
	}); err != nil {
		return nil, err
	}

	log.Printf("[SCHEDULER] started reminders=%q expiry=%q overdue=%q reap=%q",
		cfg.RemindersSpec, cfg.ExpireLinksSpec, cfg.OverdueSpec, cfg.ExportReapSpec)
	c.Start()
	return c, nil
}
