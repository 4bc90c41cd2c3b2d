package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/httpapi"
	"github.com/charbel-alt28/aura-retail-ai/internal/otel"
	"github.com/charbel-alt28/aura-retail-ai/internal/scenario"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the configured periodic ops jobs against one App.
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]func(context.Context) error

	mu      sync.Mutex
	ctx     context.Context
	specs   map[string]string
	entries map[string]cron.EntryID
}

var specParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewScheduler registers every job with a non-empty cron spec. Specs carry a
// leading seconds field; descriptors such as "@every 5m" also work.
func NewScheduler(cfg config.ScheduleConfig, app *httpapi.App) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithParser(specParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs: map[string]func(context.Context) error{
			"scan": func(ctx context.Context) error {
				_, err := app.Scan(ctx)
				return err
			},
			"auto_reorder": func(context.Context) error {
				_, err := app.Ops.AutoReorder()
				return err
			},
			"backup": func(ctx context.Context) error {
				_, err := app.Backup(ctx)
				return err
			},
			"scenario": func(ctx context.Context) error {
				_, err := app.RunScenario(ctx)
				return err
			},
		},
		ctx:     context.Background(),
		specs:   map[string]string{},
		entries: map[string]cron.EntryID{},
	}
	if err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload swaps in new specs. Every spec is parsed before anything changes,
// so a bad edit leaves the running schedule intact. Unchanged jobs keep
// their entries.
func (s *Scheduler) Reload(cfg config.ScheduleConfig) error {
	specs := cfg.Jobs()
	names := make([]string, 0, len(specs))
	for name, spec := range specs {
		if spec == "" {
			continue
		}
		if _, err := specParser.Parse(spec); err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, spec, err)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, id := range s.entries {
		if specs[name] != s.specs[name] || specs[name] == "" {
			s.cron.Remove(id)
			delete(s.entries, name)
			delete(s.specs, name)
			slog.Info("job unscheduled", "job", name)
		}
	}
	for _, name := range names {
		if _, ok := s.entries[name]; ok {
			continue
		}
		spec := specs[name]
		id, err := s.cron.AddFunc(spec, func() { s.RunJob(s.context(), name) })
		if err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, spec, err)
		}
		s.entries[name] = id
		s.specs[name] = spec
		slog.Info("job scheduled", "job", name, "spec", spec)
	}
	return nil
}

// Specs returns the active job specs.
func (s *Scheduler) Specs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.specs))
	for k, v := range s.specs {
		out[k] = v
	}
	return out
}

// Entries is the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// Start begins firing jobs; they receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// RunJob runs one job now and records its outcome. A scenario already in
// progress counts as skipped, not failed.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	fn, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	err := fn(ctx)
	outcome := "ok"
	switch {
	case errors.Is(err, scenario.ErrAlreadyRunning):
		outcome = "skipped"
		slog.Info("job skipped", "job", name, "reason", err)
		err = nil
	case err != nil:
		outcome = "error"
		slog.Error("job failed", "job", name, "err", err)
	default:
		slog.Debug("job done", "job", name)
	}
	otel.RecordJobRun(ctx, name, outcome)
	return err
}
