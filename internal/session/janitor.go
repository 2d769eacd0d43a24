package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/config"
)

// Sweeper drops per-conversation state idle for longer than ttl and
// reports how many conversations it removed
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

// Janitor periodically sweeps idle conversations out of a Store and any
// other per-conversation state kept alongside it
type Janitor struct {
	store    *Store
	others   []Sweeper
	ttl      time.Duration
	schedule string
	cron     *cron.Cron
}

// NewJanitor creates a janitor for store. The schedule accepts standard
// five-field cron expressions and descriptors such as "@every 10m".
// others are swept with the same idle TTL.
func NewJanitor(store *Store, cfg config.SessionConfig, others ...Sweeper) (*Janitor, error) {
	j := &Janitor{
		store:    store,
		others:   others,
		ttl:      cfg.IdleTTL,
		schedule: cfg.SweepSchedule,
		cron: cron.New(
			cron.WithLogger(cron.PrintfLogger(logrus.StandardLogger())),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}

	if _, err := j.cron.AddFunc(cfg.SweepSchedule, func() { j.Sweep() }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	return j, nil
}

// Start begins running the sweep schedule in the background
func (j *Janitor) Start() {
	j.cron.Start()
	logrus.WithFields(logrus.Fields{
		"schedule": j.schedule,
		"idle_ttl": j.ttl,
	}).Info("Session janitor started")
}

// Stop stops the schedule and waits for a running sweep to finish
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	logrus.Debug("Session janitor stopped")
}

// Sweep runs one sweep immediately and returns the number of idle
// conversations removed from the store
func (j *Janitor) Sweep() int {
	removed := j.store.Sweep(j.ttl)
	for _, other := range j.others {
		if n := other.Sweep(j.ttl); n > 0 {
			logrus.WithField("removed", n).Debugf("Swept idle %T state", other)
		}
	}
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": j.store.Len(),
		}).Info("Swept idle conversations")
	}
	return removed
}
