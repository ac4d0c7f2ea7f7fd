package editor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultAutosaveInterval matches the editor's periodic save cadence.
const DefaultAutosaveInterval = 30 * time.Second

// Autosaver periodically saves a dirty session. A failed save is retried once after
// RetryDelay; after that the regular interval takes over again.
type Autosaver struct {
	session    *Session
	interval   time.Duration
	retryDelay time.Duration
	log        *zap.Logger
	onSave     func(error)

	mu       sync.Mutex
	timer    *time.Timer
	running  bool
	retrying bool
	stopped  bool
}

type AutosaverOpts struct {
	Interval   time.Duration
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnSave, if set, is called after every attempt with its result.
	OnSave func(error)
}

func NewAutosaver(s *Session, opts AutosaverOpts) *Autosaver {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	retry := opts.RetryDelay
	if retry <= 0 {
		retry = interval
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Autosaver{
		session:    s,
		interval:   interval,
		retryDelay: retry,
		log:        log,
		onSave:     opts.OnSave,
	}
}

func (a *Autosaver) Start() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = false
	if a.timer == nil {
		a.timer = time.AfterFunc(a.interval, a.onTimer)
		return
	}
	a.timer.Reset(a.interval)
}

func (a *Autosaver) Stop() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
	}
}

func (a *Autosaver) onTimer() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	if a.running {
		a.timer.Reset(a.interval)
		a.mu.Unlock()
		return
	}
	if !a.session.Dirty() {
		a.timer.Reset(a.interval)
		a.mu.Unlock()
		return
	}
	a.running = true
	wasRetry := a.retrying
	a.mu.Unlock()

	err := a.session.Save(context.Background())
	if err != nil {
		a.log.Warn("autosave failed",
			zap.String("campaign", a.session.Campaign()),
			zap.String("story", a.session.Name()),
			zap.Bool("retry", wasRetry),
			zap.Error(err),
		)
	}
	if a.onSave != nil {
		a.onSave(err)
	}

	a.mu.Lock()
	a.running = false
	next := a.interval
	a.retrying = false
	if err != nil && !wasRetry {
		a.retrying = true
		next = a.retryDelay
	}
	if !a.stopped {
		a.timer.Reset(next)
	}
	a.mu.Unlock()
}
