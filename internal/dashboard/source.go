// Package dashboard runs the per-dataset data sources: each one fetches its
// records on start and on a fixed interval, recomputes the snapshot and
// reports what happened through notices.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dbsmedya/outreachkpi/internal/kpi"
	"github.com/dbsmedya/outreachkpi/internal/logger"
	"github.com/dbsmedya/outreachkpi/internal/notify"
	"github.com/dbsmedya/outreachkpi/internal/publish"
	"github.com/dbsmedya/outreachkpi/internal/record"
	"github.com/dbsmedya/outreachkpi/internal/source"
	"github.com/dbsmedya/outreachkpi/internal/telemetry"
)

// ErrStopped is returned by Refresh once the source has been stopped.
var ErrStopped = errors.New("data source stopped")

// State is what a view currently shows.
type State string

const (
	StateLoading   State = "loading"
	StateNoData    State = "no_data"
	StatePopulated State = "populated"
)

// View is a point-in-time copy of a source's state.
type View struct {
	Dataset      string        `json:"dataset" yaml:"dataset"`
	Title        string        `json:"title" yaml:"title"`
	Shape        kpi.Shape     `json:"shape" yaml:"shape"`
	Source       string        `json:"source" yaml:"source"`
	State        State         `json:"state" yaml:"state"`
	Loading      bool          `json:"loading" yaml:"loading"`
	Snapshot     *kpi.Snapshot `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Records      int           `json:"records" yaml:"records"`
	LastUpdate   *time.Time    `json:"lastUpdate,omitempty" yaml:"lastUpdate,omitempty"`
	LoadDuration float64       `json:"loadDurationSeconds" yaml:"loadDurationSeconds"`
	LastError    string        `json:"lastError,omitempty" yaml:"lastError,omitempty"`
}

// Options configures a Source.
type Options struct {
	Dataset     string
	Title       string
	Interval    time.Duration
	EmptyPolicy kpi.EmptyPolicy
	Loader      source.Loader
	Calculator  *kpi.Calculator

	Notifier  notify.Notifier
	Telemetry *telemetry.Collector
	Publisher publish.Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

// Source owns one dataset's records and snapshot.
type Source struct {
	dataset  string
	title    string
	interval time.Duration
	loader   source.Loader

	notifier  notify.Notifier
	telemetry *telemetry.Collector
	publisher publish.Publisher
	log       *logger.Logger
	now       func() time.Time

	mu           sync.Mutex
	calc         *kpi.Calculator
	policy       kpi.EmptyPolicy
	records      []record.Record
	snapshot     *kpi.Snapshot
	lastUpdate   time.Time
	loadDuration time.Duration
	lastErr      string
	attempted    bool
	inFlight     int
	issued       uint64
	applied      uint64
	started      bool
	stopped      bool
	revision     uint64

	// hookMu serialises snapshot hooks; emitted is the newest revision
	// handed to telemetry and the publisher.
	hookMu  sync.Mutex
	emitted uint64

	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSource creates a stopped source.
func NewSource(opts Options) (*Source, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("dataset %s: loader is required", opts.Dataset)
	}
	if opts.Calculator == nil {
		return nil, fmt.Errorf("dataset %s: calculator is required", opts.Dataset)
	}

	policy := opts.EmptyPolicy
	if policy == "" {
		policy = opts.Calculator.Shape().DefaultEmptyPolicy()
	}
	title := opts.Title
	if title == "" {
		title = opts.Dataset
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Source{
		dataset:   opts.Dataset,
		title:     title,
		interval:  opts.Interval,
		loader:    opts.Loader,
		notifier:  notifier,
		telemetry: opts.Telemetry,
		publisher: opts.Publisher,
		log:       log.WithDataset(opts.Dataset),
		now:       now,
		calc:      opts.Calculator,
		policy:    policy,
		stopCh:    make(chan struct{}),
	}, nil
}

// Dataset returns the dataset name.
func (s *Source) Dataset() string { return s.dataset }

// Start fetches immediately and then every interval until Stop.
// A zero interval fetches once. Calling Start twice has no effect.
func (s *Source) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	s.log.Infow("data source started", "source", s.loader.Describe(), "interval", s.interval)
}

// Stop cancels polling and in-flight fetches and waits for the loop to exit.
// Results arriving after Stop are discarded. Safe to call multiple times.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		cancel := s.cancel
		s.mu.Unlock()

		close(s.stopCh)
		if cancel != nil {
			cancel()
		}
		s.wg.Wait()
		s.log.Infow("data source stopped")
	})
}

func (s *Source) run(ctx context.Context) {
	s.refreshLogged(ctx)

	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refreshLogged(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Source) refreshLogged(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrStopped) {
		s.log.Debugw("scheduled refresh failed", "error", err)
	}
}

// Refresh fetches the records and recomputes the snapshot. On failure the
// previous records and snapshot are kept and the fetch error is returned.
// A result older than one already applied is dropped without error.
func (s *Source) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.issued++
	gen := s.issued
	s.inFlight++
	s.mu.Unlock()

	start := s.now()
	records, err := s.loader.Fetch(ctx)
	took := s.now().Sub(start)

	return s.apply(ctx, gen, records, err, took)
}

// result is what one applied fetch changed, used to run hooks outside the lock.
type result struct {
	revision uint64
	outcome  string
	snapshot *kpi.Snapshot
	changed  bool
	cleared  bool
	notice   notify.Notice
	at       time.Time
	took     time.Duration
	fetchErr error
}

func (s *Source) apply(ctx context.Context, gen uint64, records []record.Record, fetchErr error, took time.Duration) error {
	s.mu.Lock()
	s.inFlight--

	if s.stopped {
		s.mu.Unlock()
		s.log.Debugw("discarding result after stop", "generation", gen)
		return ErrStopped
	}
	if gen <= s.applied {
		s.mu.Unlock()
		s.log.Debugw("discarding stale result", "generation", gen, "applied", s.applied)
		return nil
	}

	at := s.now()
	s.applied = gen
	s.attempted = true
	s.loadDuration = took
	res := s.applyLocked(records, fetchErr, at)
	res.took = took
	if res.changed || res.cleared {
		s.revision++
		res.revision = s.revision
	}
	s.mu.Unlock()

	s.afterApply(ctx, res)
	return fetchErr
}

func (s *Source) applyLocked(records []record.Record, fetchErr error, at time.Time) result {
	res := result{at: at, fetchErr: fetchErr}

	if fetchErr != nil {
		s.lastErr = fetchErr.Error()
		res.outcome = telemetry.ResultError
		res.notice = s.notice(notify.LevelError, "Error al cargar datos", fetchErr.Error(), at)
		return res
	}
	s.lastErr = ""

	if len(records) == 0 {
		res.outcome = telemetry.ResultEmpty
		res.notice = s.notice(notify.LevelWarning, "Sin registros",
			fmt.Sprintf("%s returned no records", s.loader.Describe()), at)

		switch s.policy {
		case kpi.EmptyKeep:
			return res
		case kpi.EmptyClear:
			s.records = nil
			s.snapshot = nil
			s.lastUpdate = at
			res.cleared = true
			return res
		}
		records = []record.Record{}
	} else {
		res.outcome = telemetry.ResultSuccess
		res.notice = s.notice(notify.LevelInfo, "Datos actualizados",
			fmt.Sprintf("%d records loaded", len(records)), at)
	}

	s.records = records
	s.snapshot = s.calc.Compute(s.dataset, records)
	s.lastUpdate = at
	res.snapshot = s.snapshot
	res.changed = true
	return res
}

func (s *Source) notice(level notify.Level, title, message string, at time.Time) notify.Notice {
	return notify.Notice{Level: level, Dataset: s.dataset, Title: title, Message: message, Time: at}
}

func (s *Source) afterApply(ctx context.Context, res result) {
	s.notifier.Notify(res.notice)

	if s.telemetry != nil {
		s.telemetry.ObserveFetch(s.dataset, res.outcome, res.took, res.at)
	}
	if res.revision > 0 {
		s.emitSnapshot(ctx, res)
	}
}

// emitSnapshot hands a snapshot change to telemetry and the publisher.
// Changes older than one already emitted are skipped.
func (s *Source) emitSnapshot(ctx context.Context, res result) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	if res.revision <= s.emitted {
		s.log.Debugw("skipping hooks of superseded snapshot", "revision", res.revision, "emitted", s.emitted)
		return
	}
	s.emitted = res.revision

	if s.telemetry != nil {
		if res.cleared {
			s.telemetry.ClearSnapshot(s.dataset)
		} else {
			s.telemetry.ObserveSnapshot(res.snapshot)
		}
	}
	if res.changed {
		s.publish(ctx, res.snapshot)
	}
}

func (s *Source) publish(ctx context.Context, snap *kpi.Snapshot) {
	if s.publisher == nil || snap == nil {
		return
	}
	if err := s.publisher.Publish(ctx, snap); err != nil {
		s.log.Warnw("failed to publish snapshot", "error", err)
		if s.telemetry != nil {
			s.telemetry.PublishFailed(s.dataset)
		}
	}
}

// Shape returns the shape of the active calculator.
func (s *Source) Shape() kpi.Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calc.Shape()
}

// SetCalculator swaps the calculator and recomputes the snapshot from the
// current records. The calculator must keep the source's shape.
func (s *Source) SetCalculator(ctx context.Context, calc *kpi.Calculator) error {
	s.mu.Lock()
	if calc.Shape() != s.calc.Shape() {
		current := s.calc.Shape()
		s.mu.Unlock()
		return fmt.Errorf("dataset %s: cannot change shape from %s to %s", s.dataset, current, calc.Shape())
	}
	s.calc = calc
	if s.snapshot == nil {
		s.mu.Unlock()
		return nil
	}
	s.snapshot = calc.Compute(s.dataset, s.records)
	s.revision++
	res := result{revision: s.revision, snapshot: s.snapshot, changed: true}
	s.mu.Unlock()

	s.log.Infow("calculator replaced, snapshot recomputed", "records", res.snapshot.RecordCount)
	s.emitSnapshot(ctx, res)
	return nil
}

// SetEmptyPolicy changes the empty-result policy for later fetches.
// An empty policy restores the shape default.
func (s *Source) SetEmptyPolicy(policy kpi.EmptyPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if policy == "" {
		policy = s.calc.Shape().DefaultEmptyPolicy()
	}
	s.policy = policy
}

// EmptyPolicy returns the active empty-result policy.
func (s *Source) EmptyPolicy() kpi.EmptyPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Snapshot returns the latest snapshot, or nil.
func (s *Source) Snapshot() *kpi.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Records returns a copy of the current records.
func (s *Source) Records() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return record.CloneAll(s.records)
}

// Attempted reports whether at least one fetch has completed.
func (s *Source) Attempted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempted
}

// View returns the current state including the snapshot.
func (s *Source) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Dataset:      s.dataset,
		Title:        s.title,
		Shape:        s.calc.Shape(),
		Source:       s.loader.Describe(),
		Loading:      s.inFlight > 0,
		Snapshot:     s.snapshot,
		Records:      len(s.records),
		LoadDuration: s.loadDuration.Seconds(),
		LastError:    s.lastErr,
	}
	if !s.lastUpdate.IsZero() {
		t := s.lastUpdate
		v.LastUpdate = &t
	}

	switch {
	case s.snapshot != nil:
		v.State = StatePopulated
	case !s.attempted:
		v.State = StateLoading
	default:
		v.State = StateNoData
	}
	return v
}

// Summary returns the view without the snapshot.
func (s *Source) Summary() View {
	v := s.View()
	v.Snapshot = nil
	return v
}
