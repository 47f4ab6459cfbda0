package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/database"
	"github.com/dbsmedya/outreachkpi/internal/kpi"
	"github.com/dbsmedya/outreachkpi/internal/logger"
	"github.com/dbsmedya/outreachkpi/internal/notify"
	"github.com/dbsmedya/outreachkpi/internal/publish"
	"github.com/dbsmedya/outreachkpi/internal/source"
	"github.com/dbsmedya/outreachkpi/internal/telemetry"
)

// Manager holds every data source keyed by dataset name.
type Manager struct {
	mu        sync.RWMutex
	sources   map[string]*Source
	telemetry *telemetry.Collector
	log       *logger.Logger
}

// NewManager creates an empty manager.
func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		sources: make(map[string]*Source),
		log:     log.WithComponent("dashboard"),
	}
}

// Add registers a source. Dataset names must be unique.
func (m *Manager) Add(s *Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sources[s.Dataset()]; exists {
		return fmt.Errorf("dataset %s already registered", s.Dataset())
	}
	m.sources[s.Dataset()] = s
	return nil
}

// Get returns the source of a dataset.
func (m *Manager) Get(dataset string) (*Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[dataset]
	return s, ok
}

// Names returns the dataset names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sources returns the sources in dataset name order.
func (m *Manager) Sources() []*Source {
	names := m.Names()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Source, 0, len(names))
	for _, name := range names {
		out = append(out, m.sources[name])
	}
	return out
}

// Summaries returns the views of every source without snapshots.
func (m *Manager) Summaries() []View {
	sources := m.Sources()
	views := make([]View, 0, len(sources))
	for _, s := range sources {
		views = append(views, s.Summary())
	}
	return views
}

// Start starts every source.
func (m *Manager) Start(ctx context.Context) {
	for _, s := range m.Sources() {
		s.Start(ctx)
	}
}

// Stop stops every source and waits for them.
func (m *Manager) Stop() {
	var wg sync.WaitGroup
	for _, s := range m.Sources() {
		wg.Add(1)
		go func(s *Source) {
			defer wg.Done()
			s.Stop()
		}(s)
	}
	wg.Wait()
}

// Ready reports whether every source has completed at least one fetch.
func (m *Manager) Ready() bool {
	for _, s := range m.Sources() {
		if !s.Attempted() {
			return false
		}
	}
	return true
}

// Reload applies the business constants, formulas and empty policies of cfg
// to the running sources. Datasets missing from cfg are stopped and removed.
// New datasets, changed sources and changed shapes take effect on restart
// only. Nothing is applied when any dataset in cfg is invalid.
func (m *Manager) Reload(ctx context.Context, cfg *config.Config) error {
	type update struct {
		source *Source
		calc   *kpi.Calculator
		policy kpi.EmptyPolicy
	}

	var updates []update
	for _, name := range cfg.ListDatasets() {
		ds := cfg.Datasets[name]
		calc, err := NewCalculator(&ds)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", name, err)
		}
		policy, err := kpi.ParseEmptyPolicy(ds.OnEmpty)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", name, err)
		}

		s, ok := m.Get(name)
		if !ok {
			m.log.Warnw("new dataset ignored until restart", "dataset", name)
			continue
		}
		if s.Shape() != calc.Shape() {
			m.log.Warnw("shape change ignored until restart",
				"dataset", name,
				"running", s.Shape(),
				"configured", calc.Shape(),
			)
			continue
		}
		updates = append(updates, update{source: s, calc: calc, policy: policy})
	}

	for _, u := range updates {
		u.source.SetEmptyPolicy(u.policy)
		if err := u.source.SetCalculator(ctx, u.calc); err != nil {
			return err
		}
	}

	for _, name := range m.Names() {
		if _, ok := cfg.Datasets[name]; !ok {
			m.remove(name)
		}
	}
	return nil
}

// remove stops a source and drops it with its metrics.
func (m *Manager) remove(name string) {
	m.mu.Lock()
	s, ok := m.sources[name]
	delete(m.sources, name)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Stop()
	if m.telemetry != nil {
		m.telemetry.RemoveDataset(name)
	}
	m.log.Infow("dataset removed", "dataset", name)
}

// NewCalculator builds the calculator of a configured dataset.
func NewCalculator(ds *config.DatasetConfig) (*kpi.Calculator, error) {
	shape, err := kpi.ParseShape(ds.Shape)
	if err != nil {
		return nil, err
	}
	return kpi.NewCalculator(shape, kpi.Options{
		Business: kpi.BusinessOverride{
			HourlyRate:       ds.Business.HourlyRate,
			MinutesPerRecord: ds.Business.MinutesPerRecord,
			AvgDealSize:      ds.Business.AvgDealSize,
			CloseRate:        ds.Business.CloseRate,
			SystemCost:       ds.Business.SystemCost,
		},
		Formulas: kpi.Formulas(ds.Formulas),
	})
}

// Deps are the shared services handed to every source built from config.
type Deps struct {
	DB        *database.Manager
	Notifier  notify.Notifier
	Telemetry *telemetry.Collector
	Publisher publish.Publisher
	Logger    *logger.Logger
}

// FromConfig builds a stopped source for every configured dataset.
func FromConfig(cfg *config.Config, deps Deps) (*Manager, error) {
	m := NewManager(deps.Logger)
	m.telemetry = deps.Telemetry

	for _, name := range cfg.ListDatasets() {
		ds := cfg.Datasets[name]

		calc, err := NewCalculator(&ds)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		policy, err := kpi.ParseEmptyPolicy(ds.OnEmpty)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		loader, err := source.New(name, &ds.Source, deps.DB, deps.Logger)
		if err != nil {
			return nil, err
		}

		s, err := NewSource(Options{
			Dataset:     name,
			Title:       ds.Title,
			Interval:    ds.RefreshInterval(),
			EmptyPolicy: policy,
			Loader:      loader,
			Calculator:  calc,
			Notifier:    deps.Notifier,
			Telemetry:   deps.Telemetry,
			Publisher:   deps.Publisher,
			Logger:      deps.Logger,
		})
		if err != nil {
			return nil, err
		}
		if err := m.Add(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}
