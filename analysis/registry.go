package analysis

import (
	"sort"
	"sync"

	"github.com/flanksource/commons/logger"
	"github.com/samber/lo"

	"github.com/flanksource/quality-unit/models"
)

// Priority orders analyzer execution; lower tiers run earlier. Order
// affects progress reporting granularity and resource contention only,
// never the merged issue set.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

type registration struct {
	unit     AnalyzerUnit
	priority Priority
	// order is a monotonic insertion counter used to keep plan output
	// deterministic within a tier
	order int
}

// Registry indexes analyzer units by name, category and language and
// builds ordered execution plans. Registries are injected rather than
// process-global so tests and embedders can compose their own.
type Registry struct {
	mu      sync.RWMutex
	units   map[string]registration
	counter int
}

// NewRegistry creates an empty analyzer registry
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]registration)}
}

// Register adds a unit at the given priority tier. A duplicate name
// replaces the previous registration with a warning. Names are
// operator-controlled, so replacement supports hot-reload-style
// re-registration rather than hiding a bug.
func (r *Registry) Register(unit AnalyzerUnit, priority Priority) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := unit.Name()
	if _, exists := r.units[name]; exists {
		logger.Warnf("analyzer %s already registered, replacing", name)
	}

	r.counter++
	r.units[name] = registration{unit: unit, priority: priority, order: r.counter}
	logger.Debugf("registered analyzer %s (category=%s priority=%s)", name, unit.Category(), priority)
}

// Unregister removes a unit by name, reporting whether it was present
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.units[name]; !exists {
		return false
	}
	delete(r.units, name)
	return true
}

// Get returns a registered unit by name
func (r *Registry) Get(name string) (AnalyzerUnit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.units[name]
	if !ok {
		return nil, false
	}
	return reg.unit, true
}

// List returns all registered units ordered by priority tier then
// registration order
func (r *Registry) List() []AnalyzerUnit {
	r.mu.RLock()
	regs := lo.Values(r.units)
	r.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority < regs[j].priority
		}
		return regs[i].order < regs[j].order
	})

	return lo.Map(regs, func(reg registration, _ int) AnalyzerUnit { return reg.unit })
}

// PriorityOf returns the priority tier a unit was registered at
func (r *Registry) PriorityOf(name string) (Priority, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.units[name]
	if !ok {
		return 0, false
	}
	return reg.priority, true
}

// Len returns the number of registered units
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// PlanTask pairs one unit with the subset of files it should analyze
type PlanTask struct {
	Unit  AnalyzerUnit
	Files []models.ParsedFile
}

// Plan builds the ordered execution plan for a set of parsed files.
// Disabled units are excluded; each unit is paired only with files whose
// language it supports; units with an empty subset are dropped. Optional
// category and language filters restrict the plan further. Output order
// is ascending priority tier, then registration order.
func (r *Registry) Plan(files []models.ParsedFile, categoryFilter, languageFilter []string) []PlanTask {
	r.mu.RLock()
	regs := lo.Values(r.units)
	r.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority < regs[j].priority
		}
		return regs[i].order < regs[j].order
	})

	categories := lo.SliceToMap(categoryFilter, func(c string) (string, bool) { return c, true })
	languages := lo.SliceToMap(languageFilter, func(l string) (string, bool) { return l, true })

	var plan []PlanTask
	for _, reg := range regs {
		unit := reg.unit
		if !unit.Enabled() {
			continue
		}
		if len(categories) > 0 && !categories[string(unit.Category())] {
			continue
		}

		subset := lo.Filter(files, func(f models.ParsedFile, _ int) bool {
			if len(languages) > 0 && !languages[f.Language] {
				return false
			}
			return SupportsLanguage(unit, f.Language)
		})
		if len(subset) == 0 {
			continue
		}

		plan = append(plan, PlanTask{Unit: unit, Files: subset})
	}

	return plan
}
