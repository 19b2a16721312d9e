// Package syncer turns source-of-record credential rows into hierarchical
// secrets in a store. Planning diffs desired state against the store;
// applying performs the writes. Every write is an idempotent upsert, so a
// re-run after a partial failure converges without duplicating versions.
package syncer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/Activ8-AI/maosec/internal/hierarchy"
	"github.com/Activ8-AI/maosec/internal/logging"
	"github.com/Activ8-AI/maosec/internal/roster"
	"github.com/Activ8-AI/maosec/internal/source"
	"github.com/Activ8-AI/maosec/internal/store"
)

// Action classifies what sync will do with one record.
type Action string

const (
	// ActionCreate means the secret does not exist yet.
	ActionCreate Action = "create"
	// ActionUpdate means the stored value differs from the source value.
	ActionUpdate Action = "update"
	// ActionSkip means the stored value already matches.
	ActionSkip Action = "skip"
	// ActionInvalid means the record cannot be synced at all.
	ActionInvalid Action = "invalid"
)

// Item is one planned operation.
type Item struct {
	Record source.Record
	Path   hierarchy.Path
	ID     string
	EnvVar string
	Action Action
	Reason string
}

// Plan is the full diff between source and store.
type Plan struct {
	Store string
	Items []Item
}

// Count returns how many items carry the given action.
func (p *Plan) Count(action Action) int {
	n := 0
	for _, item := range p.Items {
		if item.Action == action {
			n++
		}
	}
	return n
}

// Changes reports whether applying the plan would write anything.
func (p *Plan) Changes() bool {
	return p.Count(ActionCreate)+p.Count(ActionUpdate) > 0
}

// Filter restricts a sync run to a slice of the hierarchy. Empty fields
// match everything.
type Filter struct {
	Env    string
	Tenant string
	System string
}

func (f Filter) matches(path hierarchy.Path) bool {
	if f.Env != "" && hierarchy.Sanitize(f.Env) != path.Env {
		return false
	}
	if f.Tenant != "" && hierarchy.Sanitize(f.Tenant) != path.Tenant {
		return false
	}
	if f.System != "" && hierarchy.Sanitize(f.System) != path.System {
		return false
	}
	return true
}

// Result summarizes an applied plan.
type Result struct {
	Created int
	Updated int
	Skipped int
	Invalid int
	Errors  []ItemError
}

// ItemError is a failed write for one record.
type ItemError struct {
	ID  string
	Err error
}

// Syncer plans and applies credential sync runs.
type Syncer struct {
	logger  *logging.Logger
	source  source.Source
	store   store.Store
	roster  *roster.Roster
	prefix  string
	metrics *Metrics
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithMetrics attaches run metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Syncer) {
		s.metrics = m
	}
}

// New creates a Syncer.
func New(logger *logging.Logger, src source.Source, st store.Store, r *roster.Roster, prefix string, opts ...Option) *Syncer {
	s := &Syncer{
		logger: logger,
		source: src,
		store:  st,
		roster: r,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan reads the source and diffs every record against the store. Records
// the filter excludes are dropped from the plan entirely; records that fail
// validation stay in the plan as invalid so operators see them.
func (s *Syncer) Plan(ctx context.Context, filter Filter) (*Plan, error) {
	records, err := s.source.List(ctx)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Store: s.store.Name()}
	for _, record := range records {
		item := s.classify(ctx, record)
		if item.Action != ActionInvalid && !filter.matches(item.Path) {
			continue
		}
		plan.Items = append(plan.Items, item)
	}
	return plan, nil
}

func (s *Syncer) classify(ctx context.Context, record source.Record) Item {
	item := Item{Record: record}

	if missing := record.MissingFields(); len(missing) > 0 {
		item.Action = ActionInvalid
		item.Reason = fmt.Sprintf("missing fields: %v", missing)
		return item
	}

	path := hierarchy.New(s.prefix, record.Env, record.Tenant, record.System, record.Name)
	item.Path = path
	item.ID = path.ID()
	item.EnvVar = path.EnvVar()

	if err := s.validateAgainstRoster(path); err != nil {
		item.Action = ActionInvalid
		item.Reason = err.Error()
		return item
	}

	current, err := s.store.Get(ctx, item.ID, "")
	if err != nil {
		if _, ok := err.(store.NotFoundError); ok {
			item.Action = ActionCreate
			return item
		}
		item.Action = ActionInvalid
		item.Reason = "store lookup failed: " + err.Error()
		return item
	}

	if sha256.Sum256(current.Data) == sha256.Sum256([]byte(record.Value)) {
		item.Action = ActionSkip
		item.Reason = "value unchanged"
		return item
	}
	item.Action = ActionUpdate
	return item
}

func (s *Syncer) validateAgainstRoster(path hierarchy.Path) error {
	if s.roster == nil {
		return nil
	}
	if !s.roster.HasEnv(path.Env) {
		return fmt.Errorf("environment %q not declared in roster", path.Env)
	}
	systems := s.roster.SystemsFor(path.Tenant)
	if systems == nil {
		return fmt.Errorf("tenant %q not declared in roster", path.Tenant)
	}
	for _, sys := range systems {
		if sys == path.System {
			return nil
		}
	}
	return fmt.Errorf("system %q not declared for tenant %q", path.System, path.Tenant)
}

// Apply executes the plan. Failed items do not abort the run; they are
// collected so one bad record cannot block the rest of the fleet.
func (s *Syncer) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	started := time.Now()
	result := &Result{}
	for _, item := range plan.Items {
		switch item.Action {
		case ActionSkip:
			result.Skipped++
			s.logger.Debug("unchanged: %s", item.ID)
		case ActionInvalid:
			result.Invalid++
			s.logger.Warn("skipping %s: %s", item.Record.Name, item.Reason)
		case ActionCreate, ActionUpdate:
			labels := map[string]string{
				"managed_by": "maosec",
				"tenant":     item.Path.Tenant,
				"system":     item.Path.System,
				"env":        item.Path.Env,
			}
			version, err := s.store.Upsert(ctx, item.ID, []byte(item.Record.Value), labels)
			if err != nil {
				result.Errors = append(result.Errors, ItemError{ID: item.ID, Err: err})
				s.logger.Error("failed to write %s: %v", item.ID, err)
				continue
			}
			if item.Action == ActionCreate {
				result.Created++
				s.logger.Info("created %s (version %s)", item.ID, version)
			} else {
				result.Updated++
				s.logger.Info("updated %s (version %s)", item.ID, version)
			}
		}
	}

	if s.metrics != nil {
		s.metrics.observeRun(result, time.Since(started))
	}
	return result, nil
}

// Run plans and applies once.
func (s *Syncer) Run(ctx context.Context, filter Filter) (*Result, error) {
	plan, err := s.Plan(ctx, filter)
	if err != nil {
		if s.metrics != nil {
			s.metrics.observeFailure()
		}
		return nil, err
	}
	return s.Apply(ctx, plan)
}

// Watch re-runs sync on the given interval until the context is canceled.
// A failing run is logged and retried on the next tick.
func (s *Syncer) Watch(ctx context.Context, filter Filter, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx, filter); err != nil {
			s.logger.Error("sync run failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
