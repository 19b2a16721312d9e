// Package migrate moves legacy flat secret names onto the hierarchical
// layout. Planning scans the store and resolves each flat name against the
// roster; applying copies values into their hierarchical IDs and can prune
// the legacy names once the copy is verified.
package migrate

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Activ8-AI/maosec/internal/hierarchy"
	"github.com/Activ8-AI/maosec/internal/logging"
	"github.com/Activ8-AI/maosec/internal/roster"
	"github.com/Activ8-AI/maosec/internal/store"
)

// Action classifies what migration will do with one legacy name.
type Action string

const (
	// ActionCopy means the value will be copied to its hierarchical ID.
	ActionCopy Action = "copy"
	// ActionMigrated means the hierarchical target already exists.
	ActionMigrated Action = "migrated"
	// ActionUnparseable means the flat name could not be resolved.
	ActionUnparseable Action = "unparseable"
)

// Item is one legacy secret in the plan.
type Item struct {
	LegacyID string
	TargetID string
	Path     hierarchy.Path
	Action   Action
	Reason   string
}

// Plan is the outcome of a store scan.
type Plan struct {
	Store string
	// Hierarchical counts secrets already on the new layout, which the scan
	// leaves untouched.
	Hierarchical int
	Items        []Item
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

// Result summarizes an applied plan.
type Result struct {
	Copied  int
	Pruned  int
	Skipped int
	Errors  []ItemError
}

// ItemError is a failed migration for one legacy name.
type ItemError struct {
	LegacyID string
	Err      error
}

// Migrator plans and applies flat-to-hierarchical migrations.
type Migrator struct {
	logger *logging.Logger
	store  store.Store
	roster *roster.Roster
	prefix string
}

// New creates a Migrator.
func New(logger *logging.Logger, st store.Store, r *roster.Roster, prefix string) *Migrator {
	return &Migrator{logger: logger, store: st, roster: r, prefix: prefix}
}

// Plan scans every secret in the store. Hierarchical IDs are counted and
// skipped; everything else is treated as a legacy flat name and resolved
// through the roster vocabulary.
func (m *Migrator) Plan(ctx context.Context) (*Plan, error) {
	ids, err := m.store.List(ctx, "")
	if err != nil {
		return nil, err
	}

	plan := &Plan{Store: m.store.Name()}
	for _, id := range ids {
		if hierarchy.IsHierarchical(id, m.prefix) {
			plan.Hierarchical++
			continue
		}

		item := Item{LegacyID: id}
		path, err := hierarchy.ParseFlat(id, m.prefix, m.roster.Vocabulary())
		if err != nil {
			item.Action = ActionUnparseable
			item.Reason = err.Error()
			plan.Items = append(plan.Items, item)
			continue
		}

		item.Path = path
		item.TargetID = path.ID()
		info, err := m.store.Describe(ctx, item.TargetID)
		if err != nil {
			return nil, err
		}
		if info.Exists {
			item.Action = ActionMigrated
			item.Reason = "target already exists"
		} else {
			item.Action = ActionCopy
		}
		plan.Items = append(plan.Items, item)
	}
	return plan, nil
}

// Apply copies every planned item to its hierarchical ID. With prune set,
// the legacy name is deleted once the target value is verified to match.
// Already-migrated items are only pruned, never rewritten, so re-running
// after a partial failure is safe.
func (m *Migrator) Apply(ctx context.Context, plan *Plan, prune bool) (*Result, error) {
	result := &Result{}
	for _, item := range plan.Items {
		switch item.Action {
		case ActionUnparseable:
			result.Skipped++
			m.logger.Warn("cannot migrate %s: %s", item.LegacyID, item.Reason)
		case ActionCopy:
			if err := m.copy(ctx, item); err != nil {
				result.Errors = append(result.Errors, ItemError{LegacyID: item.LegacyID, Err: err})
				m.logger.Error("failed to migrate %s: %v", item.LegacyID, err)
				continue
			}
			result.Copied++
			m.logger.Info("migrated %s -> %s", item.LegacyID, item.TargetID)
			if prune {
				m.pruneLegacy(ctx, item, result)
			}
		case ActionMigrated:
			m.logger.Debug("already migrated: %s", item.LegacyID)
			if prune {
				m.pruneLegacy(ctx, item, result)
			}
		}
	}
	return result, nil
}

func (m *Migrator) copy(ctx context.Context, item Item) error {
	value, err := m.store.Get(ctx, item.LegacyID, "")
	if err != nil {
		return fmt.Errorf("read legacy value: %w", err)
	}
	labels := map[string]string{
		"managed_by":    "maosec",
		"migrated_from": hierarchy.Sanitize(item.LegacyID),
		"tenant":        item.Path.Tenant,
		"system":        item.Path.System,
		"env":           item.Path.Env,
	}
	if _, err := m.store.Upsert(ctx, item.TargetID, value.Data, labels); err != nil {
		return fmt.Errorf("write %s: %w", item.TargetID, err)
	}
	return nil
}

// pruneLegacy deletes a legacy name only after proving the target holds the
// same value. A mismatch leaves the legacy secret in place.
func (m *Migrator) pruneLegacy(ctx context.Context, item Item, result *Result) {
	legacy, err := m.store.Get(ctx, item.LegacyID, "")
	if err != nil {
		result.Errors = append(result.Errors, ItemError{LegacyID: item.LegacyID, Err: err})
		return
	}
	target, err := m.store.Get(ctx, item.TargetID, "")
	if err != nil {
		result.Errors = append(result.Errors, ItemError{LegacyID: item.LegacyID, Err: err})
		return
	}
	if !bytes.Equal(legacy.Data, target.Data) {
		result.Errors = append(result.Errors, ItemError{
			LegacyID: item.LegacyID,
			Err:      fmt.Errorf("target %s holds a different value, refusing to prune", item.TargetID),
		})
		return
	}
	if err := m.store.Delete(ctx, item.LegacyID); err != nil {
		result.Errors = append(result.Errors, ItemError{LegacyID: item.LegacyID, Err: err})
		return
	}
	result.Pruned++
	m.logger.Info("pruned legacy secret %s", item.LegacyID)
}
