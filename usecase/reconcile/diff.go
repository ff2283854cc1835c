package reconcile

import (
	"context"

	"github.com/fastygo/agentsync/domain"
)

// Child is a persisted record that can be tombstoned.
type Child interface {
	IsActive() bool
}

// Diff describes one scope to reconcile: the children the agent sent for a
// parent and the children currently active under that parent.
type Diff[In any, Rec Child] struct {
	Kind     domain.EntityKind
	Incoming []In
	Active   []Rec

	Key       func(In) string
	RecordKey func(Rec) string

	// Resolve looks the identifier up regardless of status and scope.
	Resolve func(ctx context.Context, uuid string) (Rec, bool, error)
	// InScope reports whether a resolved record belongs to the parent being reconciled.
	InScope func(Rec) bool

	Create func(ctx context.Context, in In) (Rec, error)
	// Update copies mutable attributes from in and clears the tombstone.
	// It reports whether anything had to be written.
	Update func(ctx context.Context, rec Rec, in In) (bool, error)
	// Tombstone hides rec and its active descendants.
	Tombstone func(ctx context.Context, rec Rec) error
	// Descend is optional and runs after rec was created, updated or resurrected.
	Descend func(ctx context.Context, rec Rec, in In) error
}

// Apply brings the scope in line with the incoming children. Identifiers that
// resolve to another scope are rejected into report; everything else in the
// scope is still applied. Storage errors abort the whole call.
func Apply[In any, Rec Child](ctx context.Context, d Diff[In, Rec], report *Report) error {
	incoming := make(map[string]struct{}, len(d.Incoming))
	for _, in := range d.Incoming {
		incoming[d.Key(in)] = struct{}{}
	}

	retained := make(map[string]Rec, len(d.Active))
	var removed []Rec
	for _, rec := range d.Active {
		key := d.RecordKey(rec)
		if _, ok := incoming[key]; ok {
			retained[key] = rec
			continue
		}
		removed = append(removed, rec)
	}

	for _, in := range d.Incoming {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := d.Key(in)

		rec, ok := retained[key]
		if !ok {
			found, exists, err := d.Resolve(ctx, key)
			if err != nil {
				return err
			}
			if !exists {
				created, err := d.Create(ctx, in)
				if err != nil {
					return err
				}
				report.count(d.Kind).Created++
				if err := d.descend(ctx, created, in); err != nil {
					return err
				}
				continue
			}
			if !d.InScope(found) {
				report.reject(domain.NewIdentityConflict(d.Kind, key, "identifier already belongs to another %s", parentOf(d.Kind)))
				continue
			}
			rec = found
		}

		wasTombstoned := !rec.IsActive()
		changed, err := d.Update(ctx, rec, in)
		if err != nil {
			return err
		}
		stats := report.count(d.Kind)
		switch {
		case wasTombstoned:
			stats.Resurrected++
		case changed:
			stats.Updated++
		default:
			stats.Unchanged++
		}
		if err := d.descend(ctx, rec, in); err != nil {
			return err
		}
	}

	for _, rec := range removed {
		if err := d.Tombstone(ctx, rec); err != nil {
			return err
		}
		report.count(d.Kind).Tombstoned++
	}
	return nil
}

func (d Diff[In, Rec]) descend(ctx context.Context, rec Rec, in In) error {
	if d.Descend == nil {
		return nil
	}
	return d.Descend(ctx, rec, in)
}

func parentOf(kind domain.EntityKind) string {
	switch kind {
	case domain.KindContract:
		return "bpartner"
	case domain.KindContractLine:
		return "contract"
	default:
		return "scope"
	}
}
