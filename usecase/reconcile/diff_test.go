package reconcile

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/agentsync/domain"
)

type item struct {
	key     string
	scope   string
	value   int
	deleted bool
}

func (i *item) IsActive() bool { return !i.deleted }

// table is a toy store: every item ever created, keyed by identifier.
type table map[string]*item

func (tb table) diff(scope string, incoming map[string]int, order []string) Diff[string, *item] {
	var active []*item
	for _, k := range sortedKeys(tb) {
		if it := tb[k]; it.scope == scope && !it.deleted {
			active = append(active, it)
		}
	}
	return Diff[string, *item]{
		Kind:      domain.KindContractLine,
		Incoming:  order,
		Active:    active,
		Key:       func(k string) string { return k },
		RecordKey: func(it *item) string { return it.key },
		Resolve: func(_ context.Context, k string) (*item, bool, error) {
			it, ok := tb[k]
			return it, ok, nil
		},
		InScope: func(it *item) bool { return it.scope == scope },
		Create: func(_ context.Context, k string) (*item, error) {
			it := &item{key: k, scope: scope, value: incoming[k]}
			tb[k] = it
			return it, nil
		},
		Update: func(_ context.Context, it *item, k string) (bool, error) {
			if !it.deleted && it.value == incoming[k] {
				return false, nil
			}
			it.value, it.deleted = incoming[k], false
			return true, nil
		},
		Tombstone: func(_ context.Context, it *item) error {
			it.deleted = true
			return nil
		},
	}
}

func sortedKeys(tb table) []string {
	keys := make([]string, 0, len(tb))
	for k := range tb {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestApplyPartitions(t *testing.T) {
	ctx := context.Background()
	tb := table{
		"kept":    {key: "kept", scope: "a", value: 1},
		"changed": {key: "changed", scope: "a", value: 1},
		"gone":    {key: "gone", scope: "a", value: 1},
		"back":    {key: "back", scope: "a", value: 1, deleted: true},
		"foreign": {key: "foreign", scope: "b", value: 1},
	}
	incoming := map[string]int{"kept": 1, "changed": 2, "back": 1, "foreign": 5, "new": 3}

	report := newReport("bp")
	err := Apply(ctx, tb.diff("a", incoming, []string{"kept", "changed", "back", "foreign", "new"}), report)
	require.NoError(t, err)

	assert.Equal(t, Stats{Created: 1, Updated: 1, Resurrected: 1, Tombstoned: 1, Unchanged: 1}, report.For(domain.KindContractLine))
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "foreign", report.Rejected[0].UUID)

	assert.Equal(t, 2, tb["changed"].value)
	assert.False(t, tb["back"].deleted)
	assert.True(t, tb["gone"].deleted)
	assert.Equal(t, "a", tb["new"].scope)
	assert.Equal(t, "b", tb["foreign"].scope)
	assert.Equal(t, 1, tb["foreign"].value)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tb := table{}
	incoming := map[string]int{"x": 1, "y": 2}

	require.NoError(t, Apply(ctx, tb.diff("a", incoming, []string{"x", "y"}), newReport("bp")))

	second := newReport("bp")
	require.NoError(t, Apply(ctx, tb.diff("a", incoming, []string{"x", "y"}), second))
	assert.False(t, second.Changed())
	assert.Equal(t, 2, second.For(domain.KindContractLine).Unchanged)
	assert.Len(t, tb, 2)
}

func TestApplyStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tb := table{}

	err := Apply(ctx, tb.diff("a", map[string]int{"x": 1}, []string{"x"}), newReport("bp"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tb)
}
