package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/quotesync/pkg/core"
)

func TestResolve(t *testing.T) {
	local := core.Record{ID: "1", Text: "A", Category: "c", UpdatedAt: 10}

	tests := []struct {
		name   string
		remote core.Record
		want   core.Record
	}{
		{
			name:   "remote newer wins",
			remote: core.Record{ID: "1", Text: "B", Category: "c", UpdatedAt: 20},
			want:   core.Record{ID: "1", Text: "B", Category: "c", UpdatedAt: 20},
		},
		{
			name:   "local newer wins",
			remote: core.Record{ID: "1", Text: "B", Category: "c", UpdatedAt: 5},
			want:   local,
		},
		{
			name:   "tie prefers remote",
			remote: core.Record{ID: "1", Text: "B", Category: "c", UpdatedAt: 10},
			want:   core.Record{ID: "1", Text: "B", Category: "c", UpdatedAt: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.Resolve(local, tt.remote)
			assert.Equal(t, tt.want, got)
			// Same inputs, same answer.
			assert.Equal(t, got, core.Resolve(local, tt.remote))
		})
	}
}

func TestResolve_SelfIsIdentity(t *testing.T) {
	for _, ts := range []int64{-1, 0, 1, 1 << 40} {
		r := core.Record{ID: "x", Text: "t", Category: "c", UpdatedAt: ts}
		assert.Equal(t, r, core.Resolve(r, r))
	}
}

func TestResolve_PicksGreaterOrEqual(t *testing.T) {
	for a := int64(0); a < 5; a++ {
		for b := int64(0); b < 5; b++ {
			l := core.Record{ID: "1", Text: "local", Category: "c", UpdatedAt: a}
			r := core.Record{ID: "1", Text: "remote", Category: "c", UpdatedAt: b}
			got := core.Resolve(l, r)
			if b >= a {
				assert.Equal(t, r, got, "local=%d remote=%d", a, b)
			} else {
				assert.Equal(t, l, got, "local=%d remote=%d", a, b)
			}
		}
	}
}

func TestRecordValidate(t *testing.T) {
	assert.NoError(t, core.Record{ID: "1", Text: "t", Category: "c"}.Validate())

	for _, r := range []core.Record{
		{Text: "t", Category: "c"},
		{ID: "1", Category: "c"},
		{ID: "1", Text: "t", Category: "  "},
	} {
		err := r.Validate()
		assert.True(t, errors.Is(err, core.ErrInvalidRecord), "record %+v: %v", r, err)
	}
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "ADDED 7: stored", core.Event{Type: core.EventAdded, ID: "7", Message: "stored"}.String())
	assert.Equal(t, "SYNCED: 2 changed", core.Event{Type: core.EventSynced, Message: "2 changed"}.String())
}
