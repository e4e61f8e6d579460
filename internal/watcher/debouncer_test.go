package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case events := <-d.Output():
		return events
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for debounced events")
		return nil
	}
}

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	// When: a single event is added
	d.Add(FileEvent{Path: "a.go", Operation: OpCreate})

	// Then: it is emitted after the window
	events := receive(t, d)
	require.Len(t, events, 1)
	assert.Equal(t, "a.go", events[0].Path)
	assert.Equal(t, OpCreate, events[0].Operation)
	assert.Zero(t, d.Pending())
}

func TestDebouncer_Coalesces(t *testing.T) {
	tests := []struct {
		name   string
		ops    []Operation
		want   Operation
		absent bool
	}{
		{"create then modify stays create", []Operation{OpCreate, OpModify}, OpCreate, false},
		{"create then delete cancels", []Operation{OpCreate, OpDelete}, 0, true},
		{"modify then delete is delete", []Operation{OpModify, OpDelete}, OpDelete, false},
		{"delete then create is modify", []Operation{OpDelete, OpCreate}, OpModify, false},
		{"repeated modify", []Operation{OpModify, OpModify, OpModify}, OpModify, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a debouncer
			d := NewDebouncer(30 * time.Millisecond)
			defer d.Stop()

			// When: the operations arrive for one path, plus a marker path
			for _, op := range tt.ops {
				d.Add(FileEvent{Path: "x.go", Operation: op})
			}
			d.Add(FileEvent{Path: "marker.go", Operation: OpModify})

			// Then: one batch carries the merged result
			events := receive(t, d)
			byPath := map[string]Operation{}
			for _, ev := range events {
				byPath[ev.Path] = ev.Operation
			}
			op, ok := byPath["x.go"]
			if tt.absent {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, op)
		})
	}
}

func TestDebouncer_BatchSortedByPath(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	for _, p := range []string{"c.go", "a.go", "b.go"} {
		d.Add(FileEvent{Path: p, Operation: OpModify})
	}

	events := receive(t, d)
	require.Len(t, events, 3)
	assert.Equal(t, "a.go", events[0].Path)
	assert.Equal(t, "b.go", events[1].Path)
	assert.Equal(t, "c.go", events[2].Path)
}

func TestDebouncer_Stop(t *testing.T) {
	// Given: a debouncer with a pending event
	d := NewDebouncer(time.Hour)
	d.Add(FileEvent{Path: "a.go", Operation: OpModify})

	// When: it is stopped twice
	d.Stop()
	d.Stop()

	// Then: output is closed and later events are ignored
	_, ok := <-d.Output()
	assert.False(t, ok)
	d.Add(FileEvent{Path: "b.go", Operation: OpModify})
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
	assert.Equal(t, "GITIGNORE_CHANGE", OpGitignoreChange.String())
	assert.Equal(t, "UNKNOWN", Operation(99).String())
}
