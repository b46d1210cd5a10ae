package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/resplan/internal/schema"
)

func TestDeltaAccumulates(t *testing.T) {
	d := (&Store{}).Begin()
	assert.True(t, d.Empty())
	assert.Equal(t, int64(0), d.Delta("person"))

	d.Increment("person", 3)
	d.Increment("person", 2)
	d.Decrement("employment", 1)

	assert.False(t, d.Empty())
	assert.Equal(t, int64(5), d.Delta("person"))
	assert.Equal(t, int64(-1), d.Delta("employment"))
	assert.Equal(t, []string{"employment", "person"}, d.Labels())
}

func TestDeltaCancellingChangesLeaveItEmpty(t *testing.T) {
	d := (&Store{}).Begin()
	d.Increment("person", 2)
	d.Decrement("person", 2)

	assert.True(t, d.Empty())
	assert.Empty(t, d.Labels())
}

func TestDeltaNormalizesLabels(t *testing.T) {
	d := (&Store{}).Begin()
	d.Increment(" person ", 1)
	d.Increment("café", 1)

	assert.Equal(t, int64(1), d.Delta("person"))
	assert.Equal(t, int64(1), d.Delta("café"))
}

func TestDeltaApplyOverlaysUncommittedChanges(t *testing.T) {
	base := schema.Statistics{"person": 5, "@has-name": 2}
	d := (&Store{}).Begin()
	d.Increment("person", 1)
	d.Increment(schema.ImplicitHasLabel("name"), 3)
	d.Decrement("company", 4)

	got := d.Apply(base)

	assert.Equal(t, schema.Statistics{"person": 6, "@has-name": 5, "company": 0}, got)
	assert.Equal(t, int64(5), base["person"], "base must not change")
}

func TestDeltaConcurrentUse(t *testing.T) {
	d := (&Store{}).Begin()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				d.Increment("person", 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), d.Delta("person"))
}
