package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewSelectionEvent(t *testing.T) {
	now := time.Date(2026, time.March, 1, 8, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	defer SetClock(nil)

	r := BuildRender(Select(testSnapshot(), testTribe), DefaultRenderOptions())

	event := NewSelectionEvent(r)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, testTribe, event.Tribe)
	assert.True(t, event.Found)
	assert.Equal(t, 2, event.SecondaryMarkers)
	assert.Equal(t, []string{"Village X", "Village Y"}, event.Origins)
	assert.Equal(t, []string{"Tayal-A 區域", FlowLayerName}, event.Overlays)
	assert.Equal(t, now, event.SelectedAt)
}

func TestNewSelectionEvent_UniqueIDs(t *testing.T) {
	r := BuildRender(DerivedView{Tribe: "Nowhere"}, DefaultRenderOptions())

	a := NewSelectionEvent(r)
	b := NewSelectionEvent(r)

	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Found)
	assert.Empty(t, a.Overlays)
}

func TestNewSnapshot_StampsLoadTime(t *testing.T) {
	now := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	defer SetClock(nil)

	snap := NewSnapshot(nil, FeatureSet{}, FeatureSet{}, nil)

	assert.Equal(t, now, snap.LoadedAt)
}
