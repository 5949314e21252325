package rewards

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"rewards-hub/internal/model"
)

func entry(name string, required int64, active bool) model.RewardCatalogEntry {
	return model.RewardCatalogEntry{
		ID:             uuid.New(),
		Name:           name,
		PointsRequired: required,
		IsActive:       active,
	}
}

func TestClassifyCatalog(t *testing.T) {
	a := entry("A", 100, true)
	b := entry("B", 500, true)
	c := entry("C", 0, true)

	got := ClassifyCatalog([]model.RewardCatalogEntry{a, b, c}, 300)

	assert.Equal(t, map[uuid.UUID]Class{
		a.ID: ClassUnlocked,
		b.ID: ClassLocked,
		c.ID: ClassComingSoon,
	}, got)
}

func TestClassify_Boundaries(t *testing.T) {
	assert.Equal(t, ClassUnlocked, Classify(entry("exact", 300, true), 300))
	assert.Equal(t, ClassLocked, Classify(entry("one short", 301, true), 300))
	assert.Equal(t, ClassComingSoon, Classify(entry("free", 0, true), 0))
	assert.Equal(t, ClassLocked, Classify(entry("zero balance", 1, true), 0))
}

func TestBuildCatalogView(t *testing.T) {
	big := entry("Big", 500, true)
	small := entry("Small", 100, true)
	soon := entry("Soon", 0, true)
	hidden := entry("Hidden", 50, false)
	entries := []model.RewardCatalogEntry{big, small, soon, hidden}

	view := BuildCatalogView(entries, 300, FilterAll)

	require.Len(t, view.Items, 3)
	assert.Equal(t, []string{"Soon", "Small", "Big"}, names(view.Items))
	assert.Equal(t, Counts{All: 3, Unlocked: 1, Locked: 1, ComingSoon: 1}, view.Counts)
	assert.Equal(t, int64(300), view.Points)

	locked := BuildCatalogView(entries, 300, FilterLocked)
	assert.Equal(t, []string{"Big"}, names(locked.Items))
	assert.Equal(t, view.Counts, locked.Counts, "counts ignore the filter")

	unlocked := BuildCatalogView(entries, 300, FilterUnlocked)
	assert.Equal(t, []string{"Small"}, names(unlocked.Items))
	assert.Equal(t, ClassUnlocked, unlocked.Items[0].Class)
}

func TestBuildCatalogView_StableOrder(t *testing.T) {
	first := entry("first", 100, true)
	second := entry("second", 100, true)
	third := entry("third", 100, true)

	view := BuildCatalogView([]model.RewardCatalogEntry{first, second, third}, 0, FilterAll)
	assert.Equal(t, []string{"first", "second", "third"}, names(view.Items))
}

func TestBuildCatalogView_Empty(t *testing.T) {
	view := BuildCatalogView(nil, 10, FilterAll)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)
	assert.Equal(t, Counts{}, view.Counts)
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{
		"":            FilterAll,
		"all":         FilterAll,
		"unlocked":    FilterUnlocked,
		"locked":      FilterLocked,
		"coming_soon": FilterComingSoon,
	} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFilter("expired")
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestGoalProgress(t *testing.T) {
	assert.Equal(t, Progress{Target: 5000, Percent: 0}, GoalProgress(0, 5000))
	assert.Equal(t, Progress{Target: 5000, Percent: 50}, GoalProgress(2500, 5000))
	assert.Equal(t, Progress{Target: 5000, Percent: 100}, GoalProgress(9000, 5000))
	assert.Equal(t, Progress{Target: 0}, GoalProgress(10, 0))
}

// TestCatalogViewProperties checks counts add up and the view is sorted.
func TestCatalogViewProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		entries := make([]model.RewardCatalogEntry, n)
		active := 0
		for i := range entries {
			entries[i] = entry("e", rapid.Int64Range(0, 2000).Draw(t, "required"), rapid.Bool().Draw(t, "active"))
			if entries[i].IsActive {
				active++
			}
		}
		points := rapid.Int64Range(0, 2000).Draw(t, "points")

		view := BuildCatalogView(entries, points, FilterAll)

		if view.Counts.All != active || len(view.Items) != active {
			t.Fatalf("expected %d active, got counts %+v items %d", active, view.Counts, len(view.Items))
		}
		if view.Counts.Unlocked+view.Counts.Locked+view.Counts.ComingSoon != view.Counts.All {
			t.Fatalf("class counts do not sum to total: %+v", view.Counts)
		}
		for i := 1; i < len(view.Items); i++ {
			if view.Items[i-1].PointsRequired > view.Items[i].PointsRequired {
				t.Fatalf("items not sorted at %d", i)
			}
		}
		for _, item := range view.Items {
			if item.Class == ClassUnlocked && points < item.PointsRequired {
				t.Fatalf("unlocked item requires %d but user has %d", item.PointsRequired, points)
			}
		}
	})
}

func names(items []CatalogItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}
