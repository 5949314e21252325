// Package rewards derives read-side views over referrals and the reward
// catalog. Nothing here touches storage; callers pass in the rows.
package rewards

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"rewards-hub/internal/model"
)

// Class is the derived availability of a catalog entry for one user.
type Class string

const (
	ClassUnlocked   Class = "unlocked"
	ClassLocked     Class = "locked"
	ClassComingSoon Class = "coming_soon"
)

// Filter selects which classes a catalog view shows.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterUnlocked   Filter = Filter(ClassUnlocked)
	FilterLocked     Filter = Filter(ClassLocked)
	FilterComingSoon Filter = Filter(ClassComingSoon)
)

// ErrUnknownFilter is returned by ParseFilter for unrecognised names.
var ErrUnknownFilter = errors.New("unknown catalog filter")

// ParseFilter maps a filter name to a Filter. The empty string means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUnlocked, FilterLocked, FilterComingSoon:
		return Filter(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownFilter, "%q", s)
	}
}

// Matches reports whether an entry of class c passes the filter.
func (f Filter) Matches(c Class) bool {
	return f == FilterAll || Class(f) == c
}

// Classify returns the class of a single entry for the given balance.
// An entry that costs nothing is a placeholder for an upcoming reward.
func Classify(entry model.RewardCatalogEntry, points int64) Class {
	switch {
	case entry.PointsRequired == 0:
		return ClassComingSoon
	case points >= entry.PointsRequired:
		return ClassUnlocked
	default:
		return ClassLocked
	}
}

// ClassifyCatalog classifies every entry against the user's balance.
func ClassifyCatalog(entries []model.RewardCatalogEntry, points int64) map[uuid.UUID]Class {
	out := make(map[uuid.UUID]Class, len(entries))
	for _, e := range entries {
		out[e.ID] = Classify(e, points)
	}
	return out
}

// Counts holds the number of active entries per class.
// All is the total number of active entries regardless of class.
type Counts struct {
	All        int `json:"all"`
	Unlocked   int `json:"unlocked"`
	Locked     int `json:"locked"`
	ComingSoon int `json:"coming_soon"`
}

func (c *Counts) add(class Class) {
	c.All++
	switch class {
	case ClassUnlocked:
		c.Unlocked++
	case ClassLocked:
		c.Locked++
	case ClassComingSoon:
		c.ComingSoon++
	}
}

// CatalogItem is an entry paired with its derived class.
type CatalogItem struct {
	model.RewardCatalogEntry
	Class Class `json:"class"`
}

// CatalogView is the catalog as one user sees it.
type CatalogView struct {
	Points int64         `json:"points"`
	Filter Filter        `json:"filter"`
	Items  []CatalogItem `json:"items"`
	Counts Counts        `json:"counts"`
}

// BuildCatalogView keeps active entries, orders them by ascending
// PointsRequired (ties keep input order), classifies them and applies the
// filter. Counts cover every active entry, not just the filtered ones.
func BuildCatalogView(entries []model.RewardCatalogEntry, points int64, filter Filter) CatalogView {
	active := make([]model.RewardCatalogEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsActive {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].PointsRequired < active[j].PointsRequired
	})

	view := CatalogView{
		Points: points,
		Filter: filter,
		Items:  make([]CatalogItem, 0, len(active)),
	}
	for _, e := range active {
		class := Classify(e, points)
		view.Counts.add(class)
		if filter.Matches(class) {
			view.Items = append(view.Items, CatalogItem{RewardCatalogEntry: e, Class: class})
		}
	}
	return view
}

// Progress is a user's progress toward a points goal.
type Progress struct {
	Target  int64   `json:"target"`
	Percent float64 `json:"percent"`
}

// GoalProgress returns points as a percentage of target, capped at 100.
func GoalProgress(points, target int64) Progress {
	p := Progress{Target: target}
	if target <= 0 || points <= 0 {
		return p
	}
	p.Percent = float64(points) / float64(target) * 100
	if p.Percent > 100 {
		p.Percent = 100
	}
	return p
}
