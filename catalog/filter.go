package catalog

import (
	"sort"
	"strings"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int
	Max int
}

func (r *Range) contains(v *int) bool {
	if r == nil {
		return true
	}
	if v == nil {
		return false
	}

	return *v >= r.Min && *v <= r.Max
}

// Filter selects games. Zero-valued fields do not filter. A game with a
// blank or unknown value never matches an active filter on that column.
type Filter struct {
	Name        string
	Played      []string
	Category    []string
	Subcategory []string
	Mechanic    []string
	Theme       []string
	Maintainer  []string
	MinAge      *Range
	MinPlayers  *Range
	MaxPlayers  *Range
}

func (f Filter) Match(g Game) bool {
	if q := strings.TrimSpace(f.Name); q != "" {
		if !strings.Contains(strings.ToLower(g.Name), strings.ToLower(q)) {
			return false
		}
	}

	sets := []struct {
		selected []string
		value    string
	}{
		{f.Played, g.Played},
		{f.Category, g.Category},
		{f.Subcategory, g.Subcategory},
		{f.Mechanic, g.Mechanic},
		{f.Theme, g.Theme},
		{f.Maintainer, g.Maintainer},
	}

	for _, s := range sets {
		if len(s.selected) > 0 && !contains(s.selected, s.value) {
			return false
		}
	}

	return f.MinAge.contains(g.MinAge) &&
		f.MinPlayers.contains(g.MinPlayers) &&
		f.MaxPlayers.contains(g.MaxPlayers)
}

// Apply returns the matching games in catalog order.
func (c *Catalog) Apply(f Filter) []Game {
	if c == nil {
		return nil
	}

	out := make([]Game, 0, len(c.games))
	for _, g := range c.games {
		if f.Match(g) {
			out = append(out, g)
		}
	}

	return out
}

// Options lists the distinct values offered by the filter form.
type Options struct {
	Played      []string
	Category    []string
	Subcategory []string
	Mechanic    []string
	Theme       []string
	Maintainer  []string
	MinAge      []int
	MinPlayers  []int
	MaxPlayers  []int
}

// Options returns the sorted distinct non-blank values of each column.
func (c *Catalog) Options() Options {
	var o Options
	if c == nil {
		return o
	}

	pick := func(get func(Game) string) []string {
		seen := make(map[string]bool)
		var out []string
		for _, g := range c.games {
			v := get(g)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
		sort.Strings(out)
		return out
	}

	pickInt := func(get func(Game) *int) []int {
		seen := make(map[int]bool)
		var out []int
		for _, g := range c.games {
			v := get(g)
			if v == nil || seen[*v] {
				continue
			}
			seen[*v] = true
			out = append(out, *v)
		}
		sort.Ints(out)
		return out
	}

	o.Played = pick(func(g Game) string { return g.Played })
	o.Category = pick(func(g Game) string { return g.Category })
	o.Subcategory = pick(func(g Game) string { return g.Subcategory })
	o.Mechanic = pick(func(g Game) string { return g.Mechanic })
	o.Theme = pick(func(g Game) string { return g.Theme })
	o.Maintainer = pick(func(g Game) string { return g.Maintainer })
	o.MinAge = pickInt(func(g Game) *int { return g.MinAge })
	o.MinPlayers = pickInt(func(g Game) *int { return g.MinPlayers })
	o.MaxPlayers = pickInt(func(g Game) *int { return g.MaxPlayers })

	return o
}

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}

	for _, s := range set {
		if s == v {
			return true
		}
	}

	return false
}
