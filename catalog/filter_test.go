package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyWithoutFilterKeepsEverything(t *testing.T) {
	c := loadSample(t)
	assert.Equal(t, []string{"Azul", "Catan", "The Mind", "Gloomhaven"}, names(c.Apply(Filter{})))
}

func TestApplyNameSubstringIgnoresCase(t *testing.T) {
	c := loadSample(t)
	assert.Equal(t, []string{"The Mind"}, names(c.Apply(Filter{Name: "MIN"})))
	assert.Equal(t, []string{"Catan", "The Mind"}, names(c.Apply(Filter{Name: " t "})))
}

func TestApplyMultiSelect(t *testing.T) {
	c := loadSample(t)

	got := c.Apply(Filter{Category: []string{"Estrategia", "Abstrato"}})
	assert.Equal(t, []string{"Azul", "Catan", "Gloomhaven"}, names(got))

	got = c.Apply(Filter{Category: []string{"Estrategia"}, Maintainer: []string{"Laura"}})
	assert.Equal(t, []string{"Gloomhaven"}, names(got))
}

func TestApplyBlankNeverMatchesActiveFilter(t *testing.T) {
	c := loadSample(t)

	got := c.Apply(Filter{Subcategory: []string{"Familia", "Euro", "Dungeon"}})
	assert.Equal(t, []string{"Azul", "Catan", "Gloomhaven"}, names(got))
}

func TestApplyRanges(t *testing.T) {
	c := loadSample(t)

	got := c.Apply(Filter{MinAge: &Range{Min: 8, Max: 10}})
	assert.Equal(t, []string{"Azul", "Catan", "The Mind"}, names(got))

	got = c.Apply(Filter{MinPlayers: &Range{Min: 1, Max: 2}, MaxPlayers: &Range{Min: 4, Max: 4}})
	assert.Equal(t, []string{"Azul", "The Mind", "Gloomhaven"}, names(got))
}

func TestApplyRangeExcludesUnknown(t *testing.T) {
	c := New([]Game{{Name: "Unknown age"}, {Name: "Known", MinAge: intPtr(6)}})
	assert.Equal(t, []string{"Known"}, names(c.Apply(Filter{MinAge: &Range{Min: 0, Max: 99}})))
}

func TestOptionsAreSortedAndDistinct(t *testing.T) {
	o := loadSample(t).Options()

	assert.Equal(t, []string{"Não", "Sim"}, o.Played)
	assert.Equal(t, []string{"Abstrato", "Cooperativo", "Estrategia"}, o.Category)
	assert.Equal(t, []string{"Dungeon", "Euro", "Familia"}, o.Subcategory)
	assert.Equal(t, []string{"João", "Laura"}, o.Maintainer)
	assert.Equal(t, []int{8, 10, 14}, o.MinAge)
	assert.Equal(t, []int{1, 2, 3}, o.MinPlayers)
	assert.Equal(t, []int{4}, o.MaxPlayers)
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	assert.Empty(t, c.Apply(Filter{}))
	assert.Empty(t, c.Options().Category)
}

func intPtr(v int) *int { return &v }
