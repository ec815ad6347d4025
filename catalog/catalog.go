// Package catalog loads the board game collection from CSV and filters it.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Columns is the number of positional columns in a catalog CSV file.
const Columns = 14

var ErrShortRow = errors.New("row has too few columns")

// Game is one row of the catalog. Numeric fields are nil when unknown.
type Game struct {
	Name        string   `json:"name"`
	Played      string   `json:"played"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Mechanic    string   `json:"mechanic"`
	Theme       string   `json:"theme"`
	MinAge      *int     `json:"min_age"`
	MinPlayers  *int     `json:"min_players"`
	MaxPlayers  *int     `json:"max_players"`
	Maintainer  string   `json:"maintainer"`
	Description string   `json:"description"`
	RatingA     *float64 `json:"rating_a"`
	RatingB     *float64 `json:"rating_b"`
	Cover       string   `json:"cover"`
}

type Catalog struct {
	games []Game
}

// Load reads a CSV with a header row. Columns are matched by position, the
// header text is ignored.
func Load(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	c := &Catalog{}
	if len(records) == 0 {
		return c, nil
	}

	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}

		if len(record) < Columns {
			return nil, fmt.Errorf("line %d: %w (%d of %d)", i+2, ErrShortRow, len(record), Columns)
		}

		c.games = append(c.games, parseRow(record))
	}

	return c, nil
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// New builds a catalog from already parsed games.
func New(games []Game) *Catalog {
	return &Catalog{games: append([]Game(nil), games...)}
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}

	return len(c.games)
}

// Games returns every game in file order.
func (c *Catalog) Games() []Game {
	if c == nil {
		return nil
	}

	return append([]Game(nil), c.games...)
}

// Lookup finds a game by name, ignoring case and surrounding whitespace.
func (c *Catalog) Lookup(name string) (Game, bool) {
	if c == nil {
		return Game{}, false
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Game{}, false
	}

	for _, g := range c.games {
		if strings.EqualFold(g.Name, name) {
			return g, true
		}
	}

	return Game{}, false
}

// CoverFor returns the cover image reference of the named game, if any.
func (c *Catalog) CoverFor(name string) (string, bool) {
	g, ok := c.Lookup(name)
	if !ok || g.Cover == "" {
		return "", false
	}

	return g.Cover, true
}

func parseRow(record []string) Game {
	field := func(i int) string {
		return strings.TrimSpace(record[i])
	}

	return Game{
		Name:        field(0),
		Played:      field(1),
		Category:    field(2),
		Subcategory: field(3),
		Mechanic:    field(4),
		Theme:       field(5),
		MinAge:      parseInt(field(6)),
		MinPlayers:  parseInt(field(7)),
		MaxPlayers:  parseInt(field(8)),
		Maintainer:  field(9),
		Description: field(10),
		RatingA:     parseFloat(field(11)),
		RatingB:     parseFloat(field(12)),
		Cover:       field(13),
	}
}

// parseInt accepts plain integers and integral floats such as "8.0", which
// spreadsheet exports produce for numeric columns with blanks.
func parseInt(s string) *int {
	if s == "" {
		return nil
	}

	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}

	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || f != float64(int(f)) {
		return nil
	}

	v := int(f)

	return &v
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}

	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil
	}

	return &f
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}
