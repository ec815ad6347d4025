package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Nome,Jogado,Categoria,Subcategoria,Mecanica,Tema,Idade,Min,Max,Mantenedor,Descricao,NotaA,NotaB,Capa
Azul,Sim,Abstrato,Familia,Draft,Azulejos,8,2,4,Laura,"Monte paredes, com azulejos",9,8.5,https://example.com/azul.png
Catan,Sim,Estrategia,Euro,Troca,Colonizacao,10.0,3,4,João,Comercie recursos,7,,https://example.com/catan.jpg
The Mind,Não,Cooperativo,,Cartas,Abstrato,8,2,4,João,,,,
Gloomhaven,Não,Estrategia,Dungeon,Campanha,Fantasia,14,1,4,Laura,Longo,10,9,

`

func loadSample(t *testing.T) *Catalog {
	t.Helper()

	c, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	return c
}

func names(games []Game) []string {
	out := make([]string, 0, len(games))
	for _, g := range games {
		out = append(out, g.Name)
	}
	return out
}

func TestLoadParsesColumnsByPosition(t *testing.T) {
	c := loadSample(t)
	require.Equal(t, 4, c.Len())

	azul := c.Games()[0]
	assert.Equal(t, "Azul", azul.Name)
	assert.Equal(t, "Sim", azul.Played)
	assert.Equal(t, "Abstrato", azul.Category)
	assert.Equal(t, "Monte paredes, com azulejos", azul.Description)
	require.NotNil(t, azul.MinAge)
	assert.Equal(t, 8, *azul.MinAge)
	require.NotNil(t, azul.RatingB)
	assert.InDelta(t, 8.5, *azul.RatingB, 0.001)
	assert.Equal(t, "https://example.com/azul.png", azul.Cover)

	catan := c.Games()[1]
	require.NotNil(t, catan.MinAge)
	assert.Equal(t, 10, *catan.MinAge)
	assert.Nil(t, catan.RatingB)

	mind := c.Games()[2]
	assert.Empty(t, mind.Subcategory)
	assert.Empty(t, mind.Cover)
	assert.Nil(t, mind.RatingA)
}

func TestLoadRejectsShortRows(t *testing.T) {
	_, err := Load(strings.NewReader("h1,h2\nAzul,Sim\n"))
	require.ErrorIs(t, err, ErrShortRow)
}

func TestLoadEmptyInput(t *testing.T) {
	c, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestParseIntUnknownValues(t *testing.T) {
	assert.Nil(t, parseInt("abc"))
	assert.Nil(t, parseInt("2.5"))
	assert.Nil(t, parseInt(""))
	require.NotNil(t, parseInt("3,0"))
	assert.Equal(t, 3, *parseInt("3,0"))
}

func TestLookupAndCover(t *testing.T) {
	c := loadSample(t)

	g, ok := c.Lookup("  catan ")
	require.True(t, ok)
	assert.Equal(t, "Catan", g.Name)

	cover, ok := c.CoverFor("AZUL")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/azul.png", cover)

	_, ok = c.CoverFor("The Mind")
	assert.False(t, ok)

	_, ok = c.Lookup("")
	assert.False(t, ok)

	var nilCatalog *Catalog
	_, ok = nilCatalog.CoverFor("Azul")
	assert.False(t, ok)
	assert.Zero(t, nilCatalog.Len())
}
