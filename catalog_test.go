package main

import (
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/metagame/catalog"
)

const testCatalogCSV = `Nome,Jogado,Categoria,Subcategoria,Mecanica,Tema,Idade,Min,Max,Dono,Descricao,NotaA,NotaB,Capa
Azul,Sim,Abstrato,Familia,Draft,Azulejos,8,2,4,Ana,Monte paineis de azulejos.,8.5,7.0,https://example.com/azul.jpg
Catan,Sim,Estrategia,Familia,Troca,Colonizacao,10,3,4,Bruno,Colonize a ilha.,7.0,,
The Mind,Nao,Cooperativo,Cartas,Sincronia,Abstrato,8,2,4,Ana,,,,
Gloomhaven,,Estrategia,Campanha,Cartas,Fantasia,14,1,4,,,9.1,8.8,
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	games, err := catalog.Load(strings.NewReader(testCatalogCSV))
	require.NoError(t, err)
	require.Equal(t, 4, games.Len())

	return games
}

func TestParseFilter(t *testing.T) {
	q := url.Values{
		"q":        {"  az "},
		"category": {"Estrategia", "", "Abstrato"},
		"age_min":  {"8"},
		"minp_max": {"3"},
		"maxp_min": {"abc"},
	}

	f := parseFilter(q)

	assert.Equal(t, "az", f.Name)
	assert.Equal(t, []string{"Estrategia", "Abstrato"}, f.Category)
	assert.Nil(t, f.Played)

	require.NotNil(t, f.MinAge)
	assert.Equal(t, catalog.Range{Min: 8, Max: math.MaxInt}, *f.MinAge)

	require.NotNil(t, f.MinPlayers)
	assert.Equal(t, catalog.Range{Min: math.MinInt, Max: 3}, *f.MinPlayers)

	assert.Nil(t, f.MaxPlayers, "invalid bounds leave the range inactive")
}

func TestCatalogList(t *testing.T) {
	ts := newTestServer(t, newTestConfig(), testCatalog(t))

	t.Run("unfiltered", func(t *testing.T) {
		rr := ts.get("/catalog")
		require.Equal(t, http.StatusOK, rr.Code)

		doc := parseHTML(t, rr.Body.String())
		assert.Equal(t, "Mostrando 4 de 4 jogos", strings.TrimSpace(doc.Find("#count").Text()))
		assert.Equal(t, 4, doc.Find("li.game").Length())

		options := doc.Find(`select[name="category"] option`).Map(func(_ int, s *goquery.Selection) string {
			return s.AttrOr("value", "")
		})
		assert.Equal(t, []string{"Abstrato", "Cooperativo", "Estrategia"}, options)
	})

	t.Run("filtered", func(t *testing.T) {
		rr := ts.get("/catalog?category=Estrategia&minp_max=2")
		require.Equal(t, http.StatusOK, rr.Code)

		doc := parseHTML(t, rr.Body.String())
		assert.Equal(t, "Mostrando 1 de 4 jogos", strings.TrimSpace(doc.Find("#count").Text()))
		assert.Equal(t, "Gloomhaven", doc.Find("li.game a.name").Text())

		_, selected := doc.Find(`select[name="category"] option[value="Estrategia"]`).Attr("selected")
		assert.True(t, selected)
		assert.Equal(t, "2", doc.Find(`input[name="minp_max"]`).AttrOr("value", ""))
	})

	t.Run("blank values never match", func(t *testing.T) {
		rr := ts.get("/catalog?played=Sim&played=Nao")

		doc := parseHTML(t, rr.Body.String())
		assert.Equal(t, "Mostrando 3 de 4 jogos", strings.TrimSpace(doc.Find("#count").Text()))
	})

	t.Run("no matches", func(t *testing.T) {
		rr := ts.get("/catalog?q=xyz")

		doc := parseHTML(t, rr.Body.String())
		assert.Equal(t, "Mostrando 0 de 4 jogos", strings.TrimSpace(doc.Find("#count").Text()))
		assert.Equal(t, 1, doc.Find("li.empty").Length())
	})
}

func TestCatalogListEmptyCatalog(t *testing.T) {
	ts := newTestServer(t, newTestConfig(), nil)

	rr := ts.get("/catalog")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(t, rr.Body.String())
	assert.Equal(t, "Mostrando 0 de 0 jogos", strings.TrimSpace(doc.Find("#count").Text()))
}

func TestCatalogGame(t *testing.T) {
	ts := newTestServer(t, newTestConfig(), testCatalog(t))

	t.Run("known game", func(t *testing.T) {
		rr := ts.get("/catalog/game/" + url.PathEscape("the mind"))
		require.Equal(t, http.StatusOK, rr.Code)

		doc := parseHTML(t, rr.Body.String())
		assert.Equal(t, "The Mind", doc.Find("#name").Text())
		assert.Equal(t, "2-4", doc.Find("#players").Text())
		assert.Equal(t, blank, doc.Find("#rating-a").Text())
		assert.Equal(t, 0, doc.Find("#description").Length())
	})

	t.Run("ratings and cover", func(t *testing.T) {
		rr := ts.get("/catalog/game/Azul")
		require.Equal(t, http.StatusOK, rr.Code)

		doc := parseHTML(t, rr.Body.String())
		assert.Equal(t, "8.5", doc.Find("#rating-a").Text())
		assert.Equal(t, "https://example.com/azul.jpg", doc.Find("img.cover").AttrOr("src", ""))
	})

	t.Run("unknown game", func(t *testing.T) {
		rr := ts.get("/catalog/game/Monopoly")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCatalogGameNameWithSlash(t *testing.T) {
	csv := testCatalogCSV + "Love Letter / Batman,Sim,Cartas,,,,10,2,4,,,,,\n"
	games, err := catalog.Load(strings.NewReader(csv))
	require.NoError(t, err)

	ts := newTestServer(t, newTestConfig(), games)

	rr := ts.get("/catalog?q=batman")
	require.Equal(t, http.StatusOK, rr.Code)

	href, ok := parseHTML(t, rr.Body.String()).Find("li.game a.name").Attr("href")
	require.True(t, ok)
	assert.Equal(t, "/catalog/game/Love%20Letter%20%2F%20Batman", href)

	rr = ts.get(href)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Love Letter / Batman", parseHTML(t, rr.Body.String()).Find("#name").Text())
}

func TestCatalogJSON(t *testing.T) {
	ts := newTestServer(t, newTestConfig(), testCatalog(t))

	rr := ts.get("/catalog.json?maintainer=Ana")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var games []catalog.Game
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &games))
	require.Len(t, games, 2)
	assert.Equal(t, "Azul", games[0].Name)
	assert.Equal(t, "The Mind", games[1].Name)
}
