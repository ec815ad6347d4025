package main

import (
	"bytes"
	"encoding/json"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/metagame/catalog"
)

type catalogListPage struct {
	Prefix  string
	Path    string
	Query   string
	Filter  catalog.Filter
	Ranges  map[string][2]string
	Options catalog.Options
	Games   []catalog.Game
	Shown   int
	Total   int
}

type catalogDetailPage struct {
	Prefix string
	Path   string
	Game   catalog.Game
}

// facet is one multi-select of the filter form.
type facet struct {
	Name     string
	Label    string
	Options  []string
	Selected []string
}

// blank stands in for unknown values on the catalog pages.
const blank = "—"

var catalogFuncs = template.FuncMap{
	"facet": func(name, label string, options, selected []string) facet {
		return facet{Name: name, Label: label, Options: options, Selected: selected}
	},
	"selected": func(set []string, v string) bool {
		return slices.Contains(set, v)
	},
	"deref": func(v *int) string {
		if v == nil {
			return blank
		}
		return strconv.Itoa(*v)
	},
	"rating": func(v *float64) string {
		if v == nil {
			return blank
		}
		return strconv.FormatFloat(*v, 'f', 1, 64)
	},
	"orDash": func(s string) string {
		if s == "" {
			return blank
		}
		return s
	},
	"gamePath": func(name string) string {
		return url.PathEscape(name)
	},
}

func parseCatalogTemplates() *template.Template {
	return template.Must(template.New("catalog").Funcs(catalogFuncs).ParseFS(assets, "assets/catalog/*.html"))
}

// rangeParams maps each numeric column to its query parameter prefix.
var rangeParams = []string{"age", "minp", "maxp"}

// parseFilter reads a catalog filter from query parameters. A range is active
// when either of its bounds is a valid integer; the missing bound is open.
func parseFilter(q url.Values) catalog.Filter {
	multi := func(key string) []string {
		var out []string
		for _, v := range q[key] {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}

	bounds := func(key string) *catalog.Range {
		lo, loErr := strconv.Atoi(strings.TrimSpace(q.Get(key + "_min")))
		hi, hiErr := strconv.Atoi(strings.TrimSpace(q.Get(key + "_max")))
		if loErr != nil && hiErr != nil {
			return nil
		}
		if loErr != nil {
			lo = math.MinInt
		}
		if hiErr != nil {
			hi = math.MaxInt
		}
		return &catalog.Range{Min: lo, Max: hi}
	}

	return catalog.Filter{
		Name:        strings.TrimSpace(q.Get("q")),
		Played:      multi("played"),
		Category:    multi("category"),
		Subcategory: multi("subcategory"),
		Mechanic:    multi("mechanic"),
		Theme:       multi("theme"),
		Maintainer:  multi("maintainer"),
		MinAge:      bounds("age"),
		MinPlayers:  bounds("minp"),
		MaxPlayers:  bounds("maxp"),
	}
}

func serveCatalogList(cfg *Config, path string, games *catalog.Catalog, tmpl *template.Template, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		q := r.URL.Query()
		f := parseFilter(q)
		matches := games.Apply(f)

		ranges := make(map[string][2]string, len(rangeParams))
		for _, key := range rangeParams {
			ranges[key] = [2]string{q.Get(key + "_min"), q.Get(key + "_max")}
		}

		var buf bytes.Buffer
		err := tmpl.ExecuteTemplate(&buf, "list.html", catalogListPage{
			Prefix:  cfg.prefix,
			Path:    cfg.prefix + path,
			Query:   f.Name,
			Filter:  f,
			Ranges:  ranges,
			Options: games.Options(),
			Games:   matches,
			Shown:   len(matches),
			Total:   games.Len(),
		})
		if err != nil {
			errorf(cfg, err, "CATALOG: Template failed")
			http.Error(w, "template failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write(buf.Bytes())
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "CATALOG: List of %d/%d games (%s) to %s in %s",
			len(matches),
			games.Len(),
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveCatalogGame(cfg *Config, path string, games *catalog.Catalog, tmpl *template.Template, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		// Names may contain "/", so the route is a catch-all.
		g, ok := games.Lookup(strings.TrimPrefix(p.ByName("name"), "/"))
		if !ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			securityHeaders(cfg, w)
			w.WriteHeader(http.StatusNotFound)

			_, _ = w.Write([]byte(newPage("Jogo não encontrado", "Jogo não encontrado no catálogo.")))

			return
		}

		var buf bytes.Buffer
		err := tmpl.ExecuteTemplate(&buf, "detail.html", catalogDetailPage{
			Prefix: cfg.prefix,
			Path:   cfg.prefix + path,
			Game:   g,
		})
		if err != nil {
			errorf(cfg, err, "CATALOG: Template failed")
			http.Error(w, "template failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		if _, err := w.Write(buf.Bytes()); err != nil {
			errs <- err
		}
	}
}

// serveCatalogJSON returns the filtered games, taking the same query
// parameters as the list page.
func serveCatalogJSON(cfg *Config, games *catalog.Catalog, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		matches := games.Apply(parseFilter(r.URL.Query()))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(matches); err != nil {
			errs <- err
		}
	}
}

// registerCatalog sets up routes so that:
//   - $path             → filterable game list
//   - $path/game/*name  → details of one game
//   - $path.json        → filtered games as JSON
func registerCatalog(cfg *Config, path string, deps dependencies, mux *httprouter.Router, errs chan<- error) {
	tmpl := parseCatalogTemplates()

	mux.GET(cfg.prefix+path, serveCatalogList(cfg, path, deps.games, tmpl, errs))

	mux.GET(cfg.prefix+path+"/game/*name", serveCatalogGame(cfg, path, deps.games, tmpl, errs))

	mux.GET(cfg.prefix+path+".json", serveCatalogJSON(cfg, deps.games, errs))
}
