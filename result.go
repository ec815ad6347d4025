package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/metagame/resultimage"
)

// serveResultImage renders the current ranking of a session as a PNG. A cover
// that cannot be fetched in time is left out rather than failing the request.
func serveResultImage(cfg *Config, gm *GameManager, deps dependencies) httprouter.Handle {
	client := &http.Client{Timeout: cfg.coverTimeout}

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		hub, ok := gm.lookupHub(gameID)
		if !ok {
			http.Error(w, "unknown game", http.StatusNotFound)
			return
		}

		state := hub.snapshot()

		cover := fetchCover(r.Context(), cfg, deps, client, state.GameName)

		title := state.GameName
		if title == "" {
			title = "Placar"
		}

		img, err := resultimage.Render(resultimage.Options{
			Title:     title,
			Subtitle:  "Rodadas: " + strconv.Itoa(state.Round-1),
			Standings: state.Ranking,
			Template:  deps.template,
			Cover:     cover,
			ShareURL:  sessionURL(r, strings.TrimSuffix(r.URL.Path, "/result.png")),
		})
		if err != nil {
			errorf(cfg, err, "RESULTS: Render failed for %s", gameID)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err := resultimage.Encode(&buf, img); err != nil {
			errorf(cfg, err, "RESULTS: Encode failed for %s", gameID)
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}

		deps.metrics.resultImages.WithLabelValues(strconv.FormatBool(cover != nil)).Inc()

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "placar-"+gameID+".png"))
		securityHeaders(cfg, w)

		written, _ := w.Write(buf.Bytes())

		logf(cfg, "RESULTS: Image for %s (%s) to %s in %s",
			gameID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func fetchCover(ctx context.Context, cfg *Config, deps dependencies, client *http.Client, gameName string) image.Image {
	ref, ok := deps.games.CoverFor(gameName)
	if !ok {
		return nil
	}

	cover, err := resultimage.FetchCover(ctx, client, ref)
	if err != nil {
		debugf(cfg, "RESULTS: Skipping cover for %q: %v", gameName, err)
		return nil
	}

	return cover
}
