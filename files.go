/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"image"

	"github.com/Seednode/metagame/catalog"
	"github.com/Seednode/metagame/resultimage"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// loadCatalog returns an empty catalog when no file is configured.
func loadCatalog(cfg *Config) (*catalog.Catalog, error) {
	if cfg.catalogPath == "" {
		return catalog.New(nil), nil
	}

	games, err := catalog.LoadFile(cfg.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	logf(cfg, "CATALOG: Loaded %d games from %s", games.Len(), cfg.catalogPath)

	return games, nil
}

func loadResultTemplate(cfg *Config) (image.Image, error) {
	if cfg.resultTemplate == "" {
		return nil, nil
	}

	img, err := resultimage.LoadTemplate(cfg.resultTemplate)
	if err != nil {
		return nil, fmt.Errorf("load result template: %w", err)
	}

	b := img.Bounds()
	logf(cfg, "RESULTS: Loaded %dx%d template from %s", b.Dx(), b.Dy(), cfg.resultTemplate)

	return img, nil
}
