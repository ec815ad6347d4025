package resultimage

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"io"
	"net/http"
	"strings"
)

const maxCoverBytes = 8 << 20

var ErrUnsupportedCover = errors.New("unsupported cover reference")

// FetchCover downloads and decodes a cover image. Callers are expected to
// render without a cover when it fails.
func FetchCover(ctx context.Context, client *http.Client, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCover, ref)
	}

	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch cover %s: %s", ref, resp.Status)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("decode cover %s: %w", ref, err)
	}

	return img, nil
}
