// Package resultimage composes a shareable PNG of a scoreboard ranking.
package resultimage

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Seednode/metagame/scoreboard"
)

const (
	defaultWidth = 480
	margin       = 24
	lineHeight   = 22
	coverSize    = 96
	qrSize       = 96
	headerHeight = coverSize + 2*margin
	maxNameRunes = 28
)

var (
	background = color.RGBA{R: 0x1e, G: 0x22, B: 0x2b, A: 0xff}
	foreground = color.RGBA{R: 0xf2, G: 0xf2, B: 0xf2, A: 0xff}
	accent     = color.RGBA{R: 0xf5, G: 0xb7, B: 0x31, A: 0xff}
	muted      = color.RGBA{R: 0x9a, G: 0xa0, B: 0xab, A: 0xff}
)

// Options describe one result image. Template and Cover are optional.
type Options struct {
	Title     string
	Subtitle  string
	Standings []scoreboard.Standing
	Template  image.Image
	Cover     image.Image
	ShareURL  string
}

// Render draws the ranking on top of the template, or on a plain canvas
// sized to fit every standing when there is no template.
func Render(opts Options) (*image.RGBA, error) {
	var canvas *image.RGBA

	if opts.Template != nil {
		b := opts.Template.Bounds()
		canvas = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(canvas, canvas.Bounds(), opts.Template, b.Min, draw.Src)
	} else {
		height := headerHeight + lineHeight*(len(opts.Standings)+1) + qrSize + 2*margin
		canvas = image.NewRGBA(image.Rect(0, 0, defaultWidth, height))
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	}

	bounds := canvas.Bounds()

	textRight := bounds.Max.X - margin
	if opts.Cover != nil {
		box := image.Rect(bounds.Max.X-margin-coverSize, margin, bounds.Max.X-margin, margin+coverSize)
		xdraw.ApproxBiLinear.Scale(canvas, box, opts.Cover, opts.Cover.Bounds(), draw.Over, nil)
		textRight = box.Min.X - margin
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Placar"
	}

	drawText(canvas, accent, margin, margin+13, clip(title, (textRight-margin)/7))
	if opts.Subtitle != "" {
		drawText(canvas, muted, margin, margin+13+lineHeight, clip(opts.Subtitle, (textRight-margin)/7))
	}

	y := headerHeight
	for _, s := range opts.Standings {
		if y+lineHeight > bounds.Max.Y-margin {
			break
		}

		col := foreground
		if s.Position == 1 {
			col = accent
		}

		drawText(canvas, col, margin, y, fmt.Sprintf("%2d.", s.Position))
		drawText(canvas, col, margin+4*7, y, clip(s.Name, maxNameRunes))

		total := fmt.Sprintf("%d", s.Total)
		drawText(canvas, col, bounds.Max.X-margin-7*len(total), y, total)

		y += lineHeight
	}

	if opts.ShareURL != "" {
		qr, err := qrcode.New(opts.ShareURL, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("encode share url: %w", err)
		}
		qr.DisableBorder = true

		box := image.Rect(bounds.Max.X-margin-qrSize, bounds.Max.Y-margin-qrSize, bounds.Max.X-margin, bounds.Max.Y-margin)
		draw.Draw(canvas, box, qr.Image(qrSize), image.Point{}, draw.Src)
	}

	return canvas, nil
}

func Encode(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// LoadTemplate reads a background image from disk.
func LoadTemplate(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", path, err)
	}

	return img, nil
}

func drawText(dst draw.Image, c color.Color, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func clip(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}

	// basicfont has no ellipsis glyph
	return string(r[:n-3]) + "..."
}
