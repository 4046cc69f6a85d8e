package main

import (
	"image"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Display is the small status screen in front of the wearer's eye.
type Display interface {
	SetPower(on bool) error
	ShowText(text string) error
	Close() error
}

var textFace = basicfont.Face7x13

// wrapText breaks text into lines of at most width characters. Words are kept
// whole unless a single word is wider than a line. Explicit newlines are kept.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var cur string
		for _, word := range strings.Fields(para) {
			for len(word) > width {
				if cur != "" {
					lines = append(lines, cur)
					cur = ""
				}
				lines = append(lines, word[:width])
				word = word[width:]
			}
			switch {
			case cur == "":
				cur = word
			case len(cur)+1+len(word) <= width:
				cur += " " + word
			default:
				lines = append(lines, cur)
				cur = word
			}
		}
		lines = append(lines, cur)
	}
	return lines
}

// textGrid reports how many characters and lines of textFace fit in bounds.
func textGrid(bounds image.Rectangle) (cols, rows int) {
	adv, _ := textFace.GlyphAdvance('M')
	cols = bounds.Dx() / adv.Round()
	rows = bounds.Dy() / textFace.Metrics().Height.Round()
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// renderText draws wrapped text into a 1-bit frame. Lines that do not fit are
// dropped from the bottom.
func renderText(bounds image.Rectangle, text string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)
	cols, rows := textGrid(bounds)
	lines := wrapText(text, cols)
	if len(lines) > rows {
		lines = lines[:rows]
	}

	m := textFace.Metrics()
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: textFace,
	}
	for i, line := range lines {
		d.Dot = fixed.P(bounds.Min.X, bounds.Min.Y+m.Ascent.Round()+i*m.Height.Round())
		d.DrawString(line)
	}
	return img
}

// headlessDisplay logs what would be shown. Used when no panel is attached.
type headlessDisplay struct {
	mu     sync.Mutex
	on     bool
	text   string
	bounds image.Rectangle
	logger *slog.Logger
}

func newHeadlessDisplay(width, height int, logger *slog.Logger) *headlessDisplay {
	return &headlessDisplay{bounds: image.Rect(0, 0, width, height), logger: logger}
}

func (d *headlessDisplay) SetPower(on bool) error {
	d.mu.Lock()
	d.on = on
	d.mu.Unlock()
	d.logger.Info("display power", "on", on)
	return nil
}

func (d *headlessDisplay) ShowText(text string) error {
	cols, rows := textGrid(d.bounds)
	lines := wrapText(text, cols)
	if len(lines) > rows {
		lines = lines[:rows]
	}
	d.mu.Lock()
	d.text = text
	d.mu.Unlock()
	d.logger.Info("display text", "lines", strings.Join(lines, " | "))
	return nil
}

func (d *headlessDisplay) Close() error { return nil }
