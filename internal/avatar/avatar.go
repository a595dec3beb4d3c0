// Package avatar renders deterministic identicon avatars from a seed string.
// The same seed always produces the same SVG, so avatars survive restarts
// without being stored anywhere.
package avatar

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

const (
	gridSize = 5
	cellPx   = 24
	marginPx = 12
)

// Palette pairs a background with a foreground fill.
type palette struct {
	background string
	foreground string
}

// Palettes are fixed so a seed maps to a stable color combination.
var palettes = []palette{
	{"#f1f5f9", "#0f766e"},
	{"#fef3c7", "#b45309"},
	{"#ede9fe", "#6d28d9"},
	{"#fce7f3", "#be185d"},
	{"#dcfce7", "#15803d"},
	{"#e0f2fe", "#0369a1"},
	{"#fee2e2", "#b91c1c"},
	{"#f3e8ff", "#7e22ce"},
}

// Render produces an SVG identicon for the given seed.
// The digest drives both the palette choice and a 5x5 grid that is
// mirrored around its vertical axis, identicon style.
func Render(seed string) string {
	digest := sha256.Sum256([]byte(seed))

	p := palettes[int(digest[0])%len(palettes)]

	size := gridSize*cellPx + 2*marginPx

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d">`, size, size)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, size, size, p.background)

	// Only the left three columns come from the digest; the right two mirror them.
	for row := 0; row < gridSize; row++ {
		for col := 0; col <= gridSize/2; col++ {
			bit := digest[1+row] >> uint(col) & 1
			if bit == 0 {
				continue
			}
			drawCell(&b, row, col, p.foreground)
			if mirror := gridSize - 1 - col; mirror != col {
				drawCell(&b, row, mirror, p.foreground)
			}
		}
	}

	b.WriteString(`</svg>`)
	return b.String()
}

func drawCell(b *strings.Builder, row, col int, fill string) {
	x := marginPx + col*cellPx
	y := marginPx + row*cellPx
	fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, x, y, cellPx, cellPx, fill)
}

// URL returns the path under which the auth service serves the avatar for a seed.
func URL(seed string) string {
	return fmt.Sprintf("/avatar/%s.svg", seed)
}
