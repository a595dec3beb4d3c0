package avatar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderIsDeterministic(t *testing.T) {
	a := Render("alice@example.com")
	b := Render("alice@example.com")

	assert.Equal(t, a, b)
}

func TestRenderDiffersBySeed(t *testing.T) {
	a := Render("alice@example.com")
	b := Render("bob@example.com")

	assert.NotEqual(t, a, b)
}

func TestRenderProducesValidSVG(t *testing.T) {
	svg := Render("seed")

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Contains(t, svg, `xmlns="http://www.w3.org/2000/svg"`)
	// background plus at least one grid cell
	assert.GreaterOrEqual(t, strings.Count(svg, "<rect"), 2)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "/avatar/abc.svg", URL("abc"))
}
