package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

func TestPrintLinePlain(t *testing.T) {
	var buf bytes.Buffer
	c := NewPlain(&buf)

	c.PrintLine("all good", domain.LevelSuccess)
	c.PrintLine("watch out", domain.LevelWarning)

	out := buf.String()
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "all good")
	assert.Contains(t, out, "warning")
	assert.Contains(t, out, "watch out")
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	c := NewPlain(&buf)

	require.NoError(t, c.Describe("# Install\n\nInstalls *everything*."))
	assert.Contains(t, buf.String(), "Install")
}

func TestIsTerminalOnBuffer(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
