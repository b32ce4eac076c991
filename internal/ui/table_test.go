package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRenderBasic(t *testing.T) {
	tbl := NewTable([]Column{{Title: "ASSET", Width: 8}, {Title: "BALANCE", Width: 12}})
	tbl.AddRow(Row{"ETH", "1.2345"})
	tbl.AddRow(Row{"USDT", "100.00"})

	out := tbl.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4) // header + divider + 2 rows
	assert.Contains(t, lines[0], "ASSET")
	assert.Contains(t, lines[2], "ETH")
	assert.Contains(t, lines[3], "100.00")
}

func TestTableRenderMissingCells(t *testing.T) {
	tbl := NewTable([]Column{{Title: "A", Width: 4}, {Title: "B", Width: 4}})
	tbl.AddRow(Row{"only"})

	// A short row must not panic; the missing cell renders empty.
	out := tbl.Render()
	assert.Contains(t, out, "only")
}

func TestTableTruncatesOverlongCell(t *testing.T) {
	tbl := NewTable([]Column{{Title: "X", Width: 4}})
	tbl.AddRow(Row{"abcdefgh"})

	out := tbl.Render()
	assert.Contains(t, out, "abcd")
	assert.NotContains(t, out, "abcde")
}

func TestKeyValueBlock(t *testing.T) {
	out := KeyValueBlock("Phase", [][2]string{
		{"id", "2"},
		{"price", "$0.0015"},
	})
	assert.Contains(t, out, "Phase")
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "$0.0015")
}
