package charts

import (
	"github.com/wcharczuk/go-chart/v2/drawing"

	"griefpulse/internal/grievance"
	"griefpulse/pkg/contracts/domain"
)

// StatusColors fixes the colour of each known processing status
var StatusColors = map[string]drawing.Color{
	domain.StatusInProgress:   drawing.ColorFromHex("f39c12"),
	domain.StatusCompleted:    drawing.ColorFromHex("27ae60"),
	domain.StatusUntreated:    drawing.ColorFromHex("e74c3c"),
	domain.StatusInadmissible: drawing.ColorFromHex("95a5a6"),
}

// qualitative palette for labels without a fixed colour
var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
	drawing.ColorFromHex("bcbd22"),
	drawing.ColorFromHex("17becf"),
}

var foldedStatusColors = func() map[string]drawing.Color {
	m := make(map[string]drawing.Color, len(StatusColors))
	for label, c := range StatusColors {
		m[grievance.Fold(label)] = c
	}
	return m
}()

// ColorFor returns the colour of label at position i of a chart.
// Known statuses keep their colour whatever their position.
func ColorFor(label string, i int) drawing.Color {
	if c, ok := foldedStatusColors[grievance.Fold(label)]; ok {
		return c
	}
	return palette[i%len(palette)]
}
