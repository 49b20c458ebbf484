package report

import (
	"fmt"
	"image/color"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

// Colours are CSS colour names written as hex so that both echarts and
// gonum/plot can use them.
var (
	MotionColors = map[motion.Label]string{
		motion.LabelResting: "#d3d3d3", // lightgray
		motion.LabelIdle:    "#a9a9a9", // darkgray
		motion.LabelWalking: "#87ceeb", // skyblue
		motion.LabelRunning: "#ffa500", // orange
	}

	PatternColors = map[string]string{
		segment.PatternActive:     "#ff0000", // red
		segment.PatternStationary: "#0000ff", // blue
		segment.PatternMixed:      "#008000", // green
		segment.PatternUnknown:    "#808080", // gray
	}
)

const fallbackColor = "#808080"

// PatternColor returns the display colour for a pattern. Patterns from
// custom tables fall back to gray.
func PatternColor(pattern string) string {
	if c, ok := PatternColors[pattern]; ok {
		return c
	}
	return fallbackColor
}

// MotionColor returns the display colour for a motion label.
func MotionColor(l motion.Label) string {
	if c, ok := MotionColors[l]; ok {
		return c
	}
	return fallbackColor
}

// rgba parses a #rrggbb colour.
func rgba(hex string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
