// Package virtualscroll computes which rows of a long fixed-height list
// need to be rendered for a given scroll offset.
package virtualscroll

import "math"

// Window describes a fixed-row-height scroll container.
type Window struct {
	// ItemHeight is the height of one row in pixels. Must be positive.
	ItemHeight float64

	// ContainerHeight is the visible height of the container in pixels.
	ContainerHeight float64

	// Overscan is the number of extra rows rendered above and below the
	// visible rows.
	Overscan int
}

// Range is an inclusive index range. End < Start means nothing to render.
type Range struct {
	Start        int
	End          int
	VisibleCount int
}

// Empty reports whether the range contains no rows.
func (r Range) Empty() bool {
	return r.End < r.Start
}

// Len returns the number of rows in the range.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// VisibleCount returns the number of rows that fit in the container.
func (w Window) VisibleCount() int {
	return int(math.Ceil(w.ContainerHeight / w.ItemHeight))
}

// Range returns the rows to render at scrollTop for a list of totalItems rows.
func (w Window) Range(scrollTop float64, totalItems int) Range {
	visible := w.VisibleCount()
	start := int(math.Floor(scrollTop/w.ItemHeight)) - w.Overscan
	if start < 0 {
		start = 0
	}
	end := start + visible + 2*w.Overscan
	if end > totalItems-1 {
		end = totalItems - 1
	}
	return Range{Start: start, End: end, VisibleCount: visible}
}

// Offset returns the pixel offset of row index.
func (w Window) Offset(index int) float64 {
	return float64(index) * w.ItemHeight
}

// TotalHeight returns the height of the full list.
func (w Window) TotalHeight(totalItems int) float64 {
	return float64(totalItems) * w.ItemHeight
}
