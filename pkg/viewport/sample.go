package viewport

// Sample is a scroll measurement read at trigger-check time.
type Sample struct {
	ScrollOffset float64
	ViewportSize float64
	ContentSize  float64
}

// DistanceFromBottom returns the pixels left below the viewport.
// Negative when the content is shorter than the viewport.
func (s Sample) DistanceFromBottom() float64 {
	return s.ContentSize - (s.ScrollOffset + s.ViewportSize)
}

// ScrollPercentage returns how far through the content the bottom edge of
// the viewport is, in percent. Empty content counts as fully scrolled.
func (s Sample) ScrollPercentage() float64 {
	if s.ContentSize <= 0 {
		return 100
	}
	return (s.ScrollOffset + s.ViewportSize) / s.ContentSize * 100
}

// ShouldTrigger reports whether the sample is close enough to the end of
// the content: within threshold pixels of the bottom, or at least
// percentage percent scrolled. Either condition suffices.
func ShouldTrigger(s Sample, threshold, percentage float64) bool {
	return s.DistanceFromBottom() <= threshold || s.ScrollPercentage() >= percentage
}

// Viewport supplies scroll measurements.
type Viewport interface {
	Sample() Sample
}

// ViewportFunc adapts a function to the Viewport interface.
type ViewportFunc func() Sample

// Sample calls f.
func (f ViewportFunc) Sample() Sample {
	return f()
}
