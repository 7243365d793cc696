package pipeline

// RunStats tracks aggregate counters across a batch run.
type RunStats struct {
	Total         int   // Worklist size.
	Current       int   // 1-based index of the image being processed.
	Counted       int   // Images that produced a row and an overlay.
	Failed        int   // Images absorbed by the failure boundary.
	TotalColonies int   // Sum of counts over successful images.
	OverlayBytes  int64 // Bytes of overlay PNGs written.
}

// MeanCount returns the average colony count per successfully counted plate.
func (s *RunStats) MeanCount() float64 {
	if s.Counted == 0 {
		return 0
	}
	return float64(s.TotalColonies) / float64(s.Counted)
}
