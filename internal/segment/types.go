package segment

// Segment is one caption unit. Start and End are seconds from the start of the source audio.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns End-Start in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Meta carries provenance for a saved segment list.
type Meta struct {
	SourceVideo string `json:"source_video,omitempty"`
}

// Document is the on-disk shape of a segments file.
type Document struct {
	Segments []Segment `json:"segments"`
	Meta     Meta      `json:"meta"`
}
