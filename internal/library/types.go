package library

type SourceConfig struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type Source struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	EntryCount int    `json:"entry_count"`
}

// Entry is one transcript (segments file) found under a watched directory.
type Entry struct {
	SourceID     string `json:"source_id"`
	Name         string `json:"name"`
	SegmentsPath string `json:"segments_path"`
	SourceVideo  string `json:"source_video,omitempty"`
	OutputPath   string `json:"output_path"`
	Segments     int    `json:"segments"`
	HasTarget    bool   `json:"has_target"`
	// Error is set when the segments file could not be read.
	Error        string `json:"error,omitempty"`
	Translatable bool   `json:"translatable"`
}

type Library struct {
	Sources []Source `json:"sources"`
	Entries []Entry  `json:"entries"`
	// Untranscribed lists videos that have no segments file next to them.
	Untranscribed []string `json:"untranscribed"`
}

// Pending returns the entries that still need a target subtitle.
func (l *Library) Pending() []Entry {
	ret := make([]Entry, 0)
	for _, e := range l.Entries {
		if e.Translatable {
			ret = append(ret, e)
		}
	}
	return ret
}
