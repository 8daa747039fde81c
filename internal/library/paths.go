package library

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/MimeLyc/video-subtitles/pkg/file"
)

// SegmentsSuffix ends every transcript file name: <stem>_segments.json.
const SegmentsSuffix = "_segments.json"

// SegmentsPath returns where the transcript of video is stored.
func SegmentsPath(video string) string {
	return file.Sibling(video, "_segments", ".json")
}

// LanguageSuffix returns "_<base>" for tag, e.g. "_ko" for Korean.
func LanguageSuffix(tag language.Tag) string {
	base, _ := tag.Base()
	return "_" + base.String()
}

// TargetSubtitlePath is where the translated subtitle of a transcript goes:
// next to the source video when it is known, otherwise next to the
// transcript with the "_segments" part dropped.
func TargetSubtitlePath(segmentsPath, sourceVideo string, target language.Tag) string {
	suffix := LanguageSuffix(target)
	if sourceVideo != "" {
		return file.Sibling(sourceVideo, suffix, ".srt")
	}
	stem := strings.TrimSuffix(file.Stem(segmentsPath), "_segments")
	return filepath.Join(filepath.Dir(segmentsPath), stem+suffix+".srt")
}

// IsSegmentsFile reports whether name looks like a transcript file.
func IsSegmentsFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, SegmentsSuffix) && len(base) > len(SegmentsSuffix)
}
