package library

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/video-subtitles/internal/segment"
	"github.com/MimeLyc/video-subtitles/pkg/file"
)

type scannerOptions struct {
	cacheTTL time.Duration
}

type Option func(*scannerOptions)

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *scannerOptions) {
		o.cacheTTL = ttl
	}
}

type scanCache struct {
	version uint64
	scanned time.Time
	library *Library
}

// Scanner walks watched directories for transcripts that have no translated
// subtitle yet.
type Scanner struct {
	sources        []SourceConfig
	targetLanguage language.Tag

	mu            sync.RWMutex
	cacheTTL      time.Duration
	cache         *scanCache
	configVersion uint64
}

func NewScanner(sources []SourceConfig, targetLanguage language.Tag, opts ...Option) *Scanner {
	options := scannerOptions{cacheTTL: 5 * time.Second}
	for _, opt := range opts {
		opt(&options)
	}

	return &Scanner{
		sources:        sources,
		targetLanguage: targetLanguage,
		cacheTTL:       options.cacheTTL,
	}
}

// SourcesFromDirs turns WATCH_DIRS entries into scanner sources.
func SourcesFromDirs(dirs []string) []SourceConfig {
	ret := make([]SourceConfig, 0, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		clean := filepath.Clean(dir)
		ret = append(ret, SourceConfig{ID: filepath.Base(clean), Path: clean})
	}
	return ret
}

func (s *Scanner) TargetLanguage() language.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetLanguage
}

// Invalidate drops the cached result, e.g. after a job wrote a subtitle.
func (s *Scanner) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.configVersion++
	s.mu.Unlock()
}

func (s *Scanner) Scan(ctx context.Context) (*Library, error) {
	s.mu.RLock()
	version := s.configVersion
	cacheTTL := s.cacheTTL
	if s.cache != nil && s.cache.version == version && (cacheTTL <= 0 || time.Since(s.cache.scanned) < cacheTTL) {
		cached := cloneLibrary(s.cache.library)
		s.mu.RUnlock()
		return cached, nil
	}
	sources := append([]SourceConfig(nil), s.sources...)
	target := s.targetLanguage
	s.mu.RUnlock()

	ret := &Library{
		Sources:       make([]Source, 0, len(sources)),
		Entries:       make([]Entry, 0),
		Untranscribed: make([]string, 0),
	}

	for _, sourceCfg := range sources {
		if sourceCfg.Path == "" {
			continue
		}
		if _, err := os.Stat(sourceCfg.Path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		segmentFiles, mediaFiles, err := walkSource(ctx, sourceCfg.Path)
		if err != nil {
			return nil, err
		}

		transcribed := make(map[string]bool, len(segmentFiles))
		for _, path := range segmentFiles {
			entry := inspectSegments(sourceCfg.ID, path, target)
			if entry.SourceVideo != "" {
				transcribed[entry.SourceVideo] = true
			}
			transcribed[path] = true
			ret.Entries = append(ret.Entries, entry)
		}
		for _, media := range mediaFiles {
			if !transcribed[media] && !transcribed[SegmentsPath(media)] {
				ret.Untranscribed = append(ret.Untranscribed, media)
			}
		}

		ret.Sources = append(ret.Sources, Source{
			ID:         sourceCfg.ID,
			Path:       sourceCfg.Path,
			EntryCount: len(segmentFiles),
		})
	}

	s.mu.Lock()
	if s.configVersion == version {
		s.cache = &scanCache{
			version: version,
			scanned: time.Now(),
			library: cloneLibrary(ret),
		}
	}
	s.mu.Unlock()

	return ret, nil
}

func inspectSegments(sourceID, path string, target language.Tag) Entry {
	entry := Entry{
		SourceID:     sourceID,
		Name:         cleanEpisodeName(strings.TrimSuffix(filepath.Base(path), SegmentsSuffix)),
		SegmentsPath: path,
	}

	segments, sourceVideo, err := segment.Load(path)
	if err != nil {
		entry.Error = err.Error()
		entry.OutputPath = TargetSubtitlePath(path, "", target)
		entry.HasTarget = file.Exists(entry.OutputPath)
		return entry
	}

	entry.SourceVideo = sourceVideo
	entry.Segments = len(segments)
	entry.OutputPath = TargetSubtitlePath(path, sourceVideo, target)
	entry.HasTarget = file.Exists(entry.OutputPath)
	entry.Translatable = !entry.HasTarget && entry.Segments > 0
	return entry
}

var mediaExts = []string{
	".mkv", ".mp4", ".m4v", ".mov", ".avi", ".wmv", ".flv", ".webm",
	".ts", ".m2ts", ".mts", ".mpg", ".mpeg",
}

// walkSource collects transcript and video files below root. Work
// directories created during transcription are skipped.
func walkSource(ctx context.Context, root string) (segmentFiles []string, mediaFiles []string, err error) {
	segmentFiles = make([]string, 0)
	mediaFiles = make([]string, 0)
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && strings.HasSuffix(d.Name(), "_work") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSegmentsFile(path) {
			segmentFiles = append(segmentFiles, path)
			return nil
		}
		if slices.Contains(mediaExts, strings.ToLower(filepath.Ext(path))) {
			mediaFiles = append(mediaFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return segmentFiles, mediaFiles, nil
}

var sonarrPattern = regexp.MustCompile(`(?i)S\d+E(\d+)`)
var qualitySuffixPattern = regexp.MustCompile(`(?i)\s*[-. ](WEBRip|WEBDL|WEB-DL|BluRay|BDRip|HDRip|DVDRip|HDTV|AMZN|NF|DSNP|HULU|ATVP|PMTP|IT|DDP?\d|AAC|x264|x265|HEVC|H\.?264|H\.?265|10bit|\d{3,4}p).*$`)

// cleanEpisodeName shortens Sonarr-style names for display,
// e.g. "Gachiakuta - S01E15 - Clash! WEBRip-1080p" -> "E15 Clash!".
func cleanEpisodeName(basename string) string {
	m := sonarrPattern.FindStringSubmatchIndex(basename)
	if m == nil {
		return basename
	}
	epNum := basename[m[2]:m[3]]
	after := strings.TrimLeft(strings.TrimSpace(basename[m[1]:]), "-. ")
	after = strings.TrimSpace(qualitySuffixPattern.ReplaceAllString(strings.TrimSpace(after), ""))
	if after != "" {
		return "E" + epNum + " " + after
	}
	return "E" + epNum
}

func cloneLibrary(src *Library) *Library {
	if src == nil {
		return nil
	}
	return &Library{
		Sources:       append([]Source(nil), src.Sources...),
		Entries:       append([]Entry(nil), src.Entries...),
		Untranscribed: append([]string(nil), src.Untranscribed...),
	}
}
