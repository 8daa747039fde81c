package checkpoint

import (
	"github.com/MimeLyc/video-subtitles/pkg/log"
)

// resetOnCorrupt is the recovery strategy for stored state that cannot be
// parsed: the job restarts from scratch instead of failing. It applies to
// parse failures only; read and write errors are returned to the caller.
func resetOnCorrupt(data []byte, source string) Checkpoint {
	cp, err := Decode(data)
	if err != nil {
		log.Warn("Discarding corrupt checkpoint %s, restarting job from the first segment: %v", source, err)
		return Fresh()
	}
	return cp
}
