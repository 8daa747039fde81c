package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"github.com/MimeLyc/video-subtitles/pkg/file"
)

const fileSuffix = ".checkpoint.json"

// FileStore keeps one job's checkpoint in a JSON file.
type FileStore struct {
	path string
	lock *flock.Flock
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// PathFor returns the checkpoint file location of jobID inside dir.
func PathFor(dir, jobID string) string {
	return filepath.Join(dir, jobID+fileSuffix)
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Fresh(), nil
		}
		return Checkpoint{}, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	return resetOnCorrupt(data, s.path), nil
}

func (s *FileStore) Save(_ context.Context, cp Checkpoint) error {
	data, err := Encode(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := file.WriteAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear checkpoint %s: %w", s.path, err)
	}
	return nil
}

// Lock takes an advisory lock next to the checkpoint file. It fails with
// ErrLocked when another process holds it. The returned func releases it.
func (s *FileStore) Lock() (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire checkpoint lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, s.path)
	}
	return func() error {
		return s.lock.Unlock()
	}, nil
}

// ListFiles summarizes every checkpoint file in dir. Corrupt files are
// reported with LastCompleted -1.
func ListFiles(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	ret := make([]Summary, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read checkpoint %s: %w", path, err)
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		cp, err := Decode(data)
		if err != nil {
			cp = Fresh()
		}
		ret = append(ret, Summary{
			JobID:         strings.TrimSuffix(entry.Name(), fileSuffix),
			LastCompleted: cp.LastCompleted,
			Translated:    len(cp.Translations),
			UpdatedAt:     info.ModTime(),
		})
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].JobID < ret[j].JobID
	})
	return ret, nil
}
