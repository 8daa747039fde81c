package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RowStore is the slice of a database a DBStore needs. Rows hold the encoded
// checkpoint document keyed by job id.
type RowStore interface {
	LoadCheckpoint(ctx context.Context, jobID string) ([]byte, bool, error)
	SaveCheckpoint(ctx context.Context, jobID string, payload []byte) error
	ClearCheckpoint(ctx context.Context, jobID string) error
}

// DBStore keeps one job's checkpoint as a database row. A single upsert
// replaces the row, so readers never see a partial write.
type DBStore struct {
	rows  RowStore
	jobID string
}

func NewDBStore(rows RowStore, jobID string) (*DBStore, error) {
	if rows == nil {
		return nil, fmt.Errorf("row store is nil")
	}
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("job id is empty")
	}
	return &DBStore{rows: rows, jobID: jobID}, nil
}

func (s *DBStore) Load(ctx context.Context) (Checkpoint, error) {
	payload, ok, err := s.rows.LoadCheckpoint(ctx, s.jobID)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint for job %s: %w", s.jobID, err)
	}
	if !ok {
		return Fresh(), nil
	}
	return resetOnCorrupt(payload, "job "+s.jobID), nil
}

func (s *DBStore) Save(ctx context.Context, cp Checkpoint) error {
	payload, err := Encode(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := s.rows.SaveCheckpoint(ctx, s.jobID, payload); err != nil {
		return fmt.Errorf("save checkpoint for job %s: %w", s.jobID, err)
	}
	return nil
}

func (s *DBStore) Clear(ctx context.Context) error {
	if err := s.rows.ClearCheckpoint(ctx, s.jobID); err != nil {
		return fmt.Errorf("clear checkpoint for job %s: %w", s.jobID, err)
	}
	return nil
}

// Row is a stored checkpoint as returned by a RowLister.
type Row struct {
	JobID     string
	Payload   []byte
	UpdatedAt time.Time
}

type RowLister interface {
	ListCheckpoints(ctx context.Context) ([]Row, error)
}

// ListRows summarizes every checkpoint row. Rows that fail to decode are
// reported with LastCompleted -1, the state a run would restart from.
func ListRows(ctx context.Context, lister RowLister) ([]Summary, error) {
	rows, err := lister.ListCheckpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	ret := make([]Summary, 0, len(rows))
	for _, row := range rows {
		summary := Summary{JobID: row.JobID, LastCompleted: -1, UpdatedAt: row.UpdatedAt}
		if cp, err := Decode(row.Payload); err == nil {
			summary.LastCompleted = cp.LastCompleted
			summary.Translated = len(cp.Translations)
		}
		ret = append(ret, summary)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].JobID < ret[j].JobID })
	return ret, nil
}
