package registry

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

var _ Store = (*FileStore)(nil)

// FileStore persists the registry to two files: a JSON list of approved pairs
// that a reviewer may edit by hand, and an append-only CSV of pending
// candidates awaiting review.
type FileStore struct {
	approvedPath string
	pendingPath  string
}

var pendingHeader = []string{"timestamp_utc", "pinnacle_title", "polymarket_title", "polymarket_id", "match_score"}

// NewFileStore builds a FileStore and makes sure the parent directories and
// the pending CSV header exist.
func NewFileStore(approvedPath, pendingPath string) (*FileStore, error) {
	for _, p := range []string{approvedPath, pendingPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("registry: create dir %s: %w", dir, err)
			}
		}
	}
	s := &FileStore{approvedPath: approvedPath, pendingPath: pendingPath}
	if _, err := os.Stat(pendingPath); errors.Is(err, fs.ErrNotExist) {
		f, err := os.Create(pendingPath)
		if err != nil {
			return nil, fmt.Errorf("registry: create pending log: %w", err)
		}
		w := csv.NewWriter(f)
		_ = w.Write(pendingHeader)
		w.Flush()
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("registry: close pending log: %w", err)
		}
	}
	return s, nil
}

type approvedEntry struct {
	SourceTitle string `json:"source_title"`
	TargetTitle string `json:"target_title,omitempty"`
	TargetID    string `json:"target_id"`
}

// ApprovedVersion returns the mtime of the approved file, or the zero time
// when it does not exist yet.
func (s *FileStore) ApprovedVersion() (time.Time, error) {
	info, err := os.Stat(s.approvedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("registry: stat approved file: %w", err)
	}
	return info.ModTime(), nil
}

func (s *FileStore) LoadApproved() ([]domain.MatchCandidate, error) {
	data, err := os.ReadFile(s.approvedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read approved file: %w", err)
	}
	var entries []approvedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("registry: parse approved file: %w", err)
	}
	out := make([]domain.MatchCandidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.MatchCandidate{
			SourceTitle: e.SourceTitle,
			TargetTitle: e.TargetTitle,
			TargetID:    e.TargetID,
		})
	}
	return out, nil
}

// SaveApproved writes the full approved list atomically: a half-written JSON
// file would poison every reload until repaired by hand.
func (s *FileStore) SaveApproved(pairs []domain.MatchCandidate) error {
	entries := make([]approvedEntry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, approvedEntry{
			SourceTitle: p.SourceTitle,
			TargetTitle: p.TargetTitle,
			TargetID:    p.TargetID,
		})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode approved list: %w", err)
	}
	tmp := s.approvedPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("registry: write approved file: %w", err)
	}
	if err := os.Rename(tmp, s.approvedPath); err != nil {
		return fmt.Errorf("registry: replace approved file: %w", err)
	}
	return nil
}

func (s *FileStore) AppendPending(c domain.MatchCandidate) error {
	f, err := os.OpenFile(s.pendingPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("registry: open pending log: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		c.SourceTitle,
		c.TargetTitle,
		c.TargetID,
		strconv.Itoa(c.Score),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("registry: append pending row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("registry: flush pending row: %w", err)
	}
	return nil
}

// LoadPending reads all logged pending candidates, oldest first. Rows with
// unparsable scores keep score 0 rather than being dropped.
func (s *FileStore) LoadPending() ([]domain.MatchCandidate, error) {
	f, err := os.Open(s.pendingPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: open pending log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("registry: read pending log: %w", err)
	}
	var out []domain.MatchCandidate
	for i, row := range rows {
		if i == 0 || len(row) < 5 {
			continue
		}
		score, _ := strconv.Atoi(row[4])
		out = append(out, domain.MatchCandidate{
			SourceTitle: row[1],
			TargetTitle: row[2],
			TargetID:    row[3],
			Score:       score,
		})
	}
	return out, nil
}
