package chronicle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ashita-ai/senate/internal/model"
)

// JSONStore is the reference Store backend: precedents and appeals are kept
// in two JSON files. Every write goes through a temp-file-then-rename with
// an explicit fsync before the write is considered durable, per the
// "write to a temporary file and call fsync before returning" contract.
type JSONStore struct {
	mu            sync.Mutex
	precedentPath string
	appealPath    string
	precedents    []model.PrecedentRecord
	appeals       []model.AppealRecord
	index         map[string]int // case_id -> index into precedents
}

// NewJSONStore loads (or initializes) the precedent and appeal files at the
// given paths.
func NewJSONStore(precedentPath, appealPath string) (*JSONStore, error) {
	s := &JSONStore{
		precedentPath: precedentPath,
		appealPath:    appealPath,
		index:         make(map[string]int),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	if err := loadJSON(s.precedentPath, &s.precedents); err != nil {
		return fmt.Errorf("chronicle: load precedents: %w", err)
	}
	if err := loadJSON(s.appealPath, &s.appeals); err != nil {
		return fmt.Errorf("chronicle: load appeals: %w", err)
	}
	for i, p := range s.precedents {
		s.index[p.CaseID] = i
	}
	return nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from validated configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WritePrecedent appends p and durably flushes the precedents file.
func (s *JSONStore) WritePrecedent(_ context.Context, p model.PrecedentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.AppealHistory == nil {
		p.AppealHistory = []string{}
	}
	s.precedents = append(s.precedents, p)
	s.index[p.CaseID] = len(s.precedents) - 1
	return writeJSONDurable(s.precedentPath, s.precedents)
}

// WriteAppeal appends a and durably flushes the appeals file.
func (s *JSONStore) WriteAppeal(_ context.Context, a model.AppealRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appeals = append(s.appeals, a)
	return writeJSONDurable(s.appealPath, s.appeals)
}

// AppendAppealHistory appends appealID to the named case's AppealHistory and
// durably flushes the precedents file. This is the one permitted mutation of
// an existing precedent: an append to a linked list, never a content update.
func (s *JSONStore) AppendAppealHistory(_ context.Context, caseID, appealID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[caseID]
	if !ok {
		return fmt.Errorf("chronicle: case %q not found for appeal history append", caseID)
	}
	s.precedents[idx].AppealHistory = append(s.precedents[idx].AppealHistory, appealID)
	return writeJSONDurable(s.precedentPath, s.precedents)
}

// AllPrecedents returns a copy of every stored precedent, in insertion order.
func (s *JSONStore) AllPrecedents(_ context.Context) ([]model.PrecedentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PrecedentRecord, len(s.precedents))
	copy(out, s.precedents)
	return out, nil
}

// GetCaseByID returns the precedent with the given case ID, or nil if absent.
func (s *JSONStore) GetCaseByID(_ context.Context, caseID string) (*model.PrecedentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index[caseID]
	if !ok {
		return nil, nil
	}
	p := s.precedents[idx]
	return &p, nil
}

// AppealsForCase returns every appeal filed against caseID, in filing order.
func (s *JSONStore) AppealsForCase(_ context.Context, caseID string) ([]model.AppealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AppealRecord
	for _, a := range s.appeals {
		if a.OriginalCaseID == caseID {
			out = append(out, a)
		}
	}
	return out, nil
}

// writeJSONDurable marshals v, writes it to a temp file in the same
// directory as path, fsyncs it, then renames it over path — so a crash
// mid-write never leaves a torn file in place of the previous good one.
func writeJSONDurable(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
