package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mesa/internal/core"
	ports "mesa/internal/sheets"
)

// Export is one recorded projection export.
type Export struct {
	WorkspaceID int64
	Report      core.ProjectionReport
}

// Store records exports in memory. It stands in for the spreadsheet when
// none is configured.
type Store struct {
	mu      sync.Mutex
	exports []Export
}

var _ ports.ProjectionExporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// ExportProjection stores the report and returns a synthetic row reference.
func (s *Store) ExportProjection(ctx context.Context, workspaceID int64, report core.ProjectionReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if report.Month.IsZero() {
		return "", errors.New("report has no month")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, Export{WorkspaceID: workspaceID, Report: report})
	return fmt.Sprintf("mem:%d", len(s.exports)), nil
}

// Exports returns a copy of everything exported so far.
func (s *Store) Exports() []Export {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Export(nil), s.exports...)
}

// Latest returns the most recent export of a workspace month.
func (s *Store) Latest(workspaceID int64, m core.Month) (core.ProjectionReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.exports) - 1; i >= 0; i-- {
		e := s.exports[i]
		if e.WorkspaceID == workspaceID && e.Report.Month == m {
			return e.Report, true
		}
	}
	return core.ProjectionReport{}, false
}
