package sheets

import (
	"context"

	"mesa/internal/core"
)

// ProjectionExporter publishes a computed projection report to an external
// sheet. rowRef identifies where the summary row landed.
type ProjectionExporter interface {
	ExportProjection(ctx context.Context, workspaceID int64, report core.ProjectionReport) (rowRef string, err error)
}
