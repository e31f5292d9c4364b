// Package service implements the spreadsheet sync operations behind the
// protocol endpoint: cached reads, encoded writes, and the cache
// invalidation that keeps read-after-write consistency within this
// process instance.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/frotaops/sheetgate/internal/cache"
	"github.com/frotaops/sheetgate/internal/model"
	"github.com/frotaops/sheetgate/internal/sheet"
	"github.com/frotaops/sheetgate/internal/transport"
)

// Cache freshness policy. Row data mutates on every write and stays hot for
// seconds; headers mutate only on schema change; the sheet list mutates
// almost never. Bypass reads still coalesce within a short window so bursty
// UI refreshes cannot hammer the shared upstream quota.
const (
	DataTTL      = 15 * time.Second
	BypassWindow = 1500 * time.Millisecond
	HeaderTTL    = 5 * time.Minute
	MetadataTTL  = 5 * time.Minute
)

// Transport is the upstream surface the service depends on.
type Transport interface {
	ReadRange(ctx context.Context, rng string) ([][]string, error)
	AppendRow(ctx context.Context, rng string, values []string) error
	OverwriteRow(ctx context.Context, rng string, values []string) error
	DeleteRows(ctx context.Context, sheetID int64, startIndex, endIndex int) error
	Metadata(ctx context.Context) ([]transport.SheetInfo, error)
}

// Sync executes protocol operations against one workbook.
type Sync struct {
	workbookID string
	tp         Transport

	data    *cache.Cache[[][]string]
	headers *cache.Cache[[]string]
	meta    *cache.Cache[[]transport.SheetInfo]
}

// New creates a sync service for the given workbook.
func New(workbookID string, tp Transport) *Sync {
	return &Sync{
		workbookID: workbookID,
		tp:         tp,
		data:       cache.New[[][]string](DataTTL),
		headers:    cache.New[[]string](HeaderTTL),
		meta:       cache.New[[]transport.SheetInfo](MetadataTTL),
	}
}

// ListSheetNames returns the workbook's sheet names in tab order.
func (s *Sync) ListSheetNames(ctx context.Context) ([]string, error) {
	infos, err := s.metadata(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Title
	}
	return names, nil
}

// GetData reads a range (default: the full sheet) and decodes it into
// headers plus records. noCache narrows the freshness window to
// BypassWindow instead of skipping the cache outright.
func (s *Sync) GetData(ctx context.Context, sheetName, rng string, noCache bool) (*model.DataResponse, error) {
	if rng == "" {
		rng = sheet.FullRange(sheetName)
	}
	var maxAge time.Duration
	if noCache {
		maxAge = BypassWindow
	}

	grid, err := s.data.GetOrLoad(ctx, s.dataKey(sheetName, rng), maxAge, func(ctx context.Context) ([][]string, error) {
		return s.tp.ReadRange(ctx, rng)
	})
	if err != nil {
		return nil, err
	}

	headers, rows := sheet.GridToRecords(grid)
	return &model.DataResponse{Headers: headers, Rows: rows}, nil
}

// Create encodes data against the sheet's headers and appends it as a new
// row, then drops the sheet's cached reads.
func (s *Sync) Create(ctx context.Context, sheetName string, data map[string]string) error {
	headers, err := s.headerRow(ctx, sheetName)
	if err != nil {
		return err
	}
	row := sheet.RecordToRow(headers, data)
	if err := s.tp.AppendRow(ctx, sheet.AppendRange(sheetName), row); err != nil {
		return err
	}
	s.invalidateSheet(sheetName, false)
	return nil
}

// Update encodes data against the sheet's headers and overwrites the
// absolute row addressed by rowIndex, then drops the sheet's cached reads.
// The index is trusted as read: concurrent structural changes by other
// writers can shift the target before the write lands.
func (s *Sync) Update(ctx context.Context, sheetName string, data map[string]string, rowIndex int) error {
	headers, err := s.headerRow(ctx, sheetName)
	if err != nil {
		return err
	}
	row := sheet.RecordToRow(headers, data)
	rng := sheet.RowRange(sheetName, rowIndex, len(headers))
	if err := s.tp.OverwriteRow(ctx, rng, row); err != nil {
		return err
	}
	s.invalidateSheet(sheetName, false)
	return nil
}

// Delete issues a structural delete of the row addressed by the 1-based
// rowIndex, converting to the 0-based half-open interval the structural
// API expects. Metadata is dropped along with the sheet's cached reads
// because structural mutations can move every later row.
func (s *Sync) Delete(ctx context.Context, sheetName string, rowIndex int) error {
	id, err := s.sheetID(ctx, sheetName)
	if err != nil {
		return err
	}
	if err := s.tp.DeleteRows(ctx, id, rowIndex-1, rowIndex); err != nil {
		return err
	}
	s.invalidateSheet(sheetName, true)
	return nil
}

// Ping verifies the upstream is reachable by resolving workbook metadata
// through the cached path. Used by the readiness probe.
func (s *Sync) Ping(ctx context.Context) error {
	_, err := s.metadata(ctx)
	return err
}

func (s *Sync) metadata(ctx context.Context) ([]transport.SheetInfo, error) {
	return s.meta.GetOrLoad(ctx, s.workbookID, 0, func(ctx context.Context) ([]transport.SheetInfo, error) {
		return s.tp.Metadata(ctx)
	})
}

func (s *Sync) headerRow(ctx context.Context, sheetName string) ([]string, error) {
	return s.headers.GetOrLoad(ctx, s.headerKey(sheetName), 0, func(ctx context.Context) ([]string, error) {
		grid, err := s.tp.ReadRange(ctx, sheet.HeaderRange(sheetName))
		if err != nil {
			return nil, err
		}
		if len(grid) == 0 {
			return []string{}, nil
		}
		return grid[0], nil
	})
}

func (s *Sync) sheetID(ctx context.Context, sheetName string) (int64, error) {
	infos, err := s.metadata(ctx)
	if err != nil {
		return 0, err
	}
	for _, info := range infos {
		if info.Title == sheetName {
			return info.ID, nil
		}
	}
	return 0, &model.BadRequestError{Reason: fmt.Sprintf("unknown sheet %q", sheetName)}
}

// invalidateSheet purges every cached read touching sheetName so the next
// read through this instance fetches fresh data. structural additionally
// drops workbook metadata.
func (s *Sync) invalidateSheet(sheetName string, structural bool) {
	s.data.InvalidatePrefix(s.dataPrefix(sheetName))
	s.headers.Invalidate(s.headerKey(sheetName))
	if structural {
		s.meta.Invalidate(s.workbookID)
	}
}

func (s *Sync) dataPrefix(sheetName string) string {
	return s.workbookID + "|data|" + sheetName + "|"
}

func (s *Sync) dataKey(sheetName, rng string) string {
	return s.dataPrefix(sheetName) + rng
}

func (s *Sync) headerKey(sheetName string) string {
	return s.workbookID + "|headers|" + sheetName
}
