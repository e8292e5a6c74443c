package kolayxlsxpack

import (
	"fmt"
	"path/filepath"
	"time"
)

// Sheet is one worksheet: a display name, a header row and the data rows.
// Rows may be shorter or longer than the header; they are written as-is.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// displayName returns the workbook-level name for the sheet at zero-based
// position i, falling back to a numbered default when Name is empty.
func (s *Sheet) displayName(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Sheet%d", i+1)
}

// Workbook accumulates sheets and packages them into a single XLSX
// container on Save. A Workbook is single-use: one target path, any number
// of AddSheet calls, one save.
type Workbook struct {
	path   string
	config *Config
	sheets []*Sheet
}

// NewWorkbook creates a Workbook targeting the given file path, with an
// optional config override.
func NewWorkbook(path string, config ...*Config) *Workbook {
	cfg := DefaultConfig()
	if len(config) > 0 && config[0] != nil {
		cfg = config[0]
	}
	if cfg.SheetNamePrefix == "" {
		cfg.SheetNamePrefix = "Sheet"
	}
	return &Workbook{
		path:   path,
		config: cfg,
		sheets: make([]*Sheet, 0),
	}
}

// AddSheet registers a worksheet with the given display name, header row
// and data rows. Sheets are written in registration order. Names are not
// checked for uniqueness; an empty name gets a numbered default.
func (wb *Workbook) AddSheet(name string, headers []string, rows [][]interface{}) {
	if name == "" {
		name = fmt.Sprintf("%s%d", wb.config.SheetNamePrefix, len(wb.sheets)+1)
	}
	wb.sheets = append(wb.sheets, &Sheet{Name: name, Headers: headers, Rows: rows})
}

// SheetCount returns the number of registered sheets
func (wb *Workbook) SheetCount() int {
	return len(wb.sheets)
}

// Save packages every registered sheet into an XLSX file at the workbook's
// target path. On failure no partial output file is left behind.
func (wb *Workbook) Save() (*Stats, error) {
	sink, err := NewFileSink(wb.path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	stats, err := wb.SaveTo(sink)
	if err != nil {
		_ = sink.Discard()
		return nil, err
	}
	return stats, nil
}

// SaveTo packages every registered sheet and streams the ZIP container into
// the given sink, closing it on success. All parts are materialized in a
// staging tree first; the tree is removed whether or not the save succeeds.
func (wb *Workbook) SaveTo(sink Sink) (*Stats, error) {
	start := time.Now()

	staging, err := newStagingDir(wb.stagingPath())
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer staging.Remove()

	if err := wb.writeParts(staging); err != nil {
		return nil, err
	}

	size, err := staging.ArchiveTo(sink, wb.config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to archive package: %w", err)
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("failed to close sink: %w", err)
	}

	var totalRows int64
	for _, sheet := range wb.sheets {
		totalRows += int64(len(sheet.Rows))
	}

	duration := time.Since(start).Seconds()
	stats := &Stats{
		TotalRows:   totalRows,
		TotalSheets: len(wb.sheets),
		FileSize:    size,
		Duration:    duration,
	}
	if duration > 0 {
		stats.RowsPerSecond = float64(totalRows) / duration
	}
	return stats, nil
}

// writeParts materializes the descriptor parts and one worksheet part per
// sheet under the staging root.
func (wb *Workbook) writeParts(staging *stagingDir) error {
	if err := staging.WritePart("[Content_Types].xml", []byte(generateContentTypesXML(len(wb.sheets)))); err != nil {
		return fmt.Errorf("failed to write [Content_Types].xml: %w", err)
	}
	if err := staging.WritePart("_rels/.rels", []byte(relsXML)); err != nil {
		return fmt.Errorf("failed to write _rels/.rels: %w", err)
	}
	if err := staging.WritePart("xl/workbook.xml", []byte(generateWorkbookXML(wb.sheets))); err != nil {
		return fmt.Errorf("failed to write workbook.xml: %w", err)
	}
	if err := staging.WritePart("xl/_rels/workbook.xml.rels", []byte(generateWorkbookRelsXML(len(wb.sheets)))); err != nil {
		return fmt.Errorf("failed to write workbook.xml.rels: %w", err)
	}
	for i, sheet := range wb.sheets {
		doc, err := generateWorksheetXML(sheet)
		if err != nil {
			return fmt.Errorf("sheet %q: %w", sheet.displayName(i), err)
		}
		part := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		if err := staging.WritePart(part, []byte(doc)); err != nil {
			return fmt.Errorf("failed to write %s: %w", part, err)
		}
	}
	return nil
}

// stagingPath derives the staging tree location from the target filename
func (wb *Workbook) stagingPath() string {
	if wb.config.StagingDir != "" {
		return filepath.Join(wb.config.StagingDir, filepath.Base(wb.path)+"_staging")
	}
	return wb.path + "_staging"
}
