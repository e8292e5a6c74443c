package kolayxlsxpack

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readZipEntry(t *testing.T, path, name string) string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open %s as ZIP: %v", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("failed to open entry %s: %v", name, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("failed to read entry %s: %v", name, err)
			}
			return string(data)
		}
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}

func zipEntryNames(t *testing.T, path string) map[string]bool {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open %s as ZIP: %v", path, err)
	}
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	return names
}

func TestSaveEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	wb := NewWorkbook(path)
	wb.AddSheet("Data", []string{"A", "B"}, [][]interface{}{
		{1, "x"},
		{2, "y"},
	})

	stats, err := wb.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if stats.TotalRows != 2 {
		t.Errorf("expected 2 rows, got %d", stats.TotalRows)
	}
	if stats.TotalSheets != 1 {
		t.Errorf("expected 1 sheet, got %d", stats.TotalSheets)
	}
	if stats.FileSize <= 0 {
		t.Errorf("expected positive file size, got %d", stats.FileSize)
	}

	names := zipEntryNames(t, path)
	expected := []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"xl/workbook.xml",
		"xl/_rels/workbook.xml.rels",
		"xl/worksheets/sheet1.xml",
	}
	if len(names) != len(expected) {
		t.Errorf("expected exactly %d entries, got %d: %v", len(expected), len(names), names)
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("expected entry %s not found", name)
		}
	}

	sheet := readZipEntry(t, path, "xl/worksheets/sheet1.xml")
	if !strings.Contains(sheet, `<c r="A2"><v>1</v></c>`) {
		t.Error("cell A2 should hold the bare numeric 1")
	}
	if !strings.Contains(sheet, `<c r="B2" t="inlineStr"><is><t>x</t></is></c>`) {
		t.Error("cell B2 should hold the inline string x")
	}

	workbook := readZipEntry(t, path, "xl/workbook.xml")
	if !strings.Contains(workbook, `<sheet name="Data" sheetId="1" r:id="rId1"/>`) {
		t.Error("workbook should declare the registered sheet name")
	}

	if _, err := os.Stat(path + "_staging"); !os.IsNotExist(err) {
		t.Error("staging directory should be removed after save")
	}
}

func TestSaveMultiSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.xlsx")

	wb := NewWorkbook(path)
	wb.AddSheet("First", []string{"ID"}, [][]interface{}{{1}})
	wb.AddSheet("Second", []string{"ID"}, [][]interface{}{{2}, {3}})

	stats, err := wb.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if stats.TotalSheets != 2 {
		t.Errorf("expected 2 sheets, got %d", stats.TotalSheets)
	}
	if stats.TotalRows != 3 {
		t.Errorf("expected 3 rows, got %d", stats.TotalRows)
	}

	names := zipEntryNames(t, path)
	if len(names) != 6 {
		t.Errorf("expected 6 entries, got %d: %v", len(names), names)
	}
	if !names["xl/worksheets/sheet2.xml"] {
		t.Error("expected a second worksheet part")
	}

	workbook := readZipEntry(t, path, "xl/workbook.xml")
	if !strings.Contains(workbook, `name="First"`) || !strings.Contains(workbook, `name="Second"`) {
		t.Error("workbook should declare both sheets")
	}

	rels := readZipEntry(t, path, "xl/_rels/workbook.xml.rels")
	if !strings.Contains(rels, `Id="rId2"`) {
		t.Error("workbook rels should declare a relationship per sheet")
	}

	types := readZipEntry(t, path, "[Content_Types].xml")
	if !strings.Contains(types, "/xl/worksheets/sheet2.xml") {
		t.Error("content types should declare an override per sheet")
	}
}

func TestSaveEmptyWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	stats, err := NewWorkbook(path).Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if stats.TotalSheets != 0 || stats.TotalRows != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	names := zipEntryNames(t, path)
	if len(names) != 4 {
		t.Errorf("expected 4 descriptor entries, got %d: %v", len(names), names)
	}
}

func TestSaveControlCharacterFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.xlsx")

	wb := NewWorkbook(path)
	wb.AddSheet("Data", []string{"A"}, [][]interface{}{{"nul\x00"}})

	if _, err := wb.Save(); err == nil {
		t.Fatal("expected error for illegal control character")
	}

	if _, err := os.Stat(path + "_staging"); !os.IsNotExist(err) {
		t.Error("staging directory should be removed after failed save")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no partial output file should remain after failed save")
	}
}

func TestSaveStagingCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")

	// Occupy the derived staging path
	if err := os.Mkdir(path+"_staging", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path+"_staging", "keep.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	wb := NewWorkbook(path)
	wb.AddSheet("Data", []string{"A"}, nil)

	if _, err := wb.Save(); err == nil {
		t.Fatal("expected error when staging path already exists")
	}

	// The pre-existing directory must not be touched
	if _, err := os.Stat(filepath.Join(path+"_staging", "keep.txt")); err != nil {
		t.Errorf("pre-existing path should be left intact: %v", err)
	}
}

func TestSaveStagingDirConfig(t *testing.T) {
	dir := t.TempDir()
	stagingParent := filepath.Join(dir, "scratch")
	if err := os.Mkdir(stagingParent, 0o755); err != nil {
		t.Fatal(err)
	}

	config := DefaultConfig()
	config.StagingDir = stagingParent

	path := filepath.Join(dir, "out.xlsx")
	wb := NewWorkbook(path, config)
	wb.AddSheet("Data", []string{"A"}, [][]interface{}{{1}})

	if _, err := wb.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(stagingParent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("staging parent should be empty after save, got %v", entries)
	}
}

type bufferSink struct {
	bytes.Buffer
	closed bool
}

func (b *bufferSink) Close() error {
	b.closed = true
	return nil
}

func TestSaveToSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.xlsx")

	wb := NewWorkbook(path)
	wb.AddSheet("Data", []string{"A"}, [][]interface{}{{1}})

	sink := &bufferSink{}
	stats, err := wb.SaveTo(sink)
	if err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	if !sink.closed {
		t.Error("SaveTo should close the sink")
	}
	if stats.FileSize != int64(sink.Len()) {
		t.Errorf("FileSize %d does not match sink length %d", stats.FileSize, sink.Len())
	}

	// SaveTo must not create the workbook's target file
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("SaveTo should not write the target path")
	}

	zr, err := zip.NewReader(bytes.NewReader(sink.Bytes()), int64(sink.Len()))
	if err != nil {
		t.Fatalf("sink does not hold a valid ZIP: %v", err)
	}
	if len(zr.File) != 5 {
		t.Errorf("expected 5 entries, got %d", len(zr.File))
	}
}

func TestSaveDataTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.xlsx")

	wb := NewWorkbook(path)
	wb.AddSheet("Types", []string{"String", "Int", "Float", "Bool", "Nil"}, [][]interface{}{
		{"hello", 42, 3.14, true, nil},
	})

	if _, err := wb.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sheet := readZipEntry(t, path, "xl/worksheets/sheet1.xml")
	checks := []string{
		`<c r="A2" t="inlineStr"><is><t>hello</t></is></c>`,
		`<c r="B2"><v>42</v></c>`,
		`<c r="C2"><v>3.14</v></c>`,
		`<c r="D2" t="b"><v>1</v></c>`,
		`<c r="E2"/>`,
	}
	for _, want := range checks {
		if !strings.Contains(sheet, want) {
			t.Errorf("worksheet missing %s", want)
		}
	}
}

func TestSaveWideSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.xlsx")

	headers := make([]string, 30)
	row := make([]interface{}, 30)
	for i := range headers {
		headers[i] = columnName(i)
		row[i] = i
	}

	wb := NewWorkbook(path)
	wb.AddSheet("Wide", headers, [][]interface{}{row})

	if _, err := wb.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sheet := readZipEntry(t, path, "xl/worksheets/sheet1.xml")
	if !strings.Contains(sheet, `<c r="AA1"`) || !strings.Contains(sheet, `<c r="AD2"`) {
		t.Error("columns past Z should use the extended AA-style references")
	}
}

func TestUnnamedSheetsGetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unnamed.xlsx")

	wb := NewWorkbook(path)
	wb.AddSheet("", []string{"A"}, nil)
	wb.AddSheet("", []string{"B"}, nil)

	if _, err := wb.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	workbook := readZipEntry(t, path, "xl/workbook.xml")
	if !strings.Contains(workbook, `name="Sheet1"`) || !strings.Contains(workbook, `name="Sheet2"`) {
		t.Error("unnamed sheets should get numbered default names")
	}
}

func TestSaveCompressionLevels(t *testing.T) {
	for _, level := range []int{0, 6, 9} {
		config := DefaultConfig()
		config.CompressionLevel = level

		path := filepath.Join(t.TempDir(), "out.xlsx")
		wb := NewWorkbook(path, config)

		rows := make([][]interface{}, 100)
		for i := range rows {
			rows[i] = []interface{}{i, "repetitive filler text for the compressor"}
		}
		wb.AddSheet("Data", []string{"ID", "Text"}, rows)

		if _, err := wb.Save(); err != nil {
			t.Fatalf("Save at level %d failed: %v", level, err)
		}
		zr, err := zip.OpenReader(path)
		if err != nil {
			t.Errorf("level %d output is not a valid ZIP: %v", level, err)
			continue
		}
		zr.Close()
	}
}
