package kolayxlsxpack

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// XLSX package part templates
const (
	contentTypesHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
`

	contentTypesFooter = `</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

	workbookXMLHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets>`

	workbookXMLFooter = `</sheets>
</workbook>`

	workbookRelsXMLHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`

	workbookRelsXMLFooter = `</Relationships>`

	worksheetHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData>`

	worksheetFooter = `</sheetData>
</worksheet>`
)

// generateContentTypesXML generates the [Content_Types].xml with one
// worksheet override per registered sheet
func generateContentTypesXML(sheetCount int) string {
	var b strings.Builder
	b.WriteString(contentTypesHeader)
	for i := 1; i <= sheetCount; i++ {
		b.WriteString(fmt.Sprintf(`<Override PartName="/xl/worksheets/sheet%d.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
`, i))
	}
	b.WriteString(contentTypesFooter)
	return b.String()
}

// generateWorkbookXML generates the xl/workbook.xml with one sheet entry
// per registered sheet, in registration order
func generateWorkbookXML(sheets []*Sheet) string {
	var b strings.Builder
	b.WriteString(workbookXMLHeader)
	for i, sheet := range sheets {
		b.WriteString(fmt.Sprintf(`<sheet name="%s" sheetId="%d" r:id="rId%d"/>
`, escapeXML(sheet.displayName(i)), i+1, i+1))
	}
	b.WriteString(workbookXMLFooter)
	return b.String()
}

// generateWorkbookRelsXML generates the xl/_rels/workbook.xml.rels with one
// worksheet relationship per registered sheet
func generateWorkbookRelsXML(sheetCount int) string {
	var b strings.Builder
	b.WriteString(workbookRelsXMLHeader)
	for i := 1; i <= sheetCount; i++ {
		b.WriteString(fmt.Sprintf(`
<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet%d.xml"/>`, i, i))
	}
	b.WriteString("\n")
	b.WriteString(workbookRelsXMLFooter)
	return b.String()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeXML escapes the five XML metacharacters in cell and attribute text
func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// validateCellText rejects text that cannot appear in XML 1.0 content:
// invalid UTF-8, and control characters other than tab, LF and CR. Such
// characters cannot be escaped either; writing them through produces a
// file that consumers refuse to open.
func validateCellText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("text is not valid UTF-8: %q", s)
	}
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return fmt.Errorf("text contains control character %#x illegal in XML", r)
		}
	}
	return nil
}

// columnName converts a zero-based column index to an Excel column name
// (A, B, C, ..., Z, AA, AB, ...)
func columnName(col int) string {
	name := ""
	col++ // bijective base-26 runs on 1-based values
	for col > 0 {
		col--
		name = string(rune('A'+(col%26))) + name
		col /= 26
	}
	return name
}

// cellReference returns the Excel cell reference for zero-based row and
// column indices (e.g. "A1", "B2", "AA10")
func cellReference(row, col int) string {
	return fmt.Sprintf("%s%d", columnName(col), row+1)
}

// generateCell generates the XML for one cell at the given reference.
// Numbers become plain value cells, strings become inline strings, bools
// become boolean cells and nil becomes an empty cell.
func generateCell(ref string, value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		if err := validateCellText(v); err != nil {
			return "", err
		}
		return fmt.Sprintf(`<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, escapeXML(v)), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf(`<c r="%s"><v>%v</v></c>`, ref, v), nil
	case float32, float64:
		return fmt.Sprintf(`<c r="%s"><v>%v</v></c>`, ref, v), nil
	case bool:
		boolVal := "0"
		if v {
			boolVal = "1"
		}
		return fmt.Sprintf(`<c r="%s" t="b"><v>%s</v></c>`, ref, boolVal), nil
	case nil:
		return fmt.Sprintf(`<c r="%s"/>`, ref), nil
	default:
		s := fmt.Sprintf("%v", v)
		if err := validateCellText(s); err != nil {
			return "", err
		}
		return fmt.Sprintf(`<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, escapeXML(s)), nil
	}
}

// generateRow generates one <row> element holding the given values in
// column order. rowIndex is zero-based; the emitted r attribute is 1-based.
func generateRow(rowIndex int, values []interface{}) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<row r="%d">`, rowIndex+1))
	for colIndex, value := range values {
		ref := cellReference(rowIndex, colIndex)
		cell, err := generateCell(ref, value)
		if err != nil {
			return "", fmt.Errorf("cell %s: %w", ref, err)
		}
		b.WriteString(cell)
	}
	b.WriteString(`</row>`)
	return b.String(), nil
}

// generateWorksheetXML generates a complete worksheet document for one
// sheet: the header row at r=1 followed by the data rows. Rows shorter or
// longer than the header are written as-is.
func generateWorksheetXML(sheet *Sheet) (string, error) {
	var b strings.Builder
	b.WriteString(worksheetHeader)
	b.WriteString("\n")

	header := make([]interface{}, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	row, err := generateRow(0, header)
	if err != nil {
		return "", fmt.Errorf("header row: %w", err)
	}
	b.WriteString(row)
	b.WriteString("\n")

	for i, values := range sheet.Rows {
		row, err := generateRow(i+1, values)
		if err != nil {
			return "", fmt.Errorf("row %d: %w", i+2, err)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString(worksheetFooter)
	return b.String(), nil
}
