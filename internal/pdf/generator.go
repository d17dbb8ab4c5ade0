package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/nurpe/bonus-agreements/internal/format"
	"github.com/nurpe/bonus-agreements/internal/model"
)

const (
	defaultFont = "GoFont"
	customFont  = "CardFont"
)

type Generator struct {
	fontName string
	regular  []byte
	bold     []byte
	now      func() time.Time
}

// NewGenerator prepares the UTF-8 fonts used for Cyrillic text. The Go
// fonts are embedded; a TTF at fontPath replaces both faces.
func NewGenerator(fontPath string) (*Generator, error) {
	g := &Generator{
		fontName: defaultFont,
		regular:  goregular.TTF,
		bold:     gobold.TTF,
		now:      time.Now,
	}
	if fontPath == "" {
		return g, nil
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", fontPath, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("font data is empty")
	}
	g.fontName = customFont
	g.regular = data
	g.bold = data
	return g, nil
}

// Generate renders the single-agreement card.
func (g *Generator) Generate(a model.Agreement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.AddUTF8FontFromBytes(g.fontName, "", g.regular)
	pdf.AddUTF8FontFromBytes(g.fontName, "B", g.bold)

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Соглашение № %s", safeValue(a.Code)), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, format.StatusLabel(a.Status), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Условия соглашения", "", 1, "L", false, 0, "")

	colWidths := []float64{60, 120}
	rows := [][]string{
		{"Поставщик", supplierLine(a)},
		{"Тип соглашения", nameWithCode(a.AgreementTypeName, a.AgreementTypeCode)},
		{"Шкала", nameWithCode(a.ScaleName, a.ScaleCode)},
		{"Условие", format.Condition(a.ConditionValue, a.Grid)},
		{"Действует с", safeValue(format.Date(a.ValidFrom))},
		{"Действует по", safeValue(format.Date(a.ValidTo))},
	}
	drawTableRow(pdf, g.fontName, []string{"Поле", "Значение"}, colWidths, true)
	for _, row := range rows {
		drawTableRow(pdf, g.fontName, row, colWidths, false)
	}

	pdf.Ln(4)
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Создано: %s", safeValue(format.DateTime(a.CreatedAt.Time))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Обновлено: %s", safeValue(format.DateTime(a.UpdatedAt.Time))), "", 1, "L", false, 0, "")

	if a.IsDeleted() {
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, "Соглашение удалено и не участвует в расчёте.", "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Сформировано: %s", format.DateTime(g.now())), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		pdf.CellFormat(widths[i], 8, col, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func supplierLine(a model.Agreement) string {
	return nameWithCode(a.SupplierName, a.SupplierCode)
}

func nameWithCode(name, code string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return safeValue(code)
	case code == "":
		return name
	default:
		return fmt.Sprintf("%s (%s)", name, code)
	}
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
