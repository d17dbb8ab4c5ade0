package excel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/bonus-agreements/internal/format"
	"github.com/nurpe/bonus-agreements/internal/model"
)

const maxSheetName = 31

type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

type supplierGroup struct {
	Code       string
	Name       string
	Agreements []model.Agreement
}

// Generate builds the agreements register: a summary sheet followed by one
// sheet per supplier.
func (g *Generator) Generate(agreements []model.Agreement) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Сводка"
	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	groups := groupBySupplier(agreements)
	g.writeSummary(file, summarySheet, agreements, groups)

	usedNames := map[string]struct{}{sheetKey(summarySheet): {}}
	for _, group := range groups {
		sheetName := buildSheetName(group, usedNames)
		usedNames[sheetKey(sheetName)] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		writeDetail(file, sheetName, group)
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, agreements []model.Agreement, groups []supplierGroup) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	counts := make(map[model.AgreementStatus]int)
	for _, a := range agreements {
		counts[a.Status]++
	}

	set("A1", "Реестр соглашений")
	set("A2", "Сформирован")
	set("B2", format.DateTime(g.now()))
	set("A3", "Всего соглашений")
	set("B3", len(agreements))
	set("A4", format.StatusLabel(model.AgreementStatusReadyForCalculation))
	set("B4", counts[model.AgreementStatusReadyForCalculation])
	set("A5", format.StatusLabel(model.AgreementStatusCalculated))
	set("B5", counts[model.AgreementStatusCalculated])
	set("A6", format.StatusLabel(model.AgreementStatusDeleted))
	set("B6", counts[model.AgreementStatusDeleted])

	tableRow := 8
	set(fmt.Sprintf("A%d", tableRow), "Поставщик")
	set(fmt.Sprintf("B%d", tableRow), "Код поставщика")
	set(fmt.Sprintf("C%d", tableRow), "Количество соглашений")

	for i, group := range groups {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), group.Name)
		set(fmt.Sprintf("B%d", row), group.Code)
		set(fmt.Sprintf("C%d", row), len(group.Agreements))
	}

	_ = file.SetColWidth(sheet, "A", "A", 45)
	_ = file.SetColWidth(sheet, "B", "B", 20)
	_ = file.SetColWidth(sheet, "C", "C", 22)
}

func writeDetail(file *excelize.File, sheet string, group supplierGroup) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Поставщик")
	set("B1", group.Name)
	set("A2", "Код поставщика")
	set("B2", group.Code)
	set("A3", "Количество соглашений")
	set("B3", len(group.Agreements))

	tableRow := 5
	headers := []string{
		"Код",
		"Тип соглашения",
		"Шкала",
		"Условие",
		"Действует с",
		"Действует по",
		"Статус",
		"Создано",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, a := range group.Agreements {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), a.Code)
		set(fmt.Sprintf("B%d", row), orCode(a.AgreementTypeName, a.AgreementTypeCode))
		set(fmt.Sprintf("C%d", row), orCode(a.ScaleName, a.ScaleCode))
		set(fmt.Sprintf("D%d", row), format.Condition(a.ConditionValue, a.Grid))
		set(fmt.Sprintf("E%d", row), format.Date(a.ValidFrom))
		set(fmt.Sprintf("F%d", row), format.Date(a.ValidTo))
		set(fmt.Sprintf("G%d", row), format.StatusLabel(a.Status))
		set(fmt.Sprintf("H%d", row), format.DateTime(a.CreatedAt.Time))
	}

	_ = file.SetColWidth(sheet, "A", "A", 16)
	_ = file.SetColWidth(sheet, "B", "C", 28)
	_ = file.SetColWidth(sheet, "D", "D", 16)
	_ = file.SetColWidth(sheet, "E", "F", 14)
	_ = file.SetColWidth(sheet, "G", "G", 20)
	_ = file.SetColWidth(sheet, "H", "H", 22)
}

func groupBySupplier(agreements []model.Agreement) []supplierGroup {
	index := make(map[string]int)
	var groups []supplierGroup
	for _, a := range agreements {
		i, ok := index[a.SupplierCode]
		if !ok {
			i = len(groups)
			index[a.SupplierCode] = i
			groups = append(groups, supplierGroup{Code: a.SupplierCode, Name: orCode(a.SupplierName, a.SupplierCode)})
		}
		groups[i].Agreements = append(groups[i].Agreements, a)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups
}

func buildSheetName(group supplierGroup, used map[string]struct{}) string {
	base := strings.TrimSpace(group.Name)
	if base == "" {
		base = group.Code
	}
	base = truncate(sanitizeSheetName(base), maxSheetName)

	nameCandidate := base
	counter := 2
	for {
		if _, exists := used[sheetKey(nameCandidate)]; !exists {
			return nameCandidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		nameCandidate = truncate(base, maxSheetName-len([]rune(suffix))) + suffix
		counter++
	}
}

// sheetKey folds case; excelize matches sheet names case-insensitively.
func sheetKey(name string) string {
	return strings.ToLower(name)
}

// truncate cuts to n characters; excelize counts sheet name length in runes.
func truncate(value string, n int) string {
	runes := []rune(value)
	if len(runes) <= n {
		return value
	}
	return string(runes[:n])
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Лист"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = replacer.Replace(value)
	value = strings.TrimSpace(strings.Trim(value, "'"))
	if value == "" {
		return "Лист"
	}
	return value
}

func orCode(name, code string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return code
}
