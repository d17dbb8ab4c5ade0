package format

import (
	"time"

	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"

	"github.com/nurpe/bonus-agreements/internal/model"
)

const (
	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006, 15:04:05"
)

func Date(d civil.Date) string {
	if d == (civil.Date{}) {
		return ""
	}
	return d.In(time.UTC).Format(dateLayout)
}

func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateTimeLayout)
}

// Condition renders a condition value with the unit implied by the grid.
func Condition(value decimal.Decimal, grid model.Grid) string {
	switch grid {
	case model.GridPercent:
		return value.String() + "%"
	case model.GridFix:
		return value.String() + " руб."
	default:
		return value.String()
	}
}

// ConditionUnit is the input adornment shown next to the condition field.
func ConditionUnit(grid model.Grid) string {
	switch grid {
	case model.GridPercent:
		return "%"
	case model.GridFix:
		return "руб."
	default:
		return ""
	}
}

func GridLabel(grid model.Grid) string {
	switch grid {
	case model.GridPercent:
		return "Процент"
	case model.GridFix:
		return "Фиксированная сумма"
	default:
		return string(grid)
	}
}

func StatusLabel(status model.AgreementStatus) string {
	switch status {
	case model.AgreementStatusReadyForCalculation:
		return "Готово к расчёту"
	case model.AgreementStatusCalculated:
		return "Рассчитано"
	case model.AgreementStatusDeleted:
		return "Удалено"
	default:
		return string(status)
	}
}

// StatusClass is the css modifier used for status badges.
func StatusClass(status model.AgreementStatus) string {
	switch status {
	case model.AgreementStatusReadyForCalculation:
		return "success"
	case model.AgreementStatusDeleted:
		return "error"
	default:
		return "default"
	}
}
