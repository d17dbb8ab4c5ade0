package validator

import (
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"

	"github.com/nurpe/bonus-agreements/internal/model"
)

// GridResolver looks up the grid carried by a scale code.
type GridResolver interface {
	ResolveGrid(scaleCode string) (model.Grid, error)
}

// The backend stores condition values as numeric(15, 2).
const (
	conditionScale         = 2
	conditionIntegerDigits = 13
	maxConditionLength     = 32
)

var (
	hundred        = decimal.NewFromInt(100)
	conditionLimit = decimal.New(1, conditionIntegerDigits)
)

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	time.RFC3339,
}

// Validate checks a candidate agreement against the reference catalog.
// Checks run in a fixed order and the first failure is returned:
// required fields, number parsing, positivity, precision, scale
// resolution, percentage bound, dates.
func Validate(payload model.AgreementPayload, grids GridResolver) (*model.ValidatedAgreement, error) {
	p := trimPayload(payload)

	if err := checkRequired(p); err != nil {
		return nil, err
	}

	value, err := parseConditionValue(p.ConditionValue)
	if err != nil {
		return nil, err
	}
	if !value.IsPositive() {
		return nil, &ValidationError{
			Kind:    KindNonPositiveValue,
			Field:   "condition_value",
			Message: "Значение условия должно быть больше 0",
		}
	}
	if !fitsColumn(value) {
		return nil, &ValidationError{
			Kind:    KindOutOfPrecision,
			Field:   "condition_value",
			Message: "Значение условия: не более 13 цифр до запятой и 2 после",
		}
	}

	grid, err := grids.ResolveGrid(p.ScaleCode)
	if err != nil || !grid.Valid() {
		return nil, &ValidationError{
			Kind:    KindUnknownReference,
			Field:   "scale_code",
			Message: "Шкала не найдена в справочнике",
		}
	}
	if grid == model.GridPercent && value.GreaterThan(hundred) {
		return nil, &ValidationError{
			Kind:    KindPercentageOutOfRange,
			Field:   "condition_value",
			Message: "Для процентной шкалы значение не может превышать 100",
		}
	}

	validFrom, err := parseDate("valid_from", p.ValidFrom)
	if err != nil {
		return nil, err
	}
	validTo, err := parseDate("valid_to", p.ValidTo)
	if err != nil {
		return nil, err
	}
	if validTo.Before(validFrom) {
		return nil, &ValidationError{
			Kind:    KindInvalidDateRange,
			Field:   "valid_to",
			Message: "Дата окончания должна быть больше или равна дате начала",
		}
	}

	return &model.ValidatedAgreement{
		ValidFrom:         validFrom,
		ValidTo:           validTo,
		SupplierCode:      p.SupplierCode,
		AgreementTypeCode: p.AgreementTypeCode,
		ScaleCode:         p.ScaleCode,
		Grid:              grid,
		ConditionValue:    value,
	}, nil
}

func trimPayload(p model.AgreementPayload) model.AgreementPayload {
	return model.AgreementPayload{
		ValidFrom:         strings.TrimSpace(p.ValidFrom),
		ValidTo:           strings.TrimSpace(p.ValidTo),
		SupplierCode:      strings.TrimSpace(p.SupplierCode),
		AgreementTypeCode: strings.TrimSpace(p.AgreementTypeCode),
		ScaleCode:         strings.TrimSpace(p.ScaleCode),
		ConditionValue:    strings.TrimSpace(p.ConditionValue),
	}
}

func checkRequired(p model.AgreementPayload) error {
	fields := []struct {
		name  string
		value string
	}{
		{"valid_from", p.ValidFrom},
		{"valid_to", p.ValidTo},
		{"supplier_code", p.SupplierCode},
		{"agreement_type_code", p.AgreementTypeCode},
		{"scale_code", p.ScaleCode},
		{"condition_value", p.ConditionValue},
	}
	for _, f := range fields {
		if f.value == "" {
			return &ValidationError{
				Kind:    KindMissingField,
				Field:   f.name,
				Message: "Все поля обязательны для заполнения",
			}
		}
	}
	return nil
}

func parseConditionValue(raw string) (decimal.Decimal, error) {
	if len(raw) > maxConditionLength {
		return decimal.Decimal{}, &ValidationError{
			Kind:    KindOutOfPrecision,
			Field:   "condition_value",
			Message: "Значение условия слишком длинное",
		}
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return decimal.Decimal{}, &ValidationError{
			Kind:    KindNotANumber,
			Field:   "condition_value",
			Message: "Значение условия должно быть числом",
		}
	}
	return value, nil
}

// fitsColumn checks the exponent before any arithmetic so that values like
// 1e-7000000 are rejected without being expanded.
func fitsColumn(value decimal.Decimal) bool {
	exp := value.Exponent()
	if exp > conditionIntegerDigits || exp < -maxConditionLength {
		return false
	}
	if value.Abs().GreaterThanOrEqual(conditionLimit) {
		return false
	}
	return value.Equal(value.Truncate(conditionScale))
}

// NormalizeDate rewrites a date in any accepted layout to YYYY-MM-DD and
// returns other input unchanged.
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if d, err := parseDate("", raw); err == nil {
		return d.String()
	}
	return raw
}

func parseDate(field, raw string) (civil.Date, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(parsed), nil
		}
	}
	return civil.Date{}, &ValidationError{
		Kind:    KindInvalidDate,
		Field:   field,
		Message: "Некорректная дата",
	}
}
