package format

import (
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nurpe/bonus-agreements/internal/model"
)

func TestDate(t *testing.T) {
	assert.Equal(t, "05.03.2024", Date(civil.Date{Year: 2024, Month: time.March, Day: 5}))
	assert.Equal(t, "", Date(civil.Date{}))
}

func TestDateTime(t *testing.T) {
	assert.Equal(t, "", DateTime(time.Time{}))
	ts := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.Local)
	assert.Equal(t, "02.01.2024, 03:04:05", DateTime(ts))
}

func TestCondition(t *testing.T) {
	assert.Equal(t, "5.5%", Condition(decimal.RequireFromString("5.5"), model.GridPercent))
	assert.Equal(t, "1500 руб.", Condition(decimal.RequireFromString("1500"), model.GridFix))
	assert.Equal(t, "7", Condition(decimal.NewFromInt(7), ""))
	assert.Equal(t, "%", ConditionUnit(model.GridPercent))
	assert.Equal(t, "руб.", ConditionUnit(model.GridFix))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Готово к расчёту", StatusLabel(model.AgreementStatusReadyForCalculation))
	assert.Equal(t, "Рассчитано", StatusLabel(model.AgreementStatusCalculated))
	assert.Equal(t, "Удалено", StatusLabel(model.AgreementStatusDeleted))
	assert.Equal(t, "error", StatusClass(model.AgreementStatusDeleted))
	assert.Equal(t, "success", StatusClass(model.AgreementStatusReadyForCalculation))
}
