package model

import (
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AgreementStatus string

const (
	AgreementStatusReadyForCalculation AgreementStatus = "READY_FOR_CALCULATION"
	AgreementStatusCalculated          AgreementStatus = "CALCULATED"
	AgreementStatusDeleted             AgreementStatus = "DELETED"
)

func (s AgreementStatus) Valid() bool {
	switch s {
	case AgreementStatusReadyForCalculation, AgreementStatusCalculated, AgreementStatusDeleted:
		return true
	default:
		return false
	}
}

type Agreement struct {
	ID                uuid.UUID       `json:"id"`
	Code              string          `json:"code"`
	ValidFrom         civil.Date      `json:"valid_from"`
	ValidTo           civil.Date      `json:"valid_to"`
	SupplierCode      string          `json:"supplier_code"`
	SupplierName      string          `json:"supplier_name"`
	AgreementTypeCode string          `json:"agreement_type_code"`
	AgreementTypeName string          `json:"agreement_type_name"`
	ScaleCode         string          `json:"scale_code"`
	ScaleName         string          `json:"scale_name,omitempty"`
	Grid              Grid            `json:"scale_grid,omitempty"`
	ConditionValue    decimal.Decimal `json:"condition_value"`
	Status            AgreementStatus `json:"status"`
	CreatedAt         Timestamp       `json:"created_at"`
	UpdatedAt         Timestamp       `json:"updated_at"`
}

func (a Agreement) IsDeleted() bool {
	return a.Status == AgreementStatusDeleted
}

// Payload returns the editable fields of the agreement as form input.
func (a Agreement) Payload() AgreementPayload {
	return AgreementPayload{
		ValidFrom:         a.ValidFrom.String(),
		ValidTo:           a.ValidTo.String(),
		SupplierCode:      a.SupplierCode,
		AgreementTypeCode: a.AgreementTypeCode,
		ScaleCode:         a.ScaleCode,
		ConditionValue:    a.ConditionValue.String(),
	}
}

// AgreementPayload is the raw candidate agreement as entered by the user.
type AgreementPayload struct {
	ValidFrom         string `form:"valid_from"`
	ValidTo           string `form:"valid_to"`
	SupplierCode      string `form:"supplier_code"`
	AgreementTypeCode string `form:"agreement_type_code"`
	ScaleCode         string `form:"scale_code"`
	ConditionValue    string `form:"condition_value"`
}

// ValidatedAgreement is a payload that passed validation, normalized for submission.
type ValidatedAgreement struct {
	ValidFrom         civil.Date
	ValidTo           civil.Date
	SupplierCode      string
	AgreementTypeCode string
	ScaleCode         string
	Grid              Grid
	ConditionValue    decimal.Decimal
}

func (v ValidatedAgreement) Payload() AgreementPayload {
	return AgreementPayload{
		ValidFrom:         v.ValidFrom.String(),
		ValidTo:           v.ValidTo.String(),
		SupplierCode:      v.SupplierCode,
		AgreementTypeCode: v.AgreementTypeCode,
		ScaleCode:         v.ScaleCode,
		ConditionValue:    v.ConditionValue.String(),
	}
}

// EditableFieldsEqual reports whether two agreements agree on every user-editable field.
func EditableFieldsEqual(a, b Agreement) bool {
	return a.ValidFrom == b.ValidFrom &&
		a.ValidTo == b.ValidTo &&
		a.SupplierCode == b.SupplierCode &&
		a.AgreementTypeCode == b.AgreementTypeCode &&
		a.ScaleCode == b.ScaleCode &&
		a.ConditionValue.Equal(b.ConditionValue)
}

type AgreementFilter struct {
	Status       AgreementStatus
	SupplierCode string
	Query        string
	HideDeleted  bool
}
