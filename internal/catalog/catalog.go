package catalog

import (
	"fmt"

	"github.com/nurpe/bonus-agreements/internal/model"
)

// Catalog is an immutable snapshot of the reference lists.
type Catalog struct {
	suppliers      []model.Supplier
	agreementTypes []model.AgreementType
	scales         []model.Scale

	supplierIdx map[string]int
	typeIdx     map[string]int
	scaleIdx    map[string]int
}

func New(suppliers []model.Supplier, agreementTypes []model.AgreementType, scales []model.Scale) *Catalog {
	c := &Catalog{
		suppliers:      append([]model.Supplier(nil), suppliers...),
		agreementTypes: append([]model.AgreementType(nil), agreementTypes...),
		scales:         append([]model.Scale(nil), scales...),
		supplierIdx:    make(map[string]int, len(suppliers)),
		typeIdx:        make(map[string]int, len(agreementTypes)),
		scaleIdx:       make(map[string]int, len(scales)),
	}
	for i, s := range c.suppliers {
		c.supplierIdx[s.Code] = i
	}
	for i, t := range c.agreementTypes {
		c.typeIdx[t.Code] = i
	}
	for i, s := range c.scales {
		c.scaleIdx[s.Code] = i
	}
	return c
}

func (c *Catalog) Suppliers() []model.Supplier {
	return append([]model.Supplier(nil), c.suppliers...)
}

func (c *Catalog) AgreementTypes() []model.AgreementType {
	return append([]model.AgreementType(nil), c.agreementTypes...)
}

func (c *Catalog) Scales() []model.Scale {
	return append([]model.Scale(nil), c.scales...)
}

func (c *Catalog) Supplier(code string) (model.Supplier, bool) {
	i, ok := c.supplierIdx[code]
	if !ok {
		return model.Supplier{}, false
	}
	return c.suppliers[i], true
}

func (c *Catalog) AgreementType(code string) (model.AgreementType, bool) {
	i, ok := c.typeIdx[code]
	if !ok {
		return model.AgreementType{}, false
	}
	return c.agreementTypes[i], true
}

func (c *Catalog) Scale(code string) (model.Scale, bool) {
	i, ok := c.scaleIdx[code]
	if !ok {
		return model.Scale{}, false
	}
	return c.scales[i], true
}

// ResolveGrid returns the grid of the scale with the given code.
// A miss is reported as ErrUnknownScale, never defaulted.
func (c *Catalog) ResolveGrid(scaleCode string) (model.Grid, error) {
	scale, ok := c.Scale(scaleCode)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScale, scaleCode)
	}
	return scale.Grid, nil
}

// Enrich fills the scale name and grid of an agreement from the snapshot
// when the backend response did not carry them.
func (c *Catalog) Enrich(a model.Agreement) model.Agreement {
	if scale, ok := c.Scale(a.ScaleCode); ok {
		if a.ScaleName == "" {
			a.ScaleName = scale.Name
		}
		if a.Grid == "" {
			a.Grid = scale.Grid
		}
	}
	return a
}

type snapshot struct {
	Suppliers      []model.Supplier      `json:"suppliers"`
	AgreementTypes []model.AgreementType `json:"agreement_types"`
	Scales         []model.Scale         `json:"scales"`
}

func (c *Catalog) snapshot() snapshot {
	return snapshot{
		Suppliers:      c.suppliers,
		AgreementTypes: c.agreementTypes,
		Scales:         c.scales,
	}
}
