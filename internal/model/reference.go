package model

type Grid string

const (
	GridPercent Grid = "PERCENT"
	GridFix     Grid = "FIX"
)

func (g Grid) Valid() bool {
	return g == GridPercent || g == GridFix
}

type Supplier struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type AgreementType struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Scale carries the grid that decides how an agreement's condition value is read.
type Scale struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Grid Grid   `json:"grid"`
}
