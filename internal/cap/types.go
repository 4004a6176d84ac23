package cap

import (
	"strconv"
	"strings"
	"time"
)

// Amount is a valuation figure that may be absent. Zero is a meaningful
// valuation, so absence is tracked explicitly rather than as 0.
type Amount struct {
	Value float64
	Valid bool
}

// AmountFromText converts a vendor leaf value into an Amount. A nil element,
// empty text or unparseable number all map to an absent Amount.
func AmountFromText(text *string) Amount {
	if text == nil {
		return Amount{}
	}
	s := strings.TrimSpace(*text)
	if s == "" {
		return Amount{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Amount{}
	}
	return Amount{Value: v, Valid: true}
}

// String renders the amount for tabular output; absent renders as "".
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

// ValuationRequest identifies a single live valuation call
type ValuationRequest struct {
	CAPID         int
	RegDate       string // ISO YYYY-MM-DD, normalized upstream
	Mileage       int
	ValuationDate string // ISO YYYY-MM-DD
}

// Valuation is the normalized result of a live valuation call
type Valuation struct {
	Clean  Amount
	Retail Amount
	// Date is the valuation timestamp as returned by the vendor
	Date time.Time
	// Mileage is the mileage the vendor actually valued
	Mileage int
}

// IdentifierRequest identifies a CAPID lookup call
type IdentifierRequest struct {
	CAPID   int
	RegDate string // ISO YYYY-MM-DD
	Mileage int
}

// IdentifierInfo describes the vehicle derivative behind a CAP identifier.
// The introduced/discontinued fields are optional free-text dates as returned
// by the vendor; empty means the vendor did not supply them.
type IdentifierInfo struct {
	Manufacturer    string
	Range           string
	Model           string
	Derivative      string
	ModIntroduced   string
	ModDiscontinued string
	DerIntroduced   string
	DerDiscontinued string
	CAPCode         string
}

// VRMRequest identifies a registration-plate lookup call
type VRMRequest struct {
	Registration string
	Mileage      int
}

// VRMResult is the combined lookup + monthly valuation returned for a plate
type VRMResult struct {
	CAPID          int
	Database       string
	RegisteredDate time.Time
	Identifier     IdentifierInfo
	Monthly        Valuation
}
