package cap

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"
)

// vendorTimeLayout is the timestamp format CAP uses in response bodies
const vendorTimeLayout = "2006-01-02T15:04:05"

// Live valuation response, namespace https://soap.cap.co.uk/usedvalueslive.
// Leaf values are pointers so a missing element can be told apart from an
// empty one; both mean "absent".
type usedLiveDocument struct {
	ValuationDate *struct {
		Date       string `xml:"Date"`
		Valuations struct {
			Valuation []struct {
				Clean  *string `xml:"Clean"`
				Retail *string `xml:"Retail"`
			} `xml:"Valuation"`
		} `xml:"Valuations"`
	} `xml:"ValuationDate"`
}

// CAPID lookup response, namespace https://soap.cap.co.uk/vrm
type capidDocument struct {
	CAPIDLookup *struct {
		Success         *string `xml:"Success"`
		CAPMan          string  `xml:"CAPMan"`
		CAPRange        string  `xml:"CAPRange"`
		CAPMod          string  `xml:"CAPMod"`
		CAPDer          string  `xml:"CAPDer"`
		ModIntroduced   string  `xml:"ModIntroduced"`
		ModDiscontinued string  `xml:"ModDiscontinued"`
		DerIntroduced   string  `xml:"DerIntroduced"`
		DerDiscontinued string  `xml:"DerDiscontinued"`
		CAPCode         string  `xml:"CAPcode"`
	} `xml:"CAPIDLookup"`
}

// VRM valuation response, namespace https://soap.cap.co.uk/vrm
type vrmDocument struct {
	VRMLookup *struct {
		Database       string `xml:"Database"`
		CAPID          string `xml:"CAPID"`
		RegisteredDate string `xml:"RegisteredDate"`
		CAPMan         string `xml:"CAPMan"`
		CAPRange       string `xml:"CAPRange"`
		CAPMod         string `xml:"CAPMod"`
		CAPDer         string `xml:"CAPDer"`
		CAPCode        string `xml:"CAPcode"`
	} `xml:"VRMLookup"`
	Valuation *struct {
		Clean  *string `xml:"Clean"`
		Retail *string `xml:"Retail"`
	} `xml:"Valuation"`
}

// parseUsedLive parses a live valuation response body. The ValuationDate
// container is required; missing Clean/Retail leaves are absent values, not
// errors. mileage records the mileage the request was made with.
func parseUsedLive(op string, body []byte, mileage int) (Valuation, error) {
	var doc usedLiveDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Valuation{}, NewParseError(op, "invalid XML response", err)
	}
	if doc.ValuationDate == nil {
		return Valuation{}, NewParseError(op, "ValuationDate element missing from response", nil)
	}

	v := Valuation{Mileage: mileage}

	if s := strings.TrimSpace(doc.ValuationDate.Date); s != "" {
		t, err := time.Parse(vendorTimeLayout, s)
		if err != nil {
			return Valuation{}, NewValidationError(op, "unparseable valuation date "+strconv.Quote(s), err)
		}
		v.Date = t
	}

	if vals := doc.ValuationDate.Valuations.Valuation; len(vals) > 0 {
		v.Clean = AmountFromText(vals[0].Clean)
		v.Retail = AmountFromText(vals[0].Retail)
	}
	return v, nil
}

// parseCAPID parses a CAPID lookup response body. The CAPIDLookup container
// and its Success flag are required structure; Success=false is a not-found
// result, not a parse failure.
func parseCAPID(op string, body []byte) (IdentifierInfo, error) {
	var doc capidDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return IdentifierInfo{}, NewParseError(op, "invalid XML response", err)
	}
	lookup := doc.CAPIDLookup
	if lookup == nil || lookup.Success == nil {
		return IdentifierInfo{}, NewParseError(op, "CAPIDLookup element missing or has no Success flag", nil)
	}
	if !strings.EqualFold(strings.TrimSpace(*lookup.Success), "true") {
		return IdentifierInfo{}, NewNotFoundError(op, "lookup reported unsuccessful")
	}

	return IdentifierInfo{
		Manufacturer:    lookup.CAPMan,
		Range:           lookup.CAPRange,
		Model:           lookup.CAPMod,
		Derivative:      lookup.CAPDer,
		ModIntroduced:   lookup.ModIntroduced,
		ModDiscontinued: lookup.ModDiscontinued,
		DerIntroduced:   lookup.DerIntroduced,
		DerDiscontinued: lookup.DerDiscontinued,
		CAPCode:         lookup.CAPCode,
	}, nil
}

// parseVRM parses a VRM valuation response body. The VRMLookup container and
// its CAPID are required; the monthly Valuation block is optional and absent
// figures stay absent.
func parseVRM(op string, body []byte, mileage int) (VRMResult, error) {
	var doc vrmDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return VRMResult{}, NewParseError(op, "invalid XML response", err)
	}
	lookup := doc.VRMLookup
	if lookup == nil {
		return VRMResult{}, NewParseError(op, "VRMLookup element missing from response", nil)
	}
	if strings.TrimSpace(lookup.CAPID) == "" {
		return VRMResult{}, NewNotFoundError(op, "no CAPID returned for registration")
	}
	capID, err := strconv.Atoi(strings.TrimSpace(lookup.CAPID))
	if err != nil {
		return VRMResult{}, NewValidationError(op, "unparseable CAPID "+strconv.Quote(lookup.CAPID), err)
	}

	result := VRMResult{
		CAPID:    capID,
		Database: lookup.Database,
		Identifier: IdentifierInfo{
			Manufacturer: lookup.CAPMan,
			Range:        lookup.CAPRange,
			Model:        lookup.CAPMod,
			Derivative:   lookup.CAPDer,
			CAPCode:      lookup.CAPCode,
		},
		Monthly: Valuation{Mileage: mileage},
	}

	if s := strings.TrimSpace(lookup.RegisteredDate); s != "" {
		t, err := time.Parse(vendorTimeLayout, s)
		if err != nil {
			return VRMResult{}, NewValidationError(op, "unparseable registered date "+strconv.Quote(s), err)
		}
		result.RegisteredDate = t
	}

	if doc.Valuation != nil {
		result.Monthly.Clean = AmountFromText(doc.Valuation.Clean)
		result.Monthly.Retail = AmountFromText(doc.Valuation.Retail)
	}
	return result, nil
}
