package exporter

import (
	"strconv"
	"time"

	"capcli/internal/enrich"
)

// Stock flavor: the input columns pass through unchanged, followed by the
// enrichment columns. Absent valuation figures render as empty cells, never
// as zero.

// Enrichment columns appended to the stock input schema
var stockColumns = []string{"CleanLive", "RetailLive", "CleanMonth", "RetailMonth", "TodayDate"}

// StockHeaders returns the output header row for the stock flavor
func StockHeaders(inputHeader []string) []string {
	headers := make([]string, 0, len(inputHeader)+len(stockColumns))
	headers = append(headers, inputHeader...)
	headers = append(headers, stockColumns...)
	return headers
}

// StockRow renders one enriched record for the stock flavor. Valuations[0]
// is the current date, Valuations[1] (when requested) the fixed comparison
// date.
func StockRow(out enrich.OutputRecord, width int, today time.Time) []string {
	row := make([]string, 0, width+len(stockColumns))
	row = append(row, out.Record.Raw...)
	for len(row) < width {
		row = append(row, "")
	}

	var cleanLive, retailLive, cleanMonth, retailMonth string
	if len(out.Valuations) > 0 {
		cleanLive = out.Valuations[0].Clean.String()
		retailLive = out.Valuations[0].Retail.String()
	}
	if len(out.Valuations) > 1 {
		cleanMonth = out.Valuations[1].Clean.String()
		retailMonth = out.Valuations[1].Retail.String()
	}

	return append(row, cleanLive, retailLive, cleanMonth, retailMonth,
		today.Format("02/01/2006"))
}

// Sales flavor: each row is valued at its own sale and purchase dates, with
// the derivative details appended. Column names follow the existing import
// contract.

// SalesHeaders is the output header row for the sales flavor
var SalesHeaders = []string{
	"VRM", "mileage", "CAP ID", "Reg Date",
	"SaleClean", "SaleRetail", "SaleValuationDate",
	"PurchaseClean", "PurchaseRetail", "PurchaseValuationDate",
	"CAPMan", "CAPRange", "CAPMod", "CAPDer",
	"ModIntroduced", "ModDiscontinued", "CAP Code",
}

// SalesRow renders one enriched record for the sales flavor. Valuations[0] is
// the sale date, Valuations[1] the purchase date.
func SalesRow(out enrich.OutputRecord) []string {
	var capID string
	if out.HasCAPID {
		capID = strconv.Itoa(out.CAPID)
	}

	valuation := func(i int) (clean, retail, date string) {
		if i >= len(out.Valuations) {
			return "", "", ""
		}
		v := out.Valuations[i]
		if !v.VendorDate.IsZero() {
			date = v.VendorDate.Format("02/01/2006")
		}
		return v.Clean.String(), v.Retail.String(), date
	}
	saleClean, saleRetail, saleDate := valuation(0)
	purchaseClean, purchaseRetail, purchaseDate := valuation(1)

	var capMan, capRange, capMod, capDer, modIntroduced, modDiscontinued, capCode string
	if out.Identifier != nil {
		capMan = out.Identifier.Manufacturer
		capRange = out.Identifier.Range
		capMod = out.Identifier.Model
		capDer = out.Identifier.Derivative
		modIntroduced = out.Identifier.ModIntroduced
		modDiscontinued = out.Identifier.ModDiscontinued
		capCode = out.Identifier.CAPCode
	}

	return []string{
		out.Record.Registration, strconv.Itoa(out.Record.RoundedMileage), capID, out.Record.RegDate,
		saleClean, saleRetail, saleDate,
		purchaseClean, purchaseRetail, purchaseDate,
		capMan, capRange, capMod, capDer,
		modIntroduced, modDiscontinued, capCode,
	}
}

// VRM flavor: fixed 33-column layout consumed downstream; the Unused columns
// keep their positions in the existing import contract.

// VRMHeaders is the output header row for the VRM lookup flavor
var VRMHeaders = []string{
	"VRM", "Unused1", "CAPMan", "CAPMod", "CAPDer", "RegisteredDate",
	"CAPID", "Mileage", "Unused2", "Unused3", "Unused4", "Unused5",
	"Unused6", "Unused7", "Unused8", "Unused9", "Monthly_Clean",
	"Unused10", "Unused11", "Monthly_Retail", "Unused12", "Unused13",
	"Unused14", "Database", "Unused16", "Unused17", "Unused18",
	"Unused19", "Unused20", "Live_Clean", "Unused21", "Unused22", "Live_Retail",
}

// VRMRow renders one enriched record for the VRM lookup flavor
func VRMRow(out enrich.OutputRecord) []string {
	var capMan, capMod, capDer string
	if out.Identifier != nil {
		capMan = out.Identifier.Manufacturer
		capMod = out.Identifier.Model
		capDer = out.Identifier.Derivative
	}

	var registeredDate string
	if !out.RegisteredDate.IsZero() {
		registeredDate = out.RegisteredDate.Format("02/01/2006")
	}

	var capID string
	if out.HasCAPID {
		capID = strconv.Itoa(out.CAPID)
	}

	var monthlyClean, monthlyRetail string
	if out.Monthly != nil {
		monthlyClean = out.Monthly.Clean.String()
		monthlyRetail = out.Monthly.Retail.String()
	}

	var liveClean, liveRetail string
	if len(out.Valuations) > 0 {
		liveClean = out.Valuations[0].Clean.String()
		liveRetail = out.Valuations[0].Retail.String()
	}

	return []string{
		out.Record.Registration, "", capMan, capMod, capDer, registeredDate,
		capID, strconv.Itoa(out.Record.Mileage), "", "", "", "",
		"", "", "", "", monthlyClean,
		"", "", monthlyRetail, "", "",
		"", out.Database, "", "", "",
		"", "", liveClean, "", "", liveRetail,
	}
}
