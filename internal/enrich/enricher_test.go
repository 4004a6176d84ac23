package enrich

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capcli/internal/cap"
	"capcli/internal/record"
)

// stubClient is a scriptable VendorClient recording every call
type stubClient struct {
	mu         sync.Mutex
	liveCalls  []cap.ValuationRequest
	capidCalls []cap.IdentifierRequest
	vrmCalls   []cap.VRMRequest

	liveFn  func(cap.ValuationRequest) (cap.Valuation, error)
	capidFn func(cap.IdentifierRequest) (cap.IdentifierInfo, error)
	vrmFn   func(cap.VRMRequest) (cap.VRMResult, error)
}

func (s *stubClient) UsedValueLive(_ context.Context, req cap.ValuationRequest) (cap.Valuation, error) {
	s.mu.Lock()
	s.liveCalls = append(s.liveCalls, req)
	s.mu.Unlock()
	if s.liveFn == nil {
		return cap.Valuation{Mileage: req.Mileage}, nil
	}
	return s.liveFn(req)
}

func (s *stubClient) CAPIDValuation(_ context.Context, req cap.IdentifierRequest) (cap.IdentifierInfo, error) {
	s.mu.Lock()
	s.capidCalls = append(s.capidCalls, req)
	s.mu.Unlock()
	if s.capidFn == nil {
		return cap.IdentifierInfo{}, nil
	}
	return s.capidFn(req)
}

func (s *stubClient) VRMValuation(_ context.Context, req cap.VRMRequest) (cap.VRMResult, error) {
	s.mu.Lock()
	s.vrmCalls = append(s.vrmCalls, req)
	s.mu.Unlock()
	if s.vrmFn == nil {
		return cap.VRMResult{}, nil
	}
	return s.vrmFn(req)
}

// memLog collects audit entries in memory
type memLog struct {
	mu      sync.Mutex
	entries []string
}

func (m *memLog) Recordf(registration, format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, registration+": "+fmt.Sprintf(format, args...))
}

func (m *memLog) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...)
}

func amount(v float64) cap.Amount { return cap.Amount{Value: v, Valid: true} }

func testRecord() record.NormalizedRecord {
	return record.NormalizedRecord{
		Registration:   "AB12CDE",
		Mileage:        24650,
		RoundedMileage: 25000,
		RegDate:        "2019-03-15",
		CAPID:          12345,
		HasCAPID:       true,
	}
}

func TestEnrich_NoFallbackWhenFiguresPresent(t *testing.T) {
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			return cap.Valuation{Clean: amount(12000), Retail: amount(13500), Mileage: req.Mileage}, nil
		},
	}
	log := &memLog{}
	e := NewEnricher(client, log, nil, Options{ValuationDates: []string{"2024-05-01"}})

	out := e.Enrich(context.Background(), testRecord())

	require.Len(t, client.liveCalls, 1)
	assert.Equal(t, 25000, client.liveCalls[0].Mileage)
	require.Len(t, out.Valuations, 1)
	assert.Equal(t, amount(12000), out.Valuations[0].Clean)
	assert.Equal(t, amount(13500), out.Valuations[0].Retail)
	assert.Equal(t, 25000, out.Valuations[0].MileageUsed)
	assert.False(t, out.Valuations[0].FallbackUsed)
	assert.Empty(t, log.all())
}

func TestEnrich_FallbackOnAbsentFigures(t *testing.T) {
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			if req.Mileage == 25000 {
				return cap.Valuation{Mileage: req.Mileage}, nil
			}
			return cap.Valuation{Clean: amount(11500), Retail: amount(12800), Mileage: req.Mileage}, nil
		},
	}
	e := NewEnricher(client, nil, nil, Options{ValuationDates: []string{"2024-05-01"}})

	out := e.Enrich(context.Background(), testRecord())

	require.Len(t, client.liveCalls, 2)
	assert.Equal(t, 25000, client.liveCalls[0].Mileage)
	assert.Equal(t, 30000, client.liveCalls[1].Mileage)

	v := out.Valuations[0]
	assert.Equal(t, amount(11500), v.Clean)
	assert.Equal(t, amount(12800), v.Retail)
	assert.Equal(t, 30000, v.MileageUsed)
	assert.True(t, v.FallbackUsed)
}

func TestEnrich_NoDuplicateFallbackCall(t *testing.T) {
	// 9,500 miles rounds to 10,000 at both steps, so a retry would repeat
	// the same request and must not happen
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			return cap.Valuation{Mileage: req.Mileage}, nil
		},
	}
	e := NewEnricher(client, nil, nil, Options{ValuationDates: []string{"2024-05-01"}})

	rec := testRecord()
	rec.Mileage = 9500
	rec.RoundedMileage = 10000
	out := e.Enrich(context.Background(), rec)

	require.Len(t, client.liveCalls, 1)
	assert.False(t, out.Valuations[0].Clean.Valid)
	assert.False(t, out.Valuations[0].FallbackUsed)
}

func TestEnrich_FallbackRetainsPartialFirstAttemptOnRetryError(t *testing.T) {
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			if req.Mileage == 25000 {
				return cap.Valuation{Clean: amount(12000), Mileage: req.Mileage}, nil
			}
			return cap.Valuation{}, cap.NewHTTPError(cap.OpUsedValueLive, http.StatusBadGateway, "upstream down")
		},
	}
	log := &memLog{}
	e := NewEnricher(client, log, nil, Options{ValuationDates: []string{"2024-05-01"}})

	out := e.Enrich(context.Background(), testRecord())

	v := out.Valuations[0]
	assert.Equal(t, amount(12000), v.Clean)
	assert.False(t, v.Retail.Valid)
	assert.Equal(t, 25000, v.MileageUsed)
	assert.False(t, v.FallbackUsed)
	require.Len(t, log.all(), 1)
	assert.Contains(t, log.all()[0], "fallback valuation failed")
}

func TestEnrich_TwoDatesRequestedIndependently(t *testing.T) {
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			if req.ValuationDate == "2024-05-01" {
				return cap.Valuation{Clean: amount(12000), Retail: amount(13500), Mileage: req.Mileage}, nil
			}
			return cap.Valuation{Clean: amount(12600), Retail: amount(14100), Mileage: req.Mileage}, nil
		},
	}
	e := NewEnricher(client, nil, nil, Options{ValuationDates: []string{"2024-05-01", "2024-04-01"}})

	out := e.Enrich(context.Background(), testRecord())

	require.Len(t, out.Valuations, 2)
	assert.Equal(t, "2024-05-01", out.Valuations[0].Date)
	assert.Equal(t, amount(12000), out.Valuations[0].Clean)
	assert.Equal(t, "2024-04-01", out.Valuations[1].Date)
	assert.Equal(t, amount(12600), out.Valuations[1].Clean)
}

func TestEnrich_PerRecordDatesOverrideBatchDates(t *testing.T) {
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			return cap.Valuation{Clean: amount(12000), Retail: amount(13500), Mileage: req.Mileage}, nil
		},
	}
	e := NewEnricher(client, nil, nil, Options{ValuationDates: []string{"2024-05-01"}})

	rec := testRecord()
	rec.ValuationDates = []string{"2024-05-10", "2024-01-20"}
	out := e.Enrich(context.Background(), rec)

	require.Len(t, out.Valuations, 2)
	assert.Equal(t, "2024-05-10", out.Valuations[0].Date)
	assert.Equal(t, "2024-01-20", out.Valuations[1].Date)

	require.Len(t, client.liveCalls, 2)
	requested := []string{client.liveCalls[0].ValuationDate, client.liveCalls[1].ValuationDate}
	assert.ElementsMatch(t, []string{"2024-05-10", "2024-01-20"}, requested)
	assert.NotContains(t, requested, "2024-05-01")
}

func TestEnrich_OneDateFailingLeavesOtherIntact(t *testing.T) {
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			if req.ValuationDate == "2024-04-01" {
				return cap.Valuation{}, cap.NewHTTPError(cap.OpUsedValueLive, http.StatusInternalServerError, "boom")
			}
			return cap.Valuation{Clean: amount(12000), Retail: amount(13500), Mileage: req.Mileage}, nil
		},
	}
	log := &memLog{}
	e := NewEnricher(client, log, nil, Options{ValuationDates: []string{"2024-05-01", "2024-04-01"}})

	out := e.Enrich(context.Background(), testRecord())

	assert.True(t, out.Valuations[0].Clean.Valid)
	assert.False(t, out.Valuations[1].Clean.Valid)
	assert.False(t, out.Valuations[1].Retail.Valid)
	require.Len(t, log.all(), 1)
	assert.Contains(t, log.all()[0], "AB12CDE")
}

func TestEnrich_IdentifierLookupFailureDegrades(t *testing.T) {
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			return cap.Valuation{Clean: amount(12000), Retail: amount(13500), Mileage: req.Mileage}, nil
		},
		capidFn: func(cap.IdentifierRequest) (cap.IdentifierInfo, error) {
			return cap.IdentifierInfo{}, cap.NewHTTPError(cap.OpCAPIDValuation, http.StatusInternalServerError, "server error")
		},
	}
	log := &memLog{}
	e := NewEnricher(client, log, nil, Options{
		ValuationDates:   []string{"2024-05-01"},
		LookupIdentifier: true,
	})

	out := e.Enrich(context.Background(), testRecord())

	// valuations survive the identifier failure
	assert.Nil(t, out.Identifier)
	assert.True(t, out.Valuations[0].Clean.Valid)
	require.Len(t, log.all(), 1)
	assert.Contains(t, log.all()[0], "AB12CDE")
	assert.Contains(t, log.all()[0], "500")
}

func TestEnrich_IdentifierLookupSuccess(t *testing.T) {
	client := &stubClient{
		capidFn: func(cap.IdentifierRequest) (cap.IdentifierInfo, error) {
			return cap.IdentifierInfo{Manufacturer: "FORD", Model: "FIESTA HATCHBACK"}, nil
		},
	}
	e := NewEnricher(client, nil, nil, Options{
		ValuationDates:   []string{"2024-05-01"},
		LookupIdentifier: true,
	})

	out := e.Enrich(context.Background(), testRecord())

	require.NotNil(t, out.Identifier)
	assert.Equal(t, "FORD", out.Identifier.Manufacturer)
	require.Len(t, client.capidCalls, 1)
	assert.Equal(t, 12345, client.capidCalls[0].CAPID)
}

func TestEnrich_VRMLookupResolvesMissingCAPID(t *testing.T) {
	client := &stubClient{
		vrmFn: func(req cap.VRMRequest) (cap.VRMResult, error) {
			return cap.VRMResult{
				CAPID:          44123,
				Database:       "CAR",
				RegisteredDate: mustTime(t, "2019-03-15T00:00:00"),
				Identifier:     cap.IdentifierInfo{Manufacturer: "FORD"},
				Monthly:        cap.Valuation{Clean: amount(9000), Retail: amount(10250), Mileage: req.Mileage},
			}, nil
		},
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			return cap.Valuation{Clean: amount(9500), Retail: amount(10800), Mileage: req.Mileage}, nil
		},
	}
	e := NewEnricher(client, nil, nil, Options{ValuationDates: []string{"2024-05-01"}})

	rec := record.NormalizedRecord{
		Registration:   "AB12CDE",
		Mileage:        24650,
		RoundedMileage: 25000,
	}
	out := e.Enrich(context.Background(), rec)

	require.Len(t, client.vrmCalls, 1)
	assert.Equal(t, "AB12CDE", client.vrmCalls[0].Registration)

	assert.True(t, out.HasCAPID)
	assert.Equal(t, 44123, out.CAPID)
	require.NotNil(t, out.Monthly)
	assert.Equal(t, amount(9000), out.Monthly.Clean)

	// live valuation ran with the CAPID and registration date from the lookup
	require.Len(t, client.liveCalls, 1)
	assert.Equal(t, 44123, client.liveCalls[0].CAPID)
	assert.Equal(t, "2019-03-15", client.liveCalls[0].RegDate)
	assert.Equal(t, amount(9500), out.Valuations[0].Clean)
}

func TestEnrich_VRMLookupFailureLeavesEverythingAbsent(t *testing.T) {
	client := &stubClient{
		vrmFn: func(cap.VRMRequest) (cap.VRMResult, error) {
			return cap.VRMResult{}, cap.NewHTTPError(cap.OpVRMValuation, http.StatusInternalServerError, "server error")
		},
	}
	log := &memLog{}
	e := NewEnricher(client, log, nil, Options{ValuationDates: []string{"2024-05-01"}})

	rec := record.NormalizedRecord{Registration: "AB12CDE", Mileage: 24650, RoundedMileage: 25000}
	out := e.Enrich(context.Background(), rec)

	assert.False(t, out.HasCAPID)
	assert.Nil(t, out.Identifier)
	assert.False(t, out.Valuations[0].Clean.Valid)
	assert.Empty(t, client.liveCalls)
	require.Len(t, log.all(), 1)
	assert.Contains(t, log.all()[0], "500")
}

func TestEnrich_Idempotent(t *testing.T) {
	client := &stubClient{
		liveFn: func(req cap.ValuationRequest) (cap.Valuation, error) {
			return cap.Valuation{Clean: amount(12000), Retail: amount(13500), Mileage: req.Mileage}, nil
		},
		capidFn: func(cap.IdentifierRequest) (cap.IdentifierInfo, error) {
			return cap.IdentifierInfo{Manufacturer: "FORD"}, nil
		},
	}
	e := NewEnricher(client, nil, nil, Options{
		ValuationDates:   []string{"2024-05-01", "2024-04-01"},
		LookupIdentifier: true,
	})

	rec := testRecord()
	first := e.Enrich(context.Background(), rec)
	second := e.Enrich(context.Background(), rec)
	assert.Equal(t, first, second)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02T15:04:05", s)
	require.NoError(t, err)
	return parsed
}
