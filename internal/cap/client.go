// Package cap implements the client for the CAP valuation and vehicle
// identification endpoints. Requests are form-encoded HTTP POSTs; responses
// are namespaced XML documents. Parsing is strict on document structure and
// lenient on missing leaf values, which map to explicit absent markers.
package cap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"capcli/internal/config"
)

// Operation names used in errors, logs and metrics
const (
	OpUsedValueLive  = "used_value_live"
	OpCAPIDValuation = "capid_valuation"
	OpVRMValuation   = "vrm_valuation"
)

// Client issues calls to the CAP endpoints. A single Client (and its
// underlying connection pool) is shared across all records in a batch.
type Client struct {
	cfg     config.VendorConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a vendor client from configuration. The per-call timeout
// and the client-side rate limit both come from cfg.
func NewClient(cfg config.VendorConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// UsedValueLive fetches a live valuation for a CAP identifier, registration
// date and mileage at the requested valuation date.
func (c *Client) UsedValueLive(ctx context.Context, req ValuationRequest) (Valuation, error) {
	payload := url.Values{
		"subscriberId":  {c.cfg.SubscriberID},
		"password":      {c.cfg.Password},
		"database":      {c.cfg.Database},
		"capid":         {strconv.Itoa(req.CAPID)},
		"valuationDate": {req.ValuationDate},
		"regDate":       {req.RegDate},
		"mileage":       {strconv.Itoa(req.Mileage)},
	}

	body, err := c.postForm(ctx, OpUsedValueLive, c.cfg.LiveURL, payload)
	if err != nil {
		return Valuation{}, err
	}
	return parseUsedLive(OpUsedValueLive, body, req.Mileage)
}

// CAPIDValuation fetches the derivative details behind a CAP identifier.
func (c *Client) CAPIDValuation(ctx context.Context, req IdentifierRequest) (IdentifierInfo, error) {
	payload := url.Values{
		"SubscriberID":              {c.cfg.SubscriberID},
		"Password":                  {c.cfg.Password},
		"Database":                  {c.cfg.Database},
		"CAPID":                     {strconv.Itoa(req.CAPID)},
		"RegisteredDate":            {req.RegDate},
		"Mileage":                   {strconv.Itoa(req.Mileage)},
		"StandardEquipmentRequired": {"false"},
	}

	body, err := c.postForm(ctx, OpCAPIDValuation, c.cfg.CAPIDURL, payload)
	if err != nil {
		return IdentifierInfo{}, err
	}
	return parseCAPID(OpCAPIDValuation, body)
}

// VRMValuation resolves a registration plate to its CAP identifier, vehicle
// details and monthly valuation.
func (c *Client) VRMValuation(ctx context.Context, req VRMRequest) (VRMResult, error) {
	payload := url.Values{
		"SubscriberID":              {c.cfg.SubscriberID},
		"Password":                  {c.cfg.Password},
		"VRM":                       {req.Registration},
		"Mileage":                   {strconv.Itoa(req.Mileage)},
		"StandardEquipmentRequired": {"false"},
	}

	body, err := c.postForm(ctx, OpVRMValuation, c.cfg.VRMURL, payload)
	if err != nil {
		return VRMResult{}, err
	}
	return parseVRM(OpVRMValuation, body, req.Mileage)
}

// postForm issues one form-encoded POST and returns the response body.
// Non-2xx statuses become VendorErrors carrying the status and body.
func (c *Client) postForm(ctx context.Context, op, endpoint string, payload url.Values) ([]byte, error) {
	start := time.Now()
	body, err := c.doPostForm(ctx, op, endpoint, payload)
	observeRequest(op, err, time.Since(start).Seconds())
	if err != nil {
		c.logger.DebugContext(ctx, "vendor call failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
	return body, err
}

func (c *Client) doPostForm(ctx context.Context, op, endpoint string, payload url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, NewTransportError(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return nil, NewTransportError(op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, NewTransportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewHTTPError(op, resp.StatusCode, string(body))
	}
	return body, nil
}
