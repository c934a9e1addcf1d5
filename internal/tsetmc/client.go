package tsetmc

import (
	"context"
	"strconv"
	"time"

	"resty.dev/v3"

	"marketlogger/internal/ratelimit"
)

// DefaultBaseURL is the public CDN host serving TSETMC market data.
const DefaultBaseURL = "https://cdn.tsetmc.com/api"

// FundFieldNames are the only keys the fund endpoint ever yields: the
// per-unit redemption and subscription prices of an ETF.
var FundFieldNames = []string{"pRedTran", "pSubTran"}

// Client talks to the TSETMC market-data API. All methods return the
// requested fields stringified; a field the API did not include comes back
// as an empty string so that downstream validation rejects it.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
}

// New creates a Client against baseURL. Every request carries the fixed
// timeout; there is no retry, a failed call simply drops the instrument for
// the current polling cycle.
func New(baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Client{
		http:    httpClient,
		limiter: limiter,
	}
}

// closingPriceResponse mirrors GetClosingPriceInfo. The payload is decoded
// into a generic map because callers select an arbitrary subset of its
// fields.
type closingPriceResponse struct {
	ClosingPriceInfo map[string]any `json:"closingPriceInfo"`
}

// fundResponse mirrors GetFundByInsCode.
type fundResponse struct {
	Fund map[string]any `json:"fund"`
}

// overviewResponse mirrors GetMarketOverview.
type overviewResponse struct {
	MarketOverview map[string]any `json:"marketOverview"`
}

// ClosingPrices returns the requested closing-price fields for one
// instrument.
func (c *Client) ClosingPrices(ctx context.Context, insCode string, fields []string) (map[string]string, error) {
	if err := c.limiter.Wait(ctx, ratelimit.EndpointClosing); err != nil {
		return nil, newNetworkError(err)
	}

	var result closingPriceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("insCode", insCode).
		SetResult(&result).
		Get("/ClosingPrice/GetClosingPriceInfo/{insCode}")

	if err != nil {
		return nil, newNetworkError(err)
	}
	if !resp.IsSuccess() {
		return nil, newStatusError(resp.StatusCode())
	}
	if result.ClosingPriceInfo == nil {
		return nil, newDecodeError("closingPriceInfo missing from response")
	}

	return selectFields(result.ClosingPriceInfo, fields), nil
}

// FundInfo returns the fixed redemption/subscription price pair for one
// fund instrument.
func (c *Client) FundInfo(ctx context.Context, insCode string) (map[string]string, error) {
	if err := c.limiter.Wait(ctx, ratelimit.EndpointFund); err != nil {
		return nil, newNetworkError(err)
	}

	var result fundResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("insCode", insCode).
		SetResult(&result).
		Get("/Fund/GetFundByInsCode/{insCode}")

	if err != nil {
		return nil, newNetworkError(err)
	}
	if !resp.IsSuccess() {
		return nil, newStatusError(resp.StatusCode())
	}
	if result.Fund == nil {
		return nil, newDecodeError("fund missing from response")
	}

	return selectFields(result.Fund, FundFieldNames), nil
}

// MarketOverview returns the requested market-wide fields. The endpoint is
// instrument-independent and is called once per polling cycle.
func (c *Client) MarketOverview(ctx context.Context, fields []string) (map[string]string, error) {
	if err := c.limiter.Wait(ctx, ratelimit.EndpointOverview); err != nil {
		return nil, newNetworkError(err)
	}

	var result overviewResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/MarketData/GetMarketOverview/1")

	if err != nil {
		return nil, newNetworkError(err)
	}
	if !resp.IsSuccess() {
		return nil, newStatusError(resp.StatusCode())
	}
	if result.MarketOverview == nil {
		return nil, newDecodeError("marketOverview missing from response")
	}

	return selectFields(result.MarketOverview, fields), nil
}

// selectFields picks the named fields out of a decoded payload, stringifying
// each value. Absent fields map to the empty string.
func selectFields(payload map[string]any, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, name := range fields {
		out[name] = stringify(payload[name])
	}
	return out
}

// stringify renders a decoded JSON value the way the original feed printed
// it: integers without a decimal point, floats with minimal digits.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
