// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package feed turns upstream market data into engine price events.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// Asset identifier fields of the upstream price update.
const (
	AssetByName   = "name"
	AssetByPubkey = "pubkey"
)

// ErrMalformedUpdate is returned for price updates that cannot become events.
var ErrMalformedUpdate = errors.New("malformed price update")

// Source pushes price events into out until ctx is cancelled or the
// upstream connection fails.
type Source interface {
	Run(ctx context.Context, out chan<- pipeline.PriceEvent) error
}

// PriceUpdate is the upstream message published by the indexer.
type PriceUpdate struct {
	Name       string          `json:"name"`
	Pubkey     string          `json:"pubkey"`
	Price      float64         `json:"price"`
	MarketCap  float64         `json:"market_cap,omitempty"`
	Timestamp  json.RawMessage `json:"timestamp"`
	Slot       uint64          `json:"slot,omitempty"`
	SwapAmount float64         `json:"swap_amount,omitempty"`
	IsBuy      bool            `json:"is_buy,omitempty"`
}

// ParsePriceUpdate decodes one upstream message. assetField selects which
// identifier becomes PriceEvent.Asset.
func ParsePriceUpdate(data []byte, assetField string) (pipeline.PriceEvent, error) {
	var u PriceUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return pipeline.PriceEvent{}, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}

	asset := u.Name
	if assetField == AssetByPubkey {
		asset = u.Pubkey
	}
	if asset == "" {
		return pipeline.PriceEvent{}, fmt.Errorf("%w: missing %s", ErrMalformedUpdate, assetField)
	}
	if math.IsNaN(u.Price) || math.IsInf(u.Price, 0) {
		return pipeline.PriceEvent{}, fmt.Errorf("%w: price is not finite", ErrMalformedUpdate)
	}

	ts, err := parseTimestamp(u.Timestamp)
	if err != nil {
		return pipeline.PriceEvent{}, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}

	return pipeline.PriceEvent{Asset: asset, Price: u.Price, Timestamp: ts}, nil
}

// parseTimestamp accepts unix seconds (integer or fractional) or RFC 3339.
// A missing timestamp means now.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Now().UTC(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), nil
		}
		raw = json.RawMessage(s)
	}

	secs, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", raw)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

// forward delivers ev unless ctx ends first.
func forward(ctx context.Context, out chan<- pipeline.PriceEvent, ev pipeline.PriceEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
