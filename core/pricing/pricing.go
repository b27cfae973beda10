// Package pricing assembles the per-interval price curve from the two market
// feeds a fleet operator buys on: hourly day-ahead prices and quarter-hour
// intraday prices. The cheaper market wins each interval; missing intraday
// points fall back to the day-ahead price.
package pricing

import (
	"fmt"

	"github.com/kilianp07/chargeplan/core/model"
)

// Market identifies the market an interval price was taken from.
type Market int

const (
	DayAhead Market = iota
	Intraday
)

// String returns the conventional market abbreviation.
func (m Market) String() string {
	switch m {
	case DayAhead:
		return "DAM"
	case Intraday:
		return "IDM"
	default:
		return "unknown"
	}
}

// MarketCurve is a price curve with per-interval market attribution.
type MarketCurve struct {
	Prices model.PriceCurve
	Source []Market
}

// Assemble merges the two feeds over the horizon. dayAhead is hourly and must
// cover the whole horizon; intraday is per-interval and may be shorter.
func Assemble(h model.Horizon, dayAhead, intraday []float64) (MarketCurve, error) {
	if err := h.Validate(); err != nil {
		return MarketCurve{}, err
	}
	slotsPerHour := 60 / h.SlotMinutes
	if slotsPerHour < 1 {
		slotsPerHour = 1
	}
	needHours := (h.Slots + slotsPerHour - 1) / slotsPerHour
	if len(dayAhead) < needHours {
		return MarketCurve{}, fmt.Errorf("day-ahead feed covers %d hours, horizon needs %d", len(dayAhead), needHours)
	}
	if len(intraday) > h.Slots {
		return MarketCurve{}, fmt.Errorf("intraday feed has %d points, horizon has %d intervals", len(intraday), h.Slots)
	}

	prices := make([]float64, h.Slots)
	source := make([]Market, h.Slots)
	for t := 0; t < h.Slots; t++ {
		dam := dayAhead[t/slotsPerHour]
		prices[t] = dam
		source[t] = DayAhead
		if t < len(intraday) && intraday[t] < dam {
			prices[t] = intraday[t]
			source[t] = Intraday
		}
	}
	return MarketCurve{Prices: model.NewPriceCurve(prices), Source: source}, nil
}

// MarketShare attributes delivered energy and cost per market.
type MarketShare struct {
	EnergyKWh float64
	Cost      float64
}

// Attribution splits the schedule's aggregate power by the market each
// interval was bought on.
func (c MarketCurve) Attribution(aggregateKW []float64, h model.Horizon) map[string]MarketShare {
	out := make(map[string]MarketShare, 2)
	slotHours := h.SlotHours()
	for t, kw := range aggregateKW {
		if t >= len(c.Source) {
			break
		}
		key := c.Source[t].String()
		share := out[key]
		share.EnergyKWh += kw * slotHours
		share.Cost += kw * slotHours * c.Prices.At(t)
		out[key] = share
	}
	return out
}
