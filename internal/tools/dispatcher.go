// Package tools maps the assistant's tool calls onto their providers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"assistant-bot/internal/goldprice"
	"assistant-bot/internal/search"
	"assistant-bot/internal/weather"
)

// The set of tool names the assistant may call is closed: adding a tool
// means adding a constant, a parameter struct and a dispatch case.
const (
	ToolGetWeather   = "get_weather"
	ToolSearchWeb    = "search_web"
	ToolGetGoldPrice = "get_gold_price"
)

type WeatherParams struct {
	Location string `json:"location"`
	Date     string `json:"date,omitempty"`
}

type SearchParams struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type GoldPriceParams struct {
	Code string `json:"code,omitempty"`
}

type WeatherService interface {
	GetWeather(ctx context.Context, location, date string) (weather.Reading, error)
}

type SearchService interface {
	SearchWeb(ctx context.Context, query string, maxResults int, includeDomains, excludeDomains []string) (search.Response, error)
}

type GoldPriceService interface {
	GetGoldPrices(ctx context.Context) (goldprice.Report, error)
}

type Dispatcher struct {
	weather   WeatherService
	search    SearchService
	goldPrice GoldPriceService
}

func New(weather WeatherService, search SearchService, goldPrice GoldPriceService) *Dispatcher {
	return &Dispatcher{weather: weather, search: search, goldPrice: goldPrice}
}

// Dispatch executes one tool call and renders its result as a JSON
// payload. Failures never escape: an unknown tool, malformed arguments or
// a provider error all become an {"error": ...} payload, so the engine can
// decide how to proceed and the other calls of the batch stay unaffected.
func (d *Dispatcher) Dispatch(ctx context.Context, name, argumentsJSON string) string {
	payload, err := d.dispatch(ctx, name, argumentsJSON)
	if err != nil {
		log.Printf("tool %s failed: %v", name, err)
		return errorPayload(err)
	}
	return payload
}

func (d *Dispatcher) dispatch(ctx context.Context, name, argumentsJSON string) (string, error) {
	switch name {
	case ToolGetWeather:
		var p WeatherParams
		if err := json.Unmarshal([]byte(argumentsJSON), &p); err != nil {
			return "", fmt.Errorf("invalid %s arguments: %w", name, err)
		}
		reading, err := d.weather.GetWeather(ctx, p.Location, p.Date)
		if err != nil {
			return "", err
		}
		return marshal(reading)

	case ToolSearchWeb:
		var p SearchParams
		if err := json.Unmarshal([]byte(argumentsJSON), &p); err != nil {
			return "", fmt.Errorf("invalid %s arguments: %w", name, err)
		}
		results, err := d.search.SearchWeb(ctx, p.Query, p.MaxResults, p.IncludeDomains, p.ExcludeDomains)
		if err != nil {
			return "", err
		}
		return marshal(results)

	case ToolGetGoldPrice:
		var p GoldPriceParams
		if err := json.Unmarshal([]byte(argumentsJSON), &p); err != nil {
			return "", fmt.Errorf("invalid %s arguments: %w", name, err)
		}
		report, err := d.goldPrice.GetGoldPrices(ctx)
		if err != nil {
			return "", err
		}
		report.Prices = filterByCode(report.Prices, p.Code)
		return marshal(report)

	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

// filterByCode narrows the price list to entries matching code
// case-insensitively. The filter is advisory: when nothing matches the
// full list is kept so the assistant always has something to show.
func filterByCode(prices []goldprice.Price, code string) []goldprice.Price {
	if code == "" {
		return prices
	}
	var filtered []goldprice.Price
	for _, p := range prices {
		if strings.EqualFold(p.Code, code) {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return prices
	}
	return filtered
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(b), nil
}

func errorPayload(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}
