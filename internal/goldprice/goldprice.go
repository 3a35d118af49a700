// Package goldprice fetches current Vietnamese gold prices from mihong.vn.
package goldprice

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIURL = "https://www.mihong.vn/api/v1/gold/prices/current"

// ErrInvalidFormat means the upstream envelope did not carry a success
// flag plus an array payload and cannot be trusted.
var ErrInvalidFormat = errors.New("invalid response format from gold price provider")

type Price struct {
	BuyingPrice       float64 `json:"buyingPrice"`
	SellingPrice      float64 `json:"sellingPrice"`
	Code              string  `json:"code"`
	SellChange        float64 `json:"sellChange"`
	SellChangePercent float64 `json:"sellChangePercent"`
	BuyChange         float64 `json:"buyChange"`
	BuyChangePercent  float64 `json:"buyChangePercent"`
	DateTime          string  `json:"dateTime"`
}

type Report struct {
	Prices    []Price `json:"prices"`
	Timestamp string  `json:"timestamp"`
	Source    string  `json:"source"`
}

type Service struct {
	httpClient *http.Client
	apiURL     string
	now        func() time.Time
}

func New() *Service {
	return &Service{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				// The upstream serves an incomplete certificate chain.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		apiURL: defaultAPIURL,
		now:    time.Now,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// GetGoldPrices fetches the current price board. The upstream answer is
// only trusted when its envelope has success=true and an array payload.
func (s *Service) GetGoldPrices(ctx context.Context) (Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL, nil)
	if err != nil {
		return Report{}, err
	}
	// The endpoint rejects non-browser clients; mimic the site's own
	// XHR call.
	req.Header.Set("accept", "*/*")
	req.Header.Set("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36")
	req.Header.Set("accept-language", "en-US,en;q=0.9")
	req.Header.Set("referer", "https://www.mihong.vn/vi/gia-vang-trong-nuoc")
	req.Header.Set("x-requested-with", "XMLHttpRequest")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("gold price request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("gold price provider returned status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if !env.Success || len(env.Data) == 0 {
		return Report{}, ErrInvalidFormat
	}
	var prices []Price
	if err := json.Unmarshal(env.Data, &prices); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return Report{
		Prices:    prices,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Source:    "mihong.vn",
	}, nil
}
