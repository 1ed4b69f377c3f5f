package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/network"

	"signal-monitor/src/models"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooFinanceSource reads daily closes from the Yahoo chart API.
type YahooFinanceSource struct {
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	BaseURL string
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(netMgr interfaces.INetworkManager, log *logger.Logger) *YahooFinanceSource {
	if log == nil {
		log = logger.NewLogger(nil, "YahooFinanceSource")
	}
	return &YahooFinanceSource{
		Network: netMgr,
		Logger:  log,
		BaseURL: defaultBaseURL,
	}
}

func (s *YahooFinanceSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

// GetHistory fetches daily closes in [start, end]. An unknown symbol yields
// an empty slice.
func (s *YahooFinanceSource) GetHistory(ctx context.Context, instrument string, start, end time.Time) ([]models.MPricePoint, error) {
	params := map[string]string{
		"period1":        strconv.FormatInt(start.Unix(), 10),
		"period2":        strconv.FormatInt(end.Unix(), 10),
		"interval":       "1d",
		"includePrePost": "false",
		"events":         "history",
	}

	respBytes, err := s.Network.Get(ctx, s.BaseURL+url.PathEscape(instrument), params)
	if err != nil {
		var statusErr *network.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			s.Logger.Warning("Yahoo has no data for %s", instrument)
			return []models.MPricePoint{}, nil
		}
		return nil, fmt.Errorf("network error for %s: %w", instrument, err)
	}

	return s.parseChartResponse(instrument, respBytes)
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string `json:"currency"`
				Symbol               string `json:"symbol"`
				ExchangeName         string `json:"exchangeName"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				DataGranularity      string `json:"dataGranularity"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"` // null on non-trading rows
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) parseChartResponse(instrument string, data []byte) ([]models.MPricePoint, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return []models.MPricePoint{}, nil
		}
		return nil, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return []models.MPricePoint{}, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return []models.MPricePoint{}, nil
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		s.Logger.Info("Data alignment error for %s: Mismatched array lengths", instrument)
		return nil, fmt.Errorf("data alignment error for %s", instrument)
	}

	loc := time.UTC
	if tz := result.Meta.ExchangeTimezoneName; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	points := make([]models.MPricePoint, 0, len(closes))
	for i, ts := range result.Timestamp {
		if closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		// Daily bars are stamped at the session open; keep only the calendar date.
		y, m, d := time.Unix(ts, 0).In(loc).Date()
		points = append(points, models.MPricePoint{
			Date:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Close: *closes[i],
		})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	if len(points) > 0 {
		s.Logger.Info("Fetched %s: %d daily closes [%s -> %s]", instrument, len(points),
			points[0].Date.Format("2006-01-02"), points[len(points)-1].Date.Format("2006-01-02"))
	}
	return points, nil
}
