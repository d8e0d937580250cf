package vital

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

type TimeseriesService interface {
	// Glucose returns the aggregator's stored glucose readings for a
	// window. The platform delays device data availability by hours;
	// an empty result for a recent window is expected, not an error.
	Glucose(ctx context.Context, userID string, start, end time.Time) ([]GlucoseReading, error)
}

type timeseriesService struct {
	client *Client
}

const dateLayout = "2006-01-02T15:04:05"

func (s *timeseriesService) Glucose(ctx context.Context, userID string, start, end time.Time) ([]GlucoseReading, error) {
	route := "/v2/timeseries/" + userID + "/glucose"

	query := url.Values{
		"start_date": {start.UTC().Format(dateLayout)},
		"end_date":   {end.UTC().Format(dateLayout)},
	}

	var resp glucoseResponse
	if err := s.client.do(ctx, http.MethodGet, route, query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Glucose, nil
}
