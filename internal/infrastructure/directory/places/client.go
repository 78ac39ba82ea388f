package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fieldsight/location-engine/internal/core/domain"
	"github.com/fieldsight/location-engine/internal/infrastructure/resilience"
)

// Client talks to the places directory HTTP API. Calls are rate-limited
// against the directory's request budget and run under the resilience
// executor when one is configured; the aggregator above adds no retry of
// its own.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	RequestsPerSecond  float64
	Burst              int
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := options.Burst
	if burst <= 0 {
		burst = int(rps)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) SearchNearby(ctx context.Context, coord domain.Coordinate, radiusMeters float64, categoryTag string) ([]domain.BusinessCandidate, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	query.Set("radius", strconv.FormatFloat(radiusMeters, 'f', 0, 64))
	if categoryTag != "" {
		query.Set("type", categoryTag)
	}

	var response searchResponse
	if err := c.getJSON(ctx, "/v1/nearby", query, &response, "nearby search"); err != nil {
		return nil, err
	}
	if empty, err := checkStatus(response.Status, "nearby search"); err != nil || empty {
		return nil, err
	}
	return mapCandidates(response.Results), nil
}

func (c *Client) GetDetails(ctx context.Context, id string) (*domain.BusinessCandidate, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "place details", fmt.Errorf("empty id"))
	}
	query := url.Values{}
	query.Set("id", id)

	var response detailsResponse
	if err := c.getJSON(ctx, "/v1/details", query, &response, "place details"); err != nil {
		return nil, err
	}
	if empty, err := checkStatus(response.Status, "place details"); err != nil {
		return nil, err
	} else if empty || response.Result == nil {
		return nil, domain.WrapError(domain.ErrPlaceNotFound, "place details", fmt.Errorf("id %s", id))
	}
	candidate := mapCandidate(*response.Result)
	return &candidate, nil
}

func (c *Client) TextSearch(ctx context.Context, text string, coord *domain.Coordinate) ([]domain.BusinessCandidate, error) {
	query := url.Values{}
	query.Set("query", text)
	if coord != nil {
		query.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
		query.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	}

	var response searchResponse
	if err := c.getJSON(ctx, "/v1/search", query, &response, "text search"); err != nil {
		return nil, err
	}
	if empty, err := checkStatus(response.Status, "text search"); err != nil || empty {
		return nil, err
	}
	return mapCandidates(response.Results), nil
}

type placePayload struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Types      []string `json:"types"`
	Rating     float64  `json:"rating"`
	PriceLevel int      `json:"price_level"`
	OpenNow    *bool    `json:"open_now"`
}

type searchResponse struct {
	Status  string         `json:"status"`
	Results []placePayload `json:"results"`
}

type detailsResponse struct {
	Status string        `json:"status"`
	Result *placePayload `json:"result"`
}

// checkStatus distinguishes the directory's "no results" status, which is
// success with an empty list, from genuine non-success statuses.
func checkStatus(status, operation string) (empty bool, err error) {
	switch status {
	case "OK":
		return false, nil
	case "ZERO_RESULTS":
		return true, nil
	default:
		return false, &StatusError{Operation: operation, Status: status}
	}
}

func mapCandidates(payloads []placePayload) []domain.BusinessCandidate {
	candidates := make([]domain.BusinessCandidate, 0, len(payloads))
	for _, payload := range payloads {
		candidates = append(candidates, mapCandidate(payload))
	}
	return candidates
}

func mapCandidate(payload placePayload) domain.BusinessCandidate {
	businessType := domain.ClassifyTags(payload.Types)
	if businessType == domain.TypeOther {
		businessType = domain.ClassifyName(payload.Name)
	}
	return domain.BusinessCandidate{
		ID:           payload.ID,
		Name:         payload.Name,
		Address:      payload.Address,
		Coordinate:   domain.Coordinate{Lat: payload.Lat, Lon: payload.Lon},
		BusinessType: businessType,
		Rating:       payload.Rating,
		PriceLevel:   payload.PriceLevel,
		OpenNow:      payload.OpenNow,
	}
}
