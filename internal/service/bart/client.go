package bart

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"BartWatch/internal/domain/models"
	drepo "BartWatch/internal/domain/repository"
	xhttp "BartWatch/pkg/http"
)

// PublicKey is BART's published demo key.
const PublicKey = "MW9S-E7SL-26DU-VV8V"

// Client implements DepartureFeed against the BART real-time "etd" API.
type Client struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string
}

// New creates a BART departure feed. baseURL is e.g. "https://api.bart.gov/api".
func New(httpClient *xhttp.Client, baseURL, apiKey string) drepo.DepartureFeed {
	if apiKey == "" {
		apiKey = PublicKey
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type etdResponse struct {
	Root struct {
		Station []etdStation `json:"station"`
		Message any          `json:"message"`
	} `json:"root"`
}

type etdStation struct {
	Name string    `json:"name"`
	Abbr string    `json:"abbr"`
	Etd  *[]etdDst `json:"etd"`
}

type etdDst struct {
	Destination  string        `json:"destination"`
	Abbreviation string        `json:"abbreviation"`
	Estimate     []etdEstimate `json:"estimate"`
}

type etdEstimate struct {
	Minutes   string `json:"minutes"`
	Platform  string `json:"platform"`
	Direction string `json:"direction"`
	Length    string `json:"length"`
	Color     string `json:"color"`
	Delay     string `json:"delay"`
}

// Fetch returns the destination groups for stationID in feed order.
func (c *Client) Fetch(ctx context.Context, stationID string) ([]models.DestinationGroup, error) {
	var resp etdResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/etd.aspx",
		QueryParams: map[string][]string{
			"cmd":  {"etd"},
			"orig": {stationID},
			"key":  {c.apiKey},
			"json": {"y"},
		},
	}, &resp)
	if err != nil {
		// Only the caller's own deadline or cancellation passes through unclassified;
		// the poller reports that as a timeout. An HTTP client timeout is transient.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("bart etd %s: %w", stationID, err)
		}
		return nil, fmt.Errorf("%w: bart etd %s: %w", models.ErrFeedTransient, stationID, err)
	}
	return toGroups(stationID, resp)
}

func toGroups(stationID string, resp etdResponse) ([]models.DestinationGroup, error) {
	if len(resp.Root.Station) == 0 {
		return nil, fmt.Errorf("bart etd %s: station: %w", stationID, models.ErrMissingField)
	}
	st := resp.Root.Station[0]
	if st.Etd == nil {
		return nil, fmt.Errorf("bart etd %s: etd: %w", stationID, models.ErrMissingField)
	}

	groups := make([]models.DestinationGroup, 0, len(*st.Etd))
	for _, d := range *st.Etd {
		g := models.DestinationGroup{
			Destination:  d.Destination,
			Abbreviation: d.Abbreviation,
			Estimates:    make([]models.Estimate, 0, len(d.Estimate)),
		}
		for _, e := range d.Estimate {
			est, err := toEstimate(d.Destination, e)
			if err != nil {
				return nil, fmt.Errorf("bart etd %s/%s: %w", stationID, d.Abbreviation, err)
			}
			g.Estimates = append(g.Estimates, est)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func toEstimate(destination string, e etdEstimate) (models.Estimate, error) {
	if e.Direction == "" {
		return models.Estimate{}, fmt.Errorf("direction: %w", models.ErrMissingField)
	}
	if e.Minutes == "" {
		return models.Estimate{}, fmt.Errorf("minutes: %w", models.ErrMissingField)
	}
	if e.Length == "" {
		return models.Estimate{}, fmt.Errorf("length: %w", models.ErrMissingField)
	}
	length, err := strconv.Atoi(e.Length)
	if err != nil {
		return models.Estimate{}, fmt.Errorf("%w: length %q", models.ErrFeedTransient, e.Length)
	}
	delay := 0
	if e.Delay != "" {
		if delay, err = strconv.Atoi(e.Delay); err != nil {
			return models.Estimate{}, fmt.Errorf("%w: delay %q", models.ErrFeedTransient, e.Delay)
		}
	}
	return models.Estimate{
		Destination: destination,
		Direction:   e.Direction,
		Minutes:     e.Minutes,
		Length:      length,
		Platform:    e.Platform,
		Color:       e.Color,
		Delay:       delay,
	}, nil
}
