package usecase

import (
	"fmt"

	"BartWatch/internal/domain/models"
)

// StationFeed is the fetch result for one station.
type StationFeed struct {
	StationID string
	Groups    []models.DestinationGroup
}

// FilterCandidates keeps, per destination group, the first estimate heading in the
// station's configured direction. Only the next train in that direction is reported.
func FilterCandidates(feeds []StationFeed, stations map[string]models.StationConfig) ([]models.Candidate, error) {
	var out []models.Candidate
	for _, f := range feeds {
		st, ok := stations[f.StationID]
		if !ok {
			return nil, fmt.Errorf("station %q not configured: %w", f.StationID, models.ErrMissingField)
		}
		for _, g := range f.Groups {
			for _, e := range g.Estimates {
				if e.Direction != st.Direction {
					continue
				}
				out = append(out, models.Candidate{
					StationID:   f.StationID,
					Destination: g.Destination,
					Estimate:    e,
				})
				break
			}
		}
	}
	return out, nil
}
