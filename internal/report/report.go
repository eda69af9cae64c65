// Package report builds the summary attached to manual invocations.
// Everything is computed from a full table scan; the table has no secondary indexes.
package report

import (
	"context"
	"sort"
	"strconv"

	"launchsync/internal/model"
	"launchsync/internal/state"
)

// LatestN is how many launches a manual invocation lists.
const LatestN = 5

// LatestLaunch is the trimmed view of a stored launch.
type LatestLaunch struct {
	FlightNumber string `json:"flight_number"`
	MissionName  string `json:"mission_name"`
	RocketName   string `json:"rocket_name"`
	LaunchDate   string `json:"launch_date"`
	Status       string `json:"status"`
	LastUpdated  string `json:"last_updated"`
}

// TableStats counts stored items by status and by rocket name.
type TableStats struct {
	TotalItems int            `json:"total_items"`
	ByStatus   map[string]int `json:"by_status"`
	ByRocket   map[string]int `json:"by_rocket"`
}

// Details is the manual-mode payload.
type Details struct {
	LatestLaunches []LatestLaunch `json:"latest_launches"`
	TableStats     TableStats     `json:"table_stats"`
}

// Summarize computes both views with a single scan.
func Summarize(ctx context.Context, st state.Store, n int) (Details, error) {
	all, err := scan(ctx, st)
	if err != nil {
		return Details{}, err
	}
	return Details{LatestLaunches: latest(all, n), TableStats: stats(all)}, nil
}

// Latest returns the n stored launches with the highest flight numbers.
func Latest(ctx context.Context, st state.Store, n int) ([]LatestLaunch, error) {
	all, err := scan(ctx, st)
	if err != nil {
		return nil, err
	}
	return latest(all, n), nil
}

// Stats aggregates every stored launch.
func Stats(ctx context.Context, st state.Store) (TableStats, error) {
	all, err := scan(ctx, st)
	if err != nil {
		return TableStats{}, err
	}
	return stats(all), nil
}

func scan(ctx context.Context, st state.Store) ([]model.Launch, error) {
	var all []model.Launch
	err := st.Range(ctx, func(l model.Launch) error {
		all = append(all, l)
		return nil
	})
	return all, err
}

func latest(all []model.Launch, n int) []LatestLaunch {
	sorted := append([]model.Launch(nil), all...)
	// launch_id breaks ties so backends with different scan orders agree
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].FlightNumberOrZero(), sorted[j].FlightNumberOrZero()
		if a != b {
			return a > b
		}
		return sorted[i].LaunchID < sorted[j].LaunchID
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	out := make([]LatestLaunch, 0, len(sorted))
	for _, l := range sorted {
		fn := ""
		if l.FlightNumber != nil {
			fn = strconv.FormatInt(*l.FlightNumber, 10)
		}
		out = append(out, LatestLaunch{
			FlightNumber: fn,
			MissionName:  l.MissionName,
			RocketName:   l.RocketName,
			LaunchDate:   l.LaunchDate,
			Status:       string(l.Status),
			LastUpdated:  l.LastUpdated,
		})
	}
	return out
}

func stats(all []model.Launch) TableStats {
	ts := TableStats{
		TotalItems: len(all),
		ByStatus:   map[string]int{},
		ByRocket:   map[string]int{},
	}
	for _, l := range all {
		ts.ByStatus[string(l.Status)]++
		ts.ByRocket[l.RocketName]++
	}
	return ts
}
