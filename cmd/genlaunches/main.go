package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
)

var (
	rockets   = []string{"Falcon 1", "Falcon 9", "Falcon Heavy", "Starship"}
	orbits    = []string{"LEO", "ISS", "GTO", "PO", "SSO", "HCO"}
	customers = []string{"NASA", "SES", "Iridium", "SpaceX", "USAF", "Telesat"}
)

func main() {
	var (
		count      int
		upcoming   int
		outputFile string
		seed       int64
	)
	flag.IntVar(&count, "count", 100, "number of launches to generate")
	flag.IntVar(&upcoming, "upcoming", 5, "how many of the last launches are upcoming")
	flag.StringVar(&outputFile, "output", "launches.json", "output file (read it back with -source-url file://...)")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	if err := generateLaunches(count, upcoming, seed, outputFile); err != nil {
		log.Fatalf("generation failed: %v", err)
	}
}

// generateLaunches writes a JSON array shaped like the v3 launches listing.
// Some records deliberately omit optional fields so the defaults get exercised.
func generateLaunches(count, upcoming int, seed int64, outputFile string) error {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2006, 3, 24, 22, 30, 0, 0, time.UTC)

	launches := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		fn := i + 1
		at := base.Add(time.Duration(i) * 21 * 24 * time.Hour)
		rocket := rockets[rng.Intn(len(rockets))]
		l := map[string]any{
			"flight_number":     fn,
			"mission_name":      fmt.Sprintf("Mission %d", fn),
			"launch_date_utc":   at.Format(time.RFC3339),
			"launch_date_local": at.Add(-4*time.Hour).Format("2006-01-02T15:04:05") + "-04:00",
			"upcoming":          i >= count-upcoming,
			"details":           nil,
			"rocket": map[string]any{
				"rocket_id":   fmt.Sprintf("r%d", rng.Intn(len(rockets))),
				"rocket_name": rocket,
				"rocket_type": "FT",
			},
			"payloads": payloads(rng, fn),
		}
		if i < count-upcoming {
			// roughly one in ten historical launches failed
			l["launch_success"] = rng.Intn(10) != 0
		}
		if rng.Intn(20) == 0 {
			delete(l, "mission_name")
		}
		launches = append(launches, l)
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(launches); err != nil {
		return fmt.Errorf("encode launches: %w", err)
	}
	log.Printf("generated %d launches to %s", count, outputFile)
	return nil
}

func payloads(rng *rand.Rand, fn int) []map[string]any {
	n := 1 + rng.Intn(2)
	out := make([]map[string]any, 0, n)
	for j := 0; j < n; j++ {
		p := map[string]any{
			"payload_id":   fmt.Sprintf("P-%d-%d", fn, j+1),
			"payload_type": "Satellite",
			"orbit":        orbits[rng.Intn(len(orbits))],
			"customers":    []string{customers[rng.Intn(len(customers))]},
			"manufacturer": nil,
			"nationality":  "United States",
		}
		if rng.Intn(4) != 0 {
			kg := float64(100+rng.Intn(15000)) + 0.5*float64(rng.Intn(2))
			p["payload_mass_kg"] = kg
			p["payload_mass_lbs"] = kg * 2.20462
		}
		out = append(out, p)
	}
	return out
}
