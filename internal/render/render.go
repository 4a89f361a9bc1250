// Package render turns a stored optimization result into the artifacts the
// results view shows: the summary view model, the ordered route list, the
// maps deep link, and the downloadable/shareable text summaries. All
// functions are pure; absent data resolves through documented fallbacks.
package render

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/voltroute/voltroute/internal/models"
)

// ErrNoStops is returned when a maps link is requested for a result with
// an empty route.
var ErrNoStops = errors.New("no route data available for navigation")

// effectiveRangeFactor derives the effective range from the total distance
// when the server omits it.
const effectiveRangeFactor = 1.2

// mapsPlaceholderAddress stands in for an empty stop address in the maps
// deep link.
const mapsPlaceholderAddress = "Bangalore, India"

var algorithmNames = map[string]string{
	"SA":  "Simulated Annealing",
	"GA":  "Genetic Algorithm",
	"ACO": "Ant Colony Optimization",
	"PSO": "Particle Swarm Optimization",
}

// AlgorithmName expands a known algorithm code to its full name. Any other
// non-empty code displays as-is; an absent code displays as
// "Unknown Algorithm".
func AlgorithmName(code string) string {
	if name, ok := algorithmNames[code]; ok {
		return name
	}
	if code != "" {
		return code
	}
	return "Unknown Algorithm"
}

// EffectiveRange returns the server-supplied effective range, or the
// derived default when absent.
func EffectiveRange(result *models.OptimizeResult) float64 {
	if result.EffectiveRange != nil {
		return *result.EffectiveRange
	}
	return result.TotalDistance * effectiveRangeFactor
}

// Stop is one rendered route entry, 1-indexed.
type Stop struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Address  string `json:"address"`
}

// View is the summary view model with fixed unit suffixes.
type View struct {
	TotalDistance  string `json:"total_distance"`
	EstimatedTime  string `json:"estimated_time"`
	EffectiveRange string `json:"effective_range"`
	Algorithm      string `json:"algorithm"`
	Stops          []Stop `json:"stops"`
}

// formatNumber renders a float the way the original UI did: no exponent,
// no trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// stopName falls back to a synthesized label for unnamed entries. index is
// 0-based.
func stopName(entry models.CustomerEntry, index int) string {
	if entry.Name != "" {
		return entry.Name
	}
	return fmt.Sprintf("Customer %d", index+1)
}

// NewView renders the summary and the ordered route.
func NewView(result *models.OptimizeResult) View {
	view := View{
		TotalDistance:  formatNumber(result.TotalDistance) + " km",
		EstimatedTime:  formatNumber(result.EstimatedTime) + " min",
		EffectiveRange: formatNumber(EffectiveRange(result)) + " km",
		Algorithm:      AlgorithmName(result.Algorithm),
	}

	for i, entry := range result.OptimizedRoute {
		address := entry.Address
		if address == "" {
			address = "Address not specified"
		}
		view.Stops = append(view.Stops, Stop{
			Position: i + 1,
			Name:     stopName(entry, i),
			Address:  address,
		})
	}
	return view
}

// encodeComponent matches encodeURIComponent closely enough for addresses:
// spaces become %20, not +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// MapsURL builds the Google Maps deep link for the optimized route. A
// single stop links directly to that address; multiple stops use the
// origin/destination form with the interior stops, in order, as the
// pipe-joined waypoints parameter.
func MapsURL(result *models.OptimizeResult) (string, error) {
	if len(result.OptimizedRoute) == 0 {
		return "", ErrNoStops
	}

	stops := make([]string, 0, len(result.OptimizedRoute))
	for _, entry := range result.OptimizedRoute {
		address := entry.Address
		if address == "" {
			address = mapsPlaceholderAddress
		}
		stops = append(stops, encodeComponent(address))
	}

	if len(stops) == 1 {
		return fmt.Sprintf(
			"https://www.google.com/maps/dir/?api=1&destination=%s&travelmode=driving",
			stops[0],
		), nil
	}

	origin := stops[0]
	destination := stops[len(stops)-1]
	waypoints := strings.Join(stops[1:len(stops)-1], "|")

	mapsURL := fmt.Sprintf(
		"https://www.google.com/maps/dir/?api=1&origin=%s&destination=%s&travelmode=driving",
		origin, destination,
	)
	if waypoints != "" {
		mapsURL += "&waypoints=" + waypoints
	}
	return mapsURL, nil
}

// SummaryText renders the downloadable plain-text summary. The template is
// fixed; clients diff it, so changes break golden files.
func SummaryText(result *models.OptimizeResult) string {
	var b strings.Builder

	b.WriteString("EV Route Optimization Results\n")
	b.WriteString("================================\n\n")
	fmt.Fprintf(&b, "Algorithm: %s\n", AlgorithmName(result.Algorithm))
	fmt.Fprintf(&b, "Total Distance: %s km\n", formatNumber(result.TotalDistance))
	fmt.Fprintf(&b, "Estimated Time: %s minutes\n", formatNumber(result.EstimatedTime))
	fmt.Fprintf(&b, "Effective Range: %s km\n\n", formatNumber(EffectiveRange(result)))
	b.WriteString("Optimized Route:\n")
	b.WriteString("================\n")

	for i, entry := range result.OptimizedRoute {
		address := entry.Address
		if address == "" {
			address = "Not specified"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, stopName(entry, i))
		fmt.Fprintf(&b, "   Address: %s\n\n", address)
	}

	return b.String()
}

// SummaryFilename names the downloaded summary after the given date.
func SummaryFilename(t time.Time) string {
	return fmt.Sprintf("route-optimization-%s.txt", t.Format("2006-01-02"))
}

// ShareText renders the one-line share string.
func ShareText(result *models.OptimizeResult) string {
	return fmt.Sprintf(
		"EV Route Optimization Results:\nDistance: %s km | Time: %s min | Algorithm: %s",
		formatNumber(result.TotalDistance),
		formatNumber(result.EstimatedTime),
		AlgorithmName(result.Algorithm),
	)
}
