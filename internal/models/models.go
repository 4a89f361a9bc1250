package models

import "time"

// Theme is the two-valued UI theme choice.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is one of the two known themes.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Glyph returns the toggle-button glyph shown for the theme:
// the moon while light is active, the sun while dark is active.
func (t Theme) Glyph() string {
	if t == ThemeDark {
		return "☀️"
	}
	return "🌙"
}

// Session is the authenticated vehicle identity, persisted after a
// successful login and cleared on logout.
type Session struct {
	VehicleNumber   string  `json:"vehicle_number"`
	Company         string  `json:"company,omitempty"`
	Model           string  `json:"model,omitempty"`
	Year            int     `json:"year,omitempty"`
	BatteryCapacity float64 `json:"battery_capacity"`
	VehicleRange    float64 `json:"vehicle_range"`
}

// VehicleSpecs are the catalog specs for a (company, model) pair.
type VehicleSpecs struct {
	BatteryCapacity float64 `json:"battery_capacity"` // kWh
	Range           float64 `json:"range"`            // km
}

// Catalog maps company -> model -> specs.
type Catalog map[string]map[string]VehicleSpecs

// CustomerEntry is one delivery stop. Order is significant: it defines
// the visit sequence before optimization and the authoritative sequence
// after.
type CustomerEntry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Complete reports whether the entry qualifies for submission.
func (e CustomerEntry) Complete() bool {
	return e.Name != "" && e.Address != ""
}

// RuntimeParams are the user-entered conditions for one optimization run.
type RuntimeParams struct {
	BatteryPercentage float64 `json:"battery_percentage"`
	Temperature       float64 `json:"temperature"`
	LoadCarry         float64 `json:"load_carry"` // kg
}

// OptimizeRequest is the payload sent to the remote optimization API.
// The algorithm code is passed through verbatim; unknown codes are the
// server's problem to reject.
type OptimizeRequest struct {
	VehicleNumber     string          `json:"vehicle_number"`
	Algorithm         string          `json:"algorithm"`
	CustomerData      []CustomerEntry `json:"customer_data"`
	BatteryPercentage float64         `json:"battery_percentage"`
	Temperature       float64         `json:"temperature"`
	LoadCarry         float64         `json:"load_carry"`
	VehicleRange      float64         `json:"vehicle_range"`
}

// OptimizeResult is the raw server response, persisted wholesale as the
// hand-off artifact to the results view. EffectiveRange is optional; the
// renderer derives it when absent.
type OptimizeResult struct {
	RouteID        int64           `json:"route_id,omitempty"`
	Algorithm      string          `json:"algorithm,omitempty"`
	OptimizedRoute []CustomerEntry `json:"optimized_route"`
	TotalDistance  float64         `json:"total_distance"`  // km
	EstimatedTime  float64         `json:"estimated_time"`  // min
	EffectiveRange *float64        `json:"effective_range,omitempty"` // km
}

// RouteRecord is one archived optimization result for a vehicle.
type RouteRecord struct {
	ID            int64          `json:"id"`
	VehicleNumber string         `json:"vehicle_number"`
	Result        OptimizeResult `json:"result"`
	CreatedAt     time.Time      `json:"created_at"`
}
