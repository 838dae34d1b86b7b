package forecast

// Parameters drive one simulation. All values are non-negative integers.
type Parameters struct {
	CurrentStock      int `json:"current_stock"`
	UsagePerHour      int `json:"usage_per_hour"`
	IncomingSupply    int `json:"incoming_supply"`
	SupplyArrivalTime int `json:"supply_arrival_time"`
	ForecastDuration  int `json:"forecast_duration"`
}

// Point is one simulated hour.
type Point struct {
	Hour  int  `json:"hour"`
	Stock int  `json:"stock"`
	Alert bool `json:"alert"`
}

// Result is the recorded series. RunOutHour is nil when stock never hit zero.
type Result struct {
	Points       []Point
	RunOutHour   *int
	LowThreshold int
}

// Hours returns the hour index of every recorded point.
func (r Result) Hours() []int {
	out := make([]int, len(r.Points))
	for i, pt := range r.Points {
		out[i] = pt.Hour
	}
	return out
}

// StockLevels returns the stock of every recorded point.
func (r Result) StockLevels() []int {
	out := make([]int, len(r.Points))
	for i, pt := range r.Points {
		out[i] = pt.Stock
	}
	return out
}

// Alerts returns the per-hour low stock flags.
func (r Result) Alerts() []bool {
	out := make([]bool, len(r.Points))
	for i, pt := range r.Points {
		out[i] = pt.Alert
	}
	return out
}

// Response is serialized back to API consumers.
type Response struct {
	StockLevels  []int  `json:"stock_levels"`
	RunOutHour   *int   `json:"run_out_hour"`
	Alerts       []bool `json:"alerts"`
	LowThreshold int    `json:"low_threshold"`
	GraphBase64  string `json:"graph_base64"`
}

// Config holds runtime knobs for the forecast domain.
type Config struct {
	LowThreshold int
	// MaxDuration bounds forecast_duration. Zero selects DefaultMaxDuration.
	MaxDuration int
}

// DefaultMaxDuration is one year of hourly steps.
const DefaultMaxDuration = 24 * 365
