package forecast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// ValidationError describes a rejected parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

var parameterFields = []string{
	"current_stock",
	"usage_per_hour",
	"incoming_supply",
	"supply_arrival_time",
	"forecast_duration",
}

// ParseParameters decodes a flat JSON object of integers. Missing keys,
// strings, fractions and negative numbers are rejected rather than coerced.
func ParseParameters(data []byte) (Parameters, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Parameters{}, &ValidationError{Field: "body", Message: "must be a JSON object"}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Parameters{}, &ValidationError{Field: "body", Message: "must contain a single JSON object"}
	}
	values := make(map[string]int, len(parameterFields))
	for _, field := range parameterFields {
		v, ok := raw[field]
		if !ok {
			return Parameters{}, &ValidationError{Field: field, Message: "is required"}
		}
		n, err := toInt(field, v)
		if err != nil {
			return Parameters{}, err
		}
		values[field] = n
	}
	p := Parameters{
		CurrentStock:      values["current_stock"],
		UsagePerHour:      values["usage_per_hour"],
		IncomingSupply:    values["incoming_supply"],
		SupplyArrivalTime: values["supply_arrival_time"],
		ForecastDuration:  values["forecast_duration"],
	}
	return p, p.Validate()
}

func toInt(field string, v any) (int, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, &ValidationError{Field: field, Message: "must be an integer"}
	}
	if i, err := num.Int64(); err == nil {
		if i > math.MaxInt32 || i < math.MinInt32 {
			return 0, &ValidationError{Field: field, Message: "is out of range"}
		}
		return int(i), nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, &ValidationError{Field: field, Message: "must be an integer"}
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, &ValidationError{Field: field, Message: "is out of range"}
	}
	return int(f), nil
}

// Validate enforces the non-negative precondition.
func (p Parameters) Validate() error {
	checks := []struct {
		field string
		value int
	}{
		{"current_stock", p.CurrentStock},
		{"usage_per_hour", p.UsagePerHour},
		{"incoming_supply", p.IncomingSupply},
		{"supply_arrival_time", p.SupplyArrivalTime},
		{"forecast_duration", p.ForecastDuration},
	}
	for _, c := range checks {
		if c.value < 0 {
			return &ValidationError{Field: c.field, Message: "must be non-negative"}
		}
	}
	return nil
}

// maxPreallocPoints caps the up-front series allocation; depletion usually
// ends the walk long before the requested horizon.
const maxPreallocPoints = 1024

// Simulate walks hours 0..ForecastDuration. Supply arriving in an hour is added
// before that hour's usage is subtracted; stock is clamped at zero and the walk
// stops at the first hour that ends empty.
func Simulate(p Parameters, lowThreshold int) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{
		Points:       make([]Point, 0, min(p.ForecastDuration+1, maxPreallocPoints)),
		LowThreshold: lowThreshold,
	}
	stock := p.CurrentStock
	for hour := 0; hour <= p.ForecastDuration; hour++ {
		if hour == p.SupplyArrivalTime {
			stock += p.IncomingSupply
		}
		stock -= p.UsagePerHour
		if stock < 0 {
			stock = 0
		}
		res.Points = append(res.Points, Point{Hour: hour, Stock: stock, Alert: stock <= lowThreshold})
		if stock == 0 {
			runOut := len(res.Points) - 1
			res.RunOutHour = &runOut
			break
		}
	}
	return res, nil
}
