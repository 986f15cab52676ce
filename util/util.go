// Package util contains misc internal utilities.
package util

// Limiter is a software limit on a position, inclusive at both ends
type Limiter struct {
	Min float64 `json:"min" yaml:"Min" koanf:"Min"`
	Max float64 `json:"max" yaml:"Max" koanf:"Max"`
}

// Check returns true if f is within the limits
func (l Limiter) Check(f float64) bool {
	return f >= l.Min && f <= l.Max
}
