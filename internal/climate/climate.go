// Package climate derives display values from stored sensor readings.
package climate

import (
	"fmt"
	"math"
	"time"
)

// BatteryStatus is a coarse battery level classification.
type BatteryStatus string

const (
	BatteryEmpty         BatteryStatus = "empty"
	BatteryLow           BatteryStatus = "low"
	BatteryQuarter       BatteryStatus = "quarter"
	BatteryHalf          BatteryStatus = "half"
	BatteryThreeQuarters BatteryStatus = "threeQuarters"
	BatteryFull          BatteryStatus = "full"
)

// Battery thresholds in percent.
const (
	ThresholdEmpty         = 5
	ThresholdLow           = 15
	ThresholdQuarter       = 35
	ThresholdHalf          = 65
	ThresholdThreeQuarters = 85
)

// DefaultStaleThreshold is how old a reading can be before it's considered stale.
const DefaultStaleThreshold = 10 * time.Minute

// Celsius converts the raw temperature (0.01 °C) to degrees.
func Celsius(raw uint16) float64 {
	// Negative temperatures arrive two's complement.
	return float64(int16(raw)) / 100
}

// RelativeHumidity converts the raw humidity (0.01 %) to percent.
func RelativeHumidity(raw uint16) float64 {
	return float64(raw) / 100
}

// DewPoint returns the dew point in °C using the Magnus formula, with
// the over-ice constants below freezing. Result is rounded to 0.1.
func DewPoint(humidity, temp float64) float64 {
	c1, c2 := 241.2, 17.5043
	if temp < 0 {
		c1, c2 = 272.186, 22.4433
	}

	h := math.Log(humidity / 100)
	t := temp / (c1 + temp)
	point := (c1*h + c1*c2*t) / (c2 - h - c2*t)
	return round1(point)
}

// DewPointLabel names what DewPoint means at temp.
func DewPointLabel(temp float64) string {
	if temp < 0 {
		return "Freezing point"
	}
	return "Dew point"
}

// AbsoluteHumidity returns the water content of the air in g/m³, rounded to 0.1.
func AbsoluteHumidity(humidity, temp float64) float64 {
	abs := 13.2471 * math.Exp(17.67*temp/(temp+243.5)) * humidity / (273.15 + temp)
	return round1(abs)
}

// ClassifyBattery determines the battery status for a level in percent.
func ClassifyBattery(percent uint8) BatteryStatus {
	switch {
	case percent < ThresholdEmpty:
		return BatteryEmpty
	case percent < ThresholdLow:
		return BatteryLow
	case percent < ThresholdQuarter:
		return BatteryQuarter
	case percent < ThresholdHalf:
		return BatteryHalf
	case percent < ThresholdThreeQuarters:
		return BatteryThreeQuarters
	default:
		return BatteryFull
	}
}

// RelativeAge describes how long ago ts was, relative to now.
func RelativeAge(now, ts time.Time) string {
	diff := now.Sub(ts)
	minutes := int64(diff / time.Minute)
	hours := int64(diff / time.Hour)
	days := hours / 24

	switch {
	case diff < time.Minute:
		return "Up to date"
	case diff < time.Hour:
		return fmt.Sprintf("%d Minute%s ago", minutes, plural(minutes))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d Hour%s ago", hours, plural(hours))
	default:
		return fmt.Sprintf("%d Day%s", days, plural(days))
	}
}

// IsStale checks if ts is older than threshold at now.
func IsStale(now, ts time.Time, threshold time.Duration) bool {
	return now.Sub(ts) >= threshold
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
