// Package rules contains the pure calculation logic for the economy.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import "math"

// Mastery bounds in percent.
const (
	MasteryFloor = 20.0
	MasteryKink  = 100.0
	MasteryCap   = 200.0
)

// Mastery maps allocated computing onto a mastery percentage.
// The curve is linear from 20 to 100 up to max100, then linear from 100 to 200 up to max200,
// and clamped to [20, 200]. When max200 == max100 the second segment saturates immediately.
func Mastery(allocated, max100, max200 float64) float64 {
	if allocated <= 0 || math.IsNaN(allocated) {
		return MasteryFloor
	}
	if max100 <= 0 {
		// No first segment to climb: any positive allocation is past the kink.
		return clampMastery(MasteryKink + secondSegment(allocated, 0, max200))
	}
	if allocated <= max100 {
		return clampMastery(MasteryFloor + allocated/max100*(MasteryKink-MasteryFloor))
	}
	return clampMastery(MasteryKink + secondSegment(allocated, max100, max200))
}

func secondSegment(allocated, max100, max200 float64) float64 {
	span := max200 - max100
	if span <= 0 {
		return MasteryCap - MasteryKink
	}
	return math.Min(MasteryCap-MasteryKink, (allocated-max100)/span*(MasteryCap-MasteryKink))
}

func clampMastery(v float64) float64 {
	return math.Max(MasteryFloor, math.Min(MasteryCap, v))
}

// DownloadSeconds returns how long a file of sizeGB takes over bandwidthMbps.
// A non-positive bandwidth never finishes.
func DownloadSeconds(sizeGB, bandwidthMbps float64) float64 {
	if sizeGB <= 0 {
		return 0
	}
	if bandwidthMbps <= 0 {
		return math.Inf(1)
	}
	return sizeGB * 1024 * 8 / bandwidthMbps
}
