package utils

import "math"

// KoboPerNaira is the minor-unit factor for NGN.
const KoboPerNaira = 100

// NairaToKobo converts a major-unit naira amount to kobo, rounding to the
// nearest whole kobo. Gateways that bill in minor units consume this value.
func NairaToKobo(naira float64) int64 {
	return int64(math.Round(naira * KoboPerNaira))
}

// KoboToNaira converts a kobo amount back to major units.
func KoboToNaira(kobo int64) float64 {
	return float64(kobo) / KoboPerNaira
}
