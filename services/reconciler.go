package services

import (
	"fmt"
	"math"
)

const (
	// amountTolerance absorbs floating rounding, not logic errors (major units).
	amountTolerance = 0.01

	// minorUnitFactor is the kobo-per-naira factor whose confusion produces
	// the classic 100x mismatch.
	minorUnitFactor = 100.0

	// factorBand is the fractional band around minorUnitFactor inside which
	// a mismatch is treated as a systematic unit error.
	factorBand = 0.02
)

// ReconcileResult is the outcome of one amount-consistency check.
type ReconcileResult struct {
	Valid     bool    `json:"valid"`
	Corrected bool    `json:"corrected"`
	Amount    float64 `json:"amount"` // authoritative amount in major units
	Ratio     float64 `json:"ratio"`
	Reason    string  `json:"reason,omitempty"`
}

// AmountReconciler validates a gateway-reported amount against the stored
// order total before a payment may settle. Pure logic, no I/O.
type AmountReconciler struct{}

func NewAmountReconciler() *AmountReconciler {
	return &AmountReconciler{}
}

// Reconcile compares the order total with the gateway-reported amount.
// A ratio near the minor-unit factor is treated as a kobo/naira mix-up: the
// order total is authoritative, and the caller must write an audit record
// because the correction is provisional. Only the 100x factor on the high
// side is auto-corrected; every other discrepancy is invalid and settlement
// must be refused.
func (r *AmountReconciler) Reconcile(orderTotal, recordedAmount, gatewayAmount float64, currency string) ReconcileResult {
	if orderTotal <= 0 {
		return ReconcileResult{
			Valid:  false,
			Amount: orderTotal,
			Reason: "order total must be positive",
		}
	}

	ratio := gatewayAmount / orderTotal
	result := ReconcileResult{Amount: orderTotal, Ratio: ratio}

	if math.Abs(gatewayAmount-orderTotal) <= amountTolerance {
		result.Valid = true
		if math.Abs(recordedAmount-orderTotal) > amountTolerance {
			result.Reason = fmt.Sprintf("recorded payment amount %.2f differs from order total %.2f", recordedAmount, orderTotal)
		}
		return result
	}

	// The gateway (or a caller) reported minor units where major units were
	// expected. Currencies without a minor-unit wire convention skip this.
	if currency == "NGN" && ratio >= minorUnitFactor*(1-factorBand) && ratio <= minorUnitFactor*(1+factorBand) {
		result.Valid = true
		result.Corrected = true
		result.Reason = fmt.Sprintf("gateway amount %.2f looks like minor units of order total %.2f (ratio %.2f); order total taken as authoritative", gatewayAmount, orderTotal, ratio)
		return result
	}

	result.Valid = false
	result.Reason = fmt.Sprintf("gateway reported %.2f but order total is %.2f (ratio %.4f); not within tolerance and not a known unit factor", gatewayAmount, orderTotal, ratio)
	return result
}
