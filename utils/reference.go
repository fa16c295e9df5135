package utils

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const referencePrefix = "PHM"

// GenerateOrderReference returns a human-legible, globally-unique order
// reference used as the cross-gateway correlation key, e.g.
// PHM-LX2K9A0B-4F7C21. It is generated once per order and stays stable
// across retries of the same logical payment.
func GenerateOrderReference() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand failing is unrecoverable in practice; fall back to a
		// time-derived suffix so reference generation never blocks a payment.
		return fmt.Sprintf("%s-%s-%06X", referencePrefix, ts, time.Now().UnixNano()&0xFFFFFF)
	}
	return fmt.Sprintf("%s-%s-%02X%02X%02X", referencePrefix, ts, suffix[0], suffix[1], suffix[2])
}

// IsOrderReference reports whether s looks like a reference produced by
// GenerateOrderReference.
func IsOrderReference(s string) bool {
	return strings.HasPrefix(s, referencePrefix+"-") && strings.Count(s, "-") == 2
}
