package ledger

import "fmt"

// meteredRates holds credits per 1000 source units, scaled by 1000 to keep the arithmetic integral.
var meteredRates = map[SourceType]int64{
	SourceTranscriber:    1000,
	SourceExtractor:      800,
	SourceTopicGenerator: 500,
	SourceTopicRanker:    250,
}

const (
	rateScale          int64 = 1000
	unitsPerSourceUnit int64 = 1000
	maxRawUsage        int64 = 1 << 40
)

// Charge is the priced form of a raw usage figure.
type Charge struct {
	SourceAmount float64
	SourceUnit   string
	Credits      Credits
}

// RateFor returns the credits charged per 1000 units of sourceType.
func RateFor(sourceType SourceType) (float64, bool) {
	scaled, ok := meteredRates[sourceType]
	if !ok {
		return 0, false
	}
	return float64(scaled) / float64(rateScale), true
}

// PriceUsage converts raw usage into credits: max(1, ceil(rawUsage/1000 * rate)).
func PriceUsage(rawUsage int64, sourceType SourceType) (Charge, error) {
	if rawUsage <= 0 {
		return Charge{}, fmt.Errorf("%w: usage must be greater than zero", ErrInvalidUsage)
	}
	if rawUsage > maxRawUsage {
		return Charge{}, fmt.Errorf("%w: usage exceeds %d", ErrInvalidUsage, maxRawUsage)
	}
	scaledRate, ok := meteredRates[sourceType]
	if !ok {
		return Charge{}, fmt.Errorf("%w: %q", ErrNotMeteredSource, sourceType)
	}
	divisor := unitsPerSourceUnit * rateScale
	credits := (rawUsage*scaledRate + divisor - 1) / divisor
	if credits < 1 {
		credits = 1
	}
	return Charge{
		SourceAmount: float64(rawUsage) / float64(unitsPerSourceUnit),
		SourceUnit:   meteredUnit,
		Credits:      Credits(credits),
	}, nil
}
