package ar

import (
	"github.com/shopspring/decimal"
)

// AgingBucket classifies an outstanding invoice by days overdue.
// Bucket names carry over from the ledger's aging report and are
// unconventional: "current" already includes invoices up to 30 days
// overdue, and each "days_N" bucket starts past N days. The numeric
// thresholds are what matters for collections.
type AgingBucket string

const (
	// BucketCurrent covers 0 to 30 days overdue
	BucketCurrent AgingBucket = "current"
	// BucketDays30 covers 31 to 60 days overdue
	BucketDays30 AgingBucket = "days_30"
	// BucketDays60 covers 61 to 90 days overdue
	BucketDays60 AgingBucket = "days_60"
	// BucketDays90 covers 91 to 120 days overdue
	BucketDays90 AgingBucket = "days_90"
	// BucketDays120Plus covers everything past 120 days overdue
	BucketDays120Plus AgingBucket = "days_120_plus"
)

// AllAgingBuckets lists the buckets in ascending severity order
var AllAgingBuckets = []AgingBucket{
	BucketCurrent,
	BucketDays30,
	BucketDays60,
	BucketDays90,
	BucketDays120Plus,
}

// IsValid checks if the bucket is valid
func (b AgingBucket) IsValid() bool {
	switch b {
	case BucketCurrent, BucketDays30, BucketDays60, BucketDays90, BucketDays120Plus:
		return true
	}
	return false
}

// String returns the string representation
func (b AgingBucket) String() string {
	return string(b)
}

// BucketForDaysOverdue maps days overdue to its aging bucket.
// Negative inputs are treated as not overdue.
func BucketForDaysOverdue(days int) AgingBucket {
	switch {
	case days <= 30:
		return BucketCurrent
	case days <= 60:
		return BucketDays30
	case days <= 90:
		return BucketDays60
	case days <= 120:
		return BucketDays90
	default:
		return BucketDays120Plus
	}
}

// Risk weights per bucket, used for the weighted customer risk score
var bucketWeights = map[AgingBucket]decimal.Decimal{
	BucketCurrent:     decimal.NewFromInt(10),
	BucketDays30:      decimal.NewFromInt(30),
	BucketDays60:      decimal.NewFromInt(60),
	BucketDays90:      decimal.NewFromInt(80),
	BucketDays120Plus: decimal.NewFromInt(100),
}

// Weight returns the risk weight assigned to the bucket
func (b AgingBucket) Weight() decimal.Decimal {
	if w, ok := bucketWeights[b]; ok {
		return w
	}
	return decimal.Zero
}

// RiskBand groups customers by their weighted aging risk score
type RiskBand string

const (
	RiskBandLow      RiskBand = "low"
	RiskBandMedium   RiskBand = "medium"
	RiskBandHigh     RiskBand = "high"
	RiskBandCritical RiskBand = "critical"
)

// String returns the string representation
func (r RiskBand) String() string {
	return string(r)
}

// RiskBandForScore maps a weighted risk score to its band
func RiskBandForScore(score decimal.Decimal) RiskBand {
	switch {
	case score.LessThanOrEqual(decimal.NewFromInt(30)):
		return RiskBandLow
	case score.LessThanOrEqual(decimal.NewFromInt(60)):
		return RiskBandMedium
	case score.LessThanOrEqual(decimal.NewFromInt(80)):
		return RiskBandHigh
	default:
		return RiskBandCritical
	}
}

// BucketAmounts holds outstanding totals per aging bucket
type BucketAmounts map[AgingBucket]decimal.Decimal

// NewBucketAmounts returns a zeroed amount set over all buckets
func NewBucketAmounts() BucketAmounts {
	amounts := make(BucketAmounts, len(AllAgingBuckets))
	for _, b := range AllAgingBuckets {
		amounts[b] = decimal.Zero
	}
	return amounts
}

// Add accumulates an amount into a bucket
func (a BucketAmounts) Add(bucket AgingBucket, amount decimal.Decimal) {
	a[bucket] = a[bucket].Add(amount)
}

// Total returns the sum over all buckets
func (a BucketAmounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range a {
		total = total.Add(amount)
	}
	return total
}

// WeightedRiskScore computes the bucket-weighted risk score for a set of
// bucket amounts: sum of (bucket share of total) * (bucket weight).
// Returns zero when nothing is outstanding.
func WeightedRiskScore(amounts BucketAmounts) decimal.Decimal {
	total := amounts.Total()
	if !total.IsPositive() {
		return decimal.Zero
	}

	score := decimal.Zero
	for bucket, amount := range amounts {
		if amount.IsZero() {
			continue
		}
		share := amount.Div(total)
		score = score.Add(share.Mul(bucket.Weight()))
	}
	return score
}
