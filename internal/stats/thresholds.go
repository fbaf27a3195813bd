package stats

// Classification thresholds shared by every analytics component.
const (
	// TrendDeadbandPercent is the exclusive bound of the Stable band.
	TrendDeadbandPercent = 10.0

	// OutlierMediumSigma and OutlierHighSigma are the standard-deviation
	// multiples above the mean at which an expense is flagged.
	OutlierMediumSigma = 2.0
	OutlierHighSigma   = 3.0

	// BudgetRoundingStep is the currency increment budget figures are rounded up to.
	BudgetRoundingStep = 1000.0
)
