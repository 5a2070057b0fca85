package reputation

import "math"

var (
	maxTotalScore    = 1000
	maxStellarScore  = 550
	maxEthereumScore = 400
	maxSocialScore   = 200

	// Stellar term weights and per-term ceilings
	stellarAgeWeight       = 2.0
	stellarAgeCap          = 200.0
	stellarTxWeight        = 0.5
	stellarTxCap           = 100.0
	stellarBalanceWeight   = 10.0
	stellarBalanceCap      = 150.0
	stellarDiversityWeight = 25.0

	// Ethereum term weights and per-term ceilings
	ethereumAgeWeight     = 5.0
	ethereumAgeCap        = 300.0
	ethereumBalanceWeight = 2.0
	ethereumBalanceCap    = 200.0
	ethereumTxWeight      = 0.3
	ethereumTxCap         = 100.0

	// Longevity bonus thresholds (days) and amounts
	longevityMajorAge   = int64(365)
	longevityMajorBonus = 200
	longevityMinorAge   = int64(180)
	longevityMinorBonus = 100

	// Social rule thresholds
	socialTxThreshold      = int64(50)
	socialBalanceThreshold = 100.0
)

// ScoreComponents holds the bounded sub-scores and their clamped total.
// Invariant: Total = min(Stellar+Ethereum+Social, 1000).
type ScoreComponents struct {
	Total    int `json:"totalScore"`
	Stellar  int `json:"stellarScore"`
	Ethereum int `json:"ethereumScore"`
	Social   int `json:"socialScore"`
}

// Calculate turns the two feature records into bounded score components.
// Pure and deterministic; inputs are sanitized by the extractors, so this
// never fails.
func Calculate(stellar StellarFeatures, ethereum EthereumFeatures) ScoreComponents {
	stellarScore := calculateStellarScore(stellar)
	ethereumScore := calculateEthereumScore(ethereum)
	socialScore := calculateSocialScore(stellar, ethereum)

	// The sub-score caps sum to 1150, so a wallet saturating every
	// component still lands on the 1000 ceiling.
	total := stellarScore + ethereumScore + socialScore
	if total > maxTotalScore {
		total = maxTotalScore
	}

	return ScoreComponents{
		Total:    total,
		Stellar:  stellarScore,
		Ethereum: ethereumScore,
		Social:   socialScore,
	}
}

// calculateStellarScore sums the weighted terms as reals and truncates once
// at the end; truncation per term would drift from the reference values.
func calculateStellarScore(data StellarFeatures) int {
	ageScore := math.Min(float64(data.AccountAgeDays)*stellarAgeWeight, stellarAgeCap)
	txScore := math.Min(float64(data.TransactionCount)*stellarTxWeight, stellarTxCap)
	balanceScore := math.Min(data.Balance*stellarBalanceWeight, stellarBalanceCap)
	diversityScore := float64(data.AssetDiversity) * stellarDiversityWeight

	score := int(ageScore + txScore + balanceScore + diversityScore)
	if score > maxStellarScore {
		score = maxStellarScore
	}
	return score
}

func calculateEthereumScore(data EthereumFeatures) int {
	if !data.HasHistory {
		return 0
	}

	ageScore := math.Min(float64(data.AccountAgeDays)*ethereumAgeWeight, ethereumAgeCap)
	balanceScore := math.Min(data.Balance*ethereumBalanceWeight, ethereumBalanceCap)
	txScore := math.Min(float64(data.TransactionCount)*ethereumTxWeight, ethereumTxCap)

	score := int(ageScore + balanceScore + txScore)

	switch {
	case data.AccountAgeDays > longevityMajorAge:
		score += longevityMajorBonus
	case data.AccountAgeDays > longevityMinorAge:
		score += longevityMinorBonus
	}

	if score > maxEthereumScore {
		score = maxEthereumScore
	}
	return score
}

// calculateSocialScore applies independent cross-chain rules and sums them.
func calculateSocialScore(stellar StellarFeatures, ethereum EthereumFeatures) int {
	score := 0

	if stellar.TransactionCount > socialTxThreshold {
		score += 50
	}

	if stellar.Balance > socialBalanceThreshold {
		score += 50
	}

	if ethereum.HasHistory && ethereum.AccountAgeDays > longevityMajorAge {
		score += 100
	}

	if score > maxSocialScore {
		score = maxSocialScore
	}
	return score
}
