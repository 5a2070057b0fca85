package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateStellarScore(t *testing.T) {
	tests := []struct {
		name     string
		features StellarFeatures
		expected int
	}{
		{
			name:     "empty features score zero",
			features: StellarFeatures{},
			expected: 0,
		},
		{
			name: "moderate account",
			features: StellarFeatures{
				AccountAgeDays:   100,
				TransactionCount: 120,
				Balance:          12.5,
				AssetDiversity:   1,
			},
			// 200 (age capped) + 60 + 125 + 25
			expected: 410,
		},
		{
			name: "every term at its ceiling clamps to the sub-score cap",
			features: StellarFeatures{
				AccountAgeDays:   10000,
				TransactionCount: 10000,
				Balance:          10000,
				AssetDiversity:   10,
			},
			// 200 + 100 + 150 + 250 = 700, clamped
			expected: 550,
		},
		{
			name: "fractional terms truncate once after summing",
			features: StellarFeatures{
				AccountAgeDays:   1,
				TransactionCount: 1,
				Balance:          0.05,
				AssetDiversity:   0,
			},
			// 2 + 0.5 + 0.5 = 3.0, not 2 from per-term truncation
			expected: 3,
		},
		{
			name: "diversity term has no per-term cap",
			features: StellarFeatures{
				AssetDiversity: 8,
			},
			expected: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateStellarScore(tt.features))
		})
	}
}

func TestCalculateEthereumScore(t *testing.T) {
	tests := []struct {
		name     string
		features EthereumFeatures
		expected int
	}{
		{
			name:     "no history scores zero regardless of other fields",
			features: EthereumFeatures{HasHistory: false, AccountAgeDays: 500, Balance: 100, TransactionCount: 100},
			expected: 0,
		},
		{
			name: "young active account",
			features: EthereumFeatures{
				HasHistory:       true,
				AccountAgeDays:   30,
				Balance:          4,
				TransactionCount: 10,
			},
			// 150 + 8 + 3
			expected: 161,
		},
		{
			name: "major longevity bonus above one year",
			features: EthereumFeatures{
				HasHistory:     true,
				AccountAgeDays: 366,
			},
			// age term capped at 300, +200 bonus, clamped to 400
			expected: 400,
		},
		{
			name: "minor longevity bonus above six months",
			features: EthereumFeatures{
				HasHistory:     true,
				AccountAgeDays: 200,
			},
			// 200*5 capped at 300, +100 bonus
			expected: 400,
		},
		{
			name: "exactly 365 days earns only the minor bonus",
			features: EthereumFeatures{
				HasHistory:     true,
				AccountAgeDays: 365,
			},
			expected: 400,
		},
		{
			name: "exactly 180 days earns no bonus",
			features: EthereumFeatures{
				HasHistory:     true,
				AccountAgeDays: 180,
			},
			// 180*5 capped at 300, no bonus
			expected: 300,
		},
		{
			name: "no bonus below the minor threshold",
			features: EthereumFeatures{
				HasHistory:     true,
				AccountAgeDays: 100,
			},
			expected: 300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateEthereumScore(tt.features))
		})
	}
}

func TestCalculateSocialScore(t *testing.T) {
	tests := []struct {
		name     string
		stellar  StellarFeatures
		ethereum EthereumFeatures
		expected int
	}{
		{
			name:     "no signals",
			stellar:  StellarFeatures{},
			ethereum: EthereumFeatures{},
			expected: 0,
		},
		{
			name:     "active stellar trader",
			stellar:  StellarFeatures{TransactionCount: 51},
			expected: 50,
		},
		{
			name:     "exactly at the tx threshold does not qualify",
			stellar:  StellarFeatures{TransactionCount: 50},
			expected: 0,
		},
		{
			name:     "healthy stellar balance",
			stellar:  StellarFeatures{Balance: 100.5},
			expected: 50,
		},
		{
			name:     "ethereum longevity requires history",
			ethereum: EthereumFeatures{HasHistory: false, AccountAgeDays: 400},
			expected: 0,
		},
		{
			name:     "all three rules fire",
			stellar:  StellarFeatures{TransactionCount: 60, Balance: 150},
			ethereum: EthereumFeatures{HasHistory: true, AccountAgeDays: 400},
			expected: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateSocialScore(tt.stellar, tt.ethereum))
		})
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		stellar  StellarFeatures
		ethereum EthereumFeatures
		expected ScoreComponents
	}{
		{
			name:     "empty inputs",
			expected: ScoreComponents{},
		},
		{
			name: "seasoned stellar wallet without an ethereum side",
			stellar: StellarFeatures{
				AccountAgeDays:   400,
				TransactionCount: 120,
				Balance:          50,
				AssetDiversity:   2,
			},
			// stellar: 200 + 60 + 150 + 50 = 460; social: tx>50 = 50
			expected: ScoreComponents{Total: 510, Stellar: 460, Ethereum: 0, Social: 50},
		},
		{
			name: "stellar-only wallet with a social bonus",
			stellar: StellarFeatures{
				AccountAgeDays:   120,
				TransactionCount: 80,
				Balance:          15,
				AssetDiversity:   2,
			},
			// stellar: 200 + 40 + 150 + 50 = 440; social: tx>50 = 50
			expected: ScoreComponents{Total: 490, Stellar: 440, Ethereum: 0, Social: 50},
		},
		{
			name: "cross-chain wallet sums all components",
			stellar: StellarFeatures{
				AccountAgeDays:   200,
				TransactionCount: 100,
				Balance:          120,
				AssetDiversity:   0,
			},
			ethereum: EthereumFeatures{
				HasHistory:       true,
				AccountAgeDays:   400,
				Balance:          10,
				TransactionCount: 50,
			},
			// stellar: 200+50+150 = 400; ethereum: 300+20+15+200 clamped 400;
			// social: 50+50+100 = 200
			expected: ScoreComponents{Total: 1000, Stellar: 400, Ethereum: 400, Social: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(tt.stellar, tt.ethereum)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCalculateTotalNeverExceedsBound(t *testing.T) {
	stellar := StellarFeatures{
		AccountAgeDays:   1 << 40,
		TransactionCount: 1 << 40,
		Balance:          1e12,
		AssetDiversity:   1000,
	}
	ethereum := EthereumFeatures{
		HasHistory:       true,
		AccountAgeDays:   1 << 40,
		Balance:          1e12,
		TransactionCount: 1 << 40,
	}

	result := Calculate(stellar, ethereum)

	// Every sub-score saturates its cap, the caps sum to 1150, and the
	// total clamps to the ceiling rather than reporting the raw sum.
	assert.Equal(t, 550, result.Stellar)
	assert.Equal(t, 400, result.Ethereum)
	assert.Equal(t, 200, result.Social)
	assert.Equal(t, 1000, result.Total)
}
