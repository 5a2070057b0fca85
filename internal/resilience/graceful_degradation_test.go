package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SenErenn/StellaRep/internal/errors"
)

func TestDegradationLevelsFollowErrorRate(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService("horizon-api", nil)

	for i := 0; i < 10; i++ {
		dm.RecordRequest("horizon-api", true)
	}

	health, ok := dm.GetServiceHealth("horizon-api")
	require.True(t, ok)
	assert.Equal(t, LevelNormal, health.Level)
	assert.True(t, dm.IsServiceAvailable("horizon-api"))

	// Ten errors against ten successes crosses the 50% emergency threshold
	for i := 0; i < 10; i++ {
		dm.RecordError("horizon-api", errors.NewExternalAPIError("horizon", nil))
	}

	health, ok = dm.GetServiceHealth("horizon-api")
	require.True(t, ok)
	assert.Equal(t, LevelEmergency, health.Level)
	assert.False(t, dm.IsServiceAvailable("horizon-api"))
}

func TestDegradedLevelBelowCriticalThreshold(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService("etherscan-api", nil)

	// One error in ten requests sits exactly on the 10% degraded threshold
	for i := 0; i < 9; i++ {
		dm.RecordRequest("etherscan-api", true)
	}
	dm.RecordRequest("etherscan-api", false)

	health, ok := dm.GetServiceHealth("etherscan-api")
	require.True(t, ok)
	assert.Equal(t, LevelDegraded, health.Level)
	assert.True(t, dm.IsServiceAvailable("etherscan-api"))
}

func TestUnknownServiceIsUnavailable(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())

	assert.False(t, dm.IsServiceAvailable("never-registered"))

	_, ok := dm.GetServiceHealth("never-registered")
	assert.False(t, ok)
}
