package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullable(t *testing.T) {
	comp := map[string]float64{"pm2_5": 8.2, "o3": 0}

	v := nullable(comp, "pm2_5")
	require.NotNil(t, v)
	assert.Equal(t, 8.2, *v)

	v = nullable(comp, "o3")
	require.NotNil(t, v, "present zero is stored, not nulled")
	assert.Equal(t, 0.0, *v)

	assert.Nil(t, nullable(comp, "nh3"), "absent component maps to NULL")
}

func TestNullableAQI(t *testing.T) {
	assert.Nil(t, nullableAQI(0), "AQI scale starts at 1; zero means unreported")

	v := nullableAQI(3)
	require.NotNil(t, v)
	assert.Equal(t, 3, *v)
}
