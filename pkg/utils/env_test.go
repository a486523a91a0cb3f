package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("DV_STR", "value")
	t.Setenv("DV_INT", "42")
	t.Setenv("DV_BAD_INT", "-3")
	t.Setenv("DV_DUR", "1m30s")
	t.Setenv("DV_BAD_DUR", "soon")

	assert.Equal(t, "value", Env("DV_STR", "def"))
	assert.Equal(t, "def", Env("DV_MISSING", "def"))
	assert.Equal(t, 42, EnvInt("DV_INT", 7))
	assert.Equal(t, 7, EnvInt("DV_BAD_INT", 7))
	assert.Equal(t, 90*time.Second, EnvDuration("DV_DUR", time.Second))
	assert.Equal(t, time.Second, EnvDuration("DV_BAD_DUR", time.Second))
}
