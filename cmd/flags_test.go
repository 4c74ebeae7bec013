package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMeasurement(t *testing.T) {
	m, err := parseMeasurement("attacker")
	assert.NoError(t, err)
	assert.Equal(t, MeasureAttacker, m)

	_, err = parseMeasurement("bogus")
	assert.Error(t, err)
}

func TestParseVictim(t *testing.T) {
	v, err := parseVictim("binary")
	assert.NoError(t, err)
	assert.Equal(t, VictimBinary, v)

	_, err = parseVictim("bogus")
	assert.Error(t, err)
}

func TestParseAttackerKind(t *testing.T) {
	_, err := parseAttackerKind("occupancy")
	assert.NoError(t, err)
	_, err = parseAttackerKind("bogus")
	assert.Error(t, err)
}

func TestParseEfficacyMode(t *testing.T) {
	_, err := parseEfficacyMode("heatmap")
	assert.NoError(t, err)
	_, err = parseEfficacyMode("bogus")
	assert.Error(t, err)
}

func TestParseProbeFlag(t *testing.T) {
	_, err := parseProbeFlag("last")
	assert.NoError(t, err)
	_, err = parseProbeFlag("bogus")
	assert.Error(t, err)
}

func TestParseAccessFlag(t *testing.T) {
	_, err := parseAccessFlag("fifteen")
	assert.NoError(t, err)
	_, err = parseAccessFlag("bogus")
	assert.Error(t, err)
}

func TestParseNoiseFlag(t *testing.T) {
	_, err := parseNoiseFlag("same")
	assert.NoError(t, err)
	_, err = parseNoiseFlag("bogus")
	assert.Error(t, err)
}
