package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clave/pkg/domain-errors"
)

func measuresOf(t *testing.T, level AlertLevel) []string {
	t.Helper()
	measures, err := MeasuresFor(level)
	require.NoError(t, err)
	require.NotEmpty(t, measures)
	return measures
}

func TestGreenIsBaselineOnly(t *testing.T) {
	green := measuresOf(t, LevelGreen)
	assert.Len(t, green, 1)

	// Green's baseline appears in no other level's list.
	for _, level := range []AlertLevel{LevelYellow, LevelOrange, LevelRed} {
		assert.NotContains(t, measuresOf(t, level), green[0], "level %s", level)
	}
}

func TestEscalatedLevelsShareTheCommonBlock(t *testing.T) {
	for _, level := range []AlertLevel{LevelYellow, LevelOrange, LevelRed} {
		measures := measuresOf(t, level)
		require.GreaterOrEqual(t, len(measures), len(sharedEscalationMeasures))
		assert.Equal(t, sharedEscalationMeasures, measures[:len(sharedEscalationMeasures)], "level %s", level)
	}
}

func TestCumulativeSizesGrowWithSeverity(t *testing.T) {
	yellow := measuresOf(t, LevelYellow)
	orange := measuresOf(t, LevelOrange)
	red := measuresOf(t, LevelRed)

	assert.Greater(t, len(orange), len(yellow))
	assert.Greater(t, len(red), len(orange))
}

func TestLocalContingencyClosesEveryEscalatedList(t *testing.T) {
	for _, level := range []AlertLevel{LevelYellow, LevelOrange, LevelRed} {
		measures := measuresOf(t, level)
		last := measures[len(measures)-1]
		assert.Equal(t, localContingencyMeasures[level], last, "level %s", level)
	}

	green := measuresOf(t, LevelGreen)
	assert.NotContains(t, green[len(green)-1], "contingencia")
}

func TestMeasuresForReturnsFreshSlices(t *testing.T) {
	a := measuresOf(t, LevelRed)
	a[0] = "mutated"
	b := measuresOf(t, LevelRed)
	assert.NotEqual(t, a[0], b[0])
}

func TestReevaluationNotes(t *testing.T) {
	for _, level := range []AlertLevel{LevelGreen, LevelYellow} {
		note, err := ReevaluationNoteFor(level)
		require.NoError(t, err)
		assert.Contains(t, note, "08:00 y 20:00")
	}
	for _, level := range []AlertLevel{LevelOrange, LevelRed} {
		note, err := ReevaluationNoteFor(level)
		require.NoError(t, err)
		assert.Contains(t, note, "4 horas")
	}

	orange, err := ReevaluationNoteFor(LevelOrange)
	require.NoError(t, err)
	assert.Contains(t, orange, "elevar la alerta")

	red, err := ReevaluationNoteFor(LevelRed)
	require.NoError(t, err)
	assert.Contains(t, red, "desescalar")
}

func TestUnknownLevelRejected(t *testing.T) {
	_, err := MeasuresFor("Purple")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ReevaluationNoteFor("verde")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
