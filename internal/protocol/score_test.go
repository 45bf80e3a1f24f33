package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clave/pkg/domain-errors"
)

func TestScoreScenarios(t *testing.T) {
	tests := []struct {
		name       string
		in         Input
		wantScore  int
		wantLevel  AlertLevel
		wantForced bool
	}{
		{
			name:      "all quiet is green",
			in:        Input{Scenario: ScenarioReducedCapacity, CriticalProtocol: CriticalNone},
			wantScore: 0,
			wantLevel: LevelGreen,
		},
		{
			name: "reduced capacity hospitalization alone reaches yellow",
			in: Input{
				Scenario:             ScenarioReducedCapacity,
				HospitalizedPatients: 60,
				CriticalProtocol:     CriticalNone,
			},
			wantScore: 3,
			wantLevel: LevelYellow,
		},
		{
			name: "SAR crisis forces red over a yellow score",
			in: Input{
				Scenario:             ScenarioReducedCapacity,
				HospitalizedPatients: 60,
				CriticalProtocol:     CriticalNone,
				SARActive:            true,
				SARPatients:          8,
			},
			wantScore:  10,
			wantLevel:  LevelRed,
			wantForced: true,
		},
		{
			name: "full capacity everything elevated reaches red without forcing",
			in: Input{
				Scenario:              ScenarioFullCapacity,
				HospitalizedPatients:  65,
				ESIC2Patients:         30,
				CriticalProtocol:      CriticalRed,
				Waiting72hPatients:    12,
				ResuscitationPatients: 6,
			},
			wantScore: 11,
			wantLevel: LevelRed,
		},
		{
			name: "resuscitation top tier forces red on its own",
			in: Input{
				Scenario:              ScenarioFullCapacity,
				ResuscitationPatients: 10,
				CriticalProtocol:      CriticalNone,
			},
			wantScore:  7,
			wantLevel:  LevelRed,
			wantForced: true,
		},
		{
			name: "mid resuscitation tier scores without forcing",
			in: Input{
				Scenario:              ScenarioReducedCapacity,
				ResuscitationPatients: 6,
				CriticalProtocol:      CriticalNone,
			},
			wantScore: 5,
			wantLevel: LevelOrange,
		},
		{
			name: "SAR below its lowest tier contributes nothing",
			in: Input{
				Scenario:         ScenarioFullCapacity,
				SARActive:        true,
				SARPatients:      7,
				CriticalProtocol: CriticalNone,
			},
			wantScore: 0,
			wantLevel: LevelGreen,
		},
		{
			name: "critical yellow plus wait backlog lands on yellow",
			in: Input{
				Scenario:           ScenarioFullCapacity,
				CriticalProtocol:   CriticalYellow,
				Waiting72hPatients: 6,
			},
			wantScore: 2,
			wantLevel: LevelYellow,
		},
		{
			name: "orange band lower bound",
			in: Input{
				Scenario:             ScenarioReducedCapacity,
				HospitalizedPatients: 60,
				CriticalProtocol:     CriticalYellow,
			},
			wantScore: 4,
			wantLevel: LevelOrange,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantScore, got.Score)
			assert.Equal(t, tc.wantLevel, got.Level)
			assert.Equal(t, tc.wantForced, got.ForcedEscalation)
		})
	}
}

func TestScoreRejectsUnknownTags(t *testing.T) {
	_, err := Score(Input{Scenario: "capacidad_reducida", CriticalProtocol: CriticalNone})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = Score(Input{Scenario: ScenarioFullCapacity, CriticalProtocol: "roja"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

// While SAR is active the resuscitation-bay count must not move the score.
func TestSARSuppressesResuscitationCount(t *testing.T) {
	for _, scenario := range []Scenario{ScenarioReducedCapacity, ScenarioFullCapacity} {
		base := Input{
			Scenario:         scenario,
			CriticalProtocol: CriticalNone,
			SARActive:        true,
			SARPatients:      6,
		}
		ref, err := Score(base)
		require.NoError(t, err)

		for _, rea := range []int{0, 4, 6, 8, 10, 50} {
			in := base
			in.ResuscitationPatients = rea
			got, err := Score(in)
			require.NoError(t, err)
			assert.Equal(t, ref, got, "scenario %s resuscitation %d", scenario, rea)
		}
	}
}

func TestForcedEscalationAlwaysRed(t *testing.T) {
	inputs := []Input{
		{Scenario: ScenarioReducedCapacity, CriticalProtocol: CriticalNone, SARActive: true, SARPatients: 8},
		{Scenario: ScenarioFullCapacity, CriticalProtocol: CriticalNone, SARActive: true, SARPatients: 10},
		{Scenario: ScenarioReducedCapacity, CriticalProtocol: CriticalNone, ResuscitationPatients: 8},
		{Scenario: ScenarioFullCapacity, CriticalProtocol: CriticalNone, ResuscitationPatients: 10},
	}
	for _, in := range inputs {
		got, err := Score(in)
		require.NoError(t, err)
		require.True(t, got.ForcedEscalation)
		assert.Equal(t, LevelRed, got.Level)
	}
}

// Raising any single count while holding the rest fixed never lowers the score.
func TestScoreMonotonicity(t *testing.T) {
	base := Input{
		Scenario:              ScenarioReducedCapacity,
		HospitalizedPatients:  52,
		ESIC2Patients:         10,
		ResuscitationPatients: 3,
		CriticalProtocol:      CriticalNone,
		Waiting72hPatients:    4,
	}

	bump := []func(Input, int) Input{
		func(in Input, v int) Input { in.HospitalizedPatients = v; return in },
		func(in Input, v int) Input { in.ESIC2Patients = v; return in },
		func(in Input, v int) Input { in.ResuscitationPatients = v; return in },
		func(in Input, v int) Input { in.Waiting72hPatients = v; return in },
	}

	for i, apply := range bump {
		prev := -1
		for v := 0; v <= 80; v++ {
			got, err := Score(apply(base, v))
			require.NoError(t, err)
			require.GreaterOrEqual(t, got.Score, prev, "input %d value %d", i, v)
			prev = got.Score
		}
	}
}

func TestLevelBands(t *testing.T) {
	assert.Equal(t, LevelGreen, deriveLevel(0, false))
	assert.Equal(t, LevelGreen, deriveLevel(1, false))
	assert.Equal(t, LevelYellow, deriveLevel(2, false))
	assert.Equal(t, LevelYellow, deriveLevel(3, false))
	assert.Equal(t, LevelOrange, deriveLevel(4, false))
	assert.Equal(t, LevelOrange, deriveLevel(6, false))
	assert.Equal(t, LevelRed, deriveLevel(7, false))
	assert.Equal(t, LevelRed, deriveLevel(0, true))
}
