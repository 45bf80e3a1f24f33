// Package protocol holds the pure domain logic of the medical/surgical
// saturation protocol: the occupancy score, the alert level derivation, and
// the measure catalog. Nothing here touches I/O or the clock, so every
// function is safe to call concurrently and trivial to test in isolation.
package protocol

import (
	"fmt"

	dErrors "clave/pkg/domain-errors"
)

// Scenario selects the threshold table in force for a given evaluation.
type Scenario string

const (
	ScenarioReducedCapacity Scenario = "reduced_capacity"
	ScenarioFullCapacity    Scenario = "full_capacity"
)

// Valid reports whether the scenario tag is one of the two defined tables.
func (s Scenario) Valid() bool {
	return s == ScenarioReducedCapacity || s == ScenarioFullCapacity
}

// CriticalProtocol is the state of the separate critical-patient protocol,
// which contributes points to this one.
type CriticalProtocol string

const (
	CriticalNone   CriticalProtocol = "none"
	CriticalYellow CriticalProtocol = "yellow"
	CriticalRed    CriticalProtocol = "red"
)

func (c CriticalProtocol) Valid() bool {
	return c == CriticalNone || c == CriticalYellow || c == CriticalRed
}

// AlertLevel is the protocol's escalation tier. The persisted literals are
// the clinical policy's own (Spanish) names and are case-sensitive.
type AlertLevel string

const (
	LevelGreen  AlertLevel = "Verde"
	LevelYellow AlertLevel = "Amarilla"
	LevelOrange AlertLevel = "Naranja"
	LevelRed    AlertLevel = "Roja"
)

func (l AlertLevel) Valid() bool {
	switch l {
	case LevelGreen, LevelYellow, LevelOrange, LevelRed:
		return true
	}
	return false
}

// Input carries the raw occupancy counts for one scoring run.
type Input struct {
	Scenario              Scenario
	HospitalizedPatients  int
	ESIC2Patients         int
	ResuscitationPatients int
	CriticalProtocol      CriticalProtocol
	Waiting72hPatients    int
	SARActive             bool
	SARPatients           int
}

// Result is the outcome of one scoring run. ForcedEscalation reports that the
// highest resuscitation/SAR tier fired; in that case Level is Red regardless
// of Score.
type Result struct {
	Score            int
	Level            AlertLevel
	ForcedEscalation bool
}

// Threshold tables per scenario. Each row lists cut-offs from the most severe
// tier down; the first cut-off the count reaches determines the points.
var (
	hospitalizedCutoffs = map[Scenario][3]int{
		ScenarioReducedCapacity: {60, 55, 50},
		ScenarioFullCapacity:    {65, 60, 55},
	}
	hospitalizedPoints = [3]int{3, 2, 1}

	// Two SAR tiers: the top one forces escalation.
	sarCutoffs = map[Scenario][2]int{
		ScenarioReducedCapacity: {8, 6},
		ScenarioFullCapacity:    {10, 8},
	}
	sarPoints = [2]int{7, 5}

	// Three resuscitation-bay tiers, only consulted while SAR is inactive.
	resuscitationCutoffs = map[Scenario][3]int{
		ScenarioReducedCapacity: {8, 6, 4},
		ScenarioFullCapacity:    {10, 8, 6},
	}
	resuscitationPoints = [3]int{7, 5, 2}
)

// Score computes the saturation score and alert level for the given inputs.
// It rejects unknown scenario and critical-protocol tags instead of silently
// scoring them as zero.
func Score(in Input) (Result, error) {
	if !in.Scenario.Valid() {
		return Result{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown scenario %q", in.Scenario))
	}
	if !in.CriticalProtocol.Valid() {
		return Result{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown critical patient protocol %q", in.CriticalProtocol))
	}

	var res Result

	// Hospitalization load.
	cuts := hospitalizedCutoffs[in.Scenario]
	for i, cut := range cuts {
		if in.HospitalizedPatients >= cut {
			res.Score += hospitalizedPoints[i]
			break
		}
	}

	// ESI C2 load.
	switch {
	case in.ESIC2Patients >= 30:
		res.Score += 2
	case in.ESIC2Patients >= 15:
		res.Score += 1
	}

	// Acute resuscitation-bay oversaturation (SAR) replaces resuscitation-bay
	// scoring entirely while active; the two branches never combine.
	if in.SARActive {
		sarCuts := sarCutoffs[in.Scenario]
		switch {
		case in.SARPatients >= sarCuts[0]:
			res.Score += sarPoints[0]
			res.ForcedEscalation = true
		case in.SARPatients >= sarCuts[1]:
			res.Score += sarPoints[1]
		}
	} else {
		reaCuts := resuscitationCutoffs[in.Scenario]
		for i, cut := range reaCuts {
			if in.ResuscitationPatients >= cut {
				res.Score += resuscitationPoints[i]
				if i == 0 {
					res.ForcedEscalation = true
				}
				break
			}
		}
	}

	// Critical-patient protocol bonus.
	switch in.CriticalProtocol {
	case CriticalYellow:
		res.Score += 1
	case CriticalRed:
		res.Score += 2
	}

	// 72-hour bed-wait backlog.
	switch {
	case in.Waiting72hPatients >= 12:
		res.Score += 2
	case in.Waiting72hPatients >= 6:
		res.Score += 1
	}

	res.Level = deriveLevel(res.Score, res.ForcedEscalation)
	return res, nil
}

// deriveLevel maps the aggregate score to a level. A forced escalation wins
// over the score table: a severe single-factor saturation event must raise
// the highest alert even when the aggregate stays low.
func deriveLevel(score int, forced bool) AlertLevel {
	if forced {
		return LevelRed
	}
	switch {
	case score <= 1:
		return LevelGreen
	case score <= 3:
		return LevelYellow
	case score <= 6:
		return LevelOrange
	default:
		return LevelRed
	}
}
