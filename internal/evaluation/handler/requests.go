package handler

import (
	"time"

	"clave/internal/evaluation/models"
	"clave/internal/protocol"
	dErrors "clave/pkg/domain-errors"
)

// scoreRequest carries one set of occupancy counts. Numeric fields are
// pointers so a missing field is distinguishable from an explicit zero.
type scoreRequest struct {
	Scenario                 string `json:"scenario"`
	HospitalizedPatients     *int   `json:"hospitalized_patients"`
	ESIC2Patients            *int   `json:"esi_c2_patients"`
	ResuscitationPatients    *int   `json:"resuscitation_patients"`
	CriticalPatientsProtocol string `json:"critical_patients_protocol"`
	Waiting72hPatients       *int   `json:"waiting_72h_patients"`
	SARActive                bool   `json:"sar_active"`
	SARPatients              *int   `json:"sar_patients"`
}

func (r scoreRequest) toInput() (protocol.Input, error) {
	counts := map[string]*int{
		"hospitalized_patients":  r.HospitalizedPatients,
		"esi_c2_patients":        r.ESIC2Patients,
		"resuscitation_patients": r.ResuscitationPatients,
		"waiting_72h_patients":   r.Waiting72hPatients,
	}
	for field, v := range counts {
		if v == nil {
			return protocol.Input{}, dErrors.New(dErrors.CodeValidation, field+" is required")
		}
		if *v < 0 {
			return protocol.Input{}, dErrors.New(dErrors.CodeValidation, field+" must not be negative")
		}
	}
	if r.SARActive && r.SARPatients == nil {
		return protocol.Input{}, dErrors.New(dErrors.CodeValidation, "sar_patients is required while sar_active")
	}

	in := protocol.Input{
		Scenario:              protocol.Scenario(r.Scenario),
		HospitalizedPatients:  *r.HospitalizedPatients,
		ESIC2Patients:         *r.ESIC2Patients,
		ResuscitationPatients: *r.ResuscitationPatients,
		CriticalProtocol:      protocol.CriticalProtocol(r.CriticalPatientsProtocol),
		Waiting72hPatients:    *r.Waiting72hPatients,
		SARActive:             r.SARActive,
	}
	if r.CriticalPatientsProtocol == "" {
		in.CriticalProtocol = protocol.CriticalNone
	}
	if r.SARPatients != nil {
		if *r.SARPatients < 0 {
			return protocol.Input{}, dErrors.New(dErrors.CodeValidation, "sar_patients must not be negative")
		}
		in.SARPatients = *r.SARPatients
	}
	return in, nil
}

type createEvaluationRequest struct {
	scoreRequest
	Timestamp     *time.Time `json:"timestamp"`
	EvaluatorName string     `json:"evaluator_name"`
	InputData     string     `json:"input_data"`
}

type updateEvaluationRequest struct {
	Timestamp         *time.Time `json:"timestamp"`
	TotalScore        *int       `json:"total_score"`
	AlertLevel        *string    `json:"alert_level"`
	InputData         *string    `json:"input_data"`
	EvaluationResults *string    `json:"evaluation_results"`
}

func (r updateEvaluationRequest) toPatch() models.Patch {
	patch := models.Patch{
		Timestamp:         r.Timestamp,
		TotalScore:        r.TotalScore,
		InputData:         r.InputData,
		EvaluationResults: r.EvaluationResults,
	}
	if r.AlertLevel != nil {
		level := protocol.AlertLevel(*r.AlertLevel)
		patch.AlertLevel = &level
	}
	return patch
}

type updateActionRequest struct {
	Status string `json:"status"`
}

type scoreResponse struct {
	TotalScore       int      `json:"total_score"`
	AlertLevel       string   `json:"alert_level"`
	ForcedEscalation bool     `json:"forced_escalation"`
	Measures         []string `json:"measures"`
	ReevaluationNote string   `json:"reevaluation_note"`
}

type createEvaluationResponse struct {
	*models.Evaluation
	ReevaluationNote string `json:"reevaluation_note"`
}

type listEvaluationsResponse struct {
	Items []*models.Evaluation `json:"items"`
	Total int                  `json:"total"`
}

type samplesResponse struct {
	Samples []models.ScoreSample `json:"samples"`
}
