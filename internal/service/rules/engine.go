package rules

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/internal/model"
)

type Decision int

const (
	Allow Decision = iota
	Reject
)

func (d Decision) String() string {
	if d == Reject {
		return "reject"
	}
	return "allow"
}

// Outcome of a redundancy check. Existing is set only on Reject.
type Outcome struct {
	Decision Decision
	Existing *model.Diagnosis
}

func (o Outcome) Rejected() bool {
	return o.Decision == Reject
}

// Engine decides whether a proposed diagnosis repeats a one-time disease the
// patient already has. It does no I/O; callers supply the existing records.
type Engine struct {
	diseases *DiseaseSet
}

func NewEngine(diseases *DiseaseSet) *Engine {
	return &Engine{diseases: diseases}
}

func (e *Engine) IsOneTime(name string) bool {
	return e.diseases.Contains(name)
}

func (e *Engine) Diseases() *DiseaseSet {
	return e.diseases
}

// Evaluate returns Reject with the first matching record when name is a
// one-time disease and existing holds a diagnosis of the same name for
// patientID. Records belonging to other patients are ignored.
func (e *Engine) Evaluate(patientID uuid.UUID, name string, existing []*model.Diagnosis) Outcome {
	if !e.diseases.Contains(name) {
		return Outcome{Decision: Allow}
	}

	want := model.DiagnosisKey(name)
	for _, d := range existing {
		if d == nil || d.PatientID != patientID {
			continue
		}
		if model.DiagnosisKey(d.DiagnosisName) == want {
			return Outcome{Decision: Reject, Existing: d}
		}
	}

	return Outcome{Decision: Allow}
}
