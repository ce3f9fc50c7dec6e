package cleanup

import (
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
)

// Step names a teardown stage.
type Step string

const (
	StepRules      Step = "rules"
	StepTables     Step = "tables"
	StepVRFs       Step = "vrfs"
	StepInterfaces Step = "interfaces"
	StepAddresses  Step = "addresses"
)

// Failure is one object that could not be removed.
type Failure struct {
	Name string
	Err  error
}

// StepReport collects the per-object outcome of one step.
type StepReport struct {
	Step    Step
	Removed []string
	Failed  []Failure
}

func (s *StepReport) ok(name string) {
	s.Removed = append(s.Removed, name)
}

func (s *StepReport) fail(name string, err error) {
	s.Failed = append(s.Failed, Failure{Name: name, Err: err})
}

// Report is the result of a cleanup or fix run.
type Report struct {
	Before    inventory.Counts
	Remaining inventory.Counts
	Steps     []*StepReport

	// RuleIterations counts rule deletion attempts; Capped is set when
	// the safety cap stopped the loop before the rules converged.
	RuleIterations int
	Capped         bool

	// Interrupted is set when the context was cancelled mid-run.
	Interrupted bool
}

// Clean reports whether no simulator resources remain.
func (r *Report) Clean() bool {
	return r.Remaining.Zero()
}

// Failures returns every failed object across all steps.
func (r *Report) Failures() []Failure {
	var out []Failure
	for _, s := range r.Steps {
		out = append(out, s.Failed...)
	}
	return out
}

// Step returns the report for step, or nil if it did not run.
func (r *Report) Step(step Step) *StepReport {
	for _, s := range r.Steps {
		if s.Step == step {
			return s
		}
	}
	return nil
}

func (r *Report) begin(step Step) *StepReport {
	s := &StepReport{Step: step}
	r.Steps = append(r.Steps, s)
	return s
}
