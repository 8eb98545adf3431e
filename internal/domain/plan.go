package domain

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// ProjectPlan is the structured plan produced by a project-manager
// coordinator's task breakdown. A candidate lacking any required top-level
// key is rejected as a whole; the plan is never partially accepted.
type ProjectPlan struct {
	ProjectName    string         `json:"project_name"`
	Objectives     []string       `json:"objectives"`
	Timeline       Timeline       `json:"timeline"`
	Resources      Resources      `json:"resources"`
	RiskManagement RiskManagement `json:"risk_management"`
}

type Timeline struct {
	StartDate  string      `json:"start_date"`
	EndDate    string      `json:"end_date"`
	Milestones []Milestone `json:"milestones"`
}

type Milestone struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	DueDate      string   `json:"due_date"`
	Dependencies []string `json:"dependencies"`
}

type Resources struct {
	RequiredSkills []string `json:"required_skills"`
	Tools          []string `json:"tools"`
	Constraints    []string `json:"constraints"`
}

type RiskManagement struct {
	PotentialRisks []Risk `json:"potential_risks"`
}

type Risk struct {
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Mitigation  string `json:"mitigation"`
}

// ProgressReport is the per-round progress snapshot kept by a project-manager
// coordinator. OverallProgress is computed deterministically from round
// counts; the qualitative slices describe the live discussion.
type ProgressReport struct {
	CompletionStatus    CompletionStatus `json:"completion_status"`
	KeyPoints           []KeyPoint       `json:"key_points"`
	NextSteps           []NextStep       `json:"next_steps"`
	RisksAndMitigations []RiskMitigation `json:"risks_and_mitigations"`
}

type CompletionStatus struct {
	OverallProgress     float64  `json:"overall_progress"`
	CompletedObjectives []string `json:"completed_objectives"`
	RemainingObjectives []string `json:"remaining_objectives"`
}

type KeyPoint struct {
	Point        string `json:"point"`
	Source       string `json:"source"`
	Significance string `json:"significance"`
}

type NextStep struct {
	Action     string `json:"action"`
	Priority   string `json:"priority"`
	AssignedTo string `json:"assigned_to"`
}

type RiskMitigation struct {
	Risk       string `json:"risk"`
	Impact     string `json:"impact"`
	Mitigation string `json:"mitigation"`
}

// PlanAdjustment is the reason-carrying delta a project-manager coordinator
// proposes after reviewing a progress report. The stored plan is only ever
// replaced wholesale by an approved adjustment, never patched in place.
type PlanAdjustment struct {
	ModifiedObjectives  []ObjectiveChange `json:"modified_objectives"`
	TimelineAdjustments []TimelineChange  `json:"timeline_adjustments"`
	ResourceAdjustments []ResourceChange  `json:"resource_adjustments"`
	RiskAdjustments     []RiskChange      `json:"risk_adjustments"`
}

type ObjectiveChange struct {
	Original string `json:"original"`
	Modified string `json:"modified"`
	Reason   string `json:"reason"`
}

type TimelineChange struct {
	Milestone    string `json:"milestone"`
	OriginalDate string `json:"original_date"`
	NewDate      string `json:"new_date"`
	Reason       string `json:"reason"`
}

type ResourceChange struct {
	Type     string `json:"type"`
	Original string `json:"original"`
	Modified string `json:"modified"`
	Reason   string `json:"reason"`
}

type RiskChange struct {
	OriginalRisk string `json:"original_risk"`
	ModifiedRisk string `json:"modified_risk"`
	Reason       string `json:"reason"`
}

// Shape schemas. Validation is all-or-nothing on the required top-level keys;
// downstream consumers assume completeness, so a candidate missing any key is
// discarded whole.
const (
	planSchema = `{
		"type": "object",
		"required": ["project_name", "objectives", "timeline", "resources", "risk_management"]
	}`
	reportSchema = `{
		"type": "object",
		"required": ["completion_status", "key_points", "next_steps", "risks_and_mitigations"]
	}`
	adjustmentSchema = `{
		"type": "object",
		"required": ["modified_objectives", "timeline_adjustments", "resource_adjustments", "risk_adjustments"]
	}`
)

// validateShape validates parsed JSON against a JSON Schema.
func validateShape(schemaSrc string, data any) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(schemaSrc))
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("%w: %s", ErrBadShape, result.Error())
	}
	return nil
}

// decodeShaped validates data against schemaSrc and unmarshals it into out.
func decodeShaped(schemaSrc string, data map[string]any, out any) error {
	if err := validateShape(schemaSrc, data); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("re-marshal candidate: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadShape, err)
	}
	return nil
}

// PlanFromMap converts an extracted JSON object into a ProjectPlan,
// rejecting it whole when any required top-level key is missing.
func PlanFromMap(data map[string]any) (*ProjectPlan, error) {
	var plan ProjectPlan
	if err := decodeShaped(planSchema, data, &plan); err != nil {
		return nil, WrapOp("plan", err)
	}
	return &plan, nil
}

// ReportFromMap converts an extracted JSON object into a ProgressReport.
func ReportFromMap(data map[string]any) (*ProgressReport, error) {
	var report ProgressReport
	if err := decodeShaped(reportSchema, data, &report); err != nil {
		return nil, WrapOp("report", err)
	}
	return &report, nil
}

// AdjustmentFromMap converts an extracted JSON object into a PlanAdjustment.
func AdjustmentFromMap(data map[string]any) (*PlanAdjustment, error) {
	var adj PlanAdjustment
	if err := decodeShaped(adjustmentSchema, data, &adj); err != nil {
		return nil, WrapOp("adjustment", err)
	}
	return &adj, nil
}
