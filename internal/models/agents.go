package models

// Request and result shapes for the analysis agents. Each agent is a
// single-shot operation: structured input, prompt, one model call, parsed
// structured output.

type CodeReviewRequest struct {
	Code      string   `json:"code" validate:"required"`
	Language  string   `json:"language,omitempty"`
	Context   string   `json:"context,omitempty"`
	Standards []string `json:"standards,omitempty"`
}

type CodeIssue struct {
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	LineNumber  int    `json:"line_number,omitempty"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

type CodeReviewResult struct {
	OverallScore    float64     `json:"overall_score"`
	Summary         string      `json:"summary"`
	Issues          []CodeIssue `json:"issues"`
	Strengths       []string    `json:"strengths"`
	Recommendations []string    `json:"recommendations"`
}

type LogAnalysisRequest struct {
	Logs       string   `json:"logs" validate:"required"`
	Context    string   `json:"context,omitempty"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

type LogInsight struct {
	Severity          string `json:"severity"`
	Category          string `json:"category"`
	Message           string `json:"message"`
	AffectedComponent string `json:"affected_component,omitempty"`
	Occurrences       int    `json:"occurrences,omitempty"`
}

type RootCauseAnalysis struct {
	RootCause  string   `json:"root_cause"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

type LogAnalysisResult struct {
	Summary         string              `json:"summary"`
	Insights        []LogInsight        `json:"insights"`
	RootCauses      []RootCauseAnalysis `json:"root_causes"`
	Recommendations []string            `json:"recommendations"`
	Anomalies       []string            `json:"anomalies"`
}

type TestGenerationRequest struct {
	Code          string `json:"code" validate:"required"`
	Language      string `json:"language,omitempty"`
	TestFramework string `json:"test_framework,omitempty"`
	Context       string `json:"context,omitempty"`
}

type TestCase struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TestCode    string `json:"test_code"`
	TestType    string `json:"test_type"`
	Priority    string `json:"priority"`
}

type TestSuite struct {
	Framework     string     `json:"framework"`
	TestCases     []TestCase `json:"test_cases"`
	SetupCode     string     `json:"setup_code,omitempty"`
	CoverageNotes string     `json:"coverage_notes"`
	EdgeCases     []string   `json:"edge_cases"`
}
