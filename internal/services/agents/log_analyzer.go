package agents

import (
	"context"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/utils"
)

const logAnalyzerName = "log-analyzer"

const logAnalysisSystemPrompt = `You are an expert SRE specializing in log analysis.

Your task is to analyze logs and provide actionable insights:

1. Error detection: errors, exceptions, failures
2. Root cause analysis: underlying causes of issues
3. Performance issues: degradation, latency spikes
4. Security concerns: suspicious activities, security events
5. Anomaly detection: unusual patterns or behaviors

Analysis approach:
- Correlate related log entries
- Identify cascading failures
- Distinguish symptoms from root causes
- Provide evidence-based conclusions

Severity levels:
- critical: system down, data loss, security breach
- error: significant failures, broken functionality
- warning: potential issues, degraded performance
- info: important operational information
`

const logAnalysisResponseFormat = `
Respond with a single JSON object and nothing else, shaped as:
{
  "summary": "<executive summary>",
  "insights": [{"severity": "...", "category": "...", "message": "...", "affected_component": "...", "occurrences": <int>}],
  "root_causes": [{"root_cause": "...", "confidence": <0-100>, "evidence": ["..."]}],
  "recommendations": ["..."],
  "anomalies": ["..."]
}
`

// AnalyzeLogs runs the log analysis agent over the submitted log data.
func (s *Service) AnalyzeLogs(ctx context.Context, req *models.LogAnalysisRequest) (*models.LogAnalysisResult, *Invocation, error) {
	if req == nil || req.Logs == "" {
		return nil, nil, models.NewValidationError("logs are required", nil)
	}

	fiberlog.Infof("agents: analyzing logs (%d chars)", len(req.Logs))

	systemPrompt := buildLogAnalysisSystemPrompt(req.FocusAreas)
	userPrompt := buildLogAnalysisUserPrompt(req)

	result, inv, err := runStructured[models.LogAnalysisResult](ctx, s, logAnalyzerName, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, err
	}

	fiberlog.Infof("agents: log analysis completed - %d insights, %d root causes",
		len(result.Insights), len(result.RootCauses))
	return result, inv, nil
}

func buildLogAnalysisSystemPrompt(focusAreas []string) string {
	buf := utils.Get()
	defer utils.Put(buf)

	buf.WriteString(logAnalysisSystemPrompt)
	if len(focusAreas) > 0 {
		buf.WriteString("\nFocus areas: ")
		buf.WriteString(strings.Join(focusAreas, ", "))
		buf.WriteString("\n")
	}
	buf.WriteString(logAnalysisResponseFormat)
	return buf.String()
}

func buildLogAnalysisUserPrompt(req *models.LogAnalysisRequest) string {
	buf := utils.Get()
	defer utils.Put(buf)

	buf.WriteString("Analyze the following logs:\n\n")
	if req.Context != "" {
		buf.WriteString("System context: ")
		buf.WriteString(req.Context)
		buf.WriteString("\n\n")
	}
	buf.WriteString("Logs:\n```\n")
	buf.WriteString(req.Logs)
	buf.WriteString("\n```\n")
	return buf.String()
}
