package agents

import (
	"context"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/utils"
)

const codeReviewerName = "code-reviewer"

const codeReviewSystemHeader = `You are an expert code reviewer specializing in %LANGUAGE%.

Your task is to review code and provide constructive feedback focusing on:

1. Security issues: vulnerabilities like SQL injection, XSS, command injection
2. Performance: inefficient algorithms, memory leaks, unnecessary computations
3. Code quality: maintainability, readability, adherence to best practices
4. Bugs: potential runtime errors, edge cases, logical errors
5. Design: better architectural patterns when applicable

Severity levels:
- critical: security vulnerabilities, data loss risks, critical bugs
- high: major bugs, significant performance issues, poor design
- medium: code smells, minor bugs, style inconsistencies
- low: minor improvements, style suggestions
- info: informational notes
`

const codeReviewResponseFormat = `
Respond with a single JSON object and nothing else, shaped as:
{
  "overall_score": <0-100>,
  "summary": "<review summary>",
  "issues": [{"severity": "...", "category": "...", "line_number": <int>, "description": "...", "suggestion": "..."}],
  "strengths": ["..."],
  "recommendations": ["..."]
}
`

// ReviewCode runs the code review agent over the submitted source.
func (s *Service) ReviewCode(ctx context.Context, req *models.CodeReviewRequest) (*models.CodeReviewResult, *Invocation, error) {
	if req == nil || req.Code == "" {
		return nil, nil, models.NewValidationError("code is required", nil)
	}
	language := req.Language
	if language == "" {
		language = "python"
	}

	fiberlog.Infof("agents: starting code review for %s code (%d chars)", language, len(req.Code))

	systemPrompt := buildCodeReviewSystemPrompt(language, req.Standards)
	userPrompt := buildCodeReviewUserPrompt(req)

	result, inv, err := runStructured[models.CodeReviewResult](ctx, s, codeReviewerName, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, err
	}

	fiberlog.Infof("agents: code review completed - %d issues, score %.0f/100",
		len(result.Issues), result.OverallScore)
	return result, inv, nil
}

func buildCodeReviewSystemPrompt(language string, standards []string) string {
	buf := utils.Get()
	defer utils.Put(buf)

	header := codeReviewSystemHeader
	buf.WriteString(replaceLanguage(header, language))

	if len(standards) > 0 {
		buf.WriteString("\nAdditional standards to check:\n")
		for _, standard := range standards {
			buf.WriteString("- ")
			buf.WriteString(standard)
			buf.WriteString("\n")
		}
	}

	buf.WriteString("\nProvide honest, objective feedback. Be constructive and specific.\n")
	buf.WriteString(codeReviewResponseFormat)
	return buf.String()
}

func buildCodeReviewUserPrompt(req *models.CodeReviewRequest) string {
	buf := utils.Get()
	defer utils.Put(buf)

	buf.WriteString("Please review the following code:\n\n")
	if req.Context != "" {
		buf.WriteString("Context: ")
		buf.WriteString(req.Context)
		buf.WriteString("\n\n")
	}
	buf.WriteString("```\n")
	buf.WriteString(req.Code)
	buf.WriteString("\n```\n")
	return buf.String()
}
