package agents

import (
	"context"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/utils"
)

const testGeneratorName = "test-generator"

const testGenerationSystemPrompt = `You are an expert test engineer specializing in %LANGUAGE% and %FRAMEWORK%.

Your task is to generate comprehensive, production-ready tests that:

1. Cover edge cases: boundary conditions, null values, empty inputs
2. Test happy paths: normal, expected behavior
3. Test error cases: error handling and validation
4. Follow best practices: proper assertions, mocks, fixtures
5. Are maintainable: clear names, isolated, deterministic

Test types: unit, integration, e2e.

Generate realistic, runnable test code following %FRAMEWORK% conventions.
Include setup code if needed.
`

const testGenerationResponseFormat = `
Respond with a single JSON object and nothing else, shaped as:
{
  "framework": "<framework used>",
  "test_cases": [{"name": "...", "description": "...", "test_code": "...", "test_type": "unit|integration|e2e", "priority": "high|medium|low"}],
  "setup_code": "<shared setup code or empty>",
  "coverage_notes": "<what is and is not covered>",
  "edge_cases": ["..."]
}
`

// defaultFrameworks maps languages to their conventional test framework.
var defaultFrameworks = map[string]string{
	"python":     "pytest",
	"javascript": "jest",
	"typescript": "jest",
	"java":       "junit",
	"go":         "testing",
	"rust":       "rust-test",
	"ruby":       "rspec",
	"php":        "phpunit",
}

// GenerateTests runs the test generation agent over the submitted source.
func (s *Service) GenerateTests(ctx context.Context, req *models.TestGenerationRequest) (*models.TestSuite, *Invocation, error) {
	if req == nil || req.Code == "" {
		return nil, nil, models.NewValidationError("code is required", nil)
	}
	language := req.Language
	if language == "" {
		language = "python"
	}
	framework := req.TestFramework
	if framework == "" {
		framework = detectFramework(language)
	}

	fiberlog.Infof("agents: generating %s tests for %s code (%d chars)", framework, language, len(req.Code))

	systemPrompt := buildTestGenerationSystemPrompt(language, framework)
	userPrompt := buildTestGenerationUserPrompt(req)

	result, inv, err := runStructured[models.TestSuite](ctx, s, testGeneratorName, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, err
	}
	if result.Framework == "" {
		result.Framework = framework
	}

	fiberlog.Infof("agents: generated %d test cases using %s", len(result.TestCases), result.Framework)
	return result, inv, nil
}

func detectFramework(language string) string {
	if framework, ok := defaultFrameworks[strings.ToLower(language)]; ok {
		return framework
	}
	return "unittest"
}

func buildTestGenerationSystemPrompt(language, framework string) string {
	prompt := replaceLanguage(testGenerationSystemPrompt, language)
	prompt = strings.ReplaceAll(prompt, "%FRAMEWORK%", framework)
	return prompt + testGenerationResponseFormat
}

func buildTestGenerationUserPrompt(req *models.TestGenerationRequest) string {
	buf := utils.Get()
	defer utils.Put(buf)

	buf.WriteString("Generate comprehensive tests for the following code:\n\n")
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
