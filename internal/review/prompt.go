package review

import (
	"fmt"
	"strings"
)

const reviewInstructions = `You are a strict, expert code reviewer. Review the code below and produce structured findings in JSON format.

Rules:
1. Focus on bugs, security issues, performance problems, and correctness. Avoid bikeshedding on style unless it impacts readability significantly.
2. Be concise and actionable. Every finding should include a concrete suggestion.
3. Reference line numbers where possible.
4. Rate severity as "critical", "high", "medium", "low", or "info".
5. Type each finding as one of: bug, security, performance, style, suggestion.

You MUST respond with ONLY a JSON object. No markdown, no explanation, no preamble. The object must have this exact structure:
{
  "findings": [
    {
      "type": "bug|security|performance|style|suggestion",
      "severity": "critical|high|medium|low|info",
      "line": 1,
      "title": "Short descriptive title",
      "description": "What is wrong and why it matters",
      "suggestion": "How to fix it",
      "code": "optional offending snippet"
    }
  ],
  "overallAssessment": "One paragraph summary of code quality",
  "recommendations": ["Broader improvements worth making"]
}

If there are no issues, respond with an empty findings array.`

// Focus narrows what the backends are asked to look for.
type Focus string

const (
	FocusGeneral     Focus = "general"
	FocusSecurity    Focus = "security"
	FocusPerformance Focus = "performance"
)

// BuildPrompt assembles the full review prompt sent to a backend: the
// response-format instructions, an optional focus hint, and the code under
// review.
func BuildPrompt(code string, focus Focus, context string) string {
	var b strings.Builder

	b.WriteString(reviewInstructions)
	b.WriteString("\n\n")

	switch focus {
	case FocusSecurity:
		b.WriteString("Focus especially on security: injection, authentication, secrets handling, unsafe input.\n")
	case FocusPerformance:
		b.WriteString("Focus especially on performance: complexity, allocations, blocking calls, N+1 patterns.\n")
	}

	if context != "" {
		fmt.Fprintf(&b, "Context: %s\n", context)
	}

	b.WriteString("\n--- BEGIN CODE ---\n")
	b.WriteString(code)
	b.WriteString("\n--- END CODE ---\n")

	return b.String()
}
