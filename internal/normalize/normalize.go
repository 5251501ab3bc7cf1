package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

// MaxInputBytes bounds how much backend output the normalizer will accept.
const MaxInputBytes = 10 << 20 // 10MB

// ParseError reports output that could not be normalized into the
// canonical result shape. Parse failures are retryable: a transient
// backend glitch may self-correct on a later attempt.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return "parse error: " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Result is the normalized payload extracted from backend output.
type Result struct {
	Findings          []review.Finding
	OverallAssessment string
	Recommendations   []string
}

var (
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)
	// Single level of brace nesting, bounded: matches {...} whose inner
	// braces do not themselves nest.
	jsonCandidatePattern = regexp.MustCompile(`\{(?:[^{}]|\{[^{}]*\})*\}`)
)

// candidateParser attempts one wire shape. It returns ok=false when the
// shape does not apply so the next candidate can be tried; a non-nil error
// is fatal and stops the chain.
type candidateParser func(input string) (Result, bool, error)

// Parse converts raw backend stdout, in any of the supported shapes, into
// a normalized Result. Shapes are tried in priority order: line-delimited
// event stream, single wrapper object, then brace-scan fallback.
func Parse(rawOutput string) (Result, error) {
	if len(rawOutput) > MaxInputBytes {
		return Result{}, &ParseError{Message: fmt.Sprintf("output exceeds %d byte limit", MaxInputBytes)}
	}

	cleaned := strings.TrimSpace(stripControl(rawOutput))
	if cleaned == "" {
		return Result{}, &ParseError{Message: "empty output"}
	}

	for _, parse := range []candidateParser{parseEventStream, parseWrapperObject, parseFallback} {
		res, ok, err := parse(cleaned)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return res, nil
		}
	}
	return Result{}, &ParseError{Message: "no JSON found in output"}
}

// stripControl removes ANSI escape sequences and NUL bytes.
func stripControl(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}

// parseEventStream handles line-delimited event streams where each line is
// an independent JSON value. Every event that carries a completed agent
// message has its embedded text extracted and parsed; the last message
// that parses to a JSON object wins, since backends stream intermediate
// states before the final one and may trail prose after the payload.
func parseEventStream(input string) (Result, bool, error) {
	lines := strings.Split(input, "\n")

	var candidate map[string]any
	var lastErr error
	sawCompleted := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var ev map[string]any
		if json.Unmarshal([]byte(line), &ev) != nil {
			continue
		}
		text, ok := completedMessageText(ev)
		if !ok {
			continue
		}
		sawCompleted = true
		obj, err := parseEmbeddedJSON(text)
		if err != nil {
			lastErr = err
			continue
		}
		candidate = obj
	}
	if !sawCompleted {
		return Result{}, false, nil
	}
	if candidate == nil {
		return Result{}, false, lastErr
	}
	res, err := validatePayload(candidate)
	if err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

// completedMessageText extracts the text payload from an event that
// represents a completed agent message. Two stream dialects are
// recognized: a result event carrying the final text directly, and an
// assistant message whose content is a list of text blocks.
func completedMessageText(ev map[string]any) (string, bool) {
	switch ev["type"] {
	case "result":
		if text, ok := ev["result"].(string); ok && text != "" {
			return text, true
		}
	case "assistant":
		msg, ok := ev["message"].(map[string]any)
		if !ok {
			return "", false
		}
		content, ok := msg["content"].([]any)
		if !ok {
			return "", false
		}
		var b strings.Builder
		for _, c := range content {
			block, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if block["type"] == "text" {
				if text, ok := block["text"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		if b.Len() > 0 {
			return b.String(), true
		}
	}
	return "", false
}

// parseWrapperObject handles a single JSON object that wraps the review
// payload: either via a "response" field (object, JSON string possibly in
// a markdown fence, or null), or by carrying a findings array directly.
// A non-null "error" field is always fatal.
func parseWrapperObject(input string) (Result, bool, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(input), &obj); err != nil {
		return Result{}, false, nil
	}
	res, err := interpretWrapper(obj)
	if err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

func interpretWrapper(obj map[string]any) (Result, error) {
	if errVal, present := obj["error"]; present && errVal != nil {
		return Result{}, &ParseError{Message: fmt.Sprintf("backend reported error: %v", errVal)}
	}

	if respVal, present := obj["response"]; present {
		switch resp := respVal.(type) {
		case nil:
			return Result{}, &ParseError{Message: "no model output"}
		case map[string]any:
			return validatePayload(resp)
		case string:
			inner, err := parseEmbeddedJSON(resp)
			if err != nil {
				return Result{}, err
			}
			return validatePayload(inner)
		default:
			return Result{}, &ParseError{Message: fmt.Sprintf("response field has unsupported type %T", respVal)}
		}
	}

	if _, present := obj["findings"]; present {
		return validatePayload(obj)
	}

	return Result{}, &ParseError{Message: "object carries neither response nor findings"}
}

// parseFallback scans for balanced JSON object candidates with at most one
// level of brace nesting. Candidates containing the interesting keys are
// preferred, then the first candidate that parses at all, then the
// greediest brace-to-brace substring.
func parseFallback(input string) (Result, bool, error) {
	candidates := jsonCandidatePattern.FindAllString(input, -1)

	var firstParseable map[string]any
	for _, cand := range candidates {
		var obj map[string]any
		if json.Unmarshal([]byte(cand), &obj) != nil {
			continue
		}
		if hasAnyKey(obj, "response", "findings", "error") {
			res, err := interpretWrapper(obj)
			if err != nil {
				return Result{}, false, err
			}
			return res, true, nil
		}
		if firstParseable == nil {
			firstParseable = obj
		}
	}
	if firstParseable != nil {
		res, err := validatePayload(firstParseable)
		if err != nil {
			return Result{}, false, err
		}
		return res, true, nil
	}

	// Greediest substring from the first "{" to the last "}".
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start >= 0 && end > start {
		var obj map[string]any
		if json.Unmarshal([]byte(input[start:end+1]), &obj) == nil {
			res, err := interpretWrapper(obj)
			if err != nil {
				return Result{}, false, err
			}
			return res, true, nil
		}
	}

	return Result{}, false, nil
}

func hasAnyKey(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// parseEmbeddedJSON parses a JSON object carried as text, stripping a
// markdown code fence first when present.
func parseEmbeddedJSON(text string) (map[string]any, error) {
	text = strings.TrimSpace(stripFence(text))
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, &ParseError{Message: "embedded payload is not a JSON object", Cause: err}
	}
	return obj, nil
}

// stripFence removes a surrounding markdown code fence (```json ... ```).
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	start := 1
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
