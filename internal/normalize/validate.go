package normalize

import (
	"fmt"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

var validTypes = map[review.FindingType]bool{
	review.TypeBug:         true,
	review.TypeSecurity:    true,
	review.TypePerformance: true,
	review.TypeStyle:       true,
	review.TypeSuggestion:  true,
}

var validSeverities = map[review.Severity]bool{
	review.SeverityCritical: true,
	review.SeverityHigh:     true,
	review.SeverityMedium:   true,
	review.SeverityLow:      true,
	review.SeverityInfo:     true,
}

// validatePayload checks a parsed object against the canonical result
// shape. Violations are ParseErrors, never silent coercions.
func validatePayload(obj map[string]any) (Result, error) {
	rawFindings, present := obj["findings"]
	if !present {
		return Result{}, &ParseError{Message: "payload has no findings array"}
	}
	list, ok := rawFindings.([]any)
	if !ok {
		return Result{}, &ParseError{Message: fmt.Sprintf("findings is %T, want array", rawFindings)}
	}

	findings := make([]review.Finding, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return Result{}, &ParseError{Message: fmt.Sprintf("findings[%d] is %T, want object", i, item)}
		}
		f, err := validateFinding(i, entry)
		if err != nil {
			return Result{}, err
		}
		findings = append(findings, f)
	}

	res := Result{Findings: findings}

	if v, present := obj["overallAssessment"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return Result{}, &ParseError{Message: fmt.Sprintf("overallAssessment is %T, want string", v)}
		}
		res.OverallAssessment = s
	}

	if v, present := obj["recommendations"]; present && v != nil {
		list, ok := v.([]any)
		if !ok {
			return Result{}, &ParseError{Message: fmt.Sprintf("recommendations is %T, want array", v)}
		}
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return Result{}, &ParseError{Message: fmt.Sprintf("recommendations[%d] is %T, want string", i, item)}
			}
			res.Recommendations = append(res.Recommendations, s)
		}
	}

	return res, nil
}

func validateFinding(idx int, entry map[string]any) (review.Finding, error) {
	var f review.Finding

	typ, err := stringField(idx, entry, "type", true)
	if err != nil {
		return f, err
	}
	f.Type = review.FindingType(typ)
	if !validTypes[f.Type] {
		return f, &ParseError{Message: fmt.Sprintf("findings[%d] has unknown type %q", idx, typ)}
	}

	sev, err := stringField(idx, entry, "severity", true)
	if err != nil {
		return f, err
	}
	f.Severity = review.Severity(sev)
	if !validSeverities[f.Severity] {
		return f, &ParseError{Message: fmt.Sprintf("findings[%d] has unknown severity %q", idx, sev)}
	}

	f.Title, err = stringField(idx, entry, "title", true)
	if err != nil {
		return f, err
	}
	f.Description, err = stringField(idx, entry, "description", true)
	if err != nil {
		return f, err
	}
	f.Suggestion, err = stringField(idx, entry, "suggestion", false)
	if err != nil {
		return f, err
	}
	f.Code, err = stringField(idx, entry, "code", false)
	if err != nil {
		return f, err
	}

	if v, present := entry["line"]; present && v != nil {
		num, ok := v.(float64)
		if !ok || num != float64(int(num)) {
			return f, &ParseError{Message: fmt.Sprintf("findings[%d] line is not an integer", idx)}
		}
		line := int(num)
		f.Line = &line
	}

	if v, present := entry["lineRange"]; present && v != nil {
		rangeObj, ok := v.(map[string]any)
		if !ok {
			return f, &ParseError{Message: fmt.Sprintf("findings[%d] lineRange is %T, want object", idx, v)}
		}
		start, okStart := rangeObj["start"].(float64)
		end, okEnd := rangeObj["end"].(float64)
		if !okStart || !okEnd {
			return f, &ParseError{Message: fmt.Sprintf("findings[%d] lineRange needs integer start and end", idx)}
		}
		f.LineRange = &review.LineRange{Start: int(start), End: int(end)}
	}

	return f, nil
}

func stringField(idx int, entry map[string]any, key string, required bool) (string, error) {
	v, present := entry[key]
	if !present || v == nil {
		if required {
			return "", &ParseError{Message: fmt.Sprintf("findings[%d] missing required field %q", idx, key)}
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ParseError{Message: fmt.Sprintf("findings[%d] field %q is %T, want string", idx, key, v)}
	}
	return s, nil
}
