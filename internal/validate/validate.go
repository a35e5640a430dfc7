package validate

import (
	"fmt"
	"sort"
	"strings"

	"evenflow/internal/affinity"
	"evenflow/internal/parser"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeDuplicateLocation   = "duplicate_location"
	codeWeightOutOfRange    = "valuation_weight_out_of_range"
	codeEmptyValuation      = "empty_valuation_profile"
	codeDuplicateAffordance = "duplicate_affordance"
	codeMissingTells        = "missing_tells"
	codeNegativeCooldown    = "negative_cooldown"
	codeUnknownAffordance   = "unknown_affordance_type"
	codeClampOutOfRange     = "severity_clamp_out_of_range"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Location string
	FilePath string
}

type Report struct {
	Issues []Issue
}

// HasErrors reports whether any issue has error severity.
func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Run lints parsed location definitions. Affordance types outside the
// built-in set only warn.
func Run(docs []*parser.Document) *Report {
	issues := make([]Issue, 0)
	firstSeen := make(map[string]string, len(docs))

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		def := doc.Definition
		if prev, ok := firstSeen[def.ID]; ok {
			issues = append(issues, issueFor(doc, SeverityError, codeDuplicateLocation,
				fmt.Sprintf("location id %q already defined in %s", def.ID, prev)))
			continue
		}
		firstSeen[def.ID] = doc.SourceFile

		issues = append(issues, validateValuation(doc)...)
		issues = append(issues, validateAffordances(doc)...)
	}

	return &Report{Issues: issues}
}

func validateValuation(doc *parser.Document) []Issue {
	profile := doc.Definition.Valuation
	if len(profile) == 0 {
		return []Issue{issueFor(doc, SeverityWarn, codeEmptyValuation,
			"valuation profile is empty; every event scores at the default weight")}
	}

	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var issues []Issue
	for _, k := range keys {
		w := profile[k]
		if w < -1 || w > 1 {
			issues = append(issues, issueFor(doc, SeverityError, codeWeightOutOfRange,
				fmt.Sprintf("valuation weight for %s is %.3f, want [-1, 1]", k, w)))
		}
	}
	return issues
}

func validateAffordances(doc *parser.Document) []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for _, aff := range doc.Definition.Affordances {
		if seen[aff.Type] {
			issues = append(issues, issueFor(doc, SeverityError, codeDuplicateAffordance,
				fmt.Sprintf("affordance %s declared more than once", aff.Type)))
			continue
		}
		seen[aff.Type] = true

		if !isBuiltin(aff.Type) {
			issues = append(issues, issueFor(doc, SeverityWarn, codeUnknownAffordance,
				fmt.Sprintf("affordance %s is not a built-in type", aff.Type)))
		}
		if aff.CooldownSeconds < 0 {
			issues = append(issues, issueFor(doc, SeverityError, codeNegativeCooldown,
				fmt.Sprintf("affordance %s has negative cooldown %d", aff.Type, aff.CooldownSeconds)))
		}
		if outOfUnit(aff.SeverityClampHostile) || outOfUnit(aff.SeverityClampFavorable) {
			issues = append(issues, issueFor(doc, SeverityWarn, codeClampOutOfRange,
				fmt.Sprintf("affordance %s severity clamp outside [-1, 1]", aff.Type)))
		}
		if aff.Enabled && len(aff.TellsHostile) == 0 && len(aff.TellsFavorable) == 0 {
			issues = append(issues, issueFor(doc, SeverityWarn, codeMissingTells,
				fmt.Sprintf("affordance %s is enabled but has no tells", aff.Type)))
		}
	}
	return issues
}

func issueFor(doc *parser.Document, severity Severity, code, message string) Issue {
	return Issue{
		Severity: severity,
		Code:     code,
		Message:  message,
		Location: doc.Definition.ID,
		FilePath: doc.SourceFile,
	}
}

func isBuiltin(affordanceType string) bool {
	for _, t := range affinity.BuiltinAffordanceTypes {
		if strings.EqualFold(t, affordanceType) {
			return true
		}
	}
	return false
}

func outOfUnit(v float64) bool {
	return v < -1 || v > 1
}
