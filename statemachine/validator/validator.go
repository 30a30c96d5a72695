package validator

import (
	"fmt"
	"sort"
	"strings"

	"facette.io/natsort"

	"github.com/amp-labs/suspense/statemachine"
)

// ValidationResult contains the results of validating a state machine config.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a validation error with fix suggestions.
type ValidationError struct {
	Code     string   // Error code like "UNREACHABLE_STATE", "INVALID_DEFINITION"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string   // Warning code
	Message  string   // Human-readable warning message
	Location Location // Where the warning occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// Location identifies where an issue occurred.
type Location struct {
	File       string // Config file path
	State      string // State name if applicable
	Event      string // Event name if applicable
	Transition int    // Transition index + 1 (0 if not applicable)
}

// Validate performs comprehensive validation on a state machine config.
func Validate(config *statemachine.Config) ValidationResult {
	return ValidateWithRules(config, DefaultRules())
}

// ValidateFile loads a config from a file and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false, DefaultRules())
}

// ValidateFileStrict loads a config from a file and validates it in strict mode.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true, DefaultRules())
}

// ValidateFileWithOptions loads a config from a file and validates it with the given rules.
func ValidateFileWithOptions(path string, strict bool, rules []Rule) (ValidationResult, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     "CONFIG_LOAD_FAILED",
					Message:  fmt.Sprintf("Failed to load config: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	var result ValidationResult
	if strict {
		result = ValidateWithRulesStrict(config, rules)
	} else {
		result = ValidateWithRules(config, rules)
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules. Issues are ordered by
// state name, naturally sorted, then by code.
func ValidateWithRules(config *statemachine.Config, rules []Rule) ValidationResult {
	if config == nil {
		return ValidationResult{
			Errors: []ValidationError{{Code: "CONFIG_NIL", Message: "config is nil"}},
		}
	}

	var result ValidationResult

	for _, rule := range rules {
		ruleResult := rule.Check(config)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	sort.SliceStable(result.Errors, func(i, j int) bool {
		return less(result.Errors[i].Location, result.Errors[i].Code, result.Errors[j].Location, result.Errors[j].Code)
	})

	sort.SliceStable(result.Warnings, func(i, j int) bool {
		return less(result.Warnings[i].Location, result.Warnings[i].Code, result.Warnings[j].Location, result.Warnings[j].Code)
	})

	result.Valid = len(result.Errors) == 0

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(config *statemachine.Config, rules []Rule) ValidationResult {
	result := ValidateWithRules(config, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil
	result.Valid = len(result.Errors) == 0

	return result
}

func less(a Location, codeA string, b Location, codeB string) bool {
	if a.State != b.State {
		return natsort.Compare(a.State, b.State)
	}

	if a.Event != b.Event {
		return natsort.Compare(a.Event, b.Event)
	}

	return codeA < codeB
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ Configuration is valid\n")
	} else {
		sb.WriteString(fmt.Sprintf("✗ Configuration has %d error(s)\n", len(r.Errors)))

		for _, err := range r.Errors {
			writeIssue(&sb, err.Code, err.Message, err.Location, err.Fix)
		}
	}

	if len(r.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠ %d warning(s):\n", len(r.Warnings)))

		for _, warn := range r.Warnings {
			writeIssue(&sb, warn.Code, warn.Message, warn.Location, warn.Fix)
		}
	}

	return sb.String()
}

func writeIssue(sb *strings.Builder, code, message string, loc Location, fix *Fix) {
	sb.WriteString(fmt.Sprintf("  [%s] %s", code, message))

	if loc.State != "" {
		sb.WriteString(fmt.Sprintf(" (state: %s)", loc.State))
	}

	sb.WriteString("\n")

	if fix != nil {
		sb.WriteString(fmt.Sprintf("    Fix: %s\n", fix.Description))
	}
}
