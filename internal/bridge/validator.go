package bridge

import (
	"fmt"
)

// Severity splits validation findings into abort-worthy errors and
// non-blocking warnings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Issue is one structural finding.
type Issue struct {
	Severity Severity
	Entity   string
	Message  string
}

func (i Issue) String() string {
	sev := "warning"
	if i.Severity == SeverityError {
		sev = "error"
	}
	return fmt.Sprintf("%s: %s: %s", sev, i.Entity, i.Message)
}

// ValidationResult aggregates everything found in one walk of the
// structure. Callers decide whether Errors abort the build; Warnings
// never block it.
type ValidationResult struct {
	Errors   []Issue
	Warnings []Issue
}

// OK reports whether the structure has no errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) addError(entity, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Severity: SeverityError, Entity: entity, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addWarning(entity, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Severity: SeverityWarning, Entity: entity, Message: fmt.Sprintf(format, args...)})
}

// Validate walks a constructed bridge and reports missing or malformed
// pieces. It never panics: a nil Data is itself an error finding.
func Validate(data *Data) ValidationResult {
	var result ValidationResult

	if data == nil {
		result.addError("bridge", "no bridge data")
		return result
	}
	if len(data.Planks) == 0 {
		result.addError("bridge", "no planks exist")
		return result
	}

	edgeCount := make(map[string]int)
	for _, e := range data.Edges {
		edgeCount[e.From]++
		edgeCount[e.To]++
	}

	for i, p := range data.Planks {
		name := fmt.Sprintf("plank %d", i)
		switch {
		case p == nil:
			result.addError(name, "reference is nil")
		case p.Body == nil:
			result.addError(p.ID, "missing physical body")
		case edgeCount[p.ID] == 0:
			result.addWarning(p.ID, "no constraints attached")
		}
	}

	for i, p := range data.Platforms {
		name := fmt.Sprintf("platform %d", i)
		switch {
		case p == nil:
			result.addError(name, "reference is nil")
		case p.Body == nil:
			result.addError(p.ID, "missing physical body")
		case edgeCount[p.ID] == 0:
			result.addWarning(p.ID, "no constraints attached")
		}
	}

	for i, a := range data.Anchors {
		name := fmt.Sprintf("anchor %d", i)
		switch {
		case a == nil:
			result.addError(name, "reference is nil")
		case a.Body == nil:
			result.addError(a.ID, "missing physical body")
		case edgeCount[a.ID] == 0:
			result.addWarning(a.ID, "no constraints attached")
		}
	}

	// A chain of n planks needs n-1 hinges to be connected.
	chains := 0
	for _, e := range data.Edges {
		if e.Type == ConstraintChain {
			chains++
		}
	}
	if chains < len(data.Planks)-1 {
		result.addWarning("bridge", "chain is not fully connected: %d hinges for %d planks",
			chains, len(data.Planks))
	}

	return result
}
