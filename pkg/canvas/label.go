package canvas

import (
	"regexp"
	"strings"
)

// AuxKind identifies an auxiliary (sidecar) edge/node: the auto-managed boxes
// the engine attaches to a node to display its output, prompt or reasoning.
type AuxKind string

const (
	AuxOutput   AuxKind = "output"
	AuxPrompt   AuxKind = "prompt"
	AuxThinking AuxKind = "thinking"
)

// EdgeMode is the resolved usage of a non-auxiliary edge during input
// resolution.
type EdgeMode string

const (
	ModeInject      EdgeMode = "inject"
	ModeConcatenate EdgeMode = "concatenate"
)

// annotationPattern matches the display suffix the engine appends to edge
// labels to surface the resolved mode. It is presentation only and must be
// stripped before any semantic comparison.
var annotationPattern = regexp.MustCompile(`(?i)\s*\((injected|concatenated)\)\s*$`)

// StripAnnotation removes a trailing mode annotation from a raw edge label.
func StripAnnotation(label string) string {
	return strings.TrimSpace(annotationPattern.ReplaceAllString(label, ""))
}

// AnnotateLabel renders a variable name with its resolved-mode suffix.
func AnnotateLabel(variable string, mode EdgeMode) string {
	switch mode {
	case ModeInject:
		return variable + " (injected)"
	case ModeConcatenate:
		return variable + " (concatenated)"
	default:
		return variable
	}
}

// ParseLabel splits a raw edge label into its semantic parts. When the label
// carries one of the reserved auxiliary markers the second return is the
// marker's kind and the variable name is empty; otherwise the label is a
// user-chosen variable name (possibly empty for unlabeled edges).
func ParseLabel(raw string) (variable string, aux AuxKind, isAux bool) {
	stripped := StripAnnotation(raw)

	switch strings.ToLower(stripped) {
	case string(AuxOutput):
		return "", AuxOutput, true
	case string(AuxPrompt):
		return "", AuxPrompt, true
	case string(AuxThinking):
		return "", AuxThinking, true
	}

	return stripped, "", false
}

// Placeholder returns the literal injection placeholder for a variable name.
func Placeholder(variable string) string {
	return "{{var:" + variable + "}}"
}
