package canvas_test

import (
	"testing"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/stretchr/testify/assert"
)

func TestParseLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantVar string
		wantAux canvas.AuxKind
		isAux   bool
	}{
		{name: "plain variable", raw: "topic", wantVar: "topic"},
		{name: "annotated inject", raw: "topic (injected)", wantVar: "topic"},
		{name: "annotated concat", raw: "topic (concatenated)", wantVar: "topic"},
		{name: "empty", raw: "", wantVar: ""},
		{name: "reserved output", raw: "output", wantAux: canvas.AuxOutput, isAux: true},
		{name: "reserved mixed case", raw: "Output", wantAux: canvas.AuxOutput, isAux: true},
		{name: "reserved annotated", raw: "thinking (injected)", wantAux: canvas.AuxThinking, isAux: true},
		{name: "reserved padded", raw: "  prompt  ", wantAux: canvas.AuxPrompt, isAux: true},
		{name: "variable shadowing marker", raw: "outputs", wantVar: "outputs"},
		{name: "case sensitive variable", raw: "Topic", wantVar: "Topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			variable, aux, isAux := canvas.ParseLabel(tt.raw)

			assert.Equal(t, tt.isAux, isAux)
			if tt.isAux {
				assert.Equal(t, tt.wantAux, aux)
			} else {
				assert.Equal(t, tt.wantVar, variable)
			}
		})
	}
}

func TestAnnotateLabel_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, mode := range []canvas.EdgeMode{canvas.ModeInject, canvas.ModeConcatenate} {
		annotated := canvas.AnnotateLabel("x", mode)
		assert.Equal(t, "x", canvas.StripAnnotation(annotated))
	}
}

func TestPlaceholder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{{var:topic}}", canvas.Placeholder("topic"))
}
