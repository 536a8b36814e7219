// Package kernel owns the persistent interpreter subprocess of a workspace
// and the framed request/response protocol that drives it.
package kernel

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// LogPrefix tags interpreter stderr lines that belong to the log side
// channel. The preamble's log() primitive writes it; the demux strips it.
const LogPrefix = "[canvasflow:log]"

const markerPrefix = "__CANVASFLOW_EOM_"

// newMarker returns a fresh end-of-output marker. A unique token per call
// keeps a stray marker echoed by user code from completing a later call.
func newMarker() string {
	return markerPrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + "__"
}

// buildProgram assembles the interpreter-side program for one call: the
// side-channel preamble, the input binding, the user code and the trailing
// marker print.
func buildProgram(code, input, marker string) string {
	var b strings.Builder

	b.WriteString("import sys as __cf_sys, base64 as __cf_base64\n")
	b.WriteString("def log(*args, **kwargs):\n")
	b.WriteString("    kwargs.setdefault(\"file\", __cf_sys.stderr)\n")
	b.WriteString("    print(\"" + LogPrefix + "\", *args, **kwargs)\n")
	b.WriteString("input = __cf_base64.b64decode(\"")
	b.WriteString(base64.StdEncoding.EncodeToString([]byte(input)))
	b.WriteString("\").decode(\"utf-8\")\n")
	b.WriteString(code)
	b.WriteString("\nprint(\"")
	b.WriteString(marker)
	b.WriteString("\", flush=True)\n")

	return b.String()
}

// frame transport-encodes a program as a single input line. Base64 through a
// one-line exec sidesteps every quoting and indentation hazard of feeding
// multi-line source to an interactive interpreter.
func frame(program string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(program))

	return "exec(__import__(\"base64\").b64decode(\"" + encoded + "\").decode(\"utf-8\"), globals())\n"
}

// stripPrompts removes leading interactive-prompt tokens the interpreter
// echoes on stderr when stdin is not a tty.
func stripPrompts(line string) string {
	for {
		switch {
		case strings.HasPrefix(line, ">>> "):
			line = line[len(">>> "):]
		case strings.HasPrefix(line, "... "):
			line = line[len("... "):]
		case line == ">>>" || line == "...":
			return ""
		default:
			return line
		}
	}
}
