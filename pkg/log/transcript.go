package log

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Transcript accumulates the log lines of one transaction.
type Transcript struct {
	lines []string
}

// Invoke appends the entry line of a call at stack height.
func (t *Transcript) Invoke(program string, height int) {
	t.lines = append(t.lines, fmt.Sprintf("Program %s invoke [%d]", program, height))
}

// Success appends the exit line of a call that returned normally.
func (t *Transcript) Success(program string) {
	t.lines = append(t.lines, fmt.Sprintf("Program %s success", program))
}

// Failed appends the exit line of a call that failed with reason.
func (t *Transcript) Failed(program, reason string) {
	t.lines = append(t.lines, fmt.Sprintf("Program %s failed: %s", program, reason))
}

// Log appends a "Program log:" line. Newlines are flattened.
func (t *Transcript) Log(format string, args ...any) {
	msg := strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", " ")
	t.lines = append(t.lines, "Program log: "+msg)
}

// Data appends a "Program data:" line carrying payload.
func (t *Transcript) Data(payload []byte) {
	t.lines = append(t.lines, "Program data: "+base64.StdEncoding.EncodeToString(payload))
}

// Lines returns a copy of the transcript.
func (t *Transcript) Lines() []string {
	return append([]string(nil), t.lines...)
}

// Len returns the number of lines written so far.
func (t *Transcript) Len() int {
	return len(t.lines)
}
