// Package log writes and parses program log transcripts.
//
// Every program call executed by the engine leaves a transcript in the same
// line format a Solana validator produces:
//
//	Program <id> invoke [1]
//	Program log: Instruction: Swap
//	Program <token> invoke [2]
//	Program <token> success
//	Program data: <base64 event>
//	Program <id> success
//
// The parser reads those lines back, extracting emitted events and messages
// and filtering them by instruction path.
package log

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LogType represents the type of a log message.
type LogType int

const (
	// LogTypeUnknown represents an unrecognized log message.
	LogTypeUnknown LogType = iota
	// LogTypeInvoke represents a "Program X invoke [N]" message.
	LogTypeInvoke
	// LogTypeSuccess represents a "Program X success" message.
	LogTypeSuccess
	// LogTypeFailed represents a "Program X failed: reason" message.
	LogTypeFailed
	// LogTypeData represents a "Program data: BASE64" message.
	LogTypeData
	// LogTypeLog represents a "Program log: MESSAGE" message.
	LogTypeLog
)

// String returns the string representation of LogType.
func (lt LogType) String() string {
	switch lt {
	case LogTypeInvoke:
		return "Invoke"
	case LogTypeSuccess:
		return "Success"
	case LogTypeFailed:
		return "Failed"
	case LogTypeData:
		return "Data"
	case LogTypeLog:
		return "Log"
	default:
		return "Unknown"
	}
}

// ParsedLog represents a parsed log message with its type and extracted data.
type ParsedLog struct {
	Type LogType

	// StackHeight is the call depth, set for invoke lines.
	StackHeight int

	// ProgramID is set for invoke, success and failed lines.
	ProgramID string

	// Data is the decoded payload of a "Program data:" line.
	Data []byte

	// Message is the text of a "Program log:" line, or the failure reason.
	Message string

	RawLog string
}

// LogParser parses program log transcripts.
type LogParser struct {
	invoke  *regexp.Regexp
	success *regexp.Regexp
	failed  *regexp.Regexp
	data    *regexp.Regexp
	log     *regexp.Regexp
}

// NewParser creates a new LogParser.
func NewParser() *LogParser {
	return &LogParser{
		invoke:  regexp.MustCompile(`^Program (\S+) invoke \[(\d+)\]$`),
		success: regexp.MustCompile(`^Program (\S+) success$`),
		failed:  regexp.MustCompile(`^Program (\S+) failed(?:: (.*))?$`),
		data:    regexp.MustCompile(`^Program data: (.+)$`),
		log:     regexp.MustCompile(`^Program log: (.*)$`),
	}
}

// Parse parses a single log line.
func (p *LogParser) Parse(line string) *ParsedLog {
	result := &ParsedLog{
		Type:   LogTypeUnknown,
		RawLog: line,
	}

	if m := p.invoke.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeInvoke
		result.ProgramID = m[1]
		result.StackHeight, _ = strconv.Atoi(m[2])
		return result
	}

	if m := p.success.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeSuccess
		result.ProgramID = m[1]
		return result
	}

	if m := p.failed.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeFailed
		result.ProgramID = m[1]
		result.Message = m[2]
		return result
	}

	if m := p.data.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeData
		if decoded, err := base64.StdEncoding.DecodeString(m[1]); err == nil {
			result.Data = decoded
		}
		return result
	}

	if m := p.log.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeLog
		result.Message = m[1]
		return result
	}

	return result
}

// ParseAll parses every line.
func (p *LogParser) ParseAll(lines []string) []*ParsedLog {
	results := make([]*ParsedLog, 0, len(lines))
	for _, line := range lines {
		results = append(results, p.Parse(line))
	}
	return results
}

// ExtractProgramData returns the decoded payload of every "Program data:" line.
func (p *LogParser) ExtractProgramData(lines []string) [][]byte {
	var data [][]byte
	for _, line := range lines {
		if parsed := p.Parse(line); parsed.Type == LogTypeData && len(parsed.Data) > 0 {
			data = append(data, parsed.Data)
		}
	}
	return data
}

// ExtractProgramLogs returns the text of every "Program log:" line.
func (p *LogParser) ExtractProgramLogs(lines []string) []string {
	var logs []string
	for _, line := range lines {
		if parsed := p.Parse(line); parsed.Type == LogTypeLog {
			logs = append(logs, parsed.Message)
		}
	}
	return logs
}

// InstructionPath locates an invocation in the call tree. [0] is the
// top-level call, [0, 1] its second inner call.
type InstructionPath []uint8

// String returns a string representation of the path.
func (path InstructionPath) String() string {
	parts := make([]string, len(path))
	for i, idx := range path {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equals checks if two paths are equal.
func (path InstructionPath) Equals(other InstructionPath) bool {
	if len(path) != len(other) {
		return false
	}
	for i := range path {
		if path[i] != other[i] {
			return false
		}
	}
	return true
}

// FilterByInstructionPath keeps the data and log lines emitted directly by
// the invocation at target.
func (p *LogParser) FilterByInstructionPath(lines []string, target InstructionPath) []string {
	var filtered []string
	var current InstructionPath
	// next[d] is the index the next invocation at depth d will get
	next := map[int]uint8{}

	for _, line := range lines {
		parsed := p.Parse(line)

		switch parsed.Type {
		case LogTypeInvoke:
			depth := parsed.StackHeight
			idx := next[depth]
			next[depth] = idx + 1
			next[depth+1] = 0
			current = append(current[:min(len(current), depth-1)], idx)
		case LogTypeSuccess, LogTypeFailed:
			if len(current) > 0 {
				current = current[:len(current)-1]
			}
		case LogTypeData, LogTypeLog:
			if current.Equals(target) {
				filtered = append(filtered, line)
			}
		}
	}

	return filtered
}
