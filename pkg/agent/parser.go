package agent

import (
	"errors"
	"regexp"
	"strings"
)

// ErrParseFailure reports model output that matches neither the action shape
// nor the final-answer shape. It is recoverable: the loop feeds a corrective
// instruction back instead of aborting.
var ErrParseFailure = errors.New("model output matches neither action nor final answer")

var (
	fenceRe       = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)\\n?\\s*```")
	finalAnswerRe = regexp.MustCompile(`(?is)final\s+answer\s*:\s*`)
	actionRe      = regexp.MustCompile(`(?im)^\s*action\s*:\s*(.+)$`)
	actionInputRe = regexp.MustCompile(`(?im)^\s*action\s+input\s*:\s*(.*)$`)
)

// stepKind discriminates the two well-formed shapes a reasoning cycle can
// produce.
type stepKind int

const (
	stepAction stepKind = iota
	stepFinal
)

type parsedStep struct {
	Kind      stepKind
	Tool      string
	ToolInput string
	Answer    string
}

// parseStep interprets one raw model completion. The grammar is a textual
// convention, not an enforced format, so parsing is deliberately tolerant:
// code fences are unwrapped, a final answer wins over an earlier action line
// when both appear, and bracketed placeholders the model copied from the
// format example are stripped.
func parseStep(raw string) (*parsedStep, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrParseFailure
	}
	if m := fenceRe.FindStringSubmatch(text); len(m) == 2 && strings.TrimSpace(m[1]) != "" {
		text = strings.TrimSpace(m[1])
	}

	finalLoc := finalAnswerRe.FindStringIndex(text)
	actionLoc := actionRe.FindStringSubmatchIndex(text)

	// A final answer after an action block means the model answered without
	// waiting for the observation; honor the answer.
	if finalLoc != nil && (actionLoc == nil || finalLoc[0] > actionLoc[0]) {
		answer := strings.TrimSpace(text[finalLoc[1]:])
		answer = stripPlaceholderBrackets(answer)
		if answer == "" {
			return nil, ErrParseFailure
		}
		return &parsedStep{Kind: stepFinal, Answer: answer}, nil
	}

	if actionLoc != nil {
		tool := strings.TrimSpace(text[actionLoc[2]:actionLoc[3]])
		tool = strings.Trim(tool, "`*[]\"' ")
		if tool == "" {
			return nil, ErrParseFailure
		}
		input := ""
		if m := actionInputRe.FindStringSubmatch(text); len(m) == 2 {
			input = strings.TrimSpace(m[1])
			input = strings.Trim(input, "`\"' ")
		}
		return &parsedStep{Kind: stepAction, Tool: tool, ToolInput: input}, nil
	}

	return nil, ErrParseFailure
}

// stripPlaceholderBrackets removes a single pair of square brackets wrapping
// the whole answer, which models sometimes copy verbatim from the format
// template. Brackets inside the answer are left alone.
func stripPlaceholderBrackets(s string) string {
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' && strings.Index(s, "]") == len(s)-1 {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
