package util

import (
	"regexp"
	"strings"
)

var (
	// <think>/<thinking> blocks from reasoning models, and the <思考> variant
	reasoningBlock = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>|<思考>.*?</思考>`)
	// A closing tag left over when the chat template already emitted the opening one
	danglingClose = regexp.MustCompile(`(?i)</think(?:ing)?>|</思考>`)
)

// StripThinkTags removes reasoning blocks so only the final answer remains.
// Everything before a dangling closing tag is treated as reasoning too.
func StripThinkTags(response string) string {
	out := reasoningBlock.ReplaceAllString(response, "")
	if loc := danglingClose.FindAllStringIndex(out, -1); len(loc) > 0 {
		out = out[loc[len(loc)-1][1]:]
	}
	return strings.TrimSpace(out)
}
