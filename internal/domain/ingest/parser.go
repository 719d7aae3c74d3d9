package ingest

import (
	"strings"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
)

const (
	questionPrefix = "QQ:"
	answerPrefix   = "AA:"
)

// ParsePairs reads the QQ:/AA: line protocol the generation prompt asks the
// model for. A pair is emitted once both fields are present; continuation
// lines extend the field currently open. When the model ignored the protocol
// entirely the plain Q:/A: fallback is tried once.
func ParsePairs(raw string) []knowledge.QAPair {
	pairs := parseWithPrefixes(raw, questionPrefix, answerPrefix)
	if len(pairs) == 0 {
		pairs = parseWithPrefixes(raw, "Q:", "A:")
	}
	return pairs
}

func parseWithPrefixes(raw, qPrefix, aPrefix string) []knowledge.QAPair {
	var (
		pairs    []knowledge.QAPair
		question strings.Builder
		answer   strings.Builder
		inAnswer bool
	)

	flush := func() {
		q := strings.TrimSpace(question.String())
		a := strings.TrimSpace(answer.String())
		if q != "" && a != "" {
			pairs = append(pairs, knowledge.QAPair{Question: q, Answer: a})
		}
		question.Reset()
		answer.Reset()
		inAnswer = false
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, qPrefix):
			flush()
			question.WriteString(strings.TrimSpace(strings.TrimPrefix(line, qPrefix)))
		case strings.HasPrefix(line, aPrefix):
			if answer.Len() > 0 {
				flush()
			}
			inAnswer = true
			answer.WriteString(strings.TrimSpace(strings.TrimPrefix(line, aPrefix)))
		case line == "":
			continue
		case inAnswer && answer.Len() > 0:
			answer.WriteString(" ")
			answer.WriteString(line)
		case !inAnswer && question.Len() > 0:
			question.WriteString(" ")
			question.WriteString(line)
		}
	}
	flush()
	return pairs
}
