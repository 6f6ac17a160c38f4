package service

import (
	"math/rand/v2"
	"strings"
	"time"

	"streakd/internal/datetime"
)

const (
	templateDateLayout = "Jan 2, 2006"
	randomTokenLength  = 6
	base36             = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// RenderMessage substitutes {date} and {random} in a commit message template
func RenderMessage(template string, date time.Time, r datetime.Rand) string {
	msg := strings.ReplaceAll(template, "{date}", date.Format(templateDateLayout))
	if strings.Contains(msg, "{random}") {
		msg = strings.ReplaceAll(msg, "{random}", randomToken(r))
	}
	return msg
}

func randomToken(r datetime.Rand) string {
	var b strings.Builder
	b.Grow(randomTokenLength)
	for i := 0; i < randomTokenLength; i++ {
		b.WriteByte(base36[r.IntN(len(base36))])
	}
	return b.String()
}

func pick[T any](r datetime.Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// globalRand draws from the process-wide source, which is safe for concurrent use
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// SuggestedFilePaths are files that repositories rarely ignore
var SuggestedFilePaths = []string{
	"README.md",
	"CONTRIBUTING.md",
	"CHANGELOG.md",
	"docs/README.md",
	"docs/notes.md",
	"docs/changelog.md",
	"notes.txt",
	"activity.log.md",
	"progress.md",
	"journal.md",
	"updates.txt",
	"src/README.md",
	"learning/notes.md",
}
