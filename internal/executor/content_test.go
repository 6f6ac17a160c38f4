package executor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFillerContentByExtension(t *testing.T) {
	at := time.Date(2023, 7, 4, 15, 0, 0, 0, time.UTC)

	assert.True(t, strings.HasPrefix(FillerContent("README.md", "", at), "## Update 2023-07-04"))
	assert.Equal(t, "Updated: 2023-07-04T15:00:00Z\n", FillerContent("notes.txt", "", at))
	assert.Equal(t, "<!-- Updated: 2023-07-04T15:00:00Z -->\n", FillerContent("site/index.html", "", at))
	assert.Equal(t, "// Updated: 2023-07-04T15:00:00Z\n", FillerContent("src/app.ts", "", at))
	assert.Equal(t, "// Updated: 2023-07-04T15:00:00Z\n", FillerContent("src/app.JS", "", at))
	assert.Equal(t, "# Updated: 2023-07-04T15:00:00Z\n", FillerContent("config.yml", "", at))
}

func TestFillerContentAppends(t *testing.T) {
	at := time.Date(2023, 7, 4, 15, 0, 0, 0, time.UTC)

	got := FillerContent("notes.txt", "first line", at)
	assert.Equal(t, "first line\n\nUpdated: 2023-07-04T15:00:00Z\n", got)
}
