package datetime

import (
	"testing"
	"time"

	"streakd/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateFilterKeepsMatchingDates(t *testing.T) {
	f, err := CompileDateFilter(`day % 2 == 0 && weekday != 3`)
	require.NoError(t, err)

	dates := GenerateCommitDates(day(2024, time.January, 1), day(2024, time.January, 10), domain.FrequencyDaily, nil)
	kept, err := f.Apply(dates)
	require.NoError(t, err)

	var got []string
	for _, d := range kept {
		got = append(got, d.Format("2006-01-02"))
	}
	// Jan 10 2024 is a Wednesday.
	assert.Equal(t, []string{"2024-01-02", "2024-01-04", "2024-01-06", "2024-01-08"}, got)
}

func TestDateFilterEmptyExpressionKeepsAll(t *testing.T) {
	f, err := CompileDateFilter("")
	require.NoError(t, err)
	assert.Nil(t, f)

	dates := []time.Time{day(2024, time.January, 1)}
	kept, err := f.Apply(dates)
	require.NoError(t, err)
	assert.Equal(t, dates, kept)
}

func TestDateFilterRejectsInvalidExpressions(t *testing.T) {
	for _, src := range []string{`weekday +`, `day + 1`, `unknown_field == 1`} {
		_, err := CompileDateFilter(src)
		assert.True(t, errors.Is(err, domain.ErrValidation), src)
	}
}

func TestDateFilterSeesDateString(t *testing.T) {
	f, err := CompileDateFilter(`date != "2024-01-02" && month == 1`)
	require.NoError(t, err)

	kept, err := f.Apply([]time.Time{day(2024, time.January, 1), day(2024, time.January, 2), day(2024, time.February, 1)})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, 1, kept[0].Day())
}
