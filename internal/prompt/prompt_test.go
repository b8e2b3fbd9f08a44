package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCareerAdvice(t *testing.T) {
	p, err := CareerAdvice("How do I move into data science?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "You are 'Career Compass'"))
	assert.True(t, strings.HasSuffix(p, "User's question: How do I move into data science?"))

	_, err = CareerAdvice("   \n\t")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestResumeAnalysis(t *testing.T) {
	t.Run("Short", func(t *testing.T) {
		p, err := ResumeAnalysis("Go developer, 5 years")
		require.NoError(t, err)
		assert.Equal(t, "Analyze this resume and suggest job roles based on the skills and experience: Go developer, 5 years", p)
	})

	t.Run("TruncatedOnRuneBoundary", func(t *testing.T) {
		// 3-byte runes so MaxResumeBytes falls inside one
		long := strings.Repeat("é€", MaxResumeBytes)
		p, err := ResumeAnalysis(long)
		require.NoError(t, err)

		body := strings.TrimPrefix(p, "Analyze this resume and suggest job roles based on the skills and experience: ")
		assert.LessOrEqual(t, len(body), MaxResumeBytes)
		assert.True(t, utf8.ValidString(body))
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ResumeAnalysis("")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestJobRecommendations(t *testing.T) {
	p, err := JobRecommendations([]string{"Go", " ", "Kubernetes "})
	require.NoError(t, err)
	assert.Equal(t, "Based on these skills: Go, Kubernetes, recommend suitable job roles and explain why.", p)

	_, err = JobRecommendations([]string{"", "  "})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = JobRecommendations(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcd", 2))
	assert.Equal(t, "a", truncate("a€", 3))
}
