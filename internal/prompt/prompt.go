// Package prompt builds the instructions sent to the text generation backends
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxResumeBytes caps how much resume text is forwarded to a provider
const MaxResumeBytes = 20000

// ErrEmptyInput is returned when the user supplied nothing to work with
var ErrEmptyInput = errors.New("input must not be empty")

const (
	careerAdviceTemplate = "You are 'Career Compass', a helpful AI career advisor for a global talent marketplace called LifeCompass AI. " +
		"A user has asked the following question. Provide a helpful and encouraging response. User's question: %s"

	resumeAnalysisTemplate = "Analyze this resume and suggest job roles based on the skills and experience: %s"

	jobRecommendationsTemplate = "Based on these skills: %s, recommend suitable job roles and explain why."
)

// CareerAdvice wraps a user question in the career advisor persona
func CareerAdvice(question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyInput
	}
	return fmt.Sprintf(careerAdviceTemplate, question), nil
}

// ResumeAnalysis asks for job roles matching a resume
func ResumeAnalysis(resumeText string) (string, error) {
	if strings.TrimSpace(resumeText) == "" {
		return "", ErrEmptyInput
	}
	return fmt.Sprintf(resumeAnalysisTemplate, truncate(resumeText, MaxResumeBytes)), nil
}

// JobRecommendations asks for roles suited to a skill list. Blank skills
// are dropped.
func JobRecommendations(skills []string) (string, error) {
	cleaned := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return "", ErrEmptyInput
	}
	return fmt.Sprintf(jobRecommendationsTemplate, strings.Join(cleaned, ", ")), nil
}

// truncate cuts s to at most max bytes without splitting a rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
