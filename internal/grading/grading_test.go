package grading_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/grading"
	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
)

func questions(n int) []catalog.Question {
	qs := make([]catalog.Question, 0, n)
	for i := range n {
		qs = append(qs, catalog.Question{
			ID:            string(rune('a' + i)),
			Text:          "What is " + string(rune('a'+i)) + "?",
			Options:       []string{"Yes", "No", "Maybe", "Never"},
			CorrectAnswer: "Yes",
			Explanation:   "Always yes.",
		})
	}
	return qs
}

func TestGrade_OneCorrectOneUnanswered(t *testing.T) {
	res, err := grading.Grade(questions(2), []grading.Answer{
		{QuestionID: "a", SelectedAnswer: "Yes"},
		{QuestionID: "b", SelectedAnswer: ""},
	}, 70)
	require.NoError(t, err)

	assert.Equal(t, 50, res.Score)
	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.False(t, res.Passed)
	assert.Equal(t, 70, res.PassingScore)
	require.Len(t, res.Results, 2)
	assert.Equal(t, grading.NoAnswer, res.Results[1].SelectedAnswer)
	assert.False(t, res.Results[1].IsCorrect)
	assert.Equal(t, "Always yes.", res.Results[1].Explanation)
}

func TestGrade_UnsubmittedCountsAgainstScore(t *testing.T) {
	res, err := grading.Grade(questions(4), []grading.Answer{
		{QuestionID: "a", SelectedAnswer: "Yes"},
	}, 25)
	require.NoError(t, err)

	assert.Equal(t, 25, res.Score)
	assert.Equal(t, 4, res.TotalQuestions)
	assert.True(t, res.Passed)
	require.Len(t, res.Results, 4)
	for _, r := range res.Results[1:] {
		assert.Equal(t, grading.NoAnswer, r.SelectedAnswer)
	}
}

func TestGrade_ExactMatch(t *testing.T) {
	tests := []struct {
		name     string
		selected string
		want     bool
	}{
		{"exact", "Yes", true},
		{"lowercase", "yes", false},
		{"trailing space", "Yes ", false},
		{"leading space", " Yes", false},
		{"other option", "No", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := grading.Grade(questions(1), []grading.Answer{
				{QuestionID: "a", SelectedAnswer: tt.selected},
			}, 100)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Results[0].IsCorrect)
			assert.Equal(t, tt.want, res.Passed)
		})
	}
}

func TestGrade_Rounding(t *testing.T) {
	res, err := grading.Grade(questions(3), []grading.Answer{
		{QuestionID: "a", SelectedAnswer: "Yes"},
		{QuestionID: "b", SelectedAnswer: "Yes"},
		{QuestionID: "c", SelectedAnswer: "No"},
	}, 67)
	require.NoError(t, err)
	assert.Equal(t, 67, res.Score)
	assert.True(t, res.Passed)
}

func TestGrade_IgnoresForeignAndDuplicateAnswers(t *testing.T) {
	res, err := grading.Grade(questions(2), []grading.Answer{
		{QuestionID: "a", SelectedAnswer: "Yes"},
		{QuestionID: "a", SelectedAnswer: "Yes"},
		{QuestionID: "zzz", SelectedAnswer: "Yes"},
	}, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 50, res.Score)
	assert.Len(t, res.Results, 2)
}

func TestGrade_NoQuestions(t *testing.T) {
	_, err := grading.Grade(nil, []grading.Answer{{QuestionID: "a", SelectedAnswer: "Yes"}}, 0)
	if !errors.Is(err, grading.ErrNoQuestions) {
		t.Fatalf("Grade() error = %v, want ErrNoQuestions", err)
	}
	if !apperr.IsValidation(err) {
		t.Error("ErrNoQuestions should be a validation error")
	}
}
