// Package grading scores submitted answers against a bound question set.
package grading

import (
	"math"

	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
)

// NoAnswer is recorded as the selected answer of a question left blank.
const NoAnswer = "No answer"

// ErrNoQuestions is returned when the assessment has no bound questions.
var ErrNoQuestions = apperr.Validation("grading", "Grade", "assessment has no questions")

// Answer is one submitted selection.
type Answer struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedAnswer string `json:"selected_answer"`
}

// QuestionResult is the per-question breakdown entry.
type QuestionResult struct {
	QuestionID     string `json:"question_id"`
	Question       string `json:"question"`
	SelectedAnswer string `json:"selected_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
	Explanation    string `json:"explanation,omitempty"`
}

// Result is the outcome of grading one submission.
type Result struct {
	Score          int              `json:"score"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Passed         bool             `json:"passed"`
	PassingScore   int              `json:"passing_score"`
	Results        []QuestionResult `json:"results"`
}

// Grade scores answers against questions. Matching is exact and
// case-sensitive. Every bound question counts toward the total whether or not
// it was answered; answers for other question ids are ignored.
func Grade(questions []catalog.Question, answers []Answer, passingScore int) (Result, error) {
	if len(questions) == 0 {
		return Result{}, ErrNoQuestions
	}

	bound := make(map[string]catalog.Question, len(questions))
	for _, q := range questions {
		bound[q.ID] = q
	}

	res := Result{
		TotalQuestions: len(questions),
		PassingScore:   passingScore,
		Results:        make([]QuestionResult, 0, len(questions)),
	}
	seen := make(map[string]bool, len(questions))

	for _, a := range answers {
		q, ok := bound[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true

		selected := a.SelectedAnswer
		if selected == "" {
			selected = NoAnswer
		}
		correct := a.SelectedAnswer != "" && a.SelectedAnswer == q.CorrectAnswer
		if correct {
			res.CorrectCount++
		}
		res.Results = append(res.Results, breakdown(q, selected, correct))
	}

	for _, q := range questions {
		if !seen[q.ID] {
			res.Results = append(res.Results, breakdown(q, NoAnswer, false))
		}
	}

	res.Score = int(math.Round(float64(res.CorrectCount) * 100 / float64(res.TotalQuestions)))
	res.Passed = res.Score >= passingScore
	return res, nil
}

func breakdown(q catalog.Question, selected string, correct bool) QuestionResult {
	return QuestionResult{
		QuestionID:     q.ID,
		Question:       q.Text,
		SelectedAnswer: selected,
		CorrectAnswer:  q.CorrectAnswer,
		IsCorrect:      correct,
		Explanation:    q.Explanation,
	}
}
