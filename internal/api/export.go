package api

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

const gradebookSheet = "Progress"

var gradebookHeader = []any{
	"User ID",
	"Current Chapter",
	"Current Lesson",
	"Lessons Completed",
	"Chapter Tests Passed",
	"Final Exam Attempts",
	"Best Final Score",
	"Course Completed",
	"Completed At",
	"Certificate Issued",
}

// writeGradebook renders one row per learner record as an xlsx workbook.
func writeGradebook(w io.Writer, course catalog.Course, chapters []catalog.Chapter, records []*progress.Progress) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", gradebookSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: course.Title + " gradebook"}); err != nil {
		return fmt.Errorf("set doc props: %w", err)
	}
	if err := f.SetSheetRow(gradebookSheet, "A1", &gradebookHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	sorted := append([]*progress.Progress(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })

	for i, p := range sorted {
		passedChapters := 0
		for _, ch := range chapters {
			if p.ChapterTestPassed(ch.ID) {
				passedChapters++
			}
		}
		passedLessons := 0
		for _, c := range p.CompletedLessons {
			if c.Passed {
				passedLessons++
			}
		}
		completedAt := ""
		if p.CompletedAt != nil {
			completedAt = p.CompletedAt.UTC().Format(time.RFC3339)
		}

		row := []any{
			p.UserID,
			p.CurrentChapterNumber,
			p.CurrentLessonNumber,
			passedLessons,
			fmt.Sprintf("%d/%d", passedChapters, len(chapters)),
			len(p.FinalExamAttempts),
			p.BestFinalExamScore(),
			p.CourseCompleted,
			completedAt,
			p.CertificateIssued,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(gradebookSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
