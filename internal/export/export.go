package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/anuragparashar26/skillscreen/internal/store"
	"github.com/anuragparashar26/skillscreen/internal/utils"
	"github.com/olekukonko/tablewriter"
)

// SkillSeparator joins skill lists into one display cell.
const SkillSeparator = ", "

// Header is the column layout shared by the CSV and table renderings.
var Header = []string{"Candidate", "Score", "Matching Skills", "Missing Skills", "Summary"}

// Row flattens one result into the Header columns.
func Row(r pipeline.CandidateResult) []string {
	return []string{
		r.CandidateName,
		strconv.Itoa(r.Score),
		strings.Join(r.MatchingSkills, SkillSeparator),
		strings.Join(r.MissingSkills, SkillSeparator),
		r.Summary,
	}
}

// WriteCSV writes results in the given order.
func WriteCSV(w io.Writer, results []pipeline.CandidateResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// RenderTable prints a ranked table. Summaries longer than summaryWidth runes
// are shortened; zero keeps them whole.
func RenderTable(w io.Writer, results []pipeline.CandidateResult, summaryWidth int) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Candidate", "Score", "LLM", "Similarity", "Matching Skills", "Missing Skills", "Summary")

	for i, r := range results {
		summary := r.Summary
		if summaryWidth > 0 {
			summary = utils.TruncateForLog(summary, summaryWidth)
		}
		if err := table.Append(
			strconv.Itoa(i+1),
			r.CandidateName,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.LLMScore),
			fmt.Sprintf("%.3f", r.SimilarityScore),
			strings.Join(r.MatchingSkills, SkillSeparator),
			strings.Join(r.MissingSkills, SkillSeparator),
			summary,
		); err != nil {
			return fmt.Errorf("append row %s: %w", r.ID, err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

// RenderHistory prints stored evaluations, newest first as given.
func RenderHistory(w io.Writer, items []store.Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Job Title", "Created", "Candidates", "Top Score")

	for _, it := range items {
		if err := table.Append(
			it.ID,
			it.JobTitle,
			it.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(it.Candidates),
			strconv.Itoa(it.TopScore),
		); err != nil {
			return fmt.Errorf("append row %s: %w", it.ID, err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
