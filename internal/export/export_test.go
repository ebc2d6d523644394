package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/anuragparashar26/skillscreen/internal/store"
)

var results = []pipeline.CandidateResult{
	{CandidateName: "alice.txt", ID: "alice", Score: 86, LLMScore: 90, SimilarityScore: 0.8,
		Summary: "Strong Python background, \"Django\" expert", MatchingSkills: []string{"Python", "Django"}, MissingSkills: []string{"Kubernetes"}},
	{CandidateName: "bob.txt", ID: "bob", Score: 0, Summary: "(LLM failed: timeout)",
		MatchingSkills: []string{}, MissingSkills: []string{}},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, results); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "Candidate,Score,Matching Skills,Missing Skills,Summary\n") {
		t.Fatalf("unexpected header line: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}

	want := []string{"alice.txt", "86", "Python, Django", "Kubernetes", "Strong Python background, \"Django\" expert"}
	for i, cell := range want {
		if records[1][i] != cell {
			t.Fatalf("column %d: expected %q, got %q", i, cell, records[1][i])
		}
	}
	if records[2][2] != "" || records[2][3] != "" {
		t.Fatalf("expected empty skill cells for failed candidate, got %q / %q", records[2][2], records[2][3])
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTable(&buf, results, 10); err != nil {
		t.Fatalf("RenderTable returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"alice.txt", "bob.txt", "86", "Kubernetes", "Strong Pyt..."} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Django\" expert") {
		t.Fatalf("expected summary to be truncated, got:\n%s", out)
	}
	if strings.Index(out, "alice.txt") > strings.Index(out, "bob.txt") {
		t.Fatalf("expected rows in input order")
	}
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	err := RenderHistory(&buf, []store.Summary{
		{ID: "eval-1", JobTitle: "Backend", CreatedAt: time.Now(), Candidates: 3, TopScore: 86},
	})
	if err != nil {
		t.Fatalf("RenderHistory returned error: %v", err)
	}
	for _, want := range []string{"eval-1", "Backend", "86"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected table to contain %q, got:\n%s", want, buf.String())
		}
	}
}
