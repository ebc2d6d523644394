package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/anuragparashar26/skillscreen/internal/export"
	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/anuragparashar26/skillscreen/internal/resumes"
	"github.com/anuragparashar26/skillscreen/internal/store"
	"github.com/anuragparashar26/skillscreen/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Rank resume files against a job description",
	Example: `  skillscreen evaluate --job-file jd.txt --resumes 'cvs/**/*.txt'
  skillscreen evaluate -f jd.txt -r a.txt -r b.pdf -r c.docx --csv ranking.csv --save`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("job-file", "f", "", "file with the job description")
	evaluateCmd.Flags().StringP("job-title", "t", "", "job title stored with the evaluation (default is the job file name)")
	evaluateCmd.Flags().StringArrayP("resumes", "r", nil, "resume files (.txt, .md, .pdf, .docx) or glob patterns, e.g. 'cvs/**/*.pdf'")
	evaluateCmd.Flags().String("csv", "", "write the ranking to this CSV file")
	evaluateCmd.Flags().Bool("save", false, "save the evaluation to history")
	evaluateCmd.Flags().Bool("no-progress", false, "do not draw a progress bar")
	evaluateCmd.Flags().Int("summary-width", 80, "truncate summaries in the table to this many characters (0 keeps them whole)")

	_ = evaluateCmd.MarkFlagRequired("job-file")
	_ = evaluateCmd.MarkFlagRequired("resumes")
}

func evaluate(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, config, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	flags := cmd.Flags()
	jobFile, _ := flags.GetString("job-file")
	jobTitle, _ := flags.GetString("job-title")
	patterns, _ := flags.GetStringArray("resumes")
	csvPath, _ := flags.GetString("csv")
	save, _ := flags.GetBool("save")
	noProgress, _ := flags.GetBool("no-progress")
	summaryWidth, _ := flags.GetInt("summary-width")

	jd, err := os.ReadFile(jobFile)
	if err != nil {
		return fmt.Errorf("reading job description: %w", err)
	}
	jobDescription := utils.SanitizeUTF8(string(jd))
	if jobTitle == "" {
		base := filepath.Base(jobFile)
		jobTitle = strings.TrimSuffix(base, filepath.Ext(base))
	}

	paths, err := resumes.Discover(patterns)
	if err != nil {
		return err
	}
	inputs := resumes.Load(paths, config.Server.MaxUploadBytes)
	log.Info("starting the evaluation", zap.Int("resumes", len(inputs)), zap.String("version", version))

	screen, err := newApplication(ctx, config, log, pipeline.WithProgress(newProgress(!noProgress)))
	if err != nil {
		return err
	}
	defer screen.Close()

	result, err := screen.evaluator.Evaluate(ctx, jobDescription, inputs)
	if err != nil {
		return fmt.Errorf("evaluating resumes: %w", err)
	}

	if err := export.RenderTable(os.Stdout, result.Candidates, summaryWidth); err != nil {
		return err
	}

	if csvPath != "" {
		if err := writeCSVFile(csvPath, result.Candidates); err != nil {
			return err
		}
		log.Info("ranking written", zap.String("filename", csvPath))
	}

	if save {
		saveEvaluation(ctx, log, config.Store, store.Evaluation{
			JobTitle:       jobTitle,
			JobDescription: jobDescription,
			Results:        result.Candidates,
		})
	}
	return nil
}

// saveEvaluation never fails the command: the ranking is already printed.
func saveEvaluation(ctx context.Context, log *zap.Logger, cfg StoreConfig, ev store.Evaluation) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Warn("opening evaluation history failed", zap.Error(err))
		return
	}
	if st == nil {
		log.Warn("not saving evaluation", zap.String("reason", "store backend is none"))
		return
	}
	defer st.Close()

	id, err := st.Save(ctx, ev)
	if err != nil {
		log.Warn("saving evaluation failed", zap.Error(err))
		return
	}
	log.Info("evaluation saved", zap.String("id", id))
}

func writeCSVFile(path string, results []pipeline.CandidateResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	if err := export.WriteCSV(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
