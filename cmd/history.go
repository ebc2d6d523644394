package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/anuragparashar26/skillscreen/internal/export"
	"github.com/anuragparashar26/skillscreen/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNoHistory = errors.New("evaluation history is empty")

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved evaluations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved evaluations, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHistory(func(ctx context.Context, _ *zap.Logger, st store.Store) error {
			items, err := st.List(ctx)
			if err != nil {
				return err
			}
			return export.RenderHistory(cmd.OutOrStdout(), items)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show the ranking of a saved evaluation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, _ *zap.Logger, st store.Store) error {
			ev, err := getEvaluation(ctx, st, args)
			if err != nil {
				return err
			}
			width, _ := cmd.Flags().GetInt("summary-width")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  (%s)\n\n", ev.ID, ev.JobTitle, ev.CreatedAt.Local().Format("2006-01-02 15:04"))
			return export.RenderTable(out, ev.Results, width)
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved evaluation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, log *zap.Logger, st store.Store) error {
			ev, err := getEvaluation(ctx, st, args)
			if err != nil {
				return err
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				confirm := promptui.Prompt{
					Label:     fmt.Sprintf("Delete evaluation %q (%s)", ev.JobTitle, ev.ID),
					IsConfirm: true,
				}
				if _, err := confirm.Run(); err != nil {
					log.Info("exiting", zap.String("reason", "deletion not confirmed"))
					return nil
				}
			}

			if err := st.Delete(ctx, ev.ID); err != nil {
				return err
			}
			log.Info("evaluation deleted", zap.String("id", ev.ID))
			return nil
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a saved evaluation as CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, log *zap.Logger, st store.Store) error {
			ev, err := getEvaluation(ctx, st, args)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("csv")
			if path == "" {
				return export.WriteCSV(cmd.OutOrStdout(), ev.Results)
			}
			if err := writeCSVFile(path, ev.Results); err != nil {
				return err
			}
			log.Info("evaluation exported", zap.String("id", ev.ID), zap.String("filename", path))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyExportCmd)

	historyShowCmd.Flags().Int("summary-width", 80, "truncate summaries to this many characters (0 keeps them whole)")
	historyDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	historyExportCmd.Flags().String("csv", "", "output file (default is stdout)")
}

func withHistory(fn func(ctx context.Context, log *zap.Logger, st store.Store) error) error {
	ctx := context.Background()

	log, config, err := setup()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, config.Store)
	if err != nil {
		return fmt.Errorf("opening evaluation history: %w", err)
	}
	if st == nil {
		return errors.New("evaluation history is disabled (store.backend is none)")
	}
	defer st.Close()

	return fn(ctx, log, st)
}

// getEvaluation loads the evaluation named in args, or asks the user to pick one.
func getEvaluation(ctx context.Context, st store.Store, args []string) (*store.Evaluation, error) {
	id := ""
	if len(args) > 0 {
		id = args[0]
	} else {
		selected, err := selectEvaluation(ctx, st)
		if err != nil {
			return nil, err
		}
		id = selected
	}

	ev, err := st.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("evaluation %s: %w", id, err)
	}
	return ev, err
}

func selectEvaluation(ctx context.Context, st store.Store) (string, error) {
	items, err := st.List(ctx)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", errNoHistory
	}

	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = fmt.Sprintf("%s  %s  %s  (%d candidates, top %d)",
			it.CreatedAt.Local().Format("2006-01-02 15:04"), it.JobTitle, it.ID, it.Candidates, it.TopScore)
	}

	prompt := promptui.Select{
		Label:  "Choose an evaluation and press ENTER",
		Items:  labels,
		Size:   10,
		Stdout: os.Stderr,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return items[idx].ID, nil
}
