package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/supplytrace/esg-cli/internal/ingest"
)

var (
	taskOrgID       string
	taskUserID      string
	taskFile        string
	taskConcurrency int
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage enrichment tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [company names...]",
	Short: "Create a task from company names or a CSV/XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		names := args
		if taskFile != "" {
			fileNames, err := ingest.ReadNames(taskFile)
			if err != nil {
				return err
			}
			names = append(names, fileNames...)
		}
		if len(names) == 0 {
			return eris.New("no company names given (pass names as args or --file)")
		}

		// Store-only command: the orchestrator's enricher is unused here.
		o := newStoreOnlyOrchestrator(st)
		taskID, err := o.CreateTask(ctx, taskOrgID, taskUserID, names)
		if err != nil {
			return err
		}

		fmt.Println(taskID)
		return nil
	},
}

var taskRunCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Process all unprocessed companies in a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		concurrency := taskConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.MaxConcurrentCompanies
		}

		progress, err := e.Orchestrator.ProcessTask(ctx, args[0], taskOrgID, concurrency)
		if err != nil {
			return err
		}

		zap.L().Info("task run complete",
			zap.String("task_id", args[0]),
			zap.Int("total", progress.Total),
			zap.Int("succeeded", progress.Succeeded),
			zap.Int("errored", progress.Errored),
			zap.Int("remaining", progress.Remaining),
		)
		return nil
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show a task's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		o := newStoreOnlyOrchestrator(st)
		progress, err := o.Progress(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("total: %d  succeeded: %d  errored: %d  remaining: %d\n",
			progress.Total, progress.Succeeded, progress.Errored, progress.Remaining)

		companies, err := st.ListCompanies(ctx, args[0])
		if err != nil {
			return err
		}
		for _, c := range companies {
			line := fmt.Sprintf("%s  %-12s %s", c.ID, c.Status, c.Name)
			if c.ErrorMessage != "" {
				line += "  (" + c.ErrorMessage + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an organization's tasks, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tasks, err := st.ListTasks(ctx, taskOrgID)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%s  %s  companies=%d\n", t.ID, t.Timestamp.Format("2006-01-02 15:04"), len(t.Companies))
		}
		return nil
	},
}

func init() {
	taskCmd.PersistentFlags().StringVar(&taskOrgID, "org", "", "organization ID (required)")
	taskCmd.PersistentFlags().StringVar(&taskUserID, "user", "", "submitting user ID")
	_ = taskCmd.MarkPersistentFlagRequired("org")

	taskCreateCmd.Flags().StringVar(&taskFile, "file", "", "CSV or XLSX file of company names")
	taskRunCmd.Flags().IntVar(&taskConcurrency, "concurrency", 0, "max concurrent companies (default from config)")

	taskCmd.AddCommand(taskCreateCmd, taskRunCmd, taskStatusCmd, taskListCmd)
	rootCmd.AddCommand(taskCmd)
}
