package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abatilo/duedate/internal/config"
	"github.com/abatilo/duedate/internal/editor"
	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/export"
	"github.com/abatilo/duedate/internal/server"
	"github.com/abatilo/duedate/internal/storage"
	"github.com/abatilo/duedate/internal/task"
)

// initCmd implements 'duedate init'.
func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config and an empty task file",
		Run: func(cmd *cobra.Command, _ []string) {
			if _, err := os.Stat(configPath); err != nil || force {
				if err = config.Save(configPath, cfg); err != nil {
					printError(err)
				}
				printOutput(formatter.FormatMessage("Wrote config to " + configPath))
			}

			if cfg.Store.Driver != storage.DriverCSV && cfg.Store.Driver != "" {
				return
			}
			backend := storage.NewCSVBackend(cfg.Store.CSVPath, logger)
			defer backend.Close()
			if err := backend.Init(cmd.Context(), force); err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage("Initialized task file at " + backend.Path()))
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reinitialize even if already exists")
	return cmd
}

// serveCmd implements 'duedate serve'.
func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task API",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, stop := signalContext()
			defer stop()

			st, err := storage.Open(ctx, storeOptions(), logger)
			if err != nil {
				printError(err)
			}
			defer st.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			srv := server.New(st, logger, cfg.Server.AllowedOrigins)
			if err = srv.ListenAndServe(ctx, addr, cfg.Server.ShutdownTimeout); err != nil {
				printError(err)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

// listCmd implements 'duedate list'.
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Run: func(cmd *cobra.Command, _ []string) {
			tasks, closeTasks, err := openTasks(cmd.Context())
			if err != nil {
				printError(err)
			}
			defer closeTasks()

			list, err := tasks.List(cmd.Context())
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTaskList(list))
		},
	}
}

// addCmd implements 'duedate add'.
func addCmd() *cobra.Command {
	var due, start, section, assignee, priority, progress string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dueDate, err := task.ParseDate(due)
			if err != nil {
				printError(err)
			}
			startDate, err := task.ParseDate(start)
			if err != nil {
				printError(err)
			}
			p := task.Priority(priority)
			if !task.IsValidPriority(p) {
				printError(dderrors.InvalidPriorityError{Value: priority})
			}
			pr := task.Progress(progress)
			if !task.IsValidProgress(pr) {
				printError(dderrors.InvalidProgressError{Value: progress})
			}

			tasks, closeTasks, err := openTasks(cmd.Context())
			if err != nil {
				printError(err)
			}
			defer closeTasks()

			ed := editor.New(tasks, logger)
			ed.UpdateNewTask(func(d task.Draft) task.Draft {
				return d.WithName(args[0]).
					WithDueDate(dueDate).
					WithStartDate(startDate).
					WithSection(section).
					WithAssignee(assignee).
					WithPriority(p).
					WithProgress(pr)
			})

			saved, err := ed.AddTask(cmd.Context())
			if err != nil {
				printError(err)
			}
			if !jsonOutput && !saved.DueDate.Equal(dueDate) {
				printOutput(formatter.FormatAdjustment(dueDate, saved.DueDate))
			}
			printOutput(formatter.FormatTask(saved))
		},
	}
	cmd.Flags().StringVarP(&due, "due", "d", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&section, "section", "s", "", "Section or board column")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "Assignee")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(task.PriorityMedium), "Priority (Low, Medium, High)")
	cmd.Flags().StringVar(&progress, "progress", string(task.ProgressNotStarted),
		"Progress (Not Started, In Progress, On Hold, Completed, Done)")
	return cmd
}

// editCmd implements 'duedate edit'.
func editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <due-date>",
		Short: "Change a task's due date",
		Args:  cobra.ExactArgs(2), //nolint:mnd // CLI takes 2 positional args
		Run: func(cmd *cobra.Command, args []string) {
			id, err := parseID(args[0])
			if err != nil {
				printError(err)
			}
			dueDate, err := task.ParseDate(args[1])
			if err != nil {
				printError(err)
			}

			tasks, closeTasks, err := openTasks(cmd.Context())
			if err != nil {
				printError(err)
			}
			defer closeTasks()

			ed := editor.New(tasks, logger)
			if err = ed.Load(cmd.Context()); err != nil {
				printError(err)
			}
			if err = ed.BeginEdit(id); err != nil {
				printError(err)
			}
			if err = ed.SetDueDate(dueDate); err != nil {
				printError(err)
			}
			saved, err := ed.Save(cmd.Context())
			if err != nil {
				printError(err)
			}
			if !jsonOutput && !saved.DueDate.Equal(dueDate) {
				printOutput(formatter.FormatAdjustment(dueDate, saved.DueDate))
			}
			printOutput(formatter.FormatTask(saved))
		},
	}
}

// rmCmd implements 'duedate rm'. Deleting is never allowed; the command
// exists so the refusal is explicit.
func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a task (not supported)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := parseID(args[0])
			if err != nil {
				printError(err)
			}
			tasks, closeTasks, err := openTasks(cmd.Context())
			if err != nil {
				printError(err)
			}
			defer closeTasks()

			if err = editor.New(tasks, logger).Delete(cmd.Context(), id); err != nil {
				printError(err)
			}
		},
	}
}

// adjustCmd implements 'duedate adjust'.
func adjustCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <date>",
		Short: "Show the due date a given date would be saved as",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			d, err := task.ParseDate(args[0])
			if err != nil {
				printError(err)
			}
			if d.IsZero() {
				printError(dderrors.ValidationError{Field: "date", Reason: "is required"})
			}
			printOutput(formatter.FormatAdjustment(d, task.AdjustWeekend(d)))
		},
	}
}

// exportCmd implements 'duedate export'.
func exportCmd() *cobra.Command {
	var format, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the task list as JSON, CSV or PDF",
		Run: func(cmd *cobra.Command, _ []string) {
			tasks, closeTasks, err := openTasks(cmd.Context())
			if err != nil {
				printError(err)
			}
			defer closeTasks()

			data, err := export.NewExporter(tasks).Export(cmd.Context(), format)
			if err != nil {
				printError(err)
			}
			if outPath == "" {
				printOutput(string(data))
				return
			}
			//nolint:gosec // G306: exports are meant to be shared
			if err = os.WriteFile(outPath, data, 0o644); err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf("Exported %s to %s", format, outPath)))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatJSON, "Export format (json, csv, pdf)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, InvalidIDError{Value: s}
	}
	return id, nil
}
