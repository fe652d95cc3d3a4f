package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/tasksync/internal/model"
	appsync "github.com/nhle/tasksync/internal/sync"
)

// syncOnce opens the store, starts syncing the signed-in user and waits
// for the first snapshot.
func syncOnce(ctx context.Context, e *env) (*appsync.Engine, []model.Task, error) {
	userID, err := e.requireUser()
	if err != nil {
		return nil, nil, err
	}
	if err := e.openStore(ctx); err != nil {
		return nil, nil, err
	}

	first := make(chan []model.Task, 1)
	engine := e.engine(appsync.WithOnChange(func(tasks []model.Task) {
		select {
		case first <- tasks:
		default:
		}
	}))

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Remote.CommandTimeout())
	defer cancel()

	if err := engine.StartSync(ctx, userID); err != nil {
		return nil, nil, err
	}
	select {
	case tasks := <-first:
		return engine, tasks, nil
	case <-ctx.Done():
		engine.StopSync()
		return nil, nil, fmt.Errorf("waiting for tasks of %s: %w", userID, ctx.Err())
	}
}

func listCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the signed-in user's tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			engine, tasks, err := syncOnce(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer engine.StopSync()

			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
}

func addCmd(configPath *string) *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task, or a subtask with --to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("task text is empty")
			}

			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			engine, _, err := syncOnce(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer engine.StopSync()

			ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Remote.CommandTimeout())
			defer cancel()

			if parentID != "" {
				if _, ok := engine.Task(parentID); !ok {
					return fmt.Errorf("no task with id %s", parentID)
				}
				if err := engine.AddSubtask(ctx, parentID, text); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added subtask to %s\n", parentID)
				return nil
			}

			id, err := engine.AddTask(ctx, text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&parentID, "to", "", "id of the task to add a subtask to")

	return cmd
}

// printTasks writes one line per task, followed by its indented subtasks.
func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks yet.")
		return
	}

	for _, t := range tasks {
		line := fmt.Sprintf("%s %s  %s", checkBox(t.Completed), t.Text, t.ID)
		if done, total := t.SubtaskProgress(); total > 0 {
			line += fmt.Sprintf("  (%d/%d)", done, total)
		}
		fmt.Fprintln(w, line)

		for _, s := range t.Subtasks {
			fmt.Fprintf(w, "    %s %s\n", checkBox(s.Completed), s.Text)
		}
	}
}

func checkBox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}
