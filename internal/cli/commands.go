package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/specialistvlad/toolgrid/internal/engine"
	"github.com/specialistvlad/toolgrid/internal/executor"
	"github.com/spf13/cobra"
)

func newServeCommand(f *flags, runner executor.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := f.newApp(cmd, runner)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := a.Serve(ctx); err != nil {
				return failure("%v", err)
			}
			return nil
		},
	}
}

func newRunCommand(f *flags, runner executor.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "run <request.json>",
		Short: "Execute a workflow request file and print its log.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := f.newApp(cmd, runner)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.RunFile(cmd.Context(), args[0])
			out := cmd.OutOrStdout()
			if res != nil {
				printLog(out, res.Log)
			}
			if err != nil {
				if res != nil {
					fmt.Fprintln(out, color.RedString("Workflow %q failed during %s.", res.Workflow, res.FailedIn))
				}
				return failure("%v", err)
			}
			fmt.Fprintln(out, color.GreenString("Workflow %q succeeded (run %s).", res.Workflow, res.RunID))
			return nil
		},
	}
}

func newValidateCommand(f *flags, runner executor.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <request.json>",
		Short: "Check a workflow request file without running any tool.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := f.newApp(cmd, runner)
			if err != nil {
				return err
			}
			defer a.Close()

			order, warnings, err := a.ValidateFile(cmd.Context(), args[0])
			if err != nil {
				return failure("invalid workflow: %v", err)
			}
			out := cmd.OutOrStdout()
			printLog(out, warnings)
			fmt.Fprintln(out, color.GreenString("Execution order: %s", strings.Join(order, " -> ")))
			return nil
		},
	}
}

func newToolsCommand(f *flags, runner executor.Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalog.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := f.newApp(cmd, runner)
			if err != nil {
				return err
			}
			defer a.Close()

			tools := a.Tools()
			ids := make([]string, 0, len(tools))
			for id := range tools {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			out := cmd.OutOrStdout()
			for _, id := range ids {
				def := tools[id]
				fmt.Fprintf(out, "%s  %s\n", color.HiWhiteString("%-16s", id), color.CyanString("%s", def.Command))
				if def.Description != "" {
					fmt.Fprintf(out, "    %s\n", def.Description)
				}
			}
			return nil
		},
	}
}

// printLog writes execution log lines, highlighting commands and warnings.
func printLog(w io.Writer, lines []string) {
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, engine.RunningPrefix):
			line = color.CyanString("%s", line)
		case strings.HasPrefix(line, "[WARN]"):
			line = color.YellowString("%s", line)
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		io.WriteString(w, line)
	}
}
