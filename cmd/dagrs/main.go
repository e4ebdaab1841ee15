// Command dagrs runs a graph described by a YAML file and reports the
// outcome via log lines and a process exit code.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dagrs-dev/dagrs"
	"github.com/dagrs-dev/dagrs/emit"
	"github.com/dagrs-dev/dagrs/parser"
)

// Exit codes, per §7.3: 0 success, 1 failed/cancelled, 2 structural or
// parse error, 3 I/O error.
const (
	exitOK         = 0
	exitTaskFailed = 1
	exitStructural = 2
	exitIO         = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var yamlPath, logPath, logLevel string

	cmd := &cobra.Command{
		Use:           "dagrs",
		Short:         "Run a dagrs graph described in YAML",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVar(&yamlPath, "yaml", "", "path to the graph's YAML definition (required)")
	cmd.Flags().StringVar(&logPath, "log-path", "", "path to write logs to (default stdout)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: info|warn|error|debug")
	_ = cmd.MarkFlagRequired("yaml")

	exitCode := exitOK
	cmd.RunE = func(_ *cobra.Command, _ []string) error {
		exitCode = execute(yamlPath, logPath, logLevel)
		return nil
	}
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStructural
	}
	return exitCode
}

func execute(yamlPath, logPath, logLevel string) int {
	ctx := context.Background()

	writer := os.Stdout
	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "opening log file:", err)
			return exitIO
		}
		defer f.Close()
		writer = f
	}

	g, _, err := parser.Parse(ctx, yamlPath, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parsing graph:", err)
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return exitIO
		}
		return exitStructural
	}

	emitter := emit.NewLogEmitter(writer, emit.ParseLevel(logLevel))
	ok, err := g.Start(ctx, dagrs.WithEmitter(emitter))
	if err != nil {
		fmt.Fprintln(os.Stderr, "starting graph:", err)
		return exitStructural
	}
	if !ok {
		return exitTaskFailed
	}
	return exitOK
}
