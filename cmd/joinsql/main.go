// Command joinsql prints the SQL, or the shortest join paths, for a field
// selection over a model file.
//
//	joinsql --model retail.yaml --field customer.country --field sales.amount --condition customer.belgian
//
// It exits with status 2 when the selected tables cannot be joined.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"joinpath/internal/logging"
	"joinpath/internal/modelfile"
	"joinpath/internal/schema"
)

const (
	exitOK     = 0
	exitError  = 1
	exitNoPath = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	model      string
	fields     []string
	conditions []string
	paths      bool
	direct     bool
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	flags := pflag.NewFlagSet("joinsql", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.model, "model", "m", "", "Model file (YAML)")
	flags.StringArrayVarP(&opts.fields, "field", "f", nil, "Field to select as table.field (repeatable)")
	flags.StringArrayVarP(&opts.conditions, "condition", "w", nil, "Condition to apply as table.condition (repeatable)")
	flags.BoolVar(&opts.paths, "paths", false, "Print the shortest paths between the selected tables instead of SQL")
	flags.BoolVar(&opts.direct, "direct", false, "Only join tables through relationships between selected tables")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if opts.model == "" {
		return opts, errors.New("--model is required")
	}
	if len(opts.fields) == 0 {
		return opts, errors.New("at least one --field is required")
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		_, _ = fmt.Fprintln(stderr, err)
		return exitError
	}
	logger := logging.NewLogger(logging.Config{Level: opts.logLevel, Format: "text", Output: stderr})

	model, err := modelfile.LoadFile(opts.model)
	if err != nil {
		logger.Error("failed to load model", slog.String("path", opts.model), slog.String("error", err.Error()))
		return exitError
	}
	fields, err := model.ResolveFields(opts.fields)
	if err != nil {
		logger.Error("invalid field", slog.String("error", err.Error()))
		return exitError
	}
	conds, err := model.ResolveConditions(opts.conditions)
	if err != nil {
		logger.Error("invalid condition", slog.String("error", err.Error()))
		return exitError
	}
	tables := schema.TablesInvolved(fields)
	logger.Debug("selection resolved",
		slog.Int("fields", len(fields)),
		slog.Int("conditions", len(conds)),
		slog.Int("tables", len(tables)),
	)

	if opts.paths {
		paths := model.ShortestPathsBetween(tables)
		if len(paths) == 0 {
			logger.Warn("no join path", slog.Int("tables", len(tables)))
			return exitNoPath
		}
		for _, p := range paths {
			_, _ = fmt.Fprintf(stdout, "%s\t(size %d, score %d)\n", p, p.Size(), p.Score())
		}
		return exitOK
	}

	var joins *schema.Joins
	if opts.direct {
		joins = model.JoinsBetween(tables)
	} else {
		joins = model.AllJoinsBetween(tables)
	}
	if err := schema.ValidateJoins(joins); err != nil {
		logger.Error("cannot render joins", slog.String("error", err.Error()))
		return exitError
	}
	text, ok := schema.SQLFor(fields, joins, conds)
	if !ok {
		logger.Warn("no join path", slog.Int("tables", len(tables)))
		return exitNoPath
	}
	_, _ = fmt.Fprint(stdout, text)
	return exitOK
}
