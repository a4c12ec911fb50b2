package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/conduit/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type options struct {
	graphs          []string
	healthcheckPort int
	logFormat       string
	logLevel        string

	concurrency       int
	parallel          int
	nodeTimeout       time.Duration
	failFast          bool
	interruptOnCancel bool
	dryRun            bool

	resultStore           string
	resultPath            string
	azureConnectionString string
	azureContainer        string
	natsURL               string
	natsBucket            string

	trace       bool
	socketIOURL string
}

func newCommand(opts *options, ran *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conduit [flags] [GRAPH_PATH...]",
		Short: "Run dependency graphs of work concurrently.",
		Long: `Conduit - a concurrent scheduler and executor for dependency graphs.

Each GRAPH_PATH is a .hcl, .yaml or .yml file, or a directory searched
recursively for them. Every graph found is built and executed; a node runs
as soon as all of its dependencies have completed.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.graphs = append(opts.graphs, args...)
			*ran = true
			return nil
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringSliceVarP(&opts.graphs, "graph", "g", nil, "Path to a graph file or directory. May be repeated.")
	flags.StringVar(&opts.logFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.IntVar(&opts.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")

	flags.IntVar(&opts.concurrency, "concurrency", 0, "Maximum number of nodes running at once within a graph. 0 is unbounded.")
	flags.IntVar(&opts.parallel, "parallel", 1, "Number of graphs executed at the same time. 0 is unbounded.")
	flags.DurationVar(&opts.nodeTimeout, "node-timeout", 0, "Default time limit for a single node, e.g. '30s'. 0 is no limit.")
	flags.BoolVar(&opts.failFast, "fail-fast", false, "Stop scheduling new nodes after the first failure.")
	flags.BoolVar(&opts.interruptOnCancel, "interrupt", false, "Cancel the context of running nodes when the run is cancelled.")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Build the graphs and print their execution levels without running them.")

	flags.StringVar(&opts.resultStore, "result-store", app.StoreNone, "Where node results are persisted. Options: 'none', 'memory', 'fs', 'badger', 'azblob', 'nats'.")
	flags.StringVar(&opts.resultPath, "result-path", "", "Directory of the 'fs' or 'badger' result store. Empty uses a temporary location.")
	flags.StringVar(&opts.azureConnectionString, "azure-connection-string", os.Getenv("AZURE_STORAGE_CONNECTION_STRING"), "Connection string of the 'azblob' result store.")
	flags.StringVar(&opts.azureContainer, "azure-container", "", "Container of the 'azblob' result store.")
	flags.StringVar(&opts.natsURL, "nats-url", "", "Server URL of the 'nats' result store.")
	flags.StringVar(&opts.natsBucket, "nats-bucket", "conduit-results", "Key-value bucket of the 'nats' result store.")

	flags.BoolVar(&opts.trace, "trace", false, "Print OpenTelemetry spans of every node to stderr.")
	flags.StringVar(&opts.socketIOURL, "socketio-url", "", "Socket.IO server that receives scheduler events. Empty is disabled.")

	return cmd
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var opts options
	ran := false
	cmd := newCommand(&opts, &ran)
	cmd.SetOut(output)
	cmd.SetErr(output)
	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if !ran {
		// --help was handled by cobra.
		return nil, true, nil
	}
	slog.Debug("Arguments parsed successfully.")

	if len(opts.graphs) == 0 {
		slog.Debug("No graph path provided, printing usage and exiting.")
		_ = cmd.Help()
		return nil, true, nil
	}

	logFormat := strings.ToLower(opts.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(opts.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GraphPaths:            opts.graphs,
		LogFormat:             logFormat,
		LogLevel:              logLevel,
		HealthcheckPort:       opts.healthcheckPort,
		Concurrency:           opts.concurrency,
		Parallel:              opts.parallel,
		NodeTimeout:           opts.nodeTimeout,
		FailFast:              opts.failFast,
		InterruptOnCancel:     opts.interruptOnCancel,
		DryRun:                opts.dryRun,
		ResultStore:           strings.ToLower(opts.resultStore),
		ResultPath:            opts.resultPath,
		AzureConnectionString: opts.azureConnectionString,
		AzureContainer:        opts.azureContainer,
		NATSURL:               opts.natsURL,
		NATSBucket:            opts.natsBucket,
		Trace:                 opts.trace,
		SocketIOURL:           opts.socketIOURL,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
