package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/flaneur2020/pngchunk/pngchunk/logger"
	"github.com/flaneur2020/pngchunk/pngchunk/storage"
	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	envRetries  = "PNGCHUNK_RETRIES"
	envLogLevel = "PNGCHUNK_LOG_LEVEL"
)

// options holds flags shared by every subcommand.
type options struct {
	verbose    bool
	debug      bool
	retries    int
	noProgress bool
	zlib       bool
	jobs       int
	width      int

	stdout io.Writer
	stderr io.Writer
	tty    bool
	store  storage.Storage
}

func main() {
	opts := &options{
		stdout: os.Stdout,
		stderr: os.Stderr,
		tty:    term.IsTerminal(int(os.Stderr.Fd())),
	}
	rootCmd := newRootCmd(opts)
	if err := rootCmd.Execute(); err != nil {
		printError(opts, err)
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pngchunk",
		Short:         "Hide, read and remove messages in PNG chunks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd.Flags())
		},
	}
	rootCmd.SetOut(opts.stdout)
	rootCmd.SetErr(opts.stderr)
	addGlobalFlags(rootCmd.PersistentFlags(), opts)

	// encode command
	encodeCmd := &cobra.Command{
		Use:   "encode <FILE> <CHUNK_TYPE> <MESSAGE> [OUTPUT]",
		Short: "Append a message chunk to a PNG file",
		Args:  cobra.RangeArgs(3, 4),
		RunE:  func(cmd *cobra.Command, args []string) error { return runEncode(cmd, opts, args) },
	}
	encodeCmd.Flags().BoolVar(&opts.zlib, "zlib", false, "Store the message zlib-compressed")

	// decode command
	decodeCmd := &cobra.Command{
		Use:   "decode <FILE> <CHUNK_TYPE>",
		Short: "Print the message stored in the first chunk of a type",
		Args:  cobra.ExactArgs(2),
		RunE:  func(cmd *cobra.Command, args []string) error { return runDecode(cmd, opts, args) },
	}

	// remove command
	removeCmd := &cobra.Command{
		Use:   "remove <FILE> <CHUNK_TYPE>",
		Short: "Remove the first chunk of a type from a PNG file",
		Args:  cobra.ExactArgs(2),
		RunE:  func(cmd *cobra.Command, args []string) error { return runRemove(cmd, opts, args) },
	}

	// print command
	printCmd := &cobra.Command{
		Use:   "print <FILE>...",
		Short: "List every chunk of one or more PNG files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runPrint(cmd, opts, args) },
	}
	printCmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress bar (shown on terminals by default)")
	printCmd.Flags().IntVar(&opts.jobs, "jobs", 4, "Number of files loaded concurrently")
	printCmd.Flags().IntVar(&opts.width, "width", 60, "Truncate payloads to this many characters (0 for no limit)")

	rootCmd.AddCommand(encodeCmd, decodeCmd, removeCmd, printCmd)
	return rootCmd
}

func addGlobalFlags(fs *pflag.FlagSet, opts *options) {
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Log informational messages")
	fs.BoolVar(&opts.debug, "debug", false, "Log debug messages")
	fs.IntVar(&opts.retries, "retries", 3, "Attempts per file read or write (env "+envRetries+")")
}

// resolve applies environment defaults for flags left unset and sets up
// logging and storage.
func (o *options) resolve(fs *pflag.FlagSet) error {
	if !fs.Changed("retries") {
		if v := os.Getenv(envRetries); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", envRetries, v, err)
			}
			o.retries = n
		}
	}

	level := logger.LogLevelError
	if v := os.Getenv(envLogLevel); v != "" {
		parsed, err := logger.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envLogLevel, err)
		}
		level = parsed
	}
	if o.verbose {
		level = logger.LogLevelInfo
	}
	if o.debug {
		level = logger.LogLevelDebug
	}
	logger.SetLogLevel(level)

	if o.store == nil {
		retry := storage.DefaultRetryOptions()
		retry.MaxAttempts = o.retries
		o.store = storage.NewRetryStorage(storage.NewLocalStorage(0644), retry)
	}
	return nil
}

func printError(opts *options, err error) {
	prefix := "Error:"
	if opts.tty {
		// Only the prefix goes through colorstring; error text has its own brackets.
		prefix = colorstring.Color("[red]Error:[reset]")
	}
	fmt.Fprintf(opts.stderr, "%s %v\n", prefix, err)
}
