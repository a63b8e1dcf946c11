// Package cli parses command-line arguments and environment variables for
// the mvmnt-time inspection tool.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the settings parsed from the command line.
type Config struct {
	MIDIPath    string  // path to the .mid file to inspect
	LogLevel    string  // debug, info, warn, error
	FPS         float64 // export frame rate
	WindowStart float64 // query window start in seconds
	WindowEnd   float64 // query window end in seconds (0 = whole file)
	Frames      int     // number of export frame times to print
	ShowHelp    bool
}

// ParseArgs parses args into a Config. Flags may appear before or after the
// positional MIDI path; environment variables fill in values the flags leave
// at their defaults.
func ParseArgs(args []string) (*Config, error) {
	// Reorder so flags come first, positional arguments last.
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("mvmnt-time", flag.ContinueOnError)

	config := &Config{}

	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (shorthand)")
	fs.Float64Var(&config.FPS, "fps", 60, "export frame rate")
	fs.Float64Var(&config.WindowStart, "from", 0, "query window start (seconds)")
	fs.Float64Var(&config.WindowEnd, "to", 0, "query window end (seconds, 0 = whole file)")
	fs.IntVar(&config.Frames, "frames", 10, "export frame times to print")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (shorthand)")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// Environment fallbacks; explicit flags win.
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}
	if config.FPS == 60 {
		if fpsEnv := os.Getenv("MVMNT_FPS"); fpsEnv != "" {
			if v, err := strconv.ParseFloat(fpsEnv, 64); err == nil && v > 0 {
				config.FPS = v
			}
		}
	}

	if config.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %v", config.FPS)
	}
	if config.Frames < 0 {
		return nil, fmt.Errorf("frames must be non-negative, got %d", config.Frames)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if fs.NArg() > 0 {
		config.MIDIPath = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs places flags before positional arguments so flag.Parse sees
// everything.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// A non-flag successor is this flag's value, except for the
			// boolean flags.
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if arg != "-h" && arg != "--help" && arg != "-help" {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp writes usage information to stdout.
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `mvmnt-time - musical-time engine inspector

Usage:
  mvmnt-time [options] <file.mid>

Arguments:
  file.mid      Standard MIDI File to load into a timeline

Options:
  -l, --log-level <level>   log level: debug, info, warn, error (default: info)
  --fps <rate>              export frame rate (default: 60)
  --from <seconds>          query window start (default: 0)
  --to <seconds>            query window end (default: whole file)
  --frames <n>              export frame times to print (default: 10)
  -h, --help                show this help

Environment Variables:
  LOG_LEVEL=<level>         log level
  MVMNT_FPS=<rate>          export frame rate
`)
}
