package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stopbank/crestline/internal/api"
	"github.com/stopbank/crestline/internal/config"
	"github.com/stopbank/crestline/internal/dispatcher"
	"github.com/stopbank/crestline/internal/handlers"
	"github.com/stopbank/crestline/internal/influx"
	"github.com/stopbank/crestline/internal/logging"
	"github.com/stopbank/crestline/internal/monitor"
	"github.com/stopbank/crestline/internal/runctx"
	"github.com/stopbank/crestline/internal/storage"
	"github.com/stopbank/crestline/internal/worker"
)

// module defs - Version and BuildDate can be set at build time via ldflags
var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"

	AppName string = "crestline"
)

// file paths
var (
	// ConfigDir is the directory searched for crestline.cfg.json.
	// Set with the -config flag or a bare directory argument.
	ConfigDir string

	// SessionLogPath is where this process writes its log.
	SessionLogPath string
	SessionLogFile *os.File

	// SqliteDumpPath is the session-stamped target for periodic dumps
	// of the in-memory sqlite backend. Set in initStorage.
	SqliteDumpPath string
)

// global variables
var (
	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// subsystemLog is the zerolog logger shared by the database and
	// influx managers and the event dispatcher.
	subsystemLog zerolog.Logger

	// Services
	runContext      *runctx.Context
	handlerService  *handlers.Service
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
	influxManager   *influx.Manager

	// Storage backend selected by the factory
	storageBackend storage.Backend
)

func init() {
	flag.StringVar(&ConfigDir, "config", ".", "directory containing crestline.cfg.json")
}

func main() {
	flag.Parse()

	args := flag.Args()
	verb := "run"
	if len(args) > 0 {
		verb = strings.ToLower(args[0])
	}

	switch verb {
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, Version, BuildDate)

	case "help":
		usage()

	case "dump":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "dump requires the path of a sqlite database")
			os.Exit(2)
		}
		bootstrap()
		if err := runDump(args[1]); err != nil {
			fatal("Database dump failed", err)
		}

	case "run":
		bootstrap()
		runExtraction()

	default:
		// A bare directory argument selects the config dir and runs.
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			ConfigDir = args[0]
			bootstrap()
			runExtraction()
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", verb)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`%s %s - terrain break-line extraction

Usage:
  %s [flags] [command]

Commands:
  run        extract break points, cross-sections and volumes (default)
  dump PATH  snapshot a sqlite database (or every .db in a directory) via VACUUM INTO
  version    print version information
  help       show this message

Flags:
  -config DIR  directory containing crestline.cfg.json (default ".")

A bare directory argument is treated as the config directory.
`, AppName, Version, AppName)
}

// bootstrap loads configuration and brings up the logging stack. The
// process runs without a config file; every key has a default.
func bootstrap() {
	// console-only logging until the config names a log file
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(ConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", ConfigDir)
	}

	level := config.GetString("defaultLogLevel")

	// logFile may name a file, rotated to .old on start, or a
	// directory collecting one timestamped log per session.
	SessionLogPath = config.GetString("logFile")
	if info, err := os.Stat(SessionLogPath); err == nil && info.IsDir() {
		SessionLogPath = logging.LogFilePath(SessionLogPath, AppName, SessionStartTime)
	} else if err == nil {
		os.Rename(SessionLogPath, SessionLogPath+".old")
	}

	var fileSink io.Writer
	f, err := os.OpenFile(SessionLogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file", "error", err, "path", SessionLogPath)
	} else {
		SessionLogFile = f
		fileSink = f
	}

	runContext = runctx.NewContext()
	SlogManager.Setup(fileSink, level, runAttrs)
	Logger = SlogManager.Logger()
	if fileSink != nil {
		Logger.Info("Logging to file", "path", SessionLogPath)
	}

	subsystemLog, err = logging.NewZerolog(logging.ZerologOptions{
		Level:       level,
		File:        fileSink,
		GelfAddress: gelfAddress(),
	})
	if err != nil {
		Logger.Warn("GELF sink unavailable", "error", err)
	}

	Logger.Info("Starting up", "version", Version, "built", BuildDate)
}

// runAttrs stamps every log record with the run and feature being
// extracted. Nothing is added while no run is active.
func runAttrs() []slog.Attr {
	if runContext == nil || !runContext.Active() {
		return nil
	}
	attrs := []slog.Attr{slog.String("run", runContext.GetRun().ID)}
	if f := runContext.Feature(); f != "" {
		attrs = append(attrs, slog.String("feature", f))
	}
	return attrs
}

func gelfAddress() string {
	if !config.GetBool("gelf.enabled") {
		return ""
	}
	return config.GetString("gelf.address")
}

// checkServerStatus logs whether the upload frontend answers its
// healthcheck.
func checkServerStatus() {
	client := api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
	if err := client.Healthcheck(); err != nil {
		Logger.Info("Crestline frontend is offline")
	} else {
		Logger.Info("Crestline frontend is online")
	}
}

// fatal reports a bootstrap failure and exits non-zero. Only input
// loading and backend initialization use it; per-feature errors are
// logged and the run moves on.
func fatal(msg string, err error) {
	Logger.Error(msg, "error", err)
	if SessionLogFile != nil {
		SessionLogFile.Close()
	}
	os.Exit(1)
}
