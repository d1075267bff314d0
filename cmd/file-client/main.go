package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/cache"
	"github.com/always-cache/filehttp/client"
	"github.com/always-cache/filehttp/command"
	"github.com/always-cache/filehttp/pkg/wire"
	"github.com/always-cache/filehttp/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	contentFlag        string
	cacheFlag          string
	configFlag         string
	portFlag           int
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&contentFlag, "content", "client_content", "Directory for downloaded and uploaded files")
	flag.StringVar(&cacheFlag, "cache", "memory", "Cache DB file name (use 'memory' for in-memory cache)")
	flag.StringVar(&configFlag, "config", "", "YAML config file (flags take precedence)")
	flag.IntVar(&portFlag, "port", 80, "Port for commands that do not name one")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <commands file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Please provide the path to the commands file.")
		flag.Usage()
		os.Exit(1)
	}

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config := filehttp.DefaultConfig()
	if configFlag != "" {
		var err error
		if config, err = filehttp.GetConfig(configFlag); err != nil {
			log.Fatal().Err(err).Str("file", configFlag).Msg("Could not read config")
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "content":
			config.Client.Content = contentFlag
		case "cache":
			config.Client.Cache = cacheFlag
		case "port":
			config.Client.DefaultPort = portFlag
		}
	})

	commandsFile, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("The provided path to the commands file does not exist")
	}
	loader := command.Loader{
		Content:     storage.Dir{Root: config.Client.Content},
		DefaultPort: config.Client.DefaultPort,
	}
	jobs, skipped, err := loader.Load(commandsFile)
	commandsFile.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read the commands file")
	}
	for _, s := range skipped {
		log.Warn().Int("line", s.Line).Msg(s.Reason)
	}

	var provider cache.CacheProvider
	if config.Client.Cache == "memory" {
		provider = cache.NewMemCache()
	} else if provider, err = cache.NewSQLiteCache(config.Client.Cache); err != nil {
		log.Fatal().Err(err).Msg("Could not open cache db")
	}

	c := client.New(client.Config{
		Pool: client.PoolConfig{
			ProbeTimeout: config.Client.ProbeTimeout,
			Retry: client.RetryPolicy{
				Base:  config.Client.RetryBase,
				Limit: config.Client.RetryLimit,
			},
		},
		Cache: provider,
		Limits: wire.Limits{
			MaxLine: config.Client.MaxLineBytes,
			MaxBody: config.Client.MaxBodyBytes,
		},
		Logger: &log.Logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info().Msgf("Running %d requests", len(jobs))
	if err := c.Run(ctx, jobs); err != nil {
		log.Warn().Err(err).Msg("Interrupted")
	}
	if err := c.Close(); err != nil {
		log.Error().Err(err).Msg("Could not close client")
	}
}
