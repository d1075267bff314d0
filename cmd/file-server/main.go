package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/admin"
	"github.com/always-cache/filehttp/pkg/wire"
	"github.com/always-cache/filehttp/server"
	"github.com/always-cache/filehttp/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	portFlag           int
	contentFlag        string
	storageFlag        string
	configFlag         string
	adminFlag          string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.IntVar(&portFlag, "port", 80, "Port to listen on")
	flag.StringVar(&contentFlag, "content", "server_content", "Content directory (or db file with -storage sqlite)")
	flag.StringVar(&storageFlag, "storage", "dir", "Storage backend: 'dir' or 'sqlite'")
	flag.StringVar(&configFlag, "config", "", "YAML config file (flags take precedence)")
	flag.StringVar(&adminFlag, "admin", "", "Address for the admin endpoint, e.g. 127.0.0.1:9090")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

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
		case "port":
			config.Server.Port = portFlag
		case "content":
			config.Server.Content = contentFlag
		case "storage":
			config.Server.Storage = storageFlag
		case "admin":
			config.Server.Admin = adminFlag
		}
	})

	var store storage.Store
	switch config.Server.Storage {
	case "dir":
		store = storage.Dir{Root: config.Server.Content}
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteStore(config.Server.Content)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not open content db")
		}
		defer sqliteStore.Close()
		store = sqliteStore
	default:
		log.Fatal().Msgf("Unknown storage '%s'", config.Server.Storage)
	}

	srv := server.New(server.Config{
		Addr:       fmt.Sprintf(":%d", config.Server.Port),
		Threshold:  config.Server.Threshold,
		MaxTimeout: config.Server.MaxIdleTimeout,
		Limits: wire.Limits{
			MaxLine: config.Server.MaxLineBytes,
			MaxBody: config.Server.MaxBodyBytes,
		},
		Store: store,
		Logger:     &log.Logger,
	})

	if config.Server.Admin != "" {
		go func() {
			log.Info().Msgf("Admin endpoint on %s", config.Server.Admin)
			err := http.ListenAndServe(config.Server.Admin, admin.NewRouter(srv, log.Logger))
			log.Error().Err(err).Msg("Admin endpoint stopped")
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info().Msg("Shutting down")
		srv.Close()
	}()

	log.Info().Msgf("Serving %s (%s) on port %d", config.Server.Content, config.Server.Storage, config.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != server.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
