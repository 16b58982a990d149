package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/convmd/convmd"
	iLsp "github.com/convmd/convmd/internal/lsp"
	"github.com/convmd/convmd/internal/lsp/server"
	"github.com/sourcegraph/jsonrpc2"
)

// getLogFile returns a log file for the lsp server to write to.
//
// During development (-debug flag) uses persistent log for easy access.
func getLogFile(debug bool) (*os.File, error) {
	if debug {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir := filepath.Join(homeDir, ".convmd")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(filepath.Join(logDir, "convmd-ls.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}

	return os.CreateTemp("", "convmd-ls-*.log")
}

func main() {
	var debug bool
	var characterFile string
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&characterFile, "characters", "", "Optional characters.yaml for strict speaker validation")
	flag.Parse()

	logFile, err := getLogFile(debug)
	if err != nil {
		slog.Error("failed to setup logging", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("starting convmd-ls", "logfile", logFile.Name())

	o := server.DefaultServerOptions
	if characterFile != "" {
		cs, err := convmd.LoadCharacters(characterFile)
		if err != nil {
			slog.Error("failed to load characters", "error", err)
			os.Exit(1)
		}
		o.DocService = iLsp.DocumentServiceOptions{
			PreviewRoot: iLsp.DefaultDocumentServiceOptions.PreviewRoot,
			Characters:  cs,
		}
	}

	ctx := context.Background()

	s, err := server.NewServer(o)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return
	}

	<-jsonrpc2.NewConn(
		ctx,
		jsonrpc2.NewBufferedStream(server.NewStdRWC(), jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.Handle),
	).DisconnectNotify()
}
