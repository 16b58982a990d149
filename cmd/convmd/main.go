package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/convmd/convmd"
	"github.com/convmd/convmd/internal/cli"
	"github.com/convmd/convmd/internal/transformer"
)

func main() {
	var inPath string
	var characterFile string
	var cdnBase string
	var fragment bool
	var noBackup bool
	var drafts bool
	var debug bool
	flag.StringVar(&inPath, "in", "", "Input markdown post or content directory")
	flag.StringVar(&characterFile, "characters", "", "Optional characters.yaml for strict speaker validation")
	flag.StringVar(&cdnBase, "cdn", "", "Asset CDN base URL (default built in)")
	flag.BoolVar(&fragment, "fragment", false, "Emit body HTML only, without the page shell")
	flag.BoolVar(&noBackup, "no-backup", false, "Do not back up existing output files")
	flag.BoolVar(&drafts, "drafts", false, "Render posts marked draft: true")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if inPath == "" {
		fmt.Println("Please provide an input file or directory with -in")
		os.Exit(1)
	}

	var characters *convmd.CharacterSet
	if characterFile != "" {
		cs, err := convmd.LoadCharacters(characterFile)
		if err != nil {
			fmt.Printf("Error loading characters: %v\n", err)
			os.Exit(1)
		}
		characters = cs
	}

	mode := convmd.ModePage
	if fragment {
		mode = convmd.ModeFragment
	}

	opts := transformer.TransformOptions{
		WriterMode:    mode,
		NoBackup:      noBackup,
		IncludeDrafts: drafts,
		Characters:    characters,
		AssetBase:     cdnBase,
	}

	slog.Debug("rendering", "path", inPath, "options", opts.Pretty())

	processor := cli.NewProcessor(opts)
	results, err := processor.ProcessPath(inPath)
	if err != nil {
		fmt.Printf("Error rendering: %v\n", err)
		os.Exit(1)
	}

	for _, r := range results {
		fmt.Printf("Rendered %s to %s\n", r.Path, r.OutPath)
	}
}
