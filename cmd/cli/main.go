package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ramadan8/MediaUtility/internal/app"
	"github.com/ramadan8/MediaUtility/internal/config"
	"github.com/ramadan8/MediaUtility/pkg/logger"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", os.Getenv(config.PathEnv), "Path to YAML config file")
	flag.Usage = printUsage
}

// openApp loads the configuration and opens every shared resource.
func openApp() *app.App {
	log := logger.GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	a, err := app.New(cfg, log)
	if err != nil {
		fmt.Printf("Failed to initialise: %v\n", err)
		log.Errorf("Initialisation failed: %v", err)
		os.Exit(1)
	}
	return a
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		logger.GetLogger().Warnf("Shutdown: %v", err)
	}
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]
	logger.GetLogger().Debugf("Executing command: %s", command)

	var err error
	switch command {
	case "find":
		err = runFind(rest)
	case "convert":
		err = runConvert(rest)
	case "index":
		err = runIndex(rest)
	case "match":
		err = runMatch(rest)
	case "list":
		err = runList(rest)
	case "delete":
		err = runDelete(rest)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// splitArgs separates leading positional arguments from the flags that
// follow them, so "find <url> --duration 10" parses like "find --duration 10 <url>".
func splitArgs(args []string) (positional, flags []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

func printUsage() {
	fmt.Println("MediaUtility - identify songs in online media and convert media files")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --config <path>    YAML config file (env: MEDIAUTIL_CONFIG)")
	fmt.Println("\nUsage:")
	fmt.Println("  mediautil find <url> [--timestamp N] [--duration N] [--no-cache]")
	fmt.Println("  mediautil convert <url> --format <mp3|flac|mp4|webm|gif> [--out <dir>]")
	fmt.Println("  mediautil index <file|dir> [--title T] [--artist A] [--source ID]")
	fmt.Println("  mediautil match <audio_file>")
	fmt.Println("  mediautil list")
	fmt.Println("  mediautil delete <song_id>")
	fmt.Println("\nExamples:")
	fmt.Println("  mediautil find \"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42\"")
	fmt.Println("  mediautil convert \"https://example.com/clip.webm\" --format gif --out ./out")
	fmt.Println("  mediautil index ./library")
}
