package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD)" -o meshnode ./cmd/meshnode
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		runDemo(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("meshnode %s (%s)\n", version, commit)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println("Usage: meshnode <command> [options]")
	fmt.Println()
	fmt.Println("  demo [--config path] [--nodes N] [--duration 10s]   Run a local loopback mesh")
	fmt.Println("  version                                              Show version information")
	fmt.Println()
	fmt.Println("demo wires N nodes in a line topology over in-process loopback")
	fmt.Println("interfaces -- no sockets, no real transport -- and, once the run")
	fmt.Println("ends, prints each node's route count and neighbor count.")
}
