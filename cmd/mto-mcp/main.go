package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/mto-mcp/internal/config"
	"github.com/ironsheep/mto-mcp/internal/monitoring"
	"github.com/ironsheep/mto-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("mto-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("mto-mcp - MCP server for max-tree astronomical source detection")
			fmt.Println()
			fmt.Println("Usage: mto-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  MTO_MCP_LOG_LEVEL=debug      Enable debug logging")
			fmt.Printf("  %s=<file.json>     Detection defaults (alpha, min_contrast, smooth_sigma, ...)\n", config.EnvPath)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	logLevel := os.Getenv("MTO_MCP_LOG_LEVEL")
	if logLevel == "debug" {
		monitoring.EnableStdLogger()
		log.Printf("MTO MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	defaults, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if path := os.Getenv(config.EnvPath); path != "" {
		monitoring.Logf("Loaded detection defaults from %s", path)
	}

	srv := server.NewWithDefaults(defaults)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
