// Package main provides the pagechat command: ask questions about a web page
// from the terminal, or serve the orchestrator over HTTP for a browser panel.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	APIKey      string
	Model       string
	Provider    string
	BaseURL     string
	Stream      bool
	StreamSet   bool
	URL         string
	HTMLFile    string
	Selection   string
	IncludePage bool
	Question    string
	TabID       string
	Timeout     time.Duration
	RateLimit   float64
	HistoryDB   string
	ServeAddr   string
	Copy        bool
	Browser     bool
	Headless    bool
	LogLevel    string
	ShowVersion bool
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("pagechat v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, config); err != nil {
		fmt.Fprintf(os.Stderr, "pagechat: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	flag.StringVar(&config.ConfigFile, "config", "", "Path to configuration file (.json, .yaml or .toml; default ~/.pagechat/config.json)")
	flag.StringVar(&config.APIKey, "api-key", "", "API key (overrides GEMINI_API_KEY / OPENAI_API_KEY and the config file)")
	flag.StringVar(&config.Model, "model", "", "Model to use (default gemini-2.5-flash-lite)")
	flag.StringVar(&config.Provider, "provider", "", "Backend: gemini or openai")
	flag.StringVar(&config.BaseURL, "base-url", "", "Backend base URL")
	flag.BoolVar(&config.Stream, "stream", false, "Stream answers as they are generated")
	flag.StringVar(&config.URL, "url", "", "Page URL to ask about")
	flag.StringVar(&config.HTMLFile, "html", "", "Local HTML file to ask about")
	flag.StringVar(&config.Selection, "selection", "", "Text treated as the user's selection on the page")
	flag.BoolVar(&config.IncludePage, "include-page", true, "Send page metadata and body text, not only the selection")
	flag.StringVar(&config.Question, "question", "", "Ask one question and exit (interactive when empty)")
	flag.StringVar(&config.TabID, "tab", "cli", "Tab id used for history and cancellation")
	flag.DurationVar(&config.Timeout, "timeout", 0, "Per-question timeout (default from config, 20s)")
	flag.Float64Var(&config.RateLimit, "rate", 0, "Maximum backend requests per second (0 disables)")
	flag.StringVar(&config.HistoryDB, "history-db", "", "SQLite file for conversation history (in memory when empty)")
	flag.StringVar(&config.ServeAddr, "serve", "", "Serve the HTTP API on this address instead of asking")
	flag.BoolVar(&config.Copy, "copy", false, "Copy the final answer to the clipboard")
	flag.BoolVar(&config.Browser, "browser", false, "Load -url in a Playwright browser instead of fetching it")
	flag.BoolVar(&config.Headless, "headless", true, "Run the Playwright browser headless")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pagechat - ask questions about a web page\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pagechat [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # One question about a page\n")
		fmt.Fprintf(os.Stderr, "  pagechat -url https://go.dev/doc -question \"What is this page about?\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Interactive session with streaming\n")
		fmt.Fprintf(os.Stderr, "  pagechat -url https://go.dev/doc -stream\n\n")
		fmt.Fprintf(os.Stderr, "  # HTTP API for a browser side panel\n")
		fmt.Fprintf(os.Stderr, "  pagechat -serve 127.0.0.1:8787 -history-db ~/.pagechat/history.db\n\n")
	}

	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "stream" {
			config.StreamSet = true
		}
	})
	return config
}

// watchSignals cancels the in-flight question on the first interrupt and
// ends the process context when nothing is in flight.
func watchSignals(ctx context.Context, cancel context.CancelFunc, stopQuestion func() bool) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				if sig == os.Interrupt && stopQuestion() {
					fmt.Fprintln(os.Stderr, "\n[canceled]")
					continue
				}
				fmt.Fprintln(os.Stderr, "\nShutting down...")
				cancel()
				return
			}
		}
	}()
}
