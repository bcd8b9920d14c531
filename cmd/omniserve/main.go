/*
Package main implements the address bar completion server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

OmniServe provides incremental site completion for a browser address/search
field. As the user types, it retrieves ranked candidate sites from a local
browsing-history/bookmark store and computes a single inline completion
suggestion by matching the typed prefix against the live candidates or a
static list of popular domains. It can operate as a MessagePack IPC server
for integration with a browser shell, or as a CLI application for testing
and debugging.

The query pipeline is fully cancellable: every keystroke supersedes the
previous query, the superseded fetch is signalled to stop, and a generation
check at delivery time guarantees a stale result is never shown even when
the store ignores the cancellation.

# Usage

Start the server with default settings:

	omniserve

Use a custom history database and domain list, with debug logging:

	omniserve -db /path/to/history.db -domains /path/to/domains.txt -d

Run in CLI mode for interactive testing:

	omniserve -c -limit 10

The domain list is a newline-separated file of lowercase domains in
priority order; when it is missing or unreadable the fallback source is
simply empty and the engine keeps running.

# Configuration

Runtime configuration is managed through a TOML file:

	[server]
	max_results = 24
	max_query = 60

	[history]
	db_path = "omniserve.db"
	max_history = 20
	max_bookmarks = 20
	fetch_timeout_ms = 10000

	[domains]
	file = "domains.txt"

The config file is automatically created with defaults if it doesn't exist.
fetch_timeout_ms bounds each store query; 0 disables the bound entirely.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Every query
update supersedes the previous one; only the newest query's results reach
the wire.

Send a query update:

	{"id": "q1", "q": "wiki", "l": 24}

Receive the merged candidate set and at most one inline completion:

	{"id": "q1", "q": "wiki", "s": [{"u": "https://en.wikipedia.org/", "b": true}], "c": 1, "t": 212}
	{"id": "q1", "q": "wiki", "w": "wikipedia.org", "f": true}

The browser shell populates the store over the same channel with the
"record", "bookmark" and "unbookmark" actions; "stats" returns the store
totals. In CLI mode the equivalent colon commands (:visit, :bookmark,
:unbookmark, :stats) write to the store directly.

# Command Line Flags

The following flags control application behavior:

	-db string
	    Path to the history SQLite database (overrides config)
	-domains string
	    Path to the static domain list file (overrides config)
	-config string
	    Path to a custom config.toml
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of candidates to print in CLI mode
	-rebuild-config
	    Recreate the default config.toml and exit
	-version
	    Show current version
*/
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/omniserve/internal/cli"
	"github.com/bastiangx/omniserve/pkg/config"
	"github.com/bastiangx/omniserve/pkg/domains"
	"github.com/bastiangx/omniserve/pkg/history"
	"github.com/bastiangx/omniserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
)

const (
	Version = "0.3.0-beta"
	AppName = "omniserve"
	gh      = "https://github.com/bastiangx/omniserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	// custom Flags
	showVersion := flag.Bool("version", false, "Show current version")
	dbPath := flag.String("db", "", "Path to the history SQLite database (overrides config)")
	domainsPath := flag.String("domains", "", "Path to the static domain list file (overrides config)")
	configPath := flag.String("config", "", "Path to a custom config.toml")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of candidates to print in CLI mode")
	rebuildConfig := flag.Bool("rebuild-config", false, "Recreate the default config.toml and exit")

	flag.Parse()

	if *showVersion {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    false,
			ReportTimestamp: false,
			Prefix:          "",
		})

		styles := log.DefaultStyles()

		styles.Values["version"] = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
		styles.Values["version"] = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})

		styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

		logger.SetStyles(styles)

		logger.Print("")
		logger.Print("[ OmniServe ] Serves really fast site completions!")
		logger.Print("", "version", Version)
		logger.Print("")
		logger.Print("use -h or --help to see available options")
		logger.Print("Github Repo", "gh", gh)

		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	if *rebuildConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Printf("Rebuilt default config at: %s", config.GetActiveConfigPath(""))
		os.Exit(0)
	}

	appConfig, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	if *dbPath != "" {
		appConfig.History.DBPath = *dbPath
	}
	if *domainsPath != "" {
		appConfig.Domains.File = *domainsPath
	}

	db, err := sql.Open("sqlite3", appConfig.History.DBPath)
	if err != nil {
		log.Fatalf("Failed to open history database at %s: %v", appConfig.History.DBPath, err)
	}
	defer db.Close()

	if err := history.NewMigrationRunner(db).Run(); err != nil {
		log.Fatalf("Failed to migrate history database: %v", err)
	}

	store, err := history.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init history store: %v", err)
	}
	defer store.Close()
	log.Debugf("History store ready at: %s", appConfig.History.DBPath)

	var domainList *domains.List
	if appConfig.Domains.File != "" {
		domainList, err = domains.Load(appConfig.Domains.File)
		if err != nil {
			log.Warnf("Failed to load domain list from %s: %v. Running without fallback completions...", appConfig.Domains.File, err)
		}
		log.Debugf("Domain list loaded: %d entries", domainList.Len())
	} else {
		domainList = domains.NewList(nil)
		log.Warn("No domain list specified, running without fallback completions...")
	}

	fetcher := history.NewFetcher(store, appConfig.History.MaxHistory, appConfig.History.MaxBookmarks)
	fetchTimeout := time.Duration(appConfig.History.FetchTimeoutMs) * time.Millisecond

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:", "limit", *limit, "maxLen", appConfig.CLI.DefaultMaxLen)

		resultWait := time.Duration(appConfig.CLI.ResultWaitMs) * time.Millisecond
		inputHandler := cli.NewInputHandler(fetcher, store, domainList, appConfig.CLI.DefaultMaxLen, *limit, resultWait, fetchTimeout)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(fetcher, store, domainList, appConfig)

	showStartupInfo(appConfig.History.DBPath, domainList.Len())

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dbPath string, domainCount int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("history db: ( %s )", dbPath)
	log.Infof("domain list: [ %d entries ]", domainCount)
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
