package main

import (
	"context"
	"fmt"
	"os"

	"github.com/entrhq/pagechat/pkg/config"
	"github.com/entrhq/pagechat/pkg/history"
	"github.com/entrhq/pagechat/pkg/llm/tokenizer"
	"github.com/entrhq/pagechat/pkg/logging"
	"github.com/entrhq/pagechat/pkg/orchestrator"
	"github.com/entrhq/pagechat/pkg/server"
	"github.com/entrhq/pagechat/pkg/snapshot"
)

// run wires configuration, snapshot source, history and orchestrator, then
// serves, answers one question or starts the interactive loop.
func run(ctx context.Context, cancel context.CancelFunc, cli *CLIConfig) error {
	if cli.TabID == "" && cli.ServeAddr == "" {
		return fmt.Errorf("-tab must not be empty")
	}

	logger, err := logging.NewLogger("pagechat")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	defer logger.Close()

	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	manager, err := config.NewDefaultManager(cli.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	settingsSection := manager.SettingsSection()
	contextSection := manager.ContextSection()

	comp, err := contextSection.Composer()
	if err != nil {
		return fmt.Errorf("invalid context configuration: %w", err)
	}

	timeout := settingsSection.Timeout()
	if cli.Timeout > 0 {
		timeout = cli.Timeout
	}

	opts := []orchestrator.Option{
		orchestrator.WithTimeout(timeout),
		orchestrator.WithRetries(settingsSection.GetRetries()),
		orchestrator.WithComposer(comp),
		orchestrator.WithLogger(logger.With("orchestrator")),
		orchestrator.WithProviderFactory(newProviderCache(cli.RateLimit, logger).factory()),
	}
	if tok, err := tokenizer.New(); err != nil {
		logger.Warnf("token estimates disabled: %v", err)
	} else {
		opts = append(opts, orchestrator.WithTokenizer(tok))
	}

	snapshots, static, closeSnapshots, err := buildSnapshots(cli, logger)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	orch := orchestrator.New(nil, manager.Source(overrides(cli)), snapshots, opts...)
	defer orch.Shutdown()

	manager.OnReload(func() {
		c, err := manager.ContextSection().Composer()
		if err != nil {
			logger.Errorf("ignoring reloaded context section: %v", err)
			return
		}
		orch.SetComposer(c)
		logger.Infof("configuration reloaded")
	})
	if err := manager.Watch(ctx, func(err error) { logger.Warnf("config watch: %v", err) }); err != nil {
		logger.Warnf("config hot reload disabled: %v", err)
	}

	store, err := openHistory(cli.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	watchSignals(ctx, cancel, func() bool { return orch.Cancel(cli.TabID) })

	if cli.ServeAddr != "" {
		srv := server.New(orch, static, store, server.WithLogger(logger.With("server")))
		fmt.Fprintf(os.Stderr, "pagechat listening on %s\n", cli.ServeAddr)
		return srv.ListenAndServe(ctx, cli.ServeAddr)
	}

	session := &session{
		orch:        orch,
		history:     store,
		tabID:       cli.TabID,
		includePage: cli.IncludePage,
		copy:        cli.Copy,
		out:         os.Stdout,
		errOut:      os.Stderr,
	}
	if cli.Question != "" {
		resp := session.ask(ctx, cli.Question)
		if !resp.OK {
			return fmt.Errorf("%s", resp.Code)
		}
		return nil
	}
	return session.repl(ctx)
}

func overrides(cli *CLIConfig) config.Overrides {
	o := config.Overrides{
		APIKey:   cli.APIKey,
		Model:    cli.Model,
		Provider: cli.Provider,
		BaseURL:  cli.BaseURL,
	}
	if cli.StreamSet {
		stream := cli.Stream
		o.Streaming = &stream
	}
	return o
}

// buildSnapshots picks the snapshot source from the flags. The static
// provider is returned separately so the HTTP API can accept pushed snapshots.
func buildSnapshots(cli *CLIConfig, logger *logging.Logger) (orchestrator.SnapshotProvider, *snapshot.StaticProvider, func(), error) {
	noop := func() {}

	switch {
	case cli.ServeAddr != "":
		static := snapshot.NewStaticProvider()
		return static, static, noop, nil

	case cli.URL != "" && cli.Browser:
		browser := snapshot.NewBrowserProvider(cli.Headless)
		if err := browser.Initialize(); err != nil {
			return nil, nil, noop, err
		}
		closeFn := func() {
			if err := browser.Shutdown(); err != nil {
				logger.Warnf("browser shutdown: %v", err)
			}
		}
		if err := browser.OpenTab(cli.TabID, cli.URL); err != nil {
			closeFn()
			return nil, nil, noop, err
		}
		return browser, nil, closeFn, nil

	case cli.URL != "":
		fetch := snapshot.NewFetchProvider()
		fetch.SetTab(cli.TabID, cli.URL, cli.Selection)
		return fetch, nil, noop, nil

	case cli.HTMLFile != "":
		data, err := os.ReadFile(cli.HTMLFile)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("failed to read HTML file: %w", err)
		}
		static := snapshot.NewStaticProvider()
		static.Put(cli.TabID, *snapshot.FromHTML(string(data), "file://"+cli.HTMLFile, cli.Selection))
		return static, static, noop, nil

	case cli.Selection != "":
		static := snapshot.NewStaticProvider()
		static.Put(cli.TabID, snapshotWithSelection(cli.Selection))
		return static, static, noop, nil
	}
	return nil, nil, noop, nil
}

func openHistory(path string) (history.Store, error) {
	if path == "" {
		return history.NewMemoryStore(), nil
	}
	store, err := history.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}
