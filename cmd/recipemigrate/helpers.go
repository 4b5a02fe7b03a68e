package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"recipemigrate/internal/config"
	"recipemigrate/internal/ledger"
)

// loadConfig reads and validates the config file named by --config.
func loadConfig() (*config.Config, *http.Client, error) {
	cfg, err := config.LoadFromPath(rootFlags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config %s: %w", rootFlags.configPath, err)
	}
	client, err := cfg.HTTPClient()
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

// resolveStateFolder returns the state folder to use, minting a fresh
// timestamped one under ./data when none was given.
func resolveStateFolder(flag string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join("data", "migration-"+time.Now().Format("2006-01-02T15-04-05"))
}

func stage1LedgerPath(stateFolder string) string {
	return ledger.Stage1Path(stateFolder)
}

func stage2LedgerPath(stateFolder string) string {
	return ledger.Stage2Path(stateFolder)
}

func artifactDir(stateFolder string) string {
	return filepath.Join(stateFolder, "recipes")
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
