package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"recipemigrate/internal/capi"
	"recipemigrate/internal/composer"
	"recipemigrate/internal/index"
	"recipemigrate/internal/logging"
	"recipemigrate/internal/migrate"
	"recipemigrate/internal/templatiser"
)

var stage1Flags struct {
	stateFolder string
	parallelism int
}

var stage1Cmd = &cobra.Command{
	Use:   "stage1",
	Short: "Transform and validate every recipe, recording outcomes to the ledger",
	Long: `Stage 1 fetches the full recipe index, groups recipes by their parent
article, and runs each group through the transformation service. Every
outcome lands in stage-1-results.csv; rerunning against the same state
folder resumes where the previous run stopped.`,
	RunE: runStage1,
}

func init() {
	f := stage1Cmd.Flags()
	f.StringVar(&stage1Flags.stateFolder, "state-folder", "", "State folder for ledgers and artifacts (default: ./data/migration-{timestamp})")
	f.IntVar(&stage1Flags.parallelism, "parallelism", 8, "Number of article groups processed concurrently")
}

func runStage1(cmd *cobra.Command, _ []string) error {
	cfg, httpClient, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stateFolder := resolveStateFolder(stage1Flags.stateFolder)
	log := logging.New("stage1")
	log.Info("starting stage 1", "state_folder", stateFolder, "parallelism", stage1Flags.parallelism)

	indexClient, err := index.New(cfg.IndexURL,
		index.WithHTTPClient(httpClient),
		index.WithLogger(logging.New("index")))
	if err != nil {
		return err
	}
	capiClient, err := capi.New(cfg.CAPIURL, cfg.CAPIKey,
		capi.WithHTTPClient(httpClient),
		capi.WithLogger(logging.New("capi")))
	if err != nil {
		return err
	}
	composerClient, err := composer.New(cfg.IntegrationReadURL, cfg.IntegrationWriteURL,
		composer.WithHTTPClient(httpClient),
		composer.WithLogger(logging.New("composer")))
	if err != nil {
		return err
	}
	templatiserClient, err := templatiser.New(cfg.TemplatiserURL, cfg.TemplatiserToken,
		templatiser.WithHTTPClient(httpClient),
		templatiser.WithLogger(logging.New("templatiser")))
	if err != nil {
		return err
	}

	stage := &migrate.Stage1{
		Index: indexClient,
		Processor: &migrate.Processor{
			CAPI:        capiClient,
			Composer:    composerClient,
			Templatiser: templatiserClient,
			OutputDir:   artifactDir(stateFolder),
			Log:         logging.New("processor"),
		},
		LedgerPath:  stage1LedgerPath(stateFolder),
		ArtifactDir: artifactDir(stateFolder),
		Parallelism: stage1Flags.parallelism,
		Reporter:    migrate.NewReporter(log, stdoutIsTerminal()),
		Log:         log,
	}
	if err := stage.Run(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stage 1 complete. Ledger: %s\n", stage.LedgerPath)
	return nil
}
