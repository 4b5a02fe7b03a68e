package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"recipemigrate/internal/composer"
	"recipemigrate/internal/logging"
	"recipemigrate/internal/migrate"
)

var stage2Flags struct {
	stateFolder string
}

var stage2Cmd = &cobra.Command{
	Use:   "stage2",
	Short: "Apply validated stage-1 results back to the authoring system",
	Long: `Stage 2 reads the stage-1 ledger of a state folder and pushes each
transformed recipe back to the authoring system, skipping any article whose
revision changed since stage 1 ran. Outcomes land in stage-2-results.csv;
rerunning resumes where the previous run stopped.`,
	RunE: runStage2,
}

func init() {
	f := stage2Cmd.Flags()
	f.StringVar(&stage2Flags.stateFolder, "state-folder", "", "State folder holding the stage-1 ledger (required)")
	_ = stage2Cmd.MarkFlagRequired("state-folder")
}

func runStage2(cmd *cobra.Command, _ []string) error {
	cfg, httpClient, err := loadConfig()
	if err != nil {
		return err
	}

	stateFolder := stage2Flags.stateFolder
	if _, err := os.Stat(stage1LedgerPath(stateFolder)); err != nil {
		return fmt.Errorf("no stage-1 ledger in %s: %w", stateFolder, err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logging.New("stage2")
	log.Info("starting stage 2", "state_folder", stateFolder)

	composerClient, err := composer.New(cfg.IntegrationReadURL, cfg.IntegrationWriteURL,
		composer.WithHTTPClient(httpClient),
		composer.WithLogger(logging.New("composer")))
	if err != nil {
		return err
	}

	stage := &migrate.Stage2{
		Composer:   composerClient,
		Apply:      composerClient,
		Stage1Path: stage1LedgerPath(stateFolder),
		Stage2Path: stage2LedgerPath(stateFolder),
		Log:        log,
	}
	if err := stage.Run(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stage 2 complete. Ledger: %s\n", stage.Stage2Path)
	return nil
}
