package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recipemigrate/internal/capi"
	"recipemigrate/internal/composer"
	"recipemigrate/internal/index"
	"recipemigrate/internal/logging"
	"recipemigrate/internal/migrate"
)

var dumpFlags struct {
	outDir string
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump every raw authoring recipe to disk for inspection",
	Long: `Dump walks the full recipe index, fetches the authoring representation
of each parent article, and writes every recipe as pretty-printed JSON to the
output directory. Articles that cannot be fetched are logged and skipped.`,
	RunE: runDump,
}

func init() {
	f := dumpCmd.Flags()
	f.StringVar(&dumpFlags.outDir, "out-dir", "", "Output directory (default: ./data/dump-{timestamp})")
}

func runDump(cmd *cobra.Command, _ []string) error {
	cfg, httpClient, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	outDir := dumpFlags.outDir
	if outDir == "" {
		outDir = filepath.Join("data", "dump-"+time.Now().Format("2006-01-02T15-04-05"))
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	log := logging.New("dump")

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

	refs, err := indexClient.FetchReferences(ctx)
	if err != nil {
		return fmt.Errorf("fetch references: %w", err)
	}
	groups := migrate.GroupReferences(refs, nil)
	log.Info("dumping recipes", "articles", len(groups), "out_dir", outDir)

	written := 0
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := dumpGroup(ctx, capiClient, composerClient, g, outDir)
		if err != nil {
			log.Warn("skipping article", "article_id", g.ArticleID, "error", err)
			continue
		}
		written += n
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d recipes to %s\n", written, outDir)
	return nil
}

func dumpGroup(ctx context.Context, capiClient *capi.Client, composerClient *composer.Client, g migrate.ArticleGroup, outDir string) (int, error) {
	article, err := capiClient.FetchArticle(ctx, g.ArticleID)
	if err != nil {
		return 0, err
	}
	composerID := article.ComposerID()
	if composerID == "" {
		return 0, fmt.Errorf("article has no composer id")
	}
	authored, err := composerClient.FetchArticle(ctx, composerID)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, id := range g.RecipeIDs {
		raw, ok := authored.FindRecipe(id)
		if !ok {
			continue
		}
		data, err := json.MarshalIndent(raw, "", "  ")
		if err != nil {
			return written, err
		}
		path := filepath.Join(outDir, id+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
