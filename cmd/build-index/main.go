// Package main provides the index build CLI for campus community posts.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/campus-qa/internal/app"
	"github.com/bull/campus-qa/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Campus post index builder",
	Long:  "CLI tool for building the searchable index of campus community posts",
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the post index from the corpus",
	Long: `Reads the post corpus and writes a fresh index artifact.

This command:
1. Reads the JSONL corpus from a local file or a GitHub data repository
2. Flattens every post and its comments into one document
3. Generates an embedding for each document
4. Writes the index, texts, metadata, embeddings and config to the output directory
5. Refreshes the Qdrant mirror when QDRANT_ENABLED is set

Environment variables:
  OPENAI_API_KEY      API key for embeddings (required)
  OPENAI_BASE_URL     OpenAI-compatible endpoint (optional)
  EMBEDDING_MODEL     Embedding model (default: text-embedding-3-small)
  CORPUS_PATH         Local corpus file (default: ./corpus.jsonl)
  INDEX_DIR           Output directory (default: ./index_output)
  CORPUS_GITHUB_*     OWNER, REPO and PATH of a GitHub corpus (optional)
  GITHUB_TOKEN        GitHub token for higher rate limits (optional)
  QDRANT_ENABLED      Mirror the index into Qdrant (default: false)`,
	RunE: runBuild,
}

var (
	corpusFlag    string
	outFlag       string
	batchSizeFlag int
	githubFlag    bool
)

func init() {
	buildCmd.Flags().StringVar(&corpusFlag, "corpus", "", "corpus JSONL file (overrides CORPUS_PATH)")
	buildCmd.Flags().StringVar(&outFlag, "out", "", "output directory (overrides INDEX_DIR)")
	buildCmd.Flags().IntVar(&batchSizeFlag, "batch-size", 0, "embedding batch size (overrides EMBED_BATCH_SIZE)")
	buildCmd.Flags().BoolVar(&githubFlag, "github", false, "read the corpus from the configured GitHub repository")
	rootCmd.AddCommand(buildCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("Failed to load config: %w", err)
	}
	if corpusFlag != "" {
		cfg.Index.CorpusPath = corpusFlag
	}
	if outFlag != "" {
		cfg.Index.Dir = outFlag
	}
	if batchSizeFlag > 0 {
		cfg.Index.BatchSize = batchSizeFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("Failed to create logger: %w", err)
	}
	defer closer.Close()

	fmt.Println("Starting index build...")
	fmt.Println()

	// 1. Resolve the corpus
	src, err := app.CorpusSource(ctx, cfg, githubFlag, logger)
	if err != nil {
		return fmt.Errorf("Failed to resolve corpus: %w", err)
	}
	if githubFlag {
		fmt.Printf("Corpus: github.com/%s/%s/%s\n", cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Path)
	} else {
		fmt.Printf("Corpus: %s\n", cfg.Index.CorpusPath)
	}

	// 2. Embedding client and optional mirror
	pipeline, mirror, err := app.NewPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("Failed to create pipeline: %w", err)
	}
	if mirror != nil {
		defer mirror.Close()
		fmt.Printf("Qdrant mirror: %s:%d/%s\n", cfg.Qdrant.Host, cfg.Qdrant.Port, mirror.Collection())
	}

	// 3. Build and save
	fmt.Println()
	fmt.Printf("Embedding posts with %s (batch size %d)...\n", cfg.OpenAI.EmbeddingModel, cfg.Index.BatchSize)
	result, err := pipeline.BuildAndSave(ctx, src, cfg.Index.Dir)
	if err != nil {
		return fmt.Errorf("Index build failed: %w", err)
	}

	// 4. Print results
	fmt.Println()
	fmt.Println("Build complete!")
	fmt.Printf("  Posts: %d\n", result.TotalPosts)
	if result.SkippedLines > 0 {
		fmt.Printf("  Skipped lines: %d\n", result.SkippedLines)
	}
	fmt.Printf("  Dimension: %d\n", result.Dimension)
	fmt.Printf("  Model: %s\n", result.Model)
	fmt.Printf("  Source: %s\n", result.Source)
	fmt.Printf("  Output: %s\n", result.OutputDir)

	if mirror != nil {
		if result.Mirrored {
			fmt.Println("  Qdrant: mirrored")
		} else {
			fmt.Printf("  Qdrant: failed (%s)\n", result.MirrorError)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))

	return nil
}
