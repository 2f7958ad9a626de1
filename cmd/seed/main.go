// Command seed loads a set of sample documents into a running stack so
// search and chat have something to answer from.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/mgrd/docstack/internal/models"
	"github.com/mgrd/docstack/pkg/auth"
	"github.com/mgrd/docstack/pkg/chunker"
	"github.com/mgrd/docstack/pkg/config"
	"github.com/mgrd/docstack/pkg/extract"
	"github.com/mgrd/docstack/pkg/llm"
	"github.com/mgrd/docstack/pkg/pipeline"
	"github.com/mgrd/docstack/pkg/repo"
	"github.com/mgrd/docstack/pkg/store"
)

type sampleDoc struct {
	filename    string
	description string
	content     string
}

var samples = []sampleDoc{
	{
		filename:    "onboarding.md",
		description: "new hire onboarding guide",
		content: `# Onboarding Guide

## First week

Set up your development environment and request access to the
internal tools. Your buddy will walk you through the deployment
process on day three.

## Accounts

All accounts are provisioned through the identity portal. Password
resets require a hardware key.`,
	},
	{
		filename:    "vacation-policy.txt",
		description: "company vacation policy",
		content: `Vacation Policy

Full-time employees accrue 2 days of paid leave per month. Unused
days roll over up to a maximum of 10 days. Requests longer than two
weeks need manager approval at least one month in advance.`,
	},
	{
		filename:    "expense-rules.txt",
		description: "travel expense rules",
		content: `Travel Expense Rules

Book flights through the travel portal. Meals are reimbursed up to
60 EUR per day. Keep all receipts; submissions without receipts are
rejected. Expense reports are due within 30 days of the trip.`,
	},
	{
		filename:    "incident-runbook.md",
		description: "production incident runbook",
		content: `# Incident Runbook

## Severity levels

Sev1 means customer-facing outage. Page the on-call engineer and
open a bridge immediately. Sev2 is degraded service; handle during
business hours.

## Postmortems

Every Sev1 gets a blameless postmortem within five working days.`,
	},
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	db, err := repo.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return err
	}
	documents := repo.NewDocumentRepo(db)
	users := auth.NewUserManager(db)

	// Demo account for trying the authenticated endpoints.
	if _, err := users.Register(models.UserRegistration{
		Username: "demo",
		Email:    "demo@example.com",
		Password: "demo-password",
	}); err == nil {
		color.Green("✓ Created demo user (demo / demo-password)")
	}

	textChunker, err := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:    cfg.Chunker.ChunkSize,
		ChunkOverlap: cfg.Chunker.ChunkOverlap,
	})
	if err != nil {
		return err
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		VectorDim: cfg.Vector.VectorDim,
	})
	if err != nil {
		return err
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: cfg.Vector.URL,
		TableName:  cfg.Vector.TableName,
		VectorDim:  cfg.Vector.VectorDim,
	})
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	p, err := pipeline.NewWithConfig(pipeline.PipelineConfig{
		Extractor:      extract.NewWithConfig(extract.ExtractorConfig{}),
		Chunker:        textChunker,
		Embedder:       embedder,
		Store:          vectorStore,
		CollectionName: cfg.Vector.TableName,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		return err
	}

	color.Blue("\nSeeding %d sample documents\n", len(samples))
	bar := progressbar.NewOptions(len(samples),
		progressbar.OptionSetDescription(color.BlueString("Ingesting documents...")),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	ctx := context.Background()
	for _, sample := range samples {
		path := filepath.Join(cfg.Server.UploadDir, sample.filename)
		if err := os.WriteFile(path, []byte(sample.content), 0o644); err != nil {
			return err
		}

		contentType := extract.ResolveContentType(sample.filename, "")
		doc := models.Document{
			Filename:         sample.filename,
			OriginalFilename: sample.filename,
			FilePath:         path,
			FileSize:         int64(len(sample.content)),
			ContentType:      contentType,
			Description:      sample.description,
		}
		if err := documents.Create(&doc); err != nil {
			return err
		}

		result := p.ProcessDocument(ctx, path, contentType, doc.ID, doc.OriginalFilename, doc.Description)
		if result.Status == models.StatusError {
			color.Red("\n%s: %s", sample.filename, result.Error)
		}
		bar.Add(1)
	}

	color.Green("\n✓ Seeding complete\n")
	return nil
}
