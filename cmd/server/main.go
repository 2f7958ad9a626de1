package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/mgrd/docstack/internal/types"
	"github.com/mgrd/docstack/pkg/auth"
	"github.com/mgrd/docstack/pkg/chat"
	"github.com/mgrd/docstack/pkg/chunker"
	"github.com/mgrd/docstack/pkg/config"
	"github.com/mgrd/docstack/pkg/extract"
	"github.com/mgrd/docstack/pkg/llm"
	"github.com/mgrd/docstack/pkg/pipeline"
	"github.com/mgrd/docstack/pkg/repo"
	"github.com/mgrd/docstack/pkg/store"
	"github.com/mgrd/docstack/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	// Optional .env for local development.
	godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %s: %s", e.Field, e.Message)
		}
		os.Exit(1)
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

	// The vector pipeline is best-effort: the API stays up for document
	// management even when Postgres or Ollama is unreachable.
	vectorPipeline := buildPipeline(cfg)
	if vectorPipeline == nil {
		color.Yellow("vector pipeline unavailable; search and chat are disabled")
	}

	var chatEngine server.ChatModel
	if engine, err := llm.NewChatWithConfig(llm.ChatConfig{
		Model:       cfg.Chat.Model,
		BaseURL:     cfg.Chat.BaseURL,
		MaxTokens:   cfg.Chat.MaxTokens,
		Temperature: cfg.Chat.Temperature,
	}); err != nil {
		color.Yellow("chat model unavailable: %v", err)
	} else {
		chatEngine = engine
	}

	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil {
		return err
	}

	srv, err := server.NewWithConfig(server.ServerConfig{
		Port:      port,
		UploadDir: cfg.Server.UploadDir,
		Pipeline:  vectorPipeline,
		Documents: repo.NewDocumentRepo(db),
		Users:     auth.NewUserManager(db),
		History:   chat.NewHistoryManager(db),
		Chat:      chatEngine,
	})
	if err != nil {
		return err
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	color.Green("listening on :%d", port)
	return srv.Start()
}

// buildPipeline wires extractor, chunker, embedder and vector store.
// Any failure disables vector processing rather than aborting startup.
func buildPipeline(cfg *config.Config) types.Pipeline {
	if cfg.Vector.URL == "" {
		color.Yellow("no vector database configured (set DATABASE_URL)")
		return nil
	}

	extractorConfig := extract.ExtractorConfig{
		TesseractBin: cfg.Extract.TesseractBin,
		PdftotextBin: cfg.Extract.PdftotextBin,
	}

	captioner, err := llm.NewCaptionerWithConfig(llm.CaptionConfig{
		BaseURL:     cfg.Caption.BaseURL,
		APIKey:      cfg.Caption.APIKey,
		Model:       cfg.Caption.Model,
		MaxTokens:   cfg.Caption.MaxTokens,
		Temperature: cfg.Caption.Temperature,
		RateLimit:   cfg.Caption.RateLimit,
	})
	switch {
	case err != nil:
		color.Yellow("caption model unavailable: %v", err)
	case !captioner.Enabled():
		color.Yellow("no caption API key configured; image descriptions are disabled")
	default:
		extractorConfig.Captioner = captioner
	}

	extractor := extract.NewWithConfig(extractorConfig)

	textChunker, err := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:    cfg.Chunker.ChunkSize,
		ChunkOverlap: cfg.Chunker.ChunkOverlap,
	})
	if err != nil {
		color.Yellow("chunker unavailable: %v", err)
		return nil
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		VectorDim: cfg.Vector.VectorDim,
	})
	if err != nil {
		color.Yellow("embedder unavailable: %v", err)
		return nil
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: cfg.Vector.URL,
		TableName:  cfg.Vector.TableName,
		VectorDim:  cfg.Vector.VectorDim,
	})
	if err != nil {
		color.Yellow("vector store unavailable: %v", err)
		return nil
	}

	p, err := pipeline.NewWithConfig(pipeline.PipelineConfig{
		Extractor:      extractor,
		Chunker:        textChunker,
		Embedder:       embedder,
		Store:          vectorStore,
		CollectionName: cfg.Vector.TableName,
	})
	if err != nil {
		vectorStore.Close()
		color.Yellow("pipeline unavailable: %v", err)
		return nil
	}

	return p
}
