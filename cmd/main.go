package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"course-rag/internal/chunker"
	"course-rag/internal/config"
	"course-rag/internal/embedding"
	"course-rag/internal/helper"
	"course-rag/internal/ingest"
	"course-rag/internal/loader"
	"course-rag/internal/ocr"
	"course-rag/internal/rag"
	"course-rag/internal/store"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	ingestPath := flag.String("ingest", "", "Path to a course document to ingest")
	question := flag.String("ask", "", "Question to answer from the course material")
	query := flag.String("search", "", "Raw similarity search query")
	list := flag.Bool("list", false, "List indexed documents")
	deleteName := flag.String("delete", "", "Delete a document from the index by filename")
	topK := flag.Int("k", -1, "Number of fragments to retrieve (-1: use config)")
	threshold := flag.Float64("threshold", -1, "Similarity score threshold, 0 disables filtering (-1: use config)")
	asHTML := flag.Bool("html", false, "Render the answer markdown as HTML")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk only, do not touch the index")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	if *dryRun && *ingestPath != "" {
		dryRunIngest(ctx, cfg, *ingestPath)
		return
	}

	manager, err := openManager(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector index")
	}
	defer manager.Close()

	k := resolveTopK(*topK, cfg.RAG.TopK)
	scoreThreshold := resolveThreshold(*threshold, cfg.RAG.ScoreThreshold)

	switch {
	case *ingestPath != "":
		engine := ocr.NewEngine(cfg.OCR)
		pipeline := ingest.NewPipeline(loader.NewChain(engine), manager, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
		if err := pipeline.Ingest(ctx, *ingestPath); err != nil {
			log.Fatal().Err(err).Msg("Error ingesting document")
		}

	case *list:
		sources, err := manager.ListSources(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Error listing documents")
		}
		helper.PrettyPrint(sources)

	case *deleteName != "":
		if err := manager.DeleteSource(ctx, *deleteName); err != nil {
			log.Fatal().Err(err).Msg("Error deleting document")
		}
		log.Info().Str("source", *deleteName).Msg("document removed")

	case *query != "":
		synthesizer := rag.NewSynthesizer(manager, nil)
		sources, err := synthesizer.Search(ctx, *query, k)
		if err != nil {
			log.Fatal().Err(err).Msg("Error searching")
		}
		helper.PrettyPrint(sources)

	case *question != "":
		chat, err := rag.NewChatModel(&cfg.ChatLLM)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing chat model")
		}
		synthesizer := rag.NewSynthesizer(manager, chat)
		result, err := synthesizer.Answer(ctx, *question, k, scoreThreshold)
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering question")
		}
		printAnswer(result.Answer, *asHTML)
		helper.PrettyPrint(result.Sources)

	default:
		flag.Usage()
	}
}

// resolveTopK and resolveThreshold map the -1 flag sentinel to the config
// value; explicit zero means zero (an unfiltered answer for the threshold)
func resolveTopK(flagK, cfgK int) int {
	if flagK < 0 {
		return cfgK
	}
	return flagK
}

func resolveThreshold(flagT float64, cfgT float32) float32 {
	if flagT < 0 {
		return cfgT
	}
	return float32(flagT)
}

func openManager(ctx context.Context, cfg *config.Config) (*store.Manager, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}

	var idx store.Index
	switch cfg.Storage.Backend {
	case "postgres":
		sqldb, err := store.ConnectDB(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgresIndex(sqldb, cfg.Storage.VectorDim, cfg.Storage.Debug)
		if err := pg.Init(ctx); err != nil {
			return nil, err
		}
		idx = pg
	default:
		chromem, err := store.NewChromemIndex(cfg.Storage.Path, cfg.Storage.Collection, false, embedding.ToChromemFunc(embedder))
		if err != nil {
			return nil, err
		}
		idx = chromem
	}

	return store.NewManager(idx, embedder, cfg.Storage.UploadDir), nil
}

func dryRunIngest(ctx context.Context, cfg *config.Config, path string) {
	engine := ocr.NewEngine(cfg.OCR)
	chain := loader.NewChain(engine)
	pages, method, err := chain.Load(ctx, path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	fragments := chunker.Split(pages, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	log.Info().Str("method", method).Int("pages", len(pages)).
		Int("fragments", len(fragments)).Msg("dry run complete")
	helper.PrettyPrint(fragments)
}

func printAnswer(answer string, asHTML bool) {
	if asHTML {
		html, err := rag.RenderHTML(answer)
		if err != nil {
			log.Warn().Err(err).Msg("could not render answer as HTML")
		} else {
			answer = html
		}
	}
	fmt.Printf("%s\n\n", answer)
}
