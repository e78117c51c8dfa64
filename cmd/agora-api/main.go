package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/agora-ai/agora/internal/adapters/http"
	"github.com/agora-ai/agora/internal/adapters/llm"
	"github.com/agora-ai/agora/internal/adapters/retrieval"
	firestorestore "github.com/agora-ai/agora/internal/adapters/storage/firestore"
	memstore "github.com/agora-ai/agora/internal/adapters/storage/memory"
	mongostore "github.com/agora-ai/agora/internal/adapters/storage/mongo"
	sqlitestore "github.com/agora-ai/agora/internal/adapters/storage/sqlite"
	"github.com/agora-ai/agora/internal/app/dialogue"
	"github.com/agora-ai/agora/internal/app/personas"
	"github.com/agora-ai/agora/internal/app/reset"
	"github.com/agora-ai/agora/internal/app/session"
	"github.com/agora-ai/agora/internal/config"
	"github.com/agora-ai/agora/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// Storage: memory, sqlite, mongo or firestore
	store, mongoClientStore := buildStore(ctx, cfg)
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("closing store: %v", err)
		}
	}()

	// LLM: mock, groq or vertex
	generator := buildGenerator(ctx, cfg)

	// Retrieval: shares the Mongo connection when one exists, static otherwise
	var retriever domain.Retriever
	if mongoClientStore != nil {
		log.Printf("[RETRIEVAL] Using Mongo text search (collection=%s)", cfg.MongoMemoryCollection)
		retriever = retrieval.NewMongoRetriever(
			mongoClientStore.Client(), cfg.MongoDBName, cfg.MongoMemoryCollection, cfg.RetrievalTopK)
	} else {
		log.Println("[RETRIEVAL] Using static retriever (empty corpus)")
		retriever = retrieval.NewStaticRetriever(nil, cfg.RetrievalTopK)
	}

	// Personas
	registry := personas.NewRegistry()
	if cfg.PersonasFile != "" {
		if err := registry.LoadFile(cfg.PersonasFile); err != nil {
			log.Fatalf("loading personas file: %v", err)
		}
		log.Printf("[PERSONAS] Loaded overrides from %s", cfg.PersonasFile)
	}

	// Sessions
	sessions := session.NewManager(cfg.SessionTimeout, cfg.CleanupInterval, cfg.CleanupBackoff)
	sessions.StartCleanup(ctx)

	// Services
	engine := dialogue.NewEngine(generator, retriever,
		cfg.SummarizeTrigger, cfg.RetainAfterSummary, cfg.RetrievalTopK)
	dlgSvc := dialogue.NewService(sessions, registry, store, engine)
	rstSvc := reset.NewService(store)

	// HTTP server
	handler := httpadapter.NewServer(dlgSvc, sessions, registry, rstSvc)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("Agora API listening on port:", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	sessions.Shutdown()
}

// buildStore returns the checkpoint store and, when the backend is Mongo, the
// concrete store so its client can be reused by the retriever.
func buildStore(ctx context.Context, cfg *config.Config) (domain.CheckpointStore, *mongostore.Store) {
	switch cfg.StorageBackend {
	case "firestore":
		log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)
		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		return store, nil

	case "mongo":
		log.Printf("[STORE] Using Mongo storage (db=%s)", cfg.MongoDBName)
		store, err := mongostore.NewStore(ctx, mongostore.Config{
			URI:                  cfg.MongoURI,
			DBName:               cfg.MongoDBName,
			CheckpointCollection: cfg.MongoCheckpointCollection,
			WritesCollection:     cfg.MongoWritesCollection,
		})
		if err != nil {
			log.Fatalf("error initializing Mongo store: %v", err)
		}
		return store, store

	case "sqlite":
		log.Printf("[STORE] Using SQLite storage (path=%s)", cfg.SQLitePath)
		store, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("error initializing SQLite store: %v", err)
		}
		return store, nil

	default:
		log.Println("[STORE] Using in-memory storage")
		return memstore.NewStore(), nil
	}
}

func buildGenerator(ctx context.Context, cfg *config.Config) domain.ResponseGenerator {
	switch cfg.LLMBackend {
	case "groq":
		log.Printf("[LLM] Using Groq client (model=%s)", cfg.GroqModel)
		client, err := llm.NewGroqClient(llm.GroqConfig{
			APIKey:      cfg.GroqAPIKey,
			Model:       cfg.GroqModel,
			BaseURL:     cfg.GroqBaseURL,
			TokenBudget: cfg.ContextTokenBudget,
		})
		if err != nil {
			log.Fatalf("error initializing Groq client: %v", err)
		}
		return client

	case "vertex":
		log.Printf("[LLM] Using Vertex client (model=%s)", cfg.VertexModel)
		client, err := llm.NewVertexClient(ctx, llm.VertexConfig{
			ProjectID:   cfg.GCPProjectID,
			Location:    cfg.GCPLocation,
			Model:       cfg.VertexModel,
			TokenBudget: cfg.ContextTokenBudget,
		})
		if err != nil {
			log.Fatalf("error initializing Vertex client: %v", err)
		}
		return client

	default:
		log.Println("[LLM] Using MOCK LLM client")
		return llm.NewMockClient()
	}
}
