package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	StorageBackend string // "memory", "sqlite", "mongo" or "firestore"
	LLMBackend     string // "mock", "groq" or "vertex"

	// Conversation workflow
	SummarizeTrigger   int // messages since last boundary that trigger a summary
	RetainAfterSummary int // window kept after a summary, strictly < SummarizeTrigger
	RetrievalTopK      int
	ContextTokenBudget int // 0 disables prompt trimming

	// Sessions
	SessionTimeout  time.Duration
	CleanupInterval time.Duration
	CleanupBackoff  time.Duration

	// Groq (OpenAI-compatible)
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	// Vertex AI
	GCPProjectID string
	GCPLocation  string
	VertexModel  string

	// MongoDB
	MongoURI                  string
	MongoDBName               string
	MongoCheckpointCollection string
	MongoWritesCollection     string
	MongoMemoryCollection     string

	// SQLite
	SQLitePath string

	// Optional YAML file that adds or overrides personas
	PersonasFile string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("config: %s must be an integer, got %q", key, v)
	}
	return n
}

func getDurationEnv(key string, unit time.Duration, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("config: %s must be an integer, got %q", key, v)
	}
	return time.Duration(n) * unit
}

// Load reads all env vars and builds the config.
func Load() *Config {
	cfg := &Config{
		Port: getEnv("AGORA_PORT", "8000"),

		StorageBackend: getEnv("AGORA_STORAGE_BACKEND", "memory"),
		LLMBackend:     getEnv("AGORA_LLM_BACKEND", "mock"),

		SummarizeTrigger:   getIntEnv("AGORA_SUMMARIZE_TRIGGER", 30),
		RetainAfterSummary: getIntEnv("AGORA_RETAIN_AFTER_SUMMARY", 5),
		RetrievalTopK:      getIntEnv("AGORA_RETRIEVAL_TOP_K", 3),
		ContextTokenBudget: getIntEnv("AGORA_CONTEXT_TOKEN_BUDGET", 0),

		SessionTimeout:  getDurationEnv("AGORA_SESSION_TIMEOUT_MINUTES", time.Minute, 60*time.Minute),
		CleanupInterval: getDurationEnv("AGORA_CLEANUP_INTERVAL_SECONDS", time.Second, 600*time.Second),
		CleanupBackoff:  getDurationEnv("AGORA_CLEANUP_BACKOFF_SECONDS", time.Second, 60*time.Second),

		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		GroqModel:   getEnv("GROQ_LLM_MODEL", "qwen/qwen3-32b"),
		GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),

		GCPProjectID: getEnv("AGORA_GCP_PROJECT", ""),
		GCPLocation:  getEnv("AGORA_GCP_LOCATION", "us-central1"),
		VertexModel:  getEnv("AGORA_VERTEX_MODEL", "gemini-2.5-flash"),

		MongoURI:                  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:               getEnv("MONGO_DB_NAME", "agora"),
		MongoCheckpointCollection: getEnv("MONGO_STATE_CHECKPOINT_COLLECTION", "persona_state_checkpoints"),
		MongoWritesCollection:     getEnv("MONGO_STATE_WRITES_COLLECTION", "persona_state_writes"),
		MongoMemoryCollection:     getEnv("MONGO_LONG_TERM_MEMORY_COLLECTION", "persona_long_term_memory"),

		SQLitePath: getEnv("AGORA_SQLITE_PATH", "data/agora.db"),

		PersonasFile: getEnv("AGORA_PERSONAS_FILE", ""),
	}

	if cfg.RetainAfterSummary >= cfg.SummarizeTrigger {
		log.Fatalf("config: AGORA_RETAIN_AFTER_SUMMARY (%d) must be smaller than AGORA_SUMMARIZE_TRIGGER (%d)",
			cfg.RetainAfterSummary, cfg.SummarizeTrigger)
	}
	if cfg.LLMBackend == "groq" && cfg.GroqAPIKey == "" {
		log.Fatal("config: GROQ_API_KEY must be set for the groq LLM backend")
	}
	if cfg.LLMBackend == "vertex" && cfg.GCPProjectID == "" {
		log.Fatal("config: AGORA_GCP_PROJECT must be set for the vertex LLM backend")
	}
	if cfg.StorageBackend == "firestore" && cfg.GCPProjectID == "" {
		log.Fatal("config: AGORA_GCP_PROJECT must be set for the firestore storage backend")
	}

	return cfg
}
