package main

import (
	"context"
	"log"
	"net/http"

	"github.com/carriazoe12/lexia-chatbot/internal/adapters/llm"
	"github.com/carriazoe12/lexia-chatbot/internal/app/auth"
	"github.com/carriazoe12/lexia-chatbot/internal/app/session"
	"github.com/carriazoe12/lexia-chatbot/internal/config"
	"github.com/carriazoe12/lexia-chatbot/internal/domain"

	httpadapter "github.com/carriazoe12/lexia-chatbot/internal/adapters/http"
	firestorestore "github.com/carriazoe12/lexia-chatbot/internal/adapters/storage/firestore"
	"github.com/carriazoe12/lexia-chatbot/internal/adapters/storage/gormstore"
	memstore "github.com/carriazoe12/lexia-chatbot/internal/adapters/storage/memory"
	"github.com/carriazoe12/lexia-chatbot/internal/adapters/storage/supabase"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	replier := buildReplier(cfg)
	factory := buildControllerFactory(ctx, cfg, replier)

	handler := httpadapter.NewServer(factory)

	addr := ":" + cfg.Port
	log.Println("LexIA API listening on", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}

func buildReplier(cfg *config.Config) domain.Replier {
	if cfg.UseMockLLM {
		log.Println("[LLM] Using MOCK generator for every provider")
		router := llm.NewEmptyRouter()
		mock := llm.NewMockGenerator()
		router.Register(domain.ProviderOpenAI, mock)
		router.Register(domain.ProviderGemini, mock)
		return router
	}

	router := llm.NewEmptyRouter()

	var openaiOpts []llm.OpenAIOption
	if cfg.OpenAIModel != "" {
		openaiOpts = append(openaiOpts, llm.WithOpenAIModel(cfg.OpenAIModel))
	}
	router.Register(domain.ProviderOpenAI, llm.NewOpenAIGenerator(openaiOpts...))

	var geminiOpts []llm.GeminiOption
	if cfg.GeminiModel != "" {
		geminiOpts = append(geminiOpts, llm.WithGeminiModel(cfg.GeminiModel))
	}
	router.Register(domain.ProviderGemini, llm.NewGeminiGenerator(geminiOpts...))

	return router
}

// buildControllerFactory wires the storage and identity backends. Every
// client session gets its own controller; the supabase backend also gets its
// own client per session because the access token is per-user state.
func buildControllerFactory(ctx context.Context, cfg *config.Config, replier domain.Replier) httpadapter.ControllerFactory {
	switch cfg.StorageBackend {
	case config.BackendSupabase:
		log.Println("[STORE] Using Supabase storage:", cfg.SupabaseURL)

		// fail fast on bad settings before serving
		if _, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey); err != nil {
			log.Fatalf("error initializing Supabase client: %v", err)
		}

		return func() *session.Controller {
			cli, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
			if err != nil {
				// settings were validated at startup
				panic(err)
			}
			return session.NewController(cli, cli, auth.NewService(cli), replier)
		}

	case config.BackendFirestore:
		log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)

		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}

		identity := memstore.NewIdentity()
		return func() *session.Controller {
			return session.NewController(store, store, auth.NewService(identity.NewSession()), replier)
		}

	case config.BackendSQLite:
		log.Println("[STORE] Using SQLite storage:", cfg.SQLitePath)

		store, err := gormstore.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("error opening SQLite store: %v", err)
		}

		identity := memstore.NewIdentity()
		return func() *session.Controller {
			return session.NewController(store, store, auth.NewService(identity.NewSession()), replier)
		}

	default:
		log.Println("[STORE] Using in-memory storage")

		msgs := memstore.NewMessageStore()
		convs := memstore.NewConversationStore(msgs)
		identity := memstore.NewIdentity()
		return func() *session.Controller {
			return session.NewController(convs, msgs, auth.NewService(identity.NewSession()), replier)
		}
	}
}
