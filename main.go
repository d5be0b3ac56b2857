package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SaiNageswarS/go-api-boot/config"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/burrowworks/rabbithole/appconfig"
	"github.com/burrowworks/rabbithole/db"
	"github.com/burrowworks/rabbithole/llm"
	"github.com/burrowworks/rabbithole/search"
	"github.com/burrowworks/rabbithole/services"
	"github.com/burrowworks/rabbithole/session"
	"github.com/burrowworks/rabbithole/synthesizer"
	"go.uber.org/zap"
)

func main() {
	dotenv.LoadEnv()

	// load config file
	ccfgg := &appconfig.AppConfig{}
	err := config.LoadConfig("config.ini", ccfgg)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	mongoClient, err := odm.GetClient()
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	ctx := getCancellableContext()

	if err := db.InitRabbitholeDB(ctx, mongoClient, ccfgg.Tenant); err != nil {
		logger.Fatal("Failed to ensure indexes", zap.Error(err))
	}

	llmClient := provideLLMClient(ccfgg)
	searcher := search.NewTavilyClient()

	synth := synthesizer.New(searcher, llmClient, ccfgg.LLMModel)
	store := session.NewStore(db.NewSearchRepository(mongoClient, ccfgg.Tenant))
	rabbitholes := services.ProvideRabbitholeService(synth, store)

	srv := &http.Server{
		Addr:    ccfgg.HTTPPort,
		Handler: services.NewRouter(rabbitholes),
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("Starting rabbithole API", zap.String("addr", ccfgg.HTTPPort))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func provideLLMClient(ccfgg *appconfig.AppConfig) llm.LLMClient {
	switch ccfgg.LLMProvider {
	case "ollama":
		return llm.NewOllamaClient(ccfgg.LLMModel)
	default:
		return llm.NewOpenAIClient(ccfgg.LLMModel)
	}
}

func getCancellableContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		cancel()
	}()

	return ctx
}
