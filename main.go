package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pdfchat/api"
	"pdfchat/chat"
	"pdfchat/config"
	"pdfchat/ingestion"
	"pdfchat/llm"
	"pdfchat/vectorstore"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	settings := config.LoadSettings()

	switch os.Args[1] {
	case "serve":
		serveCmd(settings, logger, os.Args[2:])
	case "ingest":
		ingestCmd(settings, logger, os.Args[2:])
	case "ask":
		askCmd(settings, logger, os.Args[2:])
	case "models":
		modelsCmd(settings, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(settings config.Settings, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", settings.ListenAddr, "listen address for the HTTP API")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	capability := newCapability(ctx, settings, logger, "", "")
	server := api.New(
		capability,
		newIngestService(settings, capability, logger),
		newChatService(settings, capability, logger),
		logger,
	)

	httpServer := &http.Server{Addr: *addr, Handler: server.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
}

func ingestCmd(settings config.Settings, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := flags.String("file", "", "path to the PDF document to ingest")
	url := flags.String("url", "", "ollama server URL (overrides OLLAMA_URL)")
	model := flags.String("model", "", "model to embed with (overrides OLLAMA_MODEL)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	if *file == "" {
		logger.Fatal("missing required flag: -file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("read document: %v", err)
	}

	capability := newCapability(ctx, settings, logger, *url, *model)
	svc := newIngestService(settings, capability, logger)

	if err := svc.Ingest(ctx, data, *file); err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}
}

func askCmd(settings config.Settings, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "question to answer from the ingested documents")
	url := flags.String("url", "", "ollama server URL (overrides OLLAMA_URL)")
	model := flags.String("model", "", "model to answer with (overrides OLLAMA_MODEL)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	capability := newCapability(ctx, settings, logger, *url, *model)
	svc := newChatService(settings, capability, logger)

	if strings.TrimSpace(*question) != "" {
		fmt.Println(svc.Answer(ctx, *question))
		return
	}

	// Interactive session: one conversation memory across questions.
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fmt.Println(svc.Answer(ctx, line))
		fmt.Println()
	}
	if err := scanner.Err(); err != nil {
		logger.Fatalf("read question: %v", err)
	}
}

func modelsCmd(settings config.Settings, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("models", flag.ExitOnError)
	url := flags.String("url", "", "ollama server URL (overrides OLLAMA_URL)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse models flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	target := *url
	if target == "" {
		target = settings.OllamaURL
	}
	if target == "" {
		logger.Fatal("no server URL: pass -url or set OLLAMA_URL")
	}

	capability := config.NewOllama()
	if err := capability.SetBaseURL(ctx, target); err != nil {
		logger.Fatalf("connect to ollama: %v", err)
	}

	for _, model := range capability.AvailableModels() {
		fmt.Println(model)
	}
}

// newCapability builds the Ollama capability, probing the server when a URL
// is known. A failed probe leaves the capability unconfigured rather than
// aborting, so `serve` can start before the server is reachable.
func newCapability(ctx context.Context, settings config.Settings, logger *log.Logger, url, model string) *config.Ollama {
	if url == "" {
		url = settings.OllamaURL
	}
	if model == "" {
		model = settings.OllamaModel
	}

	capability := config.NewOllama()
	if url != "" {
		if err := capability.SetBaseURL(ctx, url); err != nil {
			logger.Printf("connect to ollama at %s: %v", url, err)
		}
	}
	if model != "" && capability.BaseURL() != "" {
		if err := capability.SetSelectedModel(model); err != nil {
			logger.Printf("select model: %v", err)
		}
	}
	return capability
}

func newIngestService(settings config.Settings, capability *config.Ollama, logger *log.Logger) *ingestion.Service {
	open := func(ctx context.Context) (ingestion.Store, error) {
		store, err := vectorstore.Open(ctx, settings, capability)
		if err != nil || store == nil {
			return nil, err
		}
		return store, nil
	}
	return ingestion.NewService(settings.TempDir, nil, open, logger)
}

func newChatService(settings config.Settings, capability *config.Ollama, logger *log.Logger) *chat.Service {
	open := func(ctx context.Context) (chat.Store, error) {
		store, err := vectorstore.Open(ctx, settings, capability)
		if err != nil || store == nil {
			return nil, err
		}
		return store, nil
	}
	newClient := func() (llm.Client, error) {
		return llm.New(settings, capability)
	}
	return chat.NewService(capability, open, newClient, logger)
}

func printUsage() {
	fmt.Println("Usage: pdfchat <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API for uploads and chat")
	fmt.Println("  ingest   Ingest a PDF document into the vector store (-file)")
	fmt.Println("  ask      Answer questions from the ingested documents")
	fmt.Println("  models   List models available on the inference server")
}
