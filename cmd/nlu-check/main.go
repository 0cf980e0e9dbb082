package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/pharmastic-ai-platform/cmd/mainconfig"
	appbootstrap "github.com/wolfman30/pharmastic-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/nlu"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	translateTo := flag.String("translate", "", "also translate a sample reply into this language")
	flag.Parse()

	messages := flag.Args()
	if len(messages) == 0 {
		messages = []string{
			"I need 2 strips of Paracetamol 500mg",
			"mujhe crocin chahiye",
			"show my previous orders",
		}
	}

	cfg := appconfig.Load()
	logger := logging.New("warn")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	client, err := appbootstrap.BuildLLMClient(ctx, cfg, &awsCfg, logger)
	if err != nil {
		log.Fatalf("build llm client: %v", err)
	}
	if client == nil {
		fmt.Println("No LLM provider configured; extraction will use the fallback result.")
	}
	extractor, translator := appbootstrap.BuildLanguageServices(cfg, client, nil, logger)

	fmt.Printf("Provider: %s (fallback: %s)\n", cfg.LLMProvider, orNone(cfg.LLMFallbackProvider))
	fmt.Println(strings.Repeat("=", 60))
	for _, msg := range messages {
		start := time.Now()
		ex := extractor.Extract(ctx, msg)
		printExtraction(msg, ex, time.Since(start))
	}

	if *translateTo != "" {
		sample := "Your order is confirmed! We will deliver soon."
		start := time.Now()
		out := translator.Translate(ctx, sample, *translateTo)
		fmt.Printf("\nTranslate -> %s (%v)\n  %s\n", *translateTo, time.Since(start).Round(time.Millisecond), out)
	}
}

func printExtraction(msg string, ex nlu.Extraction, elapsed time.Duration) {
	fmt.Printf("\n%q (%v)\n", msg, elapsed.Round(time.Millisecond))
	fmt.Printf("  intent:       %s\n", ex.Intent)
	fmt.Printf("  medicine:     %s\n", orNone(ex.Medicine))
	fmt.Printf("  quantity:     %d %s\n", ex.Quantity, ex.Unit)
	fmt.Printf("  dosage:       %s\n", orNone(ex.DosageFrequency))
	fmt.Printf("  prescription: %s\n", orNone(ex.PrescriptionRequired))
	fmt.Printf("  language:     %s\n", ex.Language)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
