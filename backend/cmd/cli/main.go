package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"thoth/backend/internal/adapter"
	"thoth/backend/internal/agent"
	"thoth/backend/internal/constants"
	"thoth/backend/internal/memory"
	"thoth/backend/internal/storage"
	"thoth/backend/internal/tools"
	"thoth/backend/internal/twilio"
	"thoth/backend/internal/webpage"
	"thoth/backend/pkg/config"
	"thoth/backend/pkg/logger"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "thoth <query>",
	Short: "Ask the assistant from the terminal",
	Long: `Ask the assistant from the terminal.

The turn runs against the local memory documents under DATA_DIR, so the
CLI works without the HTTP server. Tool calls still use the shared
database and Twilio configuration.

Examples:
  thoth "What is the capital of France?"
  thoth --file webpage.txt "Summarize this webpage"
  thoth --html page.html "Analyze this HTML page"
  thoth --json "Tell me about my profile"`,
	Version:       version,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runQuery,
}

func init() {
	rootCmd.Flags().String("file", "", "path to a text or document file to include as context")
	rootCmd.Flags().String("html", "", "path to an HTML page to analyze and include as context")
	rootCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.Flags().Int("max-tokens", 1024, "maximum tokens in the response")
	rootCmd.Flags().Float32("temperature", 0.7, "response randomness (0.0-1.0)")
	rootCmd.Flags().String("output", "", "write the output to a file instead of stdout")
	rootCmd.Flags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	if err := logger.Init(os.Getenv("ENV")); err != nil {
		return err
	}
	defer logger.Sync()

	// Logs go to stderr and stay out of the way unless asked for.
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(zapcore.DebugLevel)
	} else {
		logger.SetLevel(zapcore.WarnLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	auxData := map[string]interface{}{}

	if filePath, _ := cmd.Flags().GetString("file"); filePath != "" {
		printStep("Loading reference %s", filePath)
		refs := webpage.ReadReferences([]string{filePath}, 0)
		content, ok := refs[filePath]
		if !ok {
			return fmt.Errorf("could not read %s", filePath)
		}
		auxData[filePath] = content
	}

	if htmlPath, _ := cmd.Flags().GetString("html"); htmlPath != "" {
		printStep("Analyzing page %s", htmlPath)
		raw, err := os.ReadFile(htmlPath)
		if err != nil {
			return fmt.Errorf("reading HTML page: %w", err)
		}
		page, err := webpage.SavePageContent(cfg.ReferencesDir, string(raw))
		if err != nil {
			return fmt.Errorf("analyzing HTML page: %w", err)
		}
		auxData["current_page"] = page
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	twilioClient := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	registry, err := tools.BuildRegistry(store, twilioClient, memory.NewDBBackend(store))
	if err != nil {
		return err
	}

	llm := adapter.NewOpenAI(cfg.OpenAIAPIKey)
	orch := agent.NewOrchestrator(llm, registry, cfg.ModelName)
	service := agent.NewService(orch, agent.NewSummarizer(llm), agent.NewMemoryUpdater(llm),
		memory.NewFileBackend(cfg.DataDir))

	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	temperature, _ := cmd.Flags().GetFloat32("temperature")

	var reqContext interface{}
	if len(auxData) > 0 {
		reqContext = auxData
	}

	response, err := service.Process(cmd.Context(), agent.Request{
		Query:       query,
		Source:      constants.SourceCLI,
		Context:     reqContext,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, nil)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	output, err := formatOutput(query, response, asJSON)
	if err != nil {
		return err
	}

	if outputPath, _ := cmd.Flags().GetString("output"); outputPath != "" {
		if err := writeOutput(outputPath, output); err != nil {
			printError("Could not write %s: %v", outputPath, err)
			fmt.Println(output)
			return nil
		}
		printSuccess("Output saved to %s", outputPath)
		return nil
	}

	fmt.Println(output)
	return nil
}

func formatOutput(query, response string, asJSON bool) (string, error) {
	if !asJSON {
		return response, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Query    string `json:"query"`
		Response string `json:"response"`
	}{query, response}); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func writeOutput(path, output string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(output), 0o644)
}
