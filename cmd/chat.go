package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mweide/calagent/internal/agent"
	"github.com/mweide/calagent/internal/calendar"
	"github.com/mweide/calagent/internal/catalog"
	"github.com/mweide/calagent/internal/google"
	"github.com/mweide/calagent/internal/reasoner/openai"
	"github.com/mweide/calagent/internal/schedtools"
)

const defaultModel = "gpt-4o"

func newChatCmd() *cobra.Command {
	var (
		account    string
		calendarID string
		timezone   string
		model      string
		baseURL    string
		maxTurns   int
		debugMode  bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive calendar assistant session",
		Long: `Start an interactive chat session with the calendar assistant.

The assistant answers scheduling questions by calling calendar tools: listing
events, finding free slots and creating events on your Google Calendar.

Requires OPENAI_API_KEY in the environment (or a .env file in the working
directory), and a Google account authenticated via 'calagent auth'.

Type 'clear' to reset the conversation and 'exit' or 'quit' to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(account, calendarID, timezone, model, baseURL, maxTurns, debugMode)
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to use (default: 'default')")
	cmd.Flags().StringVar(&calendarID, "calendar-id", "primary", "Calendar to operate on")
	cmd.Flags().StringVar(&timezone, "timezone", schedtools.DefaultZoneName, "IANA timezone for interpreting dates and presenting times")
	cmd.Flags().StringVar(&model, "model", "", "Model to use for reasoning. Can also use OPENAI_MODEL env var. Default: "+defaultModel)
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL of an OpenAI-compatible API. Can also use OPENAI_BASE_URL env var.")
	cmd.Flags().IntVar(&maxTurns, "max-turns", agent.DefaultMaxTurns, "Maximum reasoner/tool rounds per user message")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Print tool invocations and results")

	return cmd
}

func runChat(account, calendarID, timezone, model, baseURL string, maxTurns int, debugMode bool) error {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set (export it or add it to a .env file)")
	}
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	logLevel := slog.LevelWarn
	if debugMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	zone, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	ctx := context.Background()

	if !google.HasTokenForAccount(account) {
		return errors.New(google.GetAuthenticationErrorMessage(account))
	}

	client, err := calendar.NewClientForAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to create calendar client for account %s: %w", account, err)
	}

	tools := schedtools.New(client, calendarID,
		schedtools.WithZone(zone),
		schedtools.WithLogger(logger),
	)
	cat := catalog.NewSchedulingCatalog(tools, catalog.WithLogger(logger))

	reasonerOpts := []openai.Option{openai.WithLogger(logger)}
	if baseURL != "" {
		reasonerOpts = append(reasonerOpts, openai.WithBaseURL(baseURL))
	}
	reasoner := openai.NewClient(apiKey, model, reasonerOpts...)

	loop := agent.NewLoop(reasoner, cat,
		agent.WithMaxTurns(maxTurns),
		agent.WithZone(zone),
		agent.WithLogger(logger),
	)
	sess := agent.NewSession()

	fmt.Printf("calagent %s (calendar %q, timezone %s, model %s)\n", version, calendarID, zone, model)
	fmt.Println("Type 'clear' to reset the conversation, 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "clear":
			sess.Clear()
			fmt.Println("Conversation cleared.")
			continue
		}

		result, err := loop.RunTurn(ctx, sess, input)
		if err != nil {
			if errors.Is(err, agent.ErrLoopExceeded) {
				fmt.Println("The assistant could not finish within the allowed number of tool rounds. Try rephrasing.")
				continue
			}
			fmt.Printf("Error: %v\n", err)
			continue
		}

		if debugMode {
			for _, ex := range result.Trace {
				status := "ok"
				if ex.Result.IsError {
					status = ex.Result.Kind
				}
				fmt.Printf("  [tool] %s (%s): %s\n", ex.Request.Name, status, ex.Result.Content)
			}
		}

		fmt.Println(result.AssistantText)
	}
}
