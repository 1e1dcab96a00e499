package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ksalako/gradelab/internal/handler"
	"github.com/ksalako/gradelab/internal/llm"
	"github.com/ksalako/gradelab/internal/model"
	"github.com/ksalako/gradelab/internal/report"
	"github.com/ksalako/gradelab/internal/service"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradelab",
		Short: "AI-assisted assignment grading",
	}

	serve := serveCmd()
	root.AddCommand(serve, gradeCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `gradelab --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("provider", "gemini", "LLM provider (gemini, openai)")
	f.String("api-key", "", "API key for the LLM provider (or set GRADELAB_API_KEY / GEMINI_API_KEY)")
	f.String("llm-url", "", "Override the provider API base URL")
	f.String("llm-model", "gpt-4o-mini", "Model name for the openai provider")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade <files...>",
		Short: "Grade local submission files and print a summary",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.String("provider", "gemini", "LLM provider (gemini, openai)")
	f.String("api-key", "", "API key for the LLM provider (or set GRADELAB_API_KEY / GEMINI_API_KEY)")
	f.String("llm-url", "", "Override the provider API base URL")
	f.String("llm-model", "gpt-4o-mini", "Model name for the openai provider")
	f.IntP("total-marks", "m", 100, "Total marks available")
	f.StringSliceP("criteria", "c", nil, "Grading criteria as name=marks (repeatable)")
	f.StringP("instructions", "i", "", "Additional grading instructions")
	f.Bool("detect-questions", true, "Detect and score multiple questions per submission")
	f.StringP("output", "o", "", "Write an Excel report to this path")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("GRADELAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradelab")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradelab")
	v.AddConfigPath("/etc/gradelab")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newGrader builds the configured provider client. The API key must be
// present; the process refuses to start without one.
func newGrader(v *viper.Viper) (llm.Grader, error) {
	apiKey := v.GetString("api-key")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required: set --api-key, GRADELAB_API_KEY, or GEMINI_API_KEY")
	}

	provider := strings.ToLower(v.GetString("provider"))
	switch provider {
	case "gemini":
		baseURL := v.GetString("llm-url")
		if baseURL == "" {
			baseURL = llm.DefaultGeminiURL
		}
		return llm.NewGemini(baseURL, apiKey)
	case "openai":
		return llm.NewOpenAI(v.GetString("llm-url"), apiKey, v.GetString("llm-model")), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini or openai)", provider)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	grader, err := newGrader(v)
	if err != nil {
		return err
	}
	if err := grader.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "provider", v.GetString("provider"))

	h := handler.New(service.New(grader), grader)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server", "addr", addr, "provider", v.GetString("provider"))
	return http.ListenAndServe(addr, r)
}

func runGrade(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	grader, err := newGrader(v)
	if err != nil {
		return err
	}

	cfg := model.GradingConfig{
		TotalMarks:              v.GetInt("total-marks"),
		Instructions:            v.GetString("instructions"),
		DetectMultipleQuestions: v.GetBool("detect-questions"),
	}
	cfg.Criteria, err = parseCriteria(v.GetStringSlice("criteria"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	files := make([]service.File, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, service.File{Name: path, Data: data})
	}

	svc := service.New(grader)
	results := svc.GradeBatch(context.Background(), files, cfg)

	printSummary(results)

	if outPath := v.GetString("output"); outPath != "" {
		data, err := report.Excel(results)
		if err != nil {
			return fmt.Errorf("build report: %w", err)
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", outPath)
	}

	return nil
}

// parseCriteria turns repeated name=marks flags into a criteria map.
func parseCriteria(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	criteria := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		name, marksStr, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid criteria %q (want name=marks)", pair)
		}
		marks, err := strconv.Atoi(marksStr)
		if err != nil {
			return nil, fmt.Errorf("invalid marks in criteria %q: %w", pair, err)
		}
		criteria[strings.TrimSpace(name)] = marks
	}
	return criteria, nil
}

func printSummary(results []model.GradingResult) {
	heading := color.New(color.FgCyan, color.Bold)
	heading.Println("\nGrading Results")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Score", "Percentage", "Grade"})
	for _, r := range results {
		table.Append([]string{
			r.Filename,
			r.ScoreDisplay(),
			fmt.Sprintf("%.1f%%", r.Percentage),
			model.LetterGrade(r.Percentage),
		})
	}
	table.Render()

	stats := model.ComputeStatistics(results)
	heading.Println("\nBatch Statistics")
	fmt.Printf("  Submissions:  %d\n", stats.TotalSubmissions)
	fmt.Printf("  Average:      %.1f%%\n", stats.AverageScore)
	fmt.Printf("  Median:       %.1f%%\n", stats.MedianScore)
	fmt.Printf("  Highest:      %.1f%%\n", stats.HighestScore)
	fmt.Printf("  Lowest:       %.1f%%\n", stats.LowestScore)
	fmt.Printf("  Pass rate:    %.1f%%\n", stats.PassRate)
}
