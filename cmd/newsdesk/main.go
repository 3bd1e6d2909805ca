package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"newsdesk"
	"newsdesk/internal/output"
)

var (
	configPath   string
	cfg          *newsdesk.Config
	outputFormat string
	assumeYes    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newsdesk",
		Short: "Consultant client for the bilingual news curation platform",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config/newsdesk.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "human", "output format: json, text, human")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(attemptsCmd())
	rootCmd.AddCommand(articlesCmd())
	rootCmd.AddCommand(deleteAttemptCmd())
	rootCmd.AddCommand(deleteArticleCmd())
	rootCmd.AddCommand(pushCmd())
	rootCmd.AddCommand(autofetchCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(initConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	if configPath == "" {
		configPath = "./config/newsdesk.toml"
	}
	var err error
	cfg, err = newsdesk.LoadConfig(configPath)
	return err
}

// newEngine opens the engine and warns once about an expired session.
func newEngine(formatter *output.Formatter) (*newsdesk.Engine, error) {
	engine, err := newsdesk.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if engine.SessionExpired() {
		formatter.Warning("session token is expired; calls will likely fail until you log in again")
	}
	return engine, nil
}

// confirm asks a destructive-action question on the terminal. The --yes
// flag answers every prompt affirmatively.
func confirm(prompt string) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func fetchCmd() *cobra.Command {
	var srcIDs []int64
	var maxArticles int
	var summaryFormat, summaryLength string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch articles from the selected sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()
			engine.Initialize(ctx)

			settings := newsdesk.FetchSettings{
				Sources:       srcIDs,
				MaxArticles:   maxArticles,
				SummaryFormat: summaryFormat,
				SummaryLength: summaryLength,
			}

			type result struct {
				outcome *newsdesk.FetchOutcome
				err     error
			}
			done := make(chan result, 1)
			go func() {
				outcome, err := engine.FetchArticles(ctx, settings)
				done <- result{outcome, err}
			}()

			// Progress line driven by the orchestrator's elapsed state.
			// Informational only; a skipped tick changes nothing.
			var res result
			if outputFormat == "human" {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
			wait:
				for {
					select {
					case res = <-done:
						fmt.Fprint(os.Stderr, "\r\033[K")
						break wait
					case <-ticker.C:
						fmt.Fprintf(os.Stderr, "\rFetching... %.1fs (do not exit)", engine.FetchElapsed().Seconds())
					}
				}
			} else {
				res = <-done
			}

			if res.err != nil {
				return res.err
			}
			return formatter.OutputFetchOutcome(res.outcome)
		},
	}

	defaults := newsdesk.DefaultConfig().Fetch
	cmd.Flags().Int64SliceVarP(&srcIDs, "source", "s", defaults.Sources, "source IDs to fetch from (repeatable)")
	cmd.Flags().IntVarP(&maxArticles, "max", "n", defaults.MaxArticles, "max articles per fetch (1-10)")
	cmd.Flags().StringVar(&summaryFormat, "summary-format", defaults.SummaryFormat, "summary format: bullet or paragraph")
	cmd.Flags().StringVar(&summaryLength, "summary-length", defaults.SummaryLength, "summary length: short, medium or long")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		// Config supplies defaults for flags the user did not set.
		if !cmd.Flags().Changed("source") {
			srcIDs = cfg.Fetch.Sources
		}
		if !cmd.Flags().Changed("max") {
			maxArticles = cfg.Fetch.MaxArticles
		}
		if !cmd.Flags().Changed("summary-format") {
			summaryFormat = cfg.Fetch.SummaryFormat
		}
		if !cmd.Flags().Changed("summary-length") {
			summaryLength = cfg.Fetch.SummaryLength
		}
	}
	return cmd
}

func attemptsCmd() *cobra.Command {
	var limit int
	var cached bool
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List fetch attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()
			engine.Initialize(ctx)

			if !cached {
				if _, err := engine.RefreshAttempts(ctx, limit); err != nil {
					// The cached view is still usable; say so and show it.
					formatter.Warning("could not reach server, showing cached attempts: %v", err)
				}
			}
			return formatter.OutputAttemptList(engine.Attempts())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of attempts to request")
	cmd.Flags().BoolVar(&cached, "cached", false, "show the locally cached view without contacting the server")
	return cmd
}

func articlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "articles",
		Short: "List all fetched articles across attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()
			engine.Initialize(ctx)

			return formatter.OutputArticleList(engine.AllArticles())
		},
	}
}

func deleteAttemptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-attempt <attempt-id>",
		Short: "Delete a fetch attempt and all its articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()
			engine.Initialize(ctx)

			if !confirm(fmt.Sprintf("Delete attempt %s and all its articles?", args[0])) {
				formatter.Notice("deletion cancelled")
				return nil
			}
			if err := engine.DeleteAttempt(ctx, args[0]); err != nil {
				return err
			}
			formatter.Notice("attempt %s deleted", args[0])
			return nil
		},
	}
}

func deleteArticleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-article <attempt-id> <article-id>",
		Short: "Delete one article from a fetch attempt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()
			engine.Initialize(ctx)

			attemptID, articleID := args[0], args[1]
			prompt := fmt.Sprintf("Delete article %s?", articleID)
			if engine.ArticleInQueue(attemptID, articleID) {
				prompt = fmt.Sprintf("Article %s is in the publish queue; delete the article AND its queue entry?", articleID)
			}
			if !confirm(prompt) {
				formatter.Notice("deletion cancelled")
				return nil
			}

			removedFromQueue, err := engine.DeleteArticle(ctx, attemptID, articleID)
			if err != nil {
				return err
			}
			if removedFromQueue {
				formatter.Notice("article %s deleted, publish-queue entry removed", articleID)
			} else {
				formatter.Notice("article %s deleted", articleID)
			}
			return nil
		},
	}
}

func pushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <article-id>...",
		Short: "Mark articles ready for publish and stage them in the publish queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()
			engine.Initialize(ctx)

			marked, err := engine.PushToPublish(ctx, args)
			if err != nil {
				return err
			}
			formatter.Notice("%d article(s) marked ready for publish", marked)
			return nil
		},
	}
}

func autofetchCmd() *cobra.Command {
	var toggle bool
	cmd := &cobra.Command{
		Use:   "autofetch",
		Short: "Show or toggle server-side auto-fetch",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()

			state, err := engine.LoadAutoFetch(ctx)
			if err != nil && !state.Visible {
				return formatter.OutputAutoFetch(state)
			}
			if err != nil {
				return err
			}

			if toggle {
				state, err = engine.ToggleAutoFetch(ctx)
				if err != nil {
					if !state.Visible {
						return formatter.OutputAutoFetch(state)
					}
					return err
				}
			}
			return formatter.OutputAutoFetch(state)
		},
	}
	cmd.Flags().BoolVarP(&toggle, "toggle", "t", false, "flip the auto-fetch flag")
	return cmd
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured news sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))
			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()
			return formatter.OutputSourceList(engine.Sources())
		},
	}
}

func previewCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "preview <source>",
		Short: "Preview a source's public feed without creating a fetch attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()

			headlines, err := engine.PreviewSource(ctx, args[0], limit)
			if err != nil {
				return err
			}
			return formatter.OutputHeadlines(args[0], headlines)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum headlines to show")
	return cmd
}

func loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a session token for the curation backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))
			if token == "" {
				return fmt.Errorf("provide a token with --token")
			}
			engine, err := newsdesk.NewEngine(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.SaveSession(token); err != nil {
				return err
			}
			formatter.Notice("session token saved")
			return nil
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "bearer token issued by the platform")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))
			engine, err := newsdesk.NewEngine(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.ClearSession(); err != nil {
				return err
			}
			formatter.Notice("session cleared")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved session's subject, role and expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newsdesk.NewEngine(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			info, err := engine.Session()
			if err != nil {
				return err
			}
			fmt.Printf("Subject: %s\n", info.Subject)
			if info.Role != "" {
				fmt.Printf("Role: %s\n", info.Role)
			}
			if info.ExpiresAt != nil {
				state := "valid"
				if info.Expired {
					state = "EXPIRED"
				}
				fmt.Printf("Expires: %s (%s)\n", info.ExpiresAt.Format(time.RFC3339), state)
			}
			return nil
		},
	}
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = "./config/newsdesk.toml"
			}

			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}

			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("config file already exists: %s", configPath)
			}

			f, err := os.Create(configPath)
			if err != nil {
				return fmt.Errorf("create config: %w", err)
			}
			defer f.Close()

			if err := toml.NewEncoder(f).Encode(newsdesk.DefaultConfig()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("Created default config at %s\n", configPath)
			return nil
		},
	}
}
