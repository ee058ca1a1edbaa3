// Candor is the command-line companion to candord. It runs the
// extraction and analysis pipeline locally over a file or stdin and
// prints the findings.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/config"
	"github.com/candorlabs/candor/internal/llm"
	"github.com/candorlabs/candor/internal/logging"
	"github.com/candorlabs/candor/internal/patterns"
	"github.com/candorlabs/candor/internal/service"
	"github.com/candorlabs/candor/internal/taxonomy"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "candor",
		Short:         "Analyze conversations for unanswered questions, tension, and health",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd())
	return root
}

type analyzeFlags struct {
	source     string
	mode       string
	orgID      string
	userID     string
	industry   string
	configPath string
	asJSON     bool
}

func newAnalyzeCmd() *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a conversation from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, flags)
		},
	}
	cmd.Flags().StringVar(&flags.source, "source", "generic", "conversation source: email, chat, transcript, generic")
	cmd.Flags().StringVar(&flags.mode, "mode", "auto", "pipeline mode: basic, advanced, auto")
	cmd.Flags().StringVar(&flags.orgID, "org", "local", "organization id for taxonomy lookup")
	cmd.Flags().StringVar(&flags.userID, "user", "", "user id recorded on the insight")
	cmd.Flags().StringVar(&flags.industry, "industry", "", "industry template: saas, agency, recruiting")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to config file")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "emit the full result as JSON")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, flags *analyzeFlags) error {
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithFile(flags.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New("warn", "console")
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	client, err := llm.NewClient(cfg.Model)
	if err != nil {
		return err
	}
	var source patterns.Source
	if cfg.Patterns.Path != "" {
		source = patterns.FileSource{Path: cfg.Patterns.Path}
	}
	catalog := patterns.NewCatalog(source, logger, patterns.WithTTL(cfg.Patterns.TTL))
	svc := service.NewService(client, catalog, taxonomy.NewStaticRepository(), nil, logger)

	res, err := svc.Process(cmd.Context(), service.ProcessRequest{
		Text:     text,
		Source:   capsule.SourceType(flags.source),
		Mode:     capsule.Mode(flags.mode),
		OrgID:    flags.orgID,
		UserID:   flags.userID,
		Industry: flags.industry,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printSummary(out, res)
	return nil
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printSummary(w io.Writer, res *service.Result) {
	c := res.Capsule
	a := c.Analysis

	fmt.Fprintf(w, "Conversation: %d participant(s), %d message(s) [%s extraction]\n",
		len(c.Participants), len(c.Messages), c.Metadata[service.MetaExtractionMode])

	if a == nil {
		return
	}
	if a.Health != nil {
		fmt.Fprintf(w, "Health: %.2f (risk: %s)\n", a.Health.Score, a.Health.RiskLevel)
		for _, issue := range a.Health.Issues {
			fmt.Fprintf(w, "  issue: %s\n", issue)
		}
	}
	if len(a.UnansweredQuestions) > 0 {
		fmt.Fprintf(w, "Unanswered questions (%d):\n", len(a.UnansweredQuestions))
		for _, q := range a.UnansweredQuestions {
			asker := "unknown"
			if p := c.ParticipantByID(q.AskedBy); p != nil {
				asker = p.Name
			}
			fmt.Fprintf(w, "  %s: %q (asked %dx)\n", asker, q.Question, q.TimesAsked)
		}
	}
	if len(a.TensionPoints) > 0 {
		fmt.Fprintf(w, "Tension points (%d):\n", len(a.TensionPoints))
		for _, tp := range a.TensionPoints {
			fmt.Fprintf(w, "  [%s/%s] %q\n", tp.Type, tp.Severity, tp.Excerpt)
		}
	}
	if len(a.SuggestedActions) > 0 {
		fmt.Fprintln(w, "Suggested actions:")
		for _, s := range a.SuggestedActions {
			fmt.Fprintf(w, "  [%s] %s\n", s.Priority, s.Action)
		}
	}
}
