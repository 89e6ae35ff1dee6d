package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/markup"
	"github.com/jcccaz/TRIAI/internal/media"
	"github.com/jcccaz/TRIAI/internal/report"
	"github.com/jcccaz/TRIAI/internal/session"
	"github.com/jcccaz/TRIAI/internal/speech"
	"github.com/jcccaz/TRIAI/internal/workflow"
)

var (
	askProviders []string
	askAttach    []string
	askProject   string
	askCouncil   bool
	askHard      bool
	askVault     bool
	askPodcast   bool
	askVisualize bool
	askOut       string

	workflowOut  string
	workflowHard bool

	historyLimit int
	renderPage   bool
	renderText   bool
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	okColor      = color.New(color.FgGreen)
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the council one question and print the comparison",
	Long: `Sends the question to the selected models and prints the consensus
followed by each answer with its truth score.

Example:
  triai ask --providers openai,anthropic --hard "Is SQLite enough for 10k writes/s?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "List and run server-side workflow templates",
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflow templates",
	RunE:  runWorkflowList,
}

var workflowRunCmd = &cobra.Command{
	Use:   "run [workflow-id] [question]",
	Short: "Run a workflow and print each step as it completes",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runWorkflowRun,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored comparisons",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent comparisons",
	RunE:  runHistoryList,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a stored comparison",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		if err := newClient().DeleteHistory(ctx, council.ID(args[0])); err != nil {
			return err
		}
		okColor.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		names, err := newClient().Projects(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			mutedColor.Println("No projects.")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		name, err := newClient().CreateProject(ctx, args[0])
		if err != nil {
			return err
		}
		okColor.Printf("Created %s\n", name)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		if err := newClient().DeleteProject(ctx, args[0]); err != nil {
			return err
		}
		okColor.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render TriAI markdown to HTML (stdin when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func init() {
	askCmd.Flags().StringSliceVar(&askProviders, "providers", nil, "models to ask (default: all, or config providers)")
	askCmd.Flags().StringSliceVar(&askAttach, "attach", nil, "files to attach")
	askCmd.Flags().StringVar(&askProject, "project", "", "project to file the comparison under")
	askCmd.Flags().BoolVar(&askCouncil, "council", true, "council mode (role assignments)")
	askCmd.Flags().BoolVar(&askHard, "hard", false, "hard mode")
	askCmd.Flags().BoolVar(&askVault, "vault", false, "search the Obsidian vault")
	askCmd.Flags().BoolVar(&askPodcast, "podcast", false, "two-host podcast consensus")
	askCmd.Flags().BoolVar(&askVisualize, "visualize", false, "force a visual mockup")
	askCmd.Flags().StringVarP(&askOut, "out", "o", "", "write the report (.md or .html)")

	workflowRunCmd.Flags().StringVarP(&workflowOut, "out", "o", "", "write the discovery report")
	workflowRunCmd.Flags().BoolVar(&workflowHard, "hard", false, "hard mode")
	workflowCmd.AddCommand(workflowListCmd, workflowRunCmd)

	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "entries to show")
	historyCmd.AddCommand(historyListCmd, historyDeleteCmd)

	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd, projectsDeleteCmd)

	renderCmd.Flags().BoolVar(&renderPage, "page", false, "wrap the output in a standalone HTML page")
	renderCmd.Flags().BoolVar(&renderText, "text", false, "print the rendered answer as plain text")
	renderCmd.MarkFlagsMutuallyExclusive("page", "text")
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	s := session.New()
	s.Question = strings.Join(args, " ")
	s.Project = askProject
	s.Options.Council = askCouncil
	s.Options.Hard = askHard
	s.Options.Vault = askVault
	s.Options.Podcast = askPodcast

	names := askProviders
	if len(names) == 0 {
		names = cfg.Providers
	}
	if len(names) > 0 {
		for _, p := range council.Providers() {
			s.SetActive(p, false)
		}
		for _, n := range names {
			p, ok := council.ParseProvider(n)
			if !ok {
				return fmt.Errorf("unknown provider %q", n)
			}
			s.SetActive(p, true)
		}
	}
	for _, path := range askAttach {
		a, err := media.Prepare(path)
		if err != nil {
			return err
		}
		s.Attach(a)
	}

	req, err := s.BeginAsk(askVisualize)
	if err != nil {
		return err
	}
	mutedColor.Fprintf(os.Stderr, "Querying %d models...\n", len(req.ActiveModels))
	resp, err := newClient().Ask(ctx, req)
	if err != nil {
		s.FailAsk()
		return err
	}
	c := s.FinishAsk(s.Question, resp)
	printComparison(os.Stdout, c, s.Options.Podcast)

	if askOut != "" {
		_, body := report.Comparison(c, s.Project, time.Now())
		if strings.EqualFold(filepath.Ext(askOut), ".html") {
			if body, err = report.ComparisonHTML(c, s.Project, time.Now()); err != nil {
				return err
			}
		}
		if err := os.WriteFile(askOut, []byte(body), 0o644); err != nil {
			return err
		}
		mutedColor.Fprintf(os.Stderr, "Report written to %s\n", askOut)
	}
	return nil
}

func printComparison(w io.Writer, c *session.Comparison, podcast bool) {
	md := newMarkdownRenderer(color.NoColor)

	headingColor.Fprintln(w, "CONSENSUS")
	if c.ConsensusCompromised() {
		errorColor.Fprintln(w, "⚠ CONSENSUS COMPROMISED: a source scored below 70")
	}
	turns := speech.ParseTurns(c.Consensus)
	switch {
	case podcast && len(turns) > 0:
		for _, t := range turns {
			fmt.Fprintf(w, "%s %s\n", headingColor.Sprint(t.Speaker.Label()+":"), t.Text)
		}
	default:
		fmt.Fprintln(w, md.render(c.Consensus, 100))
	}

	for _, p := range c.Providers() {
		r := c.Results[p]
		fmt.Fprintln(w)
		headingColor.Fprintf(w, "%s ", p.DisplayName())
		mutedColor.Fprintf(w, "(%s, %.1fs, $%.4f)\n", nonEmpty(r.Model, p.Vendor()), r.Time, r.Cost)
		if !r.Success {
			errorColor.Fprintf(w, "Failed: %s\n", nonEmpty(r.Response, "no response"))
			continue
		}
		score := r.Enforcement.Credibility()
		bandColor(score).Fprintf(w, "Truth score %d (%s)\n", score, council.Band(score))
		if label := session.BiasLabel(r.ExecutionBias); label != "" {
			fmt.Fprintln(w, label)
		}
		if session.Sandbag(r) != session.SandbagNone {
			warnColor.Fprintln(w, "⚠ Reasoning outweighs the delivered answer")
		}
		if r.Enforcement != nil {
			for _, v := range r.Enforcement.Violations {
				if pv, ok := markup.ParseViolation(v); ok {
					errorColor.Fprintf(w, "✗ %s: %q\n", pv.Type, pv.Quote)
					continue
				}
				errorColor.Fprintf(w, "✗ %s\n", v)
			}
		}
		fmt.Fprintln(w, md.render(r.Response, 100))
	}
	if c.ID != "" {
		fmt.Fprintln(w)
		mutedColor.Fprintf(w, "comparison %s\n", c.ID)
	}
}

func bandColor(score int) *color.Color {
	switch council.Band(score) {
	case council.BandHigh:
		return okColor
	case council.BandMedium:
		return warnColor
	default:
		return errorColor
	}
}

func runWorkflowList(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	all, err := newClient().Workflows(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTEPS")
	for _, t := range council.SortedWorkflows(all) {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", t.ID, t.Name, len(t.Steps))
	}
	return tw.Flush()
}

func runWorkflowRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	r := workflow.NewRunner(newClient(), workflow.Options{Interval: cfg.PollInterval, Logger: logger})
	req := council.RunWorkflowRequest{WorkflowID: args[0], Question: strings.Join(args[1:], " "), HardMode: workflowHard}
	if err := r.Start(ctx, req); err != nil {
		return err
	}
	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.Done():
		}
	}()

	tpl := r.Template()
	headingColor.Printf("%s (%d steps)\n", nonEmpty(tpl.Name, tpl.ID), len(tpl.Steps))
	md := newMarkdownRenderer(color.NoColor)
	for ev := range r.Events() {
		switch ev.Kind {
		case workflow.EventStep:
			s := ev.Step
			fmt.Println()
			headingColor.Printf("STEP %d: %s (%s)", s.Ordinal, strings.ToUpper(nonEmpty(s.Role, s.Key)), s.Model)
			mutedColor.Printf("  %d%%\n", ev.Progress)
			if !s.Data.Success {
				errorColor.Println("❌ Failed")
			}
			fmt.Println(md.render(s.Data.Response, 100))
		case workflow.EventPollError:
			warnColor.Fprintf(os.Stderr, "poll error: %v\n", ev.Err)
		}
	}

	if workflowOut != "" && len(r.Steps()) > 0 {
		if err := os.WriteFile(workflowOut, []byte(r.Report(time.Now())), 0o644); err != nil {
			return err
		}
		mutedColor.Fprintf(os.Stderr, "Report written to %s\n", workflowOut)
	}

	switch r.State() {
	case workflow.StateComplete:
		okColor.Println("✓ Workflow complete")
		return nil
	case workflow.StateFailed:
		return r.Err()
	default:
		return workflow.ErrStopped
	}
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	items, err := newClient().History(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		mutedColor.Println("No stored comparisons.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tMODELS\tQUESTION")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.ID, it.Timestamp, len(it.Responses), truncateRunes(it.Question, 60))
	}
	return tw.Flush()
}

func runRender(cmd *cobra.Command, args []string) error {
	var (
		src   []byte
		err   error
		title = "TriAI"
	)
	if len(args) == 1 {
		src, err = os.ReadFile(args[0])
		title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	} else {
		src, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}
	if len(src) == 0 {
		return errors.New("nothing to render")
	}
	out := markup.Render(string(src))
	switch {
	case renderText:
		out = markup.Plain(out)
	case renderPage:
		if out, err = report.HTML(title, string(src)); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
