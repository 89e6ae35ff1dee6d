package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jcccaz/TRIAI/internal/config"
	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/logging"
)

var version = "v1.0.0"

var (
	// Global flags
	configPath string
	verbose    bool

	// Root-only flags
	smoke           bool
	serve           bool
	sessionOverride string

	cfg    config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "triai",
	Short: "TriAI council terminal client",
	Long: `TriAI asks several AI models the same question, scores each answer
for credibility and shows the synthesized consensus.

Run without arguments to open the interactive council deck.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		l, err := logging.New(cfg.LogPath(), verbose || cfg.Verbose)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		logger = l
		logger.Debug("main", "config loaded", map[string]any{"source": cfg.Source, "baseUrl": cfg.BaseURL})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <state_dir>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level diagnostics log")

	rootCmd.Flags().BoolVar(&smoke, "smoke", false, "run deterministic non-interactive smoke simulation")
	rootCmd.Flags().BoolVar(&serve, "serve", false, "run headless command-bus driven session (for CLI/devops control)")
	rootCmd.Flags().StringVar(&sessionOverride, "session-id", "", "override session id (for dev sessions)")

	rootCmd.AddCommand(askCmd, workflowCmd, historyCmd, projectsCmd, renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() *council.Client {
	return council.New(council.Options{
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		WorkflowCacheTTL:  cfg.WorkflowCacheTTL,
		Logger:            logger,
	})
}

func runTUI() error {
	stateDir := cfg.StateDir
	disableNetwork := cfg.DisableNetwork || ((smoke || serve) && !envBool("TRIAI_ENABLE_NETWORK"))

	sessionID := strings.TrimSpace(sessionOverride)
	if sessionID == "" {
		// Start a fresh session unless explicitly asked to resume.
		if envBool("TRIAI_RESUME") {
			sid, _ := getOrCreateSessionID(stateDir)
			sessionID = sid
		} else {
			sid, _ := createNewSessionID(stateDir)
			_ = setCurrentSessionID(stateDir, sid)
			sessionID = sid
		}
	}

	m := newAppModel(appConfig{
		stateDir:       stateDir,
		sessionID:      sessionID,
		version:        version,
		baseURL:        cfg.BaseURL,
		commandsPath:   filepath.Join(stateDir, sessionID, "commands.jsonl"),
		exportDir:      filepath.Join(stateDir, "exports"),
		disableNetwork: disableNetwork,
		plain:          smoke || serve,
		pollInterval:   cfg.PollInterval,
		historyLimit:   cfg.HistoryLimit,
	}, newClient(), logger)
	m = m.withProviders(cfg.Providers)
	logger.Info("main", "session started", map[string]any{"sessionId": sessionID, "smoke": smoke, "serve": serve, "network": !disableNetwork})

	if smoke {
		outDir := os.Getenv("TRIAI_TUI_SMOKE_OUT_DIR")
		if strings.TrimSpace(outDir) == "" {
			outDir = filepath.Join(stateDir, "verify", "tui", fmt.Sprintf("run_%d", time.Now().UnixMilli()))
		}
		_ = os.MkdirAll(outDir, 0o755)
		report := runSmoke(m)
		_ = os.WriteFile(filepath.Join(outDir, "view.txt"), []byte(report.view+"\n"), 0o644)
		_ = os.WriteFile(filepath.Join(outDir, "summary.json"), []byte(report.json+"\n"), 0o644)
		writeSessionSummary(report.final)
		if !report.ok {
			return fmt.Errorf("smoke checks failed, see %s", filepath.Join(outDir, "summary.json"))
		}
		fmt.Println("tui-smoke-ok")
		return nil
	}

	var opts []tea.ProgramOption
	if serve {
		opts = []tea.ProgramOption{
			tea.WithoutRenderer(),
			tea.WithInput(bytes.NewReader(nil)),
			tea.WithOutput(io.Discard),
		}
	} else {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	finalModel, err := tea.NewProgram(m, opts...).Run()
	if am, ok := finalModel.(appModel); ok {
		am.shutdown()
		writeSessionSummary(am)
	}
	return err
}

// withProviders limits the active roster to the configured providers.
func (m appModel) withProviders(names []string) appModel {
	if len(names) == 0 {
		return m
	}
	want := map[council.Provider]bool{}
	for _, n := range names {
		if p, ok := council.ParseProvider(n); ok {
			want[p] = true
		}
	}
	for _, p := range council.Providers() {
		m.sess.SetActive(p, want[p])
	}
	return m
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func newSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func getOrCreateSessionID(stateDir string) (string, error) {
	current := readCurrent(stateDir)
	if v, ok := current["sessionId"].(string); ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	id := newSessionID()
	return id, setCurrentSessionID(stateDir, id)
}

func createNewSessionID(stateDir string) (string, error) {
	id := newSessionID()
	// Ensure directory exists eagerly.
	return id, os.MkdirAll(filepath.Join(stateDir, id), 0o755)
}

func setCurrentSessionID(stateDir string, sessionID string) error {
	currentPath := filepath.Join(stateDir, "state", "current.json")
	if err := os.MkdirAll(filepath.Dir(currentPath), 0o755); err != nil {
		return err
	}
	current := readCurrent(stateDir)
	current["sessionId"] = sessionID
	current["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	b, _ := json.MarshalIndent(current, "", "  ")
	return os.WriteFile(currentPath, append(b, '\n'), 0o644)
}

func readCurrent(stateDir string) map[string]any {
	var current map[string]any
	if raw, err := os.ReadFile(filepath.Join(stateDir, "state", "current.json")); err == nil {
		_ = json.Unmarshal(raw, &current)
	}
	if current == nil {
		current = map[string]any{"schemaVersion": 1}
	}
	return current
}
