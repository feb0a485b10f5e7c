// quill CLI entry point
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quillchat/quill/internal/agent"
	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/domain"
	"github.com/quillchat/quill/internal/mcpserver"
	"github.com/quillchat/quill/internal/provider"
	"github.com/quillchat/quill/internal/store"
	"github.com/quillchat/quill/internal/stream"
	"github.com/quillchat/quill/internal/tui"
)

var version = "dev"

func init() {
	if version != "dev" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
}

func main() {
	versionFlag := flag.Bool("version", false, "Print version and exit")
	modelFlag := flag.String("model", "", "Model name or alias (e.g. claude-sonnet, openai/gpt-4o)")
	continueFlag := flag.Bool("c", false, "Resume the most recent session")
	configFlag := flag.String("config", "", "Run a config action and exit: show|models|theme|set|reset")
	mcpFlag := flag.Bool("mcp", false, "Serve the renderer as MCP tools on stdio")
	replayFlag := flag.String("replay", "", "Stream a markdown file through the render pipeline and exit")
	flag.Parse()

	// Set up log file -- diagnostics go to ~/.local/share/quill/quill.log.
	logger := config.NewLogger()
	defer logger.Close()

	if *versionFlag {
		fmt.Printf("quill %s\n", version)
		return
	}

	if *mcpFlag {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := mcpserver.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *replayFlag != "" {
		if err := replayScript(*replayFlag, logger); err != nil {
			fmt.Fprintf(os.Stderr, "replay: %v\n", err)
			os.Exit(1)
		}
		return
	}

	prefs := config.LoadPreferences()

	// Config actions run without entering the TUI, e.g.
	// `quill -config show` or `quill -config set model claude-sonnet`.
	if *configFlag != "" {
		args := append([]string{*configFlag}, flag.Args()...)
		out, err := config.ExecuteConfigAction(&prefs, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}

	provider.SetOllamaBaseURL(prefs.OllamaURL)
	provider.SetPricingMap(config.LoadPricing())

	// Resolve provider and model (no hardcoded default -- the user picks).
	modelLabel := *modelFlag
	if modelLabel == "" {
		modelLabel = prefs.Model
	}

	var providerName, modelID, apiKey string
	var prov provider.Provider
	if modelLabel != "" {
		providerName, modelID = provider.ResolveProviderAndModel(modelLabel, prefs.Provider)
		apiKey, _ = config.LoadProviderAPIKey(prefs, providerName)
		if p, err := provider.GetProvider(providerName); err == nil {
			prov = p
		} else {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	st, err := store.OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	var session *domain.Session
	resuming := false
	if *continueFlag {
		session, err = st.LatestSession()
		if err != nil {
			fmt.Fprintf(os.Stderr, "no session to resume: %v\n", err)
			os.Exit(1)
		}
		resuming = true
	} else {
		session, err = st.CreateSession(providerName, modelID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating session: %v\n", err)
			os.Exit(1)
		}
	}

	svc := agent.NewService(apiKey, modelID, st, session, prov)

	// Ensure the first TUI frame starts from a clean terminal state.
	resetTerminalForTUI()

	p := tea.NewProgram(
		tui.InitialModel(svc, version, st, prefs, logger, apiKey, resuming),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	tui.SetProgram(p)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "quill failed: %v\n", err)
		os.Exit(1)
	}
}

func resetTerminalForTUI() {
	// Start the TUI on a fresh line without terminal control sequences.
	// This avoids prompt-line overlap issues on some Windows terminals.
	fmt.Println()
}

// replayWidth is the render width for -replay output.
const replayWidth = 80

// replayScript drives a markdown file through the streaming pipeline
// exactly as a live reply would flow: token-sized deltas, a commit
// tick per delta, finalization at end of input. The finalized
// transcript prints to stdout.
func replayScript(path string, log *config.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctl := stream.NewController(replayWidth, log)
	var out []string
	for _, delta := range splitDeltas(string(data)) {
		ctl.Push(delta)
		out = append(out, ctl.OnCommitTick()...)
	}
	out = append(out, ctl.Finalize()...)

	fmt.Println(strings.Join(out, "\n"))
	return nil
}

// splitDeltas cuts the script into small chunks on rune boundaries,
// approximating how provider deltas arrive.
func splitDeltas(source string) []string {
	const chunk = 24
	var deltas []string
	start := 0
	for i := range source {
		if i-start >= chunk {
			deltas = append(deltas, source[start:i])
			start = i
		}
	}
	if start < len(source) {
		deltas = append(deltas, source[start:])
	}
	return deltas
}
