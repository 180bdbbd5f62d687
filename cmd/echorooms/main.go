package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tatianab/echo-rooms/internal/config"
	"github.com/tatianab/echo-rooms/internal/engine"
	"github.com/tatianab/echo-rooms/internal/journal"
	"github.com/tatianab/echo-rooms/internal/memory"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/tools"
	"github.com/tatianab/echo-rooms/internal/toolserver"
	"github.com/tatianab/echo-rooms/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:           "echorooms",
	Short:         "Echo Rooms - escape five rooms with two AI companions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	RunE:  runPlay,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the game tools over MCP",
	RunE:  runMCP,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved sessions",
	RunE:  runSessions,
}

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session journal as PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Make the companions forget you",
	RunE:  runForget,
}

var (
	resumeFlag    string
	newFlag       bool
	transportFlag string
	addrFlag      string
	outputFlag    string
	playerFlag    string
)

func init() {
	playCmd.Flags().StringVar(&resumeFlag, "resume", "", "Resume a saved session by id")
	mcpCmd.Flags().BoolVar(&newFlag, "new", false, "Start a new session and log its id")
	mcpCmd.Flags().StringVar(&transportFlag, "transport", "", "stdio or http (default from ECHO_MCP_TRANSPORT)")
	mcpCmd.Flags().StringVar(&addrFlag, "addr", "", "HTTP listen address (default from ECHO_MCP_HTTP_ADDR)")
	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output path (default <save dir>/exports/<id>.pdf)")
	forgetCmd.Flags().StringVar(&playerFlag, "player", "", "Player id (default: this install's player)")
	rootCmd.AddCommand(playCmd, mcpCmd, sessionsCmd, exportCmd, forgetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openMemory(cfg *config.Config) (*memory.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.MemoryDBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	return memory.Open(cfg.MemoryDBPath, cfg.MaxPlayers)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	playerID, err := cfg.ResolvePlayerID()
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close()

	saves := session.NewStore(cfg.SaveDir)
	var resume *session.Game
	if resumeFlag != "" {
		resume, err = saves.Load(resumeFlag)
		if err != nil {
			return err
		}
	}

	mem, err := openMemory(cfg)
	if err != nil {
		log.Printf("[memory] disabled: %v", err)
	} else {
		defer mem.Close()
		sweeper := memory.NewSweeper(mem, "")
		if err := sweeper.Start(ctx); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	return tui.Run(tui.Options{
		Engine:     eng,
		Saves:      saves,
		Memory:     mem,
		PlayerID:   playerID,
		Room3Timer: cfg.Room3Timer,
		ExportDir:  filepath.Join(cfg.SaveDir, "exports"),
		Resume:     resume,
	})
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	transport := cfg.MCPTransport
	if transportFlag != "" {
		transport = transportFlag
	}
	addr := cfg.MCPHTTPAddr
	if addrFlag != "" {
		addr = addrFlag
	}

	eng, err := engine.NewEngine(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close()

	saves := session.NewStore(cfg.SaveDir)
	sessions := session.NewManager(cfg.Room3Timer)
	if err := loadSessions(saves, sessions); err != nil {
		return err
	}
	defer saveSessions(saves, sessions)

	if newFlag {
		playerID, err := cfg.ResolvePlayerID()
		if err != nil {
			return err
		}
		g := sessions.Create(playerID)
		log.Printf("[mcp] new session %s", g.ID)
	}

	caps := []tools.Capability{tools.CapabilityGame}
	mem, err := openMemory(cfg)
	if err != nil {
		log.Printf("[memory] disabled: %v", err)
	} else {
		defer mem.Close()
		caps = append(caps, tools.CapabilityMemory)
		sweeper := memory.NewSweeper(mem, "")
		if err := sweeper.Start(ctx); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	registry := tools.NewRegistry(eng, sessions, mem, caps...)
	return toolserver.Run(ctx, registry, transport, addr)
}

func loadSessions(saves *session.Store, sessions *session.Manager) error {
	summaries, err := saves.List()
	if err != nil {
		return err
	}
	for _, s := range summaries {
		g, err := saves.Load(s.ID)
		if err != nil {
			log.Printf("[mcp] skipping session %s: %v", s.ID, err)
			continue
		}
		sessions.Put(g)
	}
	log.Printf("[mcp] loaded %d saved sessions", len(summaries))
	return nil
}

func saveSessions(saves *session.Store, sessions *session.Manager) {
	for _, id := range sessions.IDs() {
		err := sessions.With(id, func(g *session.Game) error {
			return saves.Save(g)
		})
		if err != nil {
			log.Printf("[mcp] save %s failed: %v", id, err)
		}
	}
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	summaries, err := session.NewStore(cfg.SaveDir).List()
	if err != nil {
		return err
	}
	return printSessions(cmd.OutOrStdout(), summaries)
}

func printSessions(out io.Writer, summaries []session.Summary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(out, "No saved sessions.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLAYER\tENDING\tUPDATED")
	for _, s := range summaries {
		ending := "-"
		if s.Ending != "" {
			ending = string(s.Ending)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.PlayerID, ending, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	g, err := session.NewStore(cfg.SaveDir).Load(args[0])
	if err != nil {
		return err
	}
	path := outputFlag
	if path == "" {
		path = filepath.Join(cfg.SaveDir, "exports", g.ID+".pdf")
	}
	if err := journal.Export(path, g); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Journal written to %s\n", path)
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	playerID := playerFlag
	if playerID == "" {
		if playerID, err = cfg.ResolvePlayerID(); err != nil {
			return err
		}
	}
	mem, err := openMemory(cfg)
	if err != nil {
		return err
	}
	defer mem.Close()
	if err := mem.Forget(context.Background(), playerID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Echo and Shadow no longer remember %s.\n", playerID)
	return nil
}
