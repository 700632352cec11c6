// Package main provides the clawlog CLI for tailing and browsing OpenClaw
// agent session logs.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clawlog/internal/cache"
	"clawlog/internal/config"
	"clawlog/internal/format"
	"clawlog/internal/model"
	"clawlog/internal/store"
	"clawlog/internal/tail"
	"clawlog/internal/view"
)

var version = "dev"

var (
	agentsDirFlag string
	configFlag    string
	forceColor    bool
	forceNoColor  bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clawlog",
		Short:         "Tail and browse OpenClaw agent session logs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&agentsDirFlag, "agents-dir", "",
		"agents root directory (env: CLAWLOG_AGENTS_DIR, default: ~/.openclaw/agents)")
	flags.StringVar(&configFlag, "config", "",
		"config file (default: ~/.config/clawlog/config.toml)")
	flags.BoolVar(&forceColor, "color", false,
		"force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false,
		"disable ANSI colors regardless of terminal detection")

	cmd.AddCommand(newTailCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newAgentsCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newViewCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "clawlog: %v\n", err)
		os.Exit(1)
	}
}

// resolveSetup loads the config file and builds the store over the agents
// root, applying flag > env > config > default precedence for the root.
func resolveSetup() (config.Config, *store.Store, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return config.Config{}, nil, err
	}

	root := agentsDirFlag
	if root == "" {
		root = os.Getenv("CLAWLOG_AGENTS_DIR")
	}
	if root == "" {
		root = cfg.AgentsDir
	}
	if root == "" {
		root, err = store.DefaultRoot()
		if err != nil {
			return config.Config{}, nil, err
		}
	}

	return cfg, store.New(root), nil
}

func resolveColor(out io.Writer) (bool, error) {
	if forceColor && forceNoColor {
		return false, errors.New("--color and --no-color cannot be used together")
	}
	return format.ResolveColor(forceColor, forceNoColor, out), nil
}

// resolveAgents turns the -a selectors into the final agent list, defaulting
// to every discovered agent. Selected agents are validated against the
// store so a typo fails fast instead of tailing nothing forever.
func resolveAgents(st *store.Store, selected []string) ([]string, error) {
	known := st.Agents()
	if len(selected) == 0 {
		if len(known) == 0 {
			return nil, fmt.Errorf("no agents found in %s", st.Root())
		}
		return known, nil
	}

	index := make(map[string]bool, len(known))
	for _, agent := range known {
		index[agent] = true
	}
	for _, agent := range selected {
		if !index[agent] {
			return nil, fmt.Errorf("unknown agent %q in %s", agent, st.Root())
		}
	}
	return selected, nil
}

// streamSink prints live records and discovery notices as they arrive.
type streamSink struct {
	out io.Writer
	mf  format.MessageFormatter
}

func (s *streamSink) Message(msg model.Message) {
	fmt.Fprintln(s.out, s.mf.Line(msg)) //nolint:errcheck
}

func (s *streamSink) SourcesAdded(count int) {
	fmt.Fprintln(s.out, s.mf.Notice(fmt.Sprintf("  + %d new session(s)", count))) //nolint:errcheck
}

func newTailCmd() *cobra.Command {
	var (
		agents         []string
		lastN          int
		noFollow       bool
		includeDeleted bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow agent session logs in real time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, st, err := resolveSetup()
			if err != nil {
				return err
			}
			agentList, err := resolveAgents(st, agents)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			useColor, err := resolveColor(out)
			if err != nil {
				return err
			}
			outFile, _ := out.(*os.File)
			mf := format.MessageFormatter{
				Width:       format.DetermineWidth(outFile, 0),
				Color:       useColor,
				ShowSession: true,
			}

			n := lastN
			if noFollow && n == 0 {
				n = cfg.Backfill
			}
			if n > 0 {
				msgs := tail.Backfill(st, agentList, n, includeDeleted)
				for _, msg := range msgs {
					fmt.Fprintln(out, mf.Line(msg)) //nolint:errcheck
				}
				if len(msgs) > 0 {
					fmt.Fprintln(out) //nolint:errcheck
				}
			}
			if noFollow {
				return nil
			}

			eng := tail.NewEngine(st, tail.Options{
				Agents:         agentList,
				IncludeDeleted: includeDeleted,
				PollInterval:   cfg.PollInterval,
				ScanInterval:   cfg.ScanInterval,
			})
			count := eng.Scan()

			banner := fmt.Sprintf("Tailing %d sessions across agents: %s", count, strings.Join(agentList, ", "))
			fmt.Fprintln(out, mf.Banner(banner))                 //nolint:errcheck
			fmt.Fprintln(out, mf.Notice("Press Ctrl+C to stop")) //nolint:errcheck
			fmt.Fprintln(out)                                    //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := eng.Run(ctx, &streamSink{out: out, mf: mf}); err != nil {
				return err
			}

			fmt.Fprintln(out)                        //nolint:errcheck
			fmt.Fprintln(out, mf.Notice("Stopped.")) //nolint:errcheck
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&agents, "agent", "a", nil, "agent ID(s) to tail (default: all agents)")
	flags.IntVarP(&lastN, "last", "n", 0, "show last N messages before tailing (0 disables)")
	flags.BoolVar(&noFollow, "no-follow", false, "print recent messages and exit (don't follow)")
	flags.BoolVar(&includeDeleted, "deleted", false, "include deleted session files")

	return cmd
}

// openCache opens the summary cache unless disabled. Cache trouble is a
// warning, never a command failure: listing degrades to direct scans.
func openCache(cfg config.Config, noCache bool, errs io.Writer) *cache.Cache {
	if noCache || !cfg.CacheEnabled {
		return nil
	}

	path := cfg.CachePath
	if path == "" {
		resolved, err := cache.DefaultPath()
		if err != nil {
			fmt.Fprintf(errs, "warning: cache disabled: %v\n", err) //nolint:errcheck
			return nil
		}
		path = resolved
	}

	c, err := cache.Open(path)
	if err != nil {
		fmt.Fprintf(errs, "warning: cache disabled: %v\n", err) //nolint:errcheck
		return nil
	}
	return c
}

func newSessionsCmd() *cobra.Command {
	var (
		agents         []string
		includeDeleted bool
		formatFlag     string
		noHeader       bool
		limit          int
		noCache        bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List session summaries, most recent activity first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, st, err := resolveSetup()
			if err != nil {
				return err
			}
			agentList, err := resolveAgents(st, agents)
			if err != nil {
				return err
			}

			errs := cmd.ErrOrStderr()
			var sumCache store.SummaryCache
			if c := openCache(cfg, noCache, errs); c != nil {
				defer c.Close() //nolint:errcheck
				sumCache = c
			}

			res := st.ListSessions(store.ListOptions{
				Agents:         agentList,
				IncludeDeleted: includeDeleted,
				Cache:          sumCache,
				Limit:          limit,
			})
			for _, warn := range res.Warnings {
				fmt.Fprintf(errs, "warning: %v\n", warn) //nolint:errcheck
			}

			return format.WriteSessions(cmd.OutOrStdout(), res.Summaries, !noHeader, formatFlag)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&agents, "agent", "a", nil, "agent ID(s) to list (default: all agents)")
	flags.BoolVar(&includeDeleted, "deleted", false, "include deleted session files")
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for plain output")
	flags.IntVar(&limit, "limit", 0, "limit number of sessions returned (0 means no limit)")
	flags.BoolVar(&noCache, "no-cache", false, "bypass the summary cache")

	return cmd
}

func newAgentsCmd() *cobra.Command {
	var (
		includeDeleted bool
		formatFlag     string
	)

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List discovered agents with session counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := resolveSetup()
			if err != nil {
				return err
			}
			return format.WriteAgents(cmd.OutOrStdout(), st.AgentInfos(includeDeleted), true, formatFlag)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&includeDeleted, "deleted", false, "count deleted session files too")
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, or json")

	return cmd
}

func newInfoCmd() *cobra.Command {
	var (
		agents     []string
		formatFlag string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show an overview of agents, sessions, and costs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, st, err := resolveSetup()
			if err != nil {
				return err
			}
			agentList, err := resolveAgents(st, agents)
			if err != nil {
				return err
			}

			errs := cmd.ErrOrStderr()
			info := format.Info{Root: st.Root(), Agents: len(agentList)}

			c := openCache(cfg, noCache, errs)
			var sumCache store.SummaryCache
			if c != nil {
				defer c.Close() //nolint:errcheck
				sumCache = c
			}

			res := st.ListSessions(store.ListOptions{
				Agents:         agentList,
				IncludeDeleted: true,
				Cache:          sumCache,
			})
			for _, warn := range res.Warnings {
				fmt.Fprintf(errs, "warning: %v\n", warn) //nolint:errcheck
			}

			for _, sum := range res.Summaries {
				info.Sessions++
				if sum.Deleted {
					info.DeletedSessions++
				}
				info.Messages += sum.Messages
				info.UserMessages += sum.UserCount
				info.AssistantMessages += sum.AssistantCount
				info.TotalCost += sum.TotalCost
			}

			// An unfiltered listing covers every session on disk, so cache
			// rows outside it belong to files that no longer exist.
			if c != nil && len(agents) == 0 {
				keep := make(map[string]bool, len(res.Summaries))
				for _, sum := range res.Summaries {
					keep[sum.Path] = true
				}
				if _, err := c.Prune(keep); err != nil {
					fmt.Fprintf(errs, "warning: cache prune: %v\n", err) //nolint:errcheck
				}
			}

			if c != nil {
				if count, err := c.Count(); err == nil {
					info.CachePath = cfg.CachePath
					if info.CachePath == "" {
						info.CachePath, _ = cache.DefaultPath()
					}
					info.CachedSessions = count
				}
			}

			return format.WriteInfo(cmd.OutOrStdout(), info, formatFlag)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&agents, "agent", "a", nil, "agent ID(s) to report on (default: all agents)")
	flags.StringVar(&formatFlag, "format", "text", "output format: text or json")
	flags.BoolVar(&noCache, "no-cache", false, "bypass the summary cache")

	return cmd
}

func newViewCmd() *cobra.Command {
	var (
		agent          string
		formatFlag     string
		lastN          int
		wrap           int
		includeDeleted bool
	)

	cmd := &cobra.Command{
		Use:   "view <session-id>",
		Short: "Render the full transcript of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := resolveSetup()
			if err != nil {
				return err
			}
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}

			path, owner, err := st.FindSessionPath(agent, args[0], includeDeleted)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outFile, _ := out.(*os.File)
			return view.Run(view.Options{
				Path:         path,
				Agent:        owner,
				SessionID:    store.SessionID(path),
				Format:       formatFlag,
				Wrap:         wrap,
				Last:         lastN,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				Out:          out,
				OutFile:      outFile,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&agent, "agent", "a", "", "agent owning the session (default: search all agents)")
	flags.StringVar(&formatFlag, "format", "text", "output format: text, raw, json, or jsonl")
	flags.IntVarP(&lastN, "last", "n", 0, "show only the most recent N messages (0 means all)")
	flags.IntVar(&wrap, "wrap", 0, "wrap message bodies at the given column width")
	flags.BoolVar(&includeDeleted, "deleted", false, "allow resolving deleted session files")

	return cmd
}
