package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdb/internal/orchestrator"
	"github.com/leapstack-labs/leapdb/internal/registry"
	"github.com/leapstack-labs/leapdb/pkg/backend"
)

func runQueryREPL(cmd *cobra.Command, orch *orchestrator.Orchestrator, reg *registry.Registry, conn *registry.ConnectionInfo, format string) error {
	ctx := cmd.Context()

	// Line-editing history is readline's own file, separate from the
	// structured query history JSON.
	historyFile := filepath.Join(reg.Dir(), "repl_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "leapdb> ",
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(ctx, orch, backendConfig(cmd.Context(), conn)),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintf(cmd.OutOrStdout(), "leapdb REPL (connection: %s, %s)\n", conn.Name, conn.Type)
	fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	fmt.Fprintln(cmd.OutOrStdout())

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt("leapdb> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(cmd, orch, conn, line, format); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until a terminating semicolon.
		buffer.WriteString(line)
		if !statementComplete(line) {
			buffer.WriteString(" ")
			rl.SetPrompt("   ...> ")
			continue
		}
		rl.SetPrompt("leapdb> ")

		query := strings.TrimSuffix(buffer.String(), ";")
		buffer.Reset()

		result, item, execErr := orch.ExecuteQuery(ctx, backendConfig(cmd.Context(), conn), conn.ID, query)
		appendHistory(ctx, reg, item)
		if execErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", execErr)
			continue
		}
		if err := renderResult(ctx, cmd.OutOrStdout(), result, format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func handleDotCommand(cmd *cobra.Command, orch *orchestrator.Orchestrator, conn *registry.ConnectionInfo, line, format string) (quit bool) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".tables":
		refs, err := orch.ListTables(cmd.Context(), backendConfig(cmd.Context(), conn))
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false
		}
		for _, ref := range refs {
			if ref.Schema != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s.%s\n", ref.Schema, ref.Table)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), ref.Table)
			}
		}

	case ".clear":
		fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")

	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", line)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List tables on the current connection
  .clear          Clear the screen
  .quit / .exit   Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	fmt.Fprintln(w, help)
}

// newTableCompleter builds a readline completer from the connection's
// table names. Failures degrade to dot-command completion only.
func newTableCompleter(ctx context.Context, orch *orchestrator.Orchestrator, cfg backend.Config) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	if refs, err := orch.ListTables(ctx, cfg); err == nil {
		for _, ref := range refs {
			items = append(items, readline.PcItem(ref.Table))
		}
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}
