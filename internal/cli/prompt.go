package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauern/permisync/internal/plan"
)

// ConflictPrompter walks the user through each divergent row and collects a
// keep-local or keep-remote decision per uuid.
type ConflictPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConflictPrompter creates a prompter over the given streams.
func NewConflictPrompter(in io.Reader, out io.Writer) *ConflictPrompter {
	return &ConflictPrompter{in: bufio.NewReader(in), out: out}
}

// Collect prompts for every conflict in the plan. Skipped rows are absent
// from the returned map and stay unresolved.
func (cp *ConflictPrompter) Collect(conflicts []plan.Item) (map[string]plan.Decision, error) {
	decisions := make(map[string]plan.Decision)

	fmt.Fprintf(cp.out, "\n=== Resolución de conflictos ===\n")
	fmt.Fprintf(cp.out, "%d fila(s) divergieron en ambos lados y requieren decisión.\n\n", len(conflicts))

	for i, item := range conflicts {
		fmt.Fprintf(cp.out, "--- Conflicto %d de %d: %s ---\n", i+1, len(conflicts), item.UUID)
		if item.Reason != "" {
			fmt.Fprintf(cp.out, "Motivo: %s\n", item.Reason)
		}
		cp.showDiffs(item)

		choice, err := cp.promptChoice(item.UUID)
		if err != nil {
			return nil, fmt.Errorf("failed to get decision for %s: %w", item.UUID, err)
		}
		if choice == "" {
			fmt.Fprintf(cp.out, "Fila %s omitida.\n\n", item.UUID)
			continue
		}
		decisions[item.UUID] = choice
		fmt.Fprintf(cp.out, "Fila %s resuelta con: %s\n\n", item.UUID, choice)
	}
	return decisions, nil
}

func (cp *ConflictPrompter) showDiffs(item plan.Item) {
	if len(item.Diffs) == 0 {
		return
	}
	fmt.Fprintln(cp.out, strings.Repeat("-", 50))
	for _, d := range item.Diffs {
		fmt.Fprintf(cp.out, "  %s: %q (hoja) -> %q (local)\n", d.Field, d.CurrentValue, d.NewValue)
	}
	fmt.Fprintln(cp.out, strings.Repeat("-", 50))
}

func (cp *ConflictPrompter) promptChoice(uuid string) (plan.Decision, error) {
	fmt.Fprintln(cp.out, "\n¿Cómo quieres resolver este conflicto?")
	fmt.Fprintln(cp.out, "  1. Conservar la versión local (sobrescribe la hoja)")
	fmt.Fprintln(cp.out, "  2. Conservar la versión de la hoja (descarta el cambio local)")
	fmt.Fprintln(cp.out, "  3. Omitir esta fila")
	fmt.Fprint(cp.out, "\nElige [1-3]: ")

	for {
		response, err := cp.in.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		response = strings.TrimSpace(response)
		choice, err := strconv.Atoi(response)
		if err != nil || choice < 1 || choice > 3 {
			fmt.Fprint(cp.out, "Opción no válida. Elige 1-3: ")
			continue
		}

		switch choice {
		case 1:
			return plan.DecisionKeepLocal, nil
		case 2:
			return plan.DecisionKeepRemote, nil
		default:
			return "", nil
		}
	}
}
