package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/domain"
	"github.com/quillchat/quill/internal/provider"
)

// SlashCommands lists the available slash commands, sorted.
var SlashCommands = func() []string {
	names := make([]string, len(domain.CommandDefs))
	for i, c := range domain.CommandDefs {
		names[i] = c.Name
	}
	slices.Sort(names)
	return names
}()

// ConfigSubcommands lists the available /config subcommands.
var ConfigSubcommands = []string{"models", "reset", "set", "show", "theme"}

// ModelAliasNames returns the sorted list of model alias names.
func ModelAliasNames() []string {
	names := make([]string, 0, len(provider.ModelAliases))
	for k := range provider.ModelAliases {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// modelCandidates merges the alias names with model IDs reported by the
// provider API, deduplicated, aliases first.
func modelCandidates(extraModelIDs []string) []string {
	candidates := ModelAliasNames()
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c] = true
	}
	for _, id := range extraModelIDs {
		if !seen[id] {
			candidates = append(candidates, id)
		}
	}
	return candidates
}

// ComputeCompletions returns full-input completion candidates for the
// given input string. extraModelIDs are additional model identifiers
// (e.g. from the API) to include when completing model arguments.
func ComputeCompletions(input string, extraModelIDs []string) []string {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	fields := strings.Fields(input)
	if len(fields) == 0 {
		return FilterCandidates(SlashCommands, "", "")
	}

	cmd := strings.ToLower(fields[0])

	// Still typing the command name (no space after it yet).
	if len(fields) == 1 && !strings.HasSuffix(input, " ") {
		return FilterCandidates(SlashCommands, "", cmd)
	}

	// Command is complete -- dispatch on argument context.
	switch cmd {
	case "/config":
		if len(fields) == 1 || (len(fields) == 2 && !strings.HasSuffix(input, " ")) {
			partial := ""
			if len(fields) >= 2 {
				partial = strings.ToLower(fields[1])
			}
			return FilterCandidates(ConfigSubcommands, "/config ", partial)
		}
		sub := strings.ToLower(fields[1])
		if sub == "set" {
			// /config set <key> -- complete key names
			if len(fields) <= 3 && !(len(fields) == 3 && strings.HasSuffix(input, " ")) {
				partial := ""
				if len(fields) >= 3 {
					partial = strings.ToLower(fields[2])
				}
				return FilterCandidates(config.ValidConfigKeys(), "/config set ", partial)
			}
			// /config set model <value> -- complete model names
			if len(fields) >= 3 && strings.ToLower(fields[2]) == "model" {
				partial := ""
				if len(fields) >= 4 {
					partial = strings.ToLower(fields[3])
				}
				return FilterCandidates(modelCandidates(extraModelIDs), "/config set model ", partial)
			}
		}
		return nil

	case "/model":
		if len(fields) <= 2 && !(len(fields) == 2 && strings.HasSuffix(input, " ")) {
			partial := ""
			if len(fields) >= 2 {
				partial = strings.ToLower(fields[1])
			}
			return FilterCandidates(modelCandidates(extraModelIDs), "/model ", partial)
		}
		return nil

	case "/continue":
		// Could add session ID completion in the future.
		return nil
	}

	return nil
}

// FilterCandidates returns candidates matching partial, each prefixed
// with the given prefix string. Exact-prefix matches come first in
// candidate order, then fuzzy subsequence matches ranked by score. An
// empty partial matches every candidate.
func FilterCandidates(candidates []string, prefix, partial string) []string {
	if partial == "" {
		out := make([]string, len(candidates))
		for i, c := range candidates {
			out[i] = prefix + c
		}
		return out
	}
	lower := strings.ToLower(partial)
	var result []string
	taken := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lower) {
			result = append(result, prefix+c)
			taken[c] = true
		}
	}
	for _, mt := range fuzzy.Find(partial, candidates) {
		c := candidates[mt.Index]
		if !taken[c] {
			result = append(result, prefix+c)
		}
	}
	return result
}

// CommandExpectsArgs returns true if the completed command should have
// a trailing space appended (rather than being submitted) because it
// accepts an argument.
func CommandExpectsArgs(completion string) bool {
	fields := strings.Fields(completion)
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])
	if cmd == "/config" {
		if len(fields) == 1 {
			return true
		}
		sub := strings.ToLower(fields[1])
		if sub == "set" {
			// /config set -> expects key; /config set model -> expects value
			if len(fields) == 2 {
				return true
			}
			return strings.ToLower(fields[2]) == "model" && len(fields) == 3
		}
		return false
	}
	if len(fields) != 1 {
		return false
	}
	def, ok := domain.LookupCommand(cmd)
	return ok && def.ArgHint != ""
}

// RenderCompletionMenu renders up to maxVisible completion items as a
// vertical menu. The selected item is highlighted.
func RenderCompletionMenu(completions []string, selectedIdx, width int) string {
	const maxVisible = 8
	n := len(completions)
	if n == 0 {
		return ""
	}

	var b strings.Builder
	visible := min(n, maxVisible)
	for i := 0; i < visible; i++ {
		label := completions[i]
		if len(label) > width-4 {
			label = label[:width-4]
		}
		if i == selectedIdx {
			b.WriteString(CompletionSelStyle.Render(" " + label + " "))
		} else {
			b.WriteString(CompletionStyle.Render(" " + label + " "))
		}
		b.WriteString("\n")
	}
	if n > maxVisible {
		more := fmt.Sprintf(" ... and %d more", n-maxVisible)
		b.WriteString(CompletionStyle.Render(more))
		b.WriteString("\n")
	}
	return b.String()
}
