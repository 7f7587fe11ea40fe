// Package docs renders the chat command reference into README.md.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"guild-jukebox/pkg/cmd"
)

type categorized interface {
	Category() string
}

func categoryOf(c cmd.Command) string {
	if meta, ok := cmd.Root(c).(categorized); ok {
		return meta.Category()
	}
	return "Other"
}

// CommandSections renders every command in registry as markdown, grouped by
// category. Categories are ordered by categoryWeights (lower first, then by
// name); commands within one category by name.
func CommandSections(registry *cmd.Registry, prefix string, categoryWeights map[string]int) string {
	commands := registry.GetAll()
	sort.SliceStable(commands, func(i, j int) bool {
		catI, catJ := categoryOf(commands[i]), categoryOf(commands[j])
		if catI == catJ {
			return commands[i].Name() < commands[j].Name()
		}
		wi, wj := categoryWeights[catI], categoryWeights[catJ]
		if wi == wj {
			return catI < catJ
		}
		return wi < wj
	})

	var buf bytes.Buffer
	current := ""
	for _, c := range commands {
		if cat := categoryOf(c); cat != current {
			if current != "" {
				buf.WriteString("\n")
			}
			current = cat
			fmt.Fprintf(&buf, "### %s\n\n", current)
		}

		fmt.Fprintf(&buf, "- **`%s%s`**", prefix, c.Name())
		if a, ok := cmd.Root(c).(cmd.Aliased); ok && len(a.Aliases()) > 0 {
			fmt.Fprintf(&buf, " (%s%s)", prefix, strings.Join(a.Aliases(), ", "+prefix))
		}
		fmt.Fprintf(&buf, ": %s\n", c.Description())
	}
	return buf.String()
}

// UpdateReadme executes the template at tmplPath with the command sections
// and writes the result to outPath.
func UpdateReadme(registry *cmd.Registry, prefix string, categoryWeights map[string]int, tmplPath, outPath string) error {
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", tmplPath, err)
	}

	data := struct {
		Prefix          string
		CommandSections string
	}{
		Prefix:          prefix,
		CommandSections: CommandSections(registry, prefix, categoryWeights),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmplPath, err)
	}
	return os.WriteFile(outPath, out.Bytes(), 0o644)
}
