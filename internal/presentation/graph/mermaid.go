// Package graph renders compiled graphs as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/internal/compiler"
)

// Source is the part of a compiled graph the renderer reads.
type Source interface {
	Names() []string
	RootName() string
	Describe(name string) (compiler.Info, bool)
	Edges() []compiler.Edge
}

// Overlay contains evaluation data to visualize on the graph.
type Overlay struct {
	// Visited lists nodes an evaluation went through.
	Visited []string
	// Failed is the node whose evaluation failed, if any.
	Failed string
}

// GenerateMermaid produces a Mermaid flowchart of g. Node shapes follow the
// declared kind:
//   - root: ((circle))
//   - call: [[subroutine]]
//   - option: [/parallelogram/]
//   - switch, overloaded: {rhombus}
//   - anything else: [rectangle]
//
// Cached and typed nodes are annotated in their label.
func GenerateMermaid(g Source, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range g.Names() {
		info, _ := g.Describe(name)
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == g.RootName():
			opener, closer = "((", "))"
		case info.Kind == "call":
			opener, closer = "[[", "]]"
		case info.Kind == "option":
			opener, closer = "[/", "/]"
		case info.Kind == "switch" || info.Kind == "overloaded":
			opener, closer = "{", "}"
		}

		label := name
		if info.Type != "" {
			label += " : " + info.Type
		}
		if info.Cached {
			label += " <br/> cached"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer)
	}

	for _, e := range g.Edges() {
		arrow := "-->"
		switch e.Label {
		case "":
		case "selector":
			arrow = "-. selector .->"
		default:
			arrow = fmt.Sprintf("-- \"%s\" -->", escape(e.Label))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps labels readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.Visited {
			safeID := sanitizeMermaidID(name)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.Failed != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.Failed))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
