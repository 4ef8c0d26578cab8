// Package visualization renders co-activation graphs and identification
// results in various output formats.
package visualization

import (
	"fmt"
	"strings"

	"github.com/syrinxlab/mupool/internal/network"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// communityColors is a colour-blind friendly cycle, one colour per
// community, wrapping when a partition has more communities than
// colours.
var communityColors = []string{
	"#377eb8", "#ff7f00", "#4daf4a",
	"#f781bf", "#a65628", "#984ea3",
	"#999999", "#e41a1c", "#dede00",
	"#89cff0", "#000000",
}

// CommunityColor returns the display colour for a community index.
func CommunityColor(community int) string {
	if community < 0 {
		return "lightgray"
	}
	return communityColors[community%len(communityColors)]
}

// RenderDOT produces a Graphviz DOT representation of the co-activation
// graph with fibres coloured by community.
func RenderDOT(g *network.Graph, p network.Partition) (string, error) {
	if g.Nodes() != len(p.Labels) {
		return "", fmt.Errorf("render dot: graph has %d nodes, partition covers %d", g.Nodes(), len(p.Labels))
	}

	var b strings.Builder
	b.WriteString("graph mupool {\n")
	b.WriteString("  layout=neato;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\", fontsize=10];\n")
	b.WriteString("  edge [color=gray60];\n\n")

	for i, c := range p.Labels {
		b.WriteString(fmt.Sprintf("  f%d [label=%q, fillcolor=%q, tooltip=\"community=%d\"];\n",
			i, fmt.Sprintf("%d", i), CommunityColor(c), c))
	}
	b.WriteString("\n")

	for _, e := range g.Edges() {
		b.WriteString(fmt.Sprintf("  f%d -- f%d [weight=\"%.2f\", penwidth=%.2f];\n",
			e.Source, e.Target, e.Weight, 0.5+2*e.Weight))
	}

	b.WriteString("}\n")
	return b.String(), nil
}

// RenderJSON produces a JSON-marshallable graph representation with
// nodes and edges arrays.
func RenderJSON(g *network.Graph, p network.Partition) (map[string]any, error) {
	if g.Nodes() != len(p.Labels) {
		return nil, fmt.Errorf("render json: graph has %d nodes, partition covers %d", g.Nodes(), len(p.Labels))
	}

	nodes := make([]map[string]any, 0, g.Nodes())
	for i, c := range p.Labels {
		nodes = append(nodes, map[string]any{
			"id":        i,
			"community": c,
			"color":     CommunityColor(c),
		})
	}

	edges := g.Edges()
	jsonEdges := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		jsonEdges = append(jsonEdges, map[string]any{
			"source": e.Source,
			"target": e.Target,
			"weight": e.Weight,
		})
	}

	return map[string]any{
		"nodes":           nodes,
		"edges":           jsonEdges,
		"node_count":      len(nodes),
		"edge_count":      len(jsonEdges),
		"community_count": p.Size(),
	}, nil
}
