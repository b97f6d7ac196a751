// Package graph exports expression trees as Graphviz DOT and Mermaid
// flowchart diagrams.
//
// Every operator becomes a node labelled with its symbol and parameters
// (σ, Π, ρ, ⨝, ...); relation leaves and bindings are filled. Edges run
// from an operator to its operands, lhs first.
package graph

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"

	"github.com/roach88/relalg/internal/ir"
	"github.com/roach88/relalg/internal/queryir"
	"github.com/roach88/relalg/internal/render"
)

// NodeKind distinguishes how a node is drawn.
type NodeKind string

const (
	NodeOperator NodeKind = "operator"
	NodeRelation NodeKind = "relation"
	NodeBinding  NodeKind = "binding"
)

// Node is one vertex of the diagram.
type Node struct {
	ID    string
	Label string
	Kind  NodeKind
}

// Edge connects an operator (From) to one of its operands (To).
type Edge struct {
	From string
	To   string
}

// Graph is the layout-independent form of a diagram.
type Graph struct {
	Nodes []Node
	Edges []Edge

	// Roots holds the top node of every expression, in list order.
	Roots []string
}

// Root returns the top node of the last expression, or "".
func (g *Graph) Root() string {
	if len(g.Roots) == 0 {
		return ""
	}
	return g.Roots[len(g.Roots)-1]
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Children returns the operand node ids of id, in edge order.
func (g *Graph) Children(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// FromOp builds the graph of a single operator tree.
func FromOp(op queryir.RelationalOp) *Graph {
	b := newBuilder()
	b.graph.Roots = append(b.graph.Roots, b.op(op))
	return b.graph
}

// FromList builds one graph for a whole expression list.
//
// A named expression gets a filled binding node (α) above its tree. A later
// relation leaf that refers to an earlier binding links to that binding
// node instead of creating a new leaf, so data flow between expressions is
// visible.
func FromList(list queryir.ExpressionList) *Graph {
	b := newBuilder()
	for _, expr := range list {
		root := b.op(expr.Op)
		if expr.IsNamed() {
			id := b.add("α\n"+expr.Name.String(), NodeBinding)
			b.link(id, root)
			b.bindings[expr.Name] = id
			root = id
		}
		b.graph.Roots = append(b.graph.Roots, root)
	}
	return b.graph
}

type builder struct {
	graph    *Graph
	bindings map[ir.Name]string
}

func newBuilder() *builder {
	return &builder{
		graph:    &Graph{},
		bindings: make(map[ir.Name]string),
	}
}

func (b *builder) add(label string, kind NodeKind) string {
	id := fmt.Sprintf("n%d", len(b.graph.Nodes))
	b.graph.Nodes = append(b.graph.Nodes, Node{ID: id, Label: label, Kind: kind})
	return id
}

func (b *builder) link(from, to string) {
	b.graph.Edges = append(b.graph.Edges, Edge{From: from, To: to})
}

// op adds the subtree of op and returns its top node id. Nodes are
// numbered in pre-order so ids are stable for a given tree.
func (b *builder) op(op queryir.RelationalOp) string {
	if rel, ok := op.(*queryir.Relation); ok {
		if id, bound := b.bindings[rel.Name()]; bound {
			return id
		}
		return b.add(rel.Name().String(), NodeRelation)
	}

	id := b.add(label(op), NodeOperator)
	for _, child := range queryir.Children(op) {
		b.link(id, b.op(child))
	}
	return id
}

// label returns the operator symbol followed by its parameters on a
// second line.
func label(op queryir.RelationalOp) string {
	symbol := render.Symbol(op, render.UnicodeText)
	var params string
	switch node := op.(type) {
	case *queryir.Selection:
		params = render.FormatTerm(node.Criteria(), render.UnicodeText)
	case *queryir.Projection:
		symbol = "Π"
		params = joinStrings(node.Attributes())
	case *queryir.Rename:
		pairs := make([]string, 0, len(node.Renames()))
		for _, r := range node.Renames() {
			pairs = append(pairs, r.From.String()+"/"+r.To.String())
		}
		params = strings.Join(pairs, ", ")
	case *queryir.Order:
		params = joinStrings(node.Attributes())
	case *queryir.Group:
		params = joinStrings(node.Attributes())
	case *queryir.Join:
		if node.IsTheta() {
			params = render.FormatTerm(node.Criteria(), render.UnicodeText)
		}
	}
	if params == "" {
		return symbol
	}
	return symbol + "\n" + params
}

func joinStrings[T fmt.Stringer](items []T) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}

// BuildDotGraph converts g into a dot.Graph. The graph attribute "root"
// names the top node of the last expression.
func BuildDotGraph(g *Graph) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("fontname", "helvetica")
	if root := g.Root(); root != "" {
		graph.Attr("root", root)
	}

	nodes := make(map[string]dot.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		node := graph.Node(n.ID).Attr("label", n.Label)
		switch n.Kind {
		case NodeRelation:
			node = node.Attr("shape", "box").Attr("style", "filled").Attr("fillcolor", "lightgrey")
		case NodeBinding:
			node = node.Attr("shape", "box").Attr("style", "filled,rounded").Attr("fillcolor", "lightblue")
		default:
			node = node.Attr("shape", "ellipse")
		}
		nodes[n.ID] = node
	}
	for _, e := range g.Edges {
		graph.Edge(nodes[e.From], nodes[e.To])
	}
	return graph
}

// Build returns the dot.Graph of a single expression.
func Build(expr queryir.Expression) *dot.Graph {
	return BuildDotGraph(FromList(queryir.ExpressionList{expr}))
}

// DOT renders the expression list as Graphviz DOT source.
func DOT(list queryir.ExpressionList) string {
	return BuildDotGraph(FromList(list)).String()
}

// Mermaid renders the expression list as a Mermaid flowchart, left to
// right, wrapped in a markdown code block.
func Mermaid(list queryir.ExpressionList) string {
	flowchart := dot.MermaidFlowchart(BuildDotGraph(FromList(list)), dot.MermaidLeftToRight)
	return fmt.Sprintf("```mermaid\n%s\n```\n", flowchart)
}
