package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"
)

// Export is the outcome of an optional rendering step: a value, or the
// reason it could not be produced. It marshals as the value itself or as
// {"error": "..."}.
type Export[T any] struct {
	Value T
	Err   string
}

// Ok wraps a successful value.
func Ok[T any](v T) Export[T] { return Export[T]{Value: v} }

// Failed records err in place of a value.
func Failed[T any](err error) Export[T] { return Export[T]{Err: err.Error()} }

// Valid reports whether a value was produced.
func (e Export[T]) Valid() bool { return e.Err == "" }

func (e Export[T]) MarshalJSON() ([]byte, error) {
	if e.Err != "" {
		return json.Marshal(map[string]string{"error": e.Err})
	}
	return json.Marshal(e.Value)
}

// ExportText renders t as indented rules, one line per branch:
//
//	|--- crash_hour <= 6.50
//	|   |--- class: No Injury
//	|--- crash_hour >  6.50
//	|   |--- truncated branch of depth 3
//
// Branches deeper than maxDepth are summarized by their remaining depth.
func ExportText(t *Tree, featureNames, classNames []string, maxDepth int) (string, error) {
	if t == nil || len(t.Nodes) == 0 {
		return "", fmt.Errorf("tree is empty")
	}
	if len(featureNames) != t.NFeatures {
		return "", fmt.Errorf("got %d feature names for %d features", len(featureNames), t.NFeatures)
	}
	if len(classNames) != t.NClasses {
		return "", fmt.Errorf("got %d class names for %d classes", len(classNames), t.NClasses)
	}
	var b strings.Builder
	var walk func(node, depth int)
	walk = func(node, depth int) {
		indent := strings.Repeat("|   ", depth-1) + "|---"
		n := t.Nodes[node]
		if depth > maxDepth+1 {
			if d := subtreeDepth(t, node); d > 1 {
				fmt.Fprintf(&b, "%s truncated branch of depth %d\n", indent, d)
				return
			}
		}
		if n.IsLeaf() {
			fmt.Fprintf(&b, "%s class: %s\n", indent, classNames[argmax(n.Value)])
			return
		}
		name := featureNames[n.Feature]
		fmt.Fprintf(&b, "%s %s <= %.2f\n", indent, name, n.Threshold)
		walk(n.Left, depth+1)
		fmt.Fprintf(&b, "%s %s >  %.2f\n", indent, name, n.Threshold)
		walk(n.Right, depth+1)
	}
	walk(0, 1)
	return b.String(), nil
}

func subtreeDepth(t *Tree, node int) int {
	n := t.Nodes[node]
	if n.IsLeaf() {
		return 1
	}
	l, r := subtreeDepth(t, n.Left), subtreeDepth(t, n.Right)
	if l > r {
		return 1 + l
	}
	return 1 + r
}

var classColors = [][3]float64{
	{229, 129, 57}, {57, 229, 129}, {129, 57, 229}, {229, 57, 186},
	{57, 186, 229}, {186, 229, 57},
}

// ExportDOT renders t as a Graphviz digraph. Nodes below maxDepth are
// collapsed into a "(...)" placeholder.
func ExportDOT(t *Tree, featureNames, classNames []string, maxDepth int) string {
	var b strings.Builder
	b.WriteString("digraph Tree {\n")
	b.WriteString("node [shape=box, style=\"filled, rounded\", color=\"black\", fontname=\"helvetica\"] ;\n")
	b.WriteString("edge [fontname=\"helvetica\"] ;\n")
	var walk func(node, parent int)
	walk = func(node, parent int) {
		n := t.Nodes[node]
		if n.Depth > maxDepth {
			fmt.Fprintf(&b, "%d [label=\"(...)\", fillcolor=\"#C0C0C0\"] ;\n", node)
			writeEdge(&b, t, parent, node)
			return
		}
		var label []string
		if !n.IsLeaf() {
			label = append(label, fmt.Sprintf("%s <= %.2f", featureNames[n.Feature], n.Threshold))
		}
		label = append(label, fmt.Sprintf("samples = %d", n.Samples))
		vals := make([]string, len(n.Value))
		for i, v := range n.Value {
			vals[i] = fmt.Sprintf("%.2f", v)
		}
		label = append(label, "value = ["+strings.Join(vals, ", ")+"]")
		label = append(label, "class = "+classNames[argmax(n.Value)])
		fmt.Fprintf(&b, "%d [label=\"%s\", fillcolor=\"%s\"] ;\n", node, dotEscape(strings.Join(label, "\n")), fillColor(n))
		if parent >= 0 {
			writeEdge(&b, t, parent, node)
		}
		if !n.IsLeaf() {
			walk(n.Left, node)
			walk(n.Right, node)
		}
	}
	walk(0, -1)
	b.WriteString("}")
	return b.String()
}

func writeEdge(b *strings.Builder, t *Tree, parent, node int) {
	if parent != 0 {
		fmt.Fprintf(b, "%d -> %d ;\n", parent, node)
		return
	}
	if t.Nodes[0].Left == node {
		fmt.Fprintf(b, "%d -> %d [labeldistance=2.5, labelangle=45, headlabel=\"True\"] ;\n", parent, node)
	} else {
		fmt.Fprintf(b, "%d -> %d [labeldistance=2.5, labelangle=-45, headlabel=\"False\"] ;\n", parent, node)
	}
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

// fillColor shades the majority class color by how pure the node is.
func fillColor(n Node) string {
	if n.Weight <= 0 {
		return "#ffffff"
	}
	first, second := 0.0, 0.0
	for _, v := range n.Value {
		p := v / n.Weight
		if p > first {
			first, second = p, first
		} else if p > second {
			second = p
		}
	}
	alpha := 1.0
	if first < 1 {
		alpha = (first - second) / (1 - second)
	}
	base := classColors[argmax(n.Value)%len(classColors)]
	var rgb [3]int
	for i := range rgb {
		rgb[i] = int(math.Round(alpha*base[i] + (1-alpha)*255))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

// Graphviz carries the DOT source and its SVG rendering.
type Graphviz struct {
	SVGData   string `json:"svg_data"`
	SVGBase64 string `json:"svg_base64"`
	DOTSource string `json:"dot_source"`
}

// Renderer turns DOT source into SVG.
type Renderer interface {
	Render(ctx context.Context, dot string) ([]byte, error)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(ctx context.Context, dot string) ([]byte, error)

func (f RenderFunc) Render(ctx context.Context, dot string) ([]byte, error) { return f(ctx, dot) }

// DotRenderer pipes DOT source through the Graphviz dot binary.
type DotRenderer struct {
	Binary  string
	Timeout time.Duration
}

func (r DotRenderer) Render(ctx context.Context, dot string) ([]byte, error) {
	bin := r.Binary
	if bin == "" {
		bin = "dot"
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, bin, "-Tsvg")
	cmd.Stdin = strings.NewReader(dot)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", bin, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", bin, err)
	}
	return out.Bytes(), nil
}

// RenderGraphviz builds the DOT source for t and renders it with r.
func RenderGraphviz(ctx context.Context, r Renderer, t *Tree, featureNames, classNames []string, maxDepth int) Export[Graphviz] {
	if r == nil {
		return Failed[Graphviz](fmt.Errorf("failed to generate graphviz tree: no renderer configured"))
	}
	dot := ExportDOT(t, featureNames, classNames, maxDepth)
	svg, err := r.Render(ctx, dot)
	if err != nil {
		return Failed[Graphviz](fmt.Errorf("failed to generate graphviz tree: %w", err))
	}
	return Ok(Graphviz{
		SVGData:   string(svg),
		SVGBase64: base64.StdEncoding.EncodeToString(svg),
		DOTSource: dot,
	})
}
