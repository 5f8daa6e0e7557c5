// Package loops finds natural loops in a control flow graph and
// infers iteration bounds for them. Loops are located through
// dominators and back-edges; bounds come from trip-count and
// induction-variable matching, user annotations, or a conservative
// default, with the provenance recorded.
package loops

import (
	"sort"

	"github.com/vertexclique/lale/pkg/cfg"
	"github.com/vertexclique/lale/pkg/ir"
)

// Provenance records where an iteration bound came from.
type Provenance string

const (
	ProvTripCount  Provenance = "trip_count"
	ProvInduction  Provenance = "induction"
	ProvAnnotation Provenance = "annotation"
	ProvDefault    Provenance = "default"
)

// Warning kinds emitted by the analyzer. None are fatal.
const (
	WarnLoopBoundDefaulted = "loop_bound_defaulted"
	WarnIrreducibleRegion  = "irreducible_region"
)

// Warning is a non-fatal diagnostic tied to a block.
type Warning struct {
	Kind   string `json:"kind"`
	Block  int    `json:"block"`
	Detail string `json:"detail"`
}

// Loop is a natural loop: a header, the back-edges that close it, and
// the body blocks including the header.
type Loop struct {
	Header       int          `json:"header"`
	BackEdges    []cfg.Edge   `json:"back_edges"`
	Body         map[int]bool `json:"-"`
	BodyBlocks   []int        `json:"body"`
	NestingLevel int          `json:"nesting_level"`
	Bound        uint64       `json:"bound"`
	Provenance   Provenance   `json:"provenance"`
	Irreducible  bool         `json:"irreducible,omitempty"`
}

// Contains reports whether block b belongs to the loop.
func (l *Loop) Contains(b int) bool { return l.Body[b] }

// EntryEdges returns the graph edges entering the loop header from
// outside the body. These carry the entry flow the bound constraint
// multiplies.
func (l *Loop) EntryEdges(g *cfg.Graph) []cfg.Edge {
	var edges []cfg.Edge
	for _, p := range g.Preds(l.Header) {
		if !l.Body[p] {
			edges = append(edges, cfg.Edge{From: p, To: l.Header})
		}
	}
	return edges
}

// BoundKey identifies a loop for annotation lookup: the function name
// plus the header block label.
type BoundKey struct {
	Function string
	Header   string
}

// Options configures loop analysis.
type Options struct {
	// Bounds maps annotated loops to user-supplied iteration bounds.
	Bounds map[BoundKey]uint64
	// DefaultBound is applied when nothing better can be inferred.
	DefaultBound uint64
}

// Analysis is the result of running the loop analyzer on one CFG.
type Analysis struct {
	Loops    []Loop    `json:"loops"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Analyze finds the natural loops of g and infers their bounds.
func Analyze(g *cfg.Graph, fn *ir.Function, opts Options) *Analysis {
	if opts.DefaultBound == 0 {
		opts.DefaultBound = 100
	}

	dom := cfg.Dominators(g)
	reach := g.Reachable()
	res := &Analysis{}

	// Classify retreating edges. A retreating edge whose target
	// dominates its source is a back-edge; any other retreating edge
	// closes an irreducible region, which is bounded conservatively
	// with its target as header.
	retreating := retreatingEdges(g)
	byHeader := map[int]*Loop{}
	var headers []int
	for _, e := range retreating {
		if !reach[e.From] || !reach[e.To] {
			continue
		}
		irreducible := !dom.Dominates(e.To, e.From)
		l, ok := byHeader[e.To]
		if !ok {
			l = &Loop{Header: e.To, Body: map[int]bool{e.To: true}}
			byHeader[e.To] = l
			headers = append(headers, e.To)
		}
		l.BackEdges = append(l.BackEdges, e)
		l.Irreducible = l.Irreducible || irreducible
		growBody(g, dom, l, e.From)
		if irreducible {
			res.Warnings = append(res.Warnings, Warning{
				Kind:   WarnIrreducibleRegion,
				Block:  e.To,
				Detail: "region headed by " + g.Labels[e.To] + " is irreducible; bounded conservatively",
			})
		}
	}

	// Merge partially overlapping regions into the outer one. Properly
	// nested and disjoint loops are left alone.
	mergeOverlapping(g, dom, byHeader, &headers, res)

	sort.Ints(headers)
	for _, h := range headers {
		l := byHeader[h]
		for b := range l.Body {
			l.BodyBlocks = append(l.BodyBlocks, b)
		}
		sort.Ints(l.BodyBlocks)
		res.Loops = append(res.Loops, *l)
	}

	computeNesting(res.Loops)

	for i := range res.Loops {
		inferBound(&res.Loops[i], g, fn, opts, res)
	}

	return res
}

// retreatingEdges finds edges that close a cycle in a DFS from entry.
func retreatingEdges(g *cfg.Graph) []cfg.Edge {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, g.NumBlocks())
	var edges []cfg.Edge

	var walk func(int)
	walk = func(b int) {
		color[b] = gray
		for _, s := range g.Succs(b) {
			if color[s] == gray {
				edges = append(edges, cfg.Edge{From: b, To: s})
			} else if color[s] == white {
				walk(s)
			}
		}
		color[b] = black
	}
	walk(g.Entry)
	return edges
}

// growBody extends a loop body by reverse reachability from a
// back-edge tail. The walk stops at the header and at strict
// dominators of the header, which keeps the entry side of an
// irreducible region outside the body.
func growBody(g *cfg.Graph, dom *cfg.DomTree, l *Loop, tail int) {
	if l.Body[tail] {
		return
	}
	l.Body[tail] = true
	worklist := []int{tail}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, p := range g.Preds(b) {
			if l.Body[p] {
				continue
			}
			if p != l.Header && dom.Dominates(p, l.Header) {
				continue
			}
			l.Body[p] = true
			worklist = append(worklist, p)
		}
	}
}

// mergeOverlapping folds loops whose bodies intersect without proper
// containment into a single region headed by the dominating header.
func mergeOverlapping(g *cfg.Graph, dom *cfg.DomTree, byHeader map[int]*Loop, headers *[]int, res *Analysis) {
	changed := true
	for changed {
		changed = false
		hs := *headers
		for i := 0; i < len(hs) && !changed; i++ {
			for j := i + 1; j < len(hs) && !changed; j++ {
				a, b := byHeader[hs[i]], byHeader[hs[j]]
				if a == nil || b == nil {
					continue
				}
				if !overlaps(a, b) || contains(a, b) || contains(b, a) {
					continue
				}
				outer, inner := a, b
				if dom.Dominates(b.Header, a.Header) {
					outer, inner = b, a
				}
				for blk := range inner.Body {
					outer.Body[blk] = true
				}
				outer.BackEdges = append(outer.BackEdges, inner.BackEdges...)
				outer.Irreducible = true
				delete(byHeader, inner.Header)
				removeHeader(headers, inner.Header)
				res.Warnings = append(res.Warnings, Warning{
					Kind:   WarnIrreducibleRegion,
					Block:  outer.Header,
					Detail: "overlapping regions merged under " + g.Labels[outer.Header],
				})
				changed = true
			}
		}
	}
}

func overlaps(a, b *Loop) bool {
	for blk := range a.Body {
		if b.Body[blk] {
			return true
		}
	}
	return false
}

func contains(outer, inner *Loop) bool {
	for blk := range inner.Body {
		if !outer.Body[blk] {
			return false
		}
	}
	return true
}

func removeHeader(headers *[]int, h int) {
	hs := *headers
	for i, v := range hs {
		if v == h {
			*headers = append(hs[:i], hs[i+1:]...)
			return
		}
	}
}

// computeNesting assigns each loop the count of distinct loops that
// enclose it.
func computeNesting(loopSet []Loop) {
	for i := range loopSet {
		level := 0
		for j := range loopSet {
			if i == j {
				continue
			}
			if loopSet[j].Contains(loopSet[i].Header) && loopSet[j].Header != loopSet[i].Header {
				level++
			}
		}
		loopSet[i].NestingLevel = level
	}
}

// Enclosing returns the loops that contain block b, innermost last.
func Enclosing(loopSet []Loop, b int) []*Loop {
	var out []*Loop
	for i := range loopSet {
		if loopSet[i].Contains(b) {
			out = append(out, &loopSet[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NestingLevel < out[j].NestingLevel })
	return out
}
