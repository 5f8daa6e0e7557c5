package cfg

// Dominator computation by iterative data-flow over the reverse
// post-order, per Cooper, Harvey and Kennedy, "A Simple, Fast
// Dominance Algorithm". Tables are arrays indexed by block id.

// DomTree holds immediate dominators for the reachable blocks of a
// graph. Unreachable blocks have idom -1 and dominate nothing.
type DomTree struct {
	idom []int
	rpo  []int
	pos  []int // block -> position in rpo, -1 if unreachable
}

// Dominators computes the dominator tree of g.
func Dominators(g *Graph) *DomTree {
	n := g.NumBlocks()
	rpo := g.ReversePostOrder()

	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	for i, b := range rpo {
		pos[b] = i
	}

	idom := make([]int, n)
	for i := range idom {
		idom[i] = -1
	}
	idom[g.Entry] = g.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == g.Entry {
				continue
			}
			newIdom := -1
			for _, p := range g.Preds(b) {
				if idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, pos, p, newIdom)
			}
			if newIdom != -1 && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	return &DomTree{idom: idom, rpo: rpo, pos: pos}
}

// intersect walks two candidate dominators up the current tree until
// they meet.
func intersect(idom, pos []int, a, b int) int {
	for a != b {
		for pos[a] > pos[b] {
			a = idom[a]
		}
		for pos[b] > pos[a] {
			b = idom[b]
		}
	}
	return a
}

// Idom returns the immediate dominator of b, or -1 for the entry and
// for unreachable blocks.
func (d *DomTree) Idom(b int) int {
	if d.idom[b] == b {
		return -1
	}
	return d.idom[b]
}

// Dominates reports whether a dominates b. Every reachable block
// dominates itself.
func (d *DomTree) Dominates(a, b int) bool {
	if d.pos[a] == -1 || d.pos[b] == -1 {
		return false
	}
	for {
		if b == a {
			return true
		}
		next := d.idom[b]
		if next == b || next == -1 {
			return false
		}
		b = next
	}
}
