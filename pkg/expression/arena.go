package expression

const noParent = -1

// arena holds every node of one tree with a parallel slice of parent
// handles. Parents own their children directly; the arena only answers
// "who is my root" without back-pointers. Slots of released subtrees are nil.
type arena struct {
	nodes   []*Base
	parents []int
}

func newArena(b *Base) {
	b.tree = &arena{nodes: []*Base{b}, parents: []int{noParent}}
	b.index = 0
}

// adopt links child under parent. The child heads its own arena, which is
// merged into the parent's with its handles re-based.
func (a *arena) adopt(parent, child *Base) {
	src := child.tree
	offset := len(a.nodes)
	for i, n := range src.nodes {
		p := src.parents[i]
		if p != noParent {
			p += offset
		}
		a.nodes = append(a.nodes, n)
		a.parents = append(a.parents, p)
		if n == nil {
			continue
		}
		n.tree = a
		n.index = offset + i
	}
	a.parents[child.index] = parent.index
}

// collision returns a uuid held by a node of both arenas, or "".
func (a *arena) collision(other *arena) string {
	ids := make(map[string]struct{}, len(a.nodes))
	for _, n := range a.nodes {
		if n != nil {
			ids[n.uuid] = struct{}{}
		}
	}
	for _, n := range other.nodes {
		if n == nil {
			continue
		}
		if _, ok := ids[n.uuid]; ok {
			return n.uuid
		}
	}
	return ""
}

// holds reports whether a node other than except carries id.
func (a *arena) holds(id string, except *Base) bool {
	for _, n := range a.nodes {
		if n != nil && n != except && n.uuid == id {
			return true
		}
	}
	return false
}

func (a *arena) root(i int) *Base {
	for a.parents[i] != noParent {
		i = a.parents[i]
	}
	return a.nodes[i]
}

// release unlinks the subtree headed by b from its arena. The subtree moves
// to a fresh arena with b as its root; the old slots are cleared.
func (b *Base) release() {
	old := b.tree
	var nodes []*Base
	Walk(b.self, func(e Expression, _ int) bool {
		nodes = append(nodes, e.base())
		return true
	})

	fresh := &arena{nodes: make([]*Base, 0, len(nodes)), parents: make([]int, 0, len(nodes))}
	local := make(map[int]int, len(nodes))
	for i, n := range nodes {
		local[n.index] = i
	}
	for i, n := range nodes {
		p := noParent
		if i > 0 {
			p = local[old.parents[n.index]]
		}
		fresh.nodes = append(fresh.nodes, n)
		fresh.parents = append(fresh.parents, p)
	}
	for i, n := range nodes {
		old.nodes[n.index] = nil
		old.parents[n.index] = noParent
		n.tree = fresh
		n.index = i
	}
}
