package scene

// Walk visits n and its descendants depth first in paint order. The clips
// slice holds the clips of the enclosing groups, innermost last. Returning
// false from fn skips the children of a group.
func Walk(n Node, fn func(n Node, clips []*Clip) bool) {
	walk(n, nil, fn)
}

func walk(n Node, clips []*Clip, fn func(Node, []*Clip) bool) {
	if !fn(n, clips) {
		return
	}
	g, ok := n.(*Group)
	if !ok {
		return
	}
	if g.Clip != nil {
		clips = append(clips[:len(clips):len(clips)], g.Clip)
	}
	for _, c := range g.Children {
		walk(c, clips, fn)
	}
}

// Count returns how many nodes under n satisfy pred.
func Count(n Node, pred func(Node) bool) int {
	count := 0
	Walk(n, func(n Node, _ []*Clip) bool {
		if pred(n) {
			count++
		}
		return true
	})
	return count
}

// Paths returns every path under n in paint order.
func Paths(n Node) []*Path {
	var out []*Path
	Walk(n, func(n Node, _ []*Clip) bool {
		if p, ok := n.(*Path); ok {
			out = append(out, p)
		}
		return true
	})
	return out
}

// IsGroup is a Count predicate.
func IsGroup(n Node) bool {
	_, ok := n.(*Group)
	return ok
}

// IsPath is a Count predicate.
func IsPath(n Node) bool {
	_, ok := n.(*Path)
	return ok
}

// IsRect is a Count predicate.
func IsRect(n Node) bool {
	_, ok := n.(*Rect)
	return ok
}
