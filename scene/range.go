package scene

// PrimRange walks a subtree depth first and yields every prim twice: once
// before its descendants (pre-visit) and once after them (post-visit).
//
//	r := scene.NewPrimRange(stage.PseudoRoot())
//	for r.Next() {
//	    if r.IsPostVisit() { ... }
//	}
type PrimRange struct {
	stack []rangeFrame
	cur   *Prim
	depth int
	post  bool
}

type rangeFrame struct {
	prim    *Prim
	depth   int
	next    int
	visited bool
}

func NewPrimRange(start *Prim) *PrimRange {
	r := &PrimRange{}
	if start != nil {
		r.stack = append(r.stack, rangeFrame{prim: start})
	}
	return r
}

// Next advances to the next visit and reports whether there was one.
func (r *PrimRange) Next() bool {
	if len(r.stack) == 0 {
		return false
	}
	top := &r.stack[len(r.stack)-1]
	if !top.visited {
		top.visited = true
		r.set(top, false)
		return true
	}
	if top.next < len(top.prim.children) {
		child := top.prim.children[top.next]
		top.next++
		r.stack = append(r.stack, rangeFrame{prim: child, depth: top.depth + 1, visited: true})
		r.set(&r.stack[len(r.stack)-1], false)
		return true
	}
	r.set(top, true)
	r.stack = r.stack[:len(r.stack)-1]
	return true
}

func (r *PrimRange) set(f *rangeFrame, post bool) {
	r.cur = f.prim
	r.depth = f.depth
	r.post = post
}

func (r *PrimRange) Prim() *Prim { return r.cur }

// Depth is 0 for the start prim.
func (r *PrimRange) Depth() int { return r.depth }

func (r *PrimRange) IsPostVisit() bool { return r.post }
