package flow

import (
	"sort"

	"memlint/internal/annot"
	"memlint/internal/ast"
	"memlint/internal/diag"
	"memlint/internal/own"
	"memlint/internal/rules"
	"memlint/internal/source"
)

// maxPaths bounds branch enumeration per function. Past the bound the
// checker stops forking and follows the then-branch only.
const maxPaths = 128

// Options controls one checking run.
type Options struct {
	Reporter diag.Reporter
	Registry *rules.Registry
}

// Check runs the flow simulation over every function definition of the
// unit's graph. The graph is read-only; concurrent Check calls over
// disjoint units are safe.
func Check(g *own.Graph, opts Options) {
	if opts.Registry == nil {
		opts.Registry = rules.Default()
	}
	for _, fid := range g.B.Unit.Funcs {
		fn := g.B.Func(fid)
		if !fn.IsDefinition() {
			continue
		}
		if name, ok := g.FuncByName(fn.Name); !ok || name != fid {
			continue
		}
		c := &fnChecker{
			g:        g,
			b:        g.B,
			opts:     opts,
			fn:       fid,
			unknown:  make(map[own.EntityID]bool),
			released: make(map[source.StringID]bool),
		}
		c.check()
	}
}

type fnChecker struct {
	g    *own.Graph
	b    *ast.Builder
	opts Options
	fn   ast.FuncID

	paths     int
	nextGroup uint32
	// unknown records entities whose tracking degraded; the
	// informational finding fires once per entity, not once per path.
	unknown map[own.EntityID]bool
	// released collects field names freed anywhere in the body, for
	// destructor-obligation checking.
	released map[source.StringID]bool
	// stackNames are params and locals of any type; returning their
	// address is a stack escape even when no entity tracks them.
	stackNames map[source.StringID]bool
}

// cont is one continuation frame: a statement list and the resume
// index inside it.
type cont struct {
	items []ast.StmtID
	idx   int
}

func (c *fnChecker) check() {
	fn := c.b.Func(c.fn)
	st := newState()

	c.stackNames = make(map[source.StringID]bool)
	for _, pid := range fn.Params {
		c.stackNames[c.b.Param(pid).Name] = true
	}
	ast.WalkStmts(c.b, fn.Body, func(_ ast.StmtID, s *ast.Stmt) {
		if s.Kind == ast.StmtDecl {
			c.stackNames[s.Name] = true
		}
	})

	for _, eid := range c.g.Params(c.fn) {
		ent := c.g.Entity(eid)
		es := entState{group: c.newGroup()}
		switch ent.Tag {
		case annot.TagTakePossession, annot.TagOwner:
			es.st = rules.Owned
		case annot.TagRefCounted:
			es.st = rules.Owned
			es.count = 1
		default:
			es.st = rules.Borrowed
		}
		st.set(eid, es)
	}

	c.run(st, []cont{{items: []ast.StmtID{fn.Body}}})
	c.checkDestructorObligations()
}

func (c *fnChecker) newGroup() uint32 {
	c.nextGroup++
	return c.nextGroup
}

// run drives one path to completion. Forks recurse with cloned state
// and a copied continuation stack.
func (c *fnChecker) run(st *state, stack []cont) {
	for {
		if len(stack) == 0 {
			c.exitCheck(st, c.b.Func(c.fn).Span)
			return
		}
		top := &stack[len(stack)-1]
		if top.idx >= len(top.items) {
			stack = stack[:len(stack)-1]
			continue
		}
		sid := top.items[top.idx]
		top.idx++

		s := c.b.Stmt(sid)
		if s == nil {
			continue
		}
		switch s.Kind {
		case ast.StmtBlock:
			stack = append(stack, cont{items: s.Items})

		case ast.StmtDecl:
			c.execDecl(st, s)

		case ast.StmtExpr:
			c.evalExpr(st, s.X, true)

		case ast.StmtIf:
			c.evalExpr(st, s.X, false)
			if c.paths < maxPaths {
				c.paths++
				other := st.clone()
				otherStack := copyStack(stack)
				if s.Else.IsValid() {
					otherStack = append(otherStack, cont{items: []ast.StmtID{s.Else}})
				}
				c.run(other, otherStack)
			}
			stack = append(stack, cont{items: []ast.StmtID{s.Then}})

		case ast.StmtWhile:
			c.evalExpr(st, s.X, false)
			// Two paths: the body runs once, or not at all. Enough to
			// observe release/leak divergence without loop fixpoints.
			if c.paths < maxPaths {
				c.paths++
				once := st.clone()
				onceStack := append(copyStack(stack), cont{items: []ast.StmtID{s.Body}})
				c.run(once, onceStack)
			}

		case ast.StmtReturn:
			c.execReturn(st, s)
			c.exitCheck(st, s.Span)
			return

		case ast.StmtEmpty:
		}
	}
}

func copyStack(stack []cont) []cont {
	return append([]cont(nil), stack...)
}

func (c *fnChecker) execDecl(st *state, s *ast.Stmt) {
	eid := c.g.Lookup(c.fn, s.Name)
	if s.Init.IsValid() {
		c.evalExpr(st, s.Init, false)
	}
	if !eid.IsValid() {
		return
	}
	if !s.Init.IsValid() {
		st.set(eid, entState{st: rules.Unbound, group: c.newGroup()})
		return
	}
	c.bind(st, eid, s.Init, s.Anns)
}

// bind gives an entity a new value from the right-hand side of a
// declaration or assignment.
func (c *fnChecker) bind(st *state, eid own.EntityID, rhs ast.ExprID, anns []annot.Annotation) {
	ent := c.g.Entity(eid)
	e := c.b.Expr(rhs)
	if e == nil {
		st.set(eid, entState{st: rules.Unbound, group: c.newGroup()})
		return
	}

	switch e.Kind {
	case ast.ExprNull:
		st.set(eid, entState{st: rules.Unbound, group: c.newGroup()})

	case ast.ExprCall:
		c.bindCall(st, eid, ent, e)

	case ast.ExprIdent:
		c.bindCopy(st, eid, ent, e, anns)

	case ast.ExprUnary:
		if e.Un == ast.UnaryAddr {
			// Address of stack storage: borrowed view that must not
			// escape through return.
			st.set(eid, entState{st: rules.Borrowed, group: c.newGroup(), stack: true})
			return
		}
		c.degrade(st, eid, e.Span)

	case ast.ExprBinary:
		// q = p + 1 keeps the alias group but the new value is off
		// the original allocation.
		if src := c.operandEntity(e); src.IsValid() {
			es := st.get(src)
			st.set(eid, entState{st: es.st, group: es.group, adjusted: true, stack: es.stack})
			return
		}
		c.degrade(st, eid, e.Span)

	case ast.ExprMember, ast.ExprIndex:
		// A view into memory some container owns.
		st.set(eid, entState{st: rules.Borrowed, group: c.newGroup()})

	default:
		st.set(eid, entState{st: rules.Unbound, group: c.newGroup()})
	}
}

func (c *fnChecker) bindCall(st *state, eid own.EntityID, ent *own.Entity, call *ast.Expr) {
	if !call.Name.IsValid() {
		c.degrade(st, eid, call.Span)
		return
	}
	name := c.b.Name(call.Name)
	if c.g.Symbols.IsAllocator(name) {
		es := entState{st: rules.Owned, group: c.newGroup()}
		if ent.Tag == annot.TagRefCounted {
			es.count = 1
		}
		st.set(eid, es)
		return
	}
	if callee, ok := c.g.FuncByName(call.Name); ok {
		ret := c.g.ReturnEntity(callee)
		if ret.IsValid() && c.g.Entity(ret).Tag == annot.TagOwner {
			st.set(eid, entState{st: rules.Owned, group: c.newGroup()})
			return
		}
		st.set(eid, entState{st: rules.Borrowed, group: c.newGroup()})
		return
	}
	// Call through a function-pointer variable.
	c.degrade(st, eid, call.Span)
}

func (c *fnChecker) bindCopy(st *state, eid own.EntityID, ent *own.Entity, rhs *ast.Expr, anns []annot.Annotation) {
	src := c.g.Lookup(c.fn, rhs.Name)
	if !src.IsValid() {
		st.set(eid, entState{st: rules.Unbound, group: c.newGroup()})
		return
	}
	srcState := st.get(src)

	if srcState.st == rules.Released {
		c.transition(src, rules.Transition{
			Event: rules.EvUse,
			From:  srcState.st,
			Site:  rhs.Span,
		})
	}

	borrowDocumented := ent.Anns.Has(annot.TagGuarded)
	for _, a := range anns {
		if a.Tag == annot.TagGuarded {
			borrowDocumented = true
		}
	}

	es := entState{group: srcState.group, adjusted: srcState.adjusted, stack: srcState.stack}
	switch {
	case borrowDocumented:
		es.st = rules.Borrowed
		es.adjusted = false
	case srcState.st == rules.Owned:
		// Ownership moves; the source keeps borrowed access to the
		// same allocation through the shared group.
		es.st = rules.Owned
		srcState.st = rules.Borrowed
		st.set(src, srcState)
	default:
		es.st = srcState.st
	}
	st.set(eid, es)
}

// operandEntity finds the tracked entity in a binary operand pair.
func (c *fnChecker) operandEntity(e *ast.Expr) own.EntityID {
	for _, side := range []ast.ExprID{e.X, e.Y} {
		if op := c.b.Expr(side); op != nil && op.Kind == ast.ExprIdent {
			if id := c.g.Lookup(c.fn, op.Name); id.IsValid() {
				return id
			}
		}
	}
	return own.NoEntityID
}

func (c *fnChecker) execReturn(st *state, s *ast.Stmt) {
	if !s.X.IsValid() {
		return
	}
	e := c.b.Expr(s.X)

	// return &local: the classic stack escape.
	if e.Kind == ast.ExprUnary && e.Un == ast.UnaryAddr {
		if inner := c.b.Expr(e.X); inner != nil && inner.Kind == ast.ExprIdent {
			if eid := c.g.Lookup(c.fn, inner.Name); eid.IsValid() {
				c.stackEscape(st, eid, s.Span)
				return
			}
		}
		// Address of an untracked (non-pointer) local or param: still
		// stack storage, still an escape.
		if inner := c.b.Expr(e.X); inner != nil && inner.Kind == ast.ExprIdent && c.stackNames[inner.Name] {
			c.transition(own.NoEntityID, rules.Transition{
				Event: rules.EvStackReturn,
				Name:  c.b.Name(inner.Name),
				Site:  s.Span,
			})
		}
		return
	}

	if e.Kind == ast.ExprIdent {
		eid := c.g.Lookup(c.fn, e.Name)
		if !eid.IsValid() {
			return
		}
		es := st.get(eid)
		switch {
		case es.stack:
			c.stackEscape(st, eid, s.Span)
		case es.st == rules.Released:
			c.transition(eid, rules.Transition{
				Event: rules.EvUse,
				From:  es.st,
				Site:  s.Span,
			})
		case es.st == rules.Owned:
			st.escapeGroup(es.group)
		}
		return
	}

	c.evalExpr(st, s.X, false)
}

func (c *fnChecker) stackEscape(st *state, eid own.EntityID, site source.Span) {
	c.transition(eid, rules.Transition{
		Event: rules.EvStackReturn,
		From:  st.get(eid).st,
		Site:  site,
	})
	es := st.get(eid)
	es.st = rules.Escaped
	st.set(eid, es)
}

// exitCheck evaluates terminal obligations for one finished path.
func (c *fnChecker) exitCheck(st *state, site source.Span) {
	ids := make([]own.EntityID, 0, len(st.ents))
	for id := range st.ents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		es := st.ents[id]
		ent := c.g.Entity(id)
		if ent == nil || es.st != rules.Owned {
			continue
		}
		if ent.Tag == annot.TagRefCounted {
			// The count machine has no obligation until it hits zero.
			continue
		}
		c.transition(id, rules.Transition{
			Event: rules.EvExit,
			From:  es.st,
			Site:  site,
		})
	}
}

// transition fills in entity context and routes rule findings to the
// reporter.
func (c *fnChecker) transition(eid own.EntityID, tr rules.Transition) {
	ent := c.g.Entity(eid)
	if ent != nil {
		tr.Entity = ent
		tr.Name = c.b.Name(ent.Name)
	}
	for _, f := range c.opts.Registry.Evaluate(tr) {
		if c.opts.Reporter != nil {
			c.opts.Reporter.Report(f)
		}
	}
}

// degrade downgrades an entity to Unknown, reporting once.
func (c *fnChecker) degrade(st *state, eid own.EntityID, site source.Span) {
	es := st.get(eid)
	if es.st == rules.Unknown {
		return
	}
	if !c.unknown[eid] {
		c.unknown[eid] = true
		c.transition(eid, rules.Transition{
			Event: rules.EvUnknown,
			From:  es.st,
			To:    rules.Unknown,
			Site:  site,
		})
	}
	es.st = rules.Unknown
	es.group = c.newGroup()
	st.set(eid, es)
}
