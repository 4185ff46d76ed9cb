package flow

import (
	"memlint/internal/annot"
	"memlint/internal/ast"
	"memlint/internal/own"
	"memlint/internal/rules"
	"memlint/internal/source"
)

// evalExpr walks one expression, applying use checks, pointer
// adjustments and call semantics. stmtPos is true for expression
// statements, where assignments rebind entities.
func (c *fnChecker) evalExpr(st *state, id ast.ExprID, stmtPos bool) {
	e := c.b.Expr(id)
	if e == nil {
		return
	}

	switch e.Kind {
	case ast.ExprCall:
		c.evalCall(st, e)

	case ast.ExprUnary:
		switch e.Un {
		case ast.UnaryDeref:
			c.useOperand(st, e.X)
			c.evalExpr(st, e.X, false)
		case ast.UnaryInc, ast.UnaryDec:
			c.adjustOperand(st, e.X)
		default:
			c.evalExpr(st, e.X, false)
		}

	case ast.ExprMember:
		c.useOperand(st, e.X)
		c.evalExpr(st, e.X, false)

	case ast.ExprIndex:
		c.useOperand(st, e.X)
		c.evalExpr(st, e.X, false)
		c.evalExpr(st, e.Y, false)

	case ast.ExprBinary:
		c.evalBinary(st, e, stmtPos)
	}
}

func (c *fnChecker) evalBinary(st *state, e *ast.Expr, stmtPos bool) {
	switch e.Bin {
	case ast.BinAssign:
		c.evalAssign(st, e, stmtPos)

	case ast.BinAddAssign, ast.BinSubAssign:
		c.adjustOperand(st, e.X)
		c.evalExpr(st, e.Y, false)

	case ast.BinAdd, ast.BinSub, ast.BinMul, ast.BinDiv, ast.BinRem:
		// Arithmetic counts as a use of a released pointer; comparison
		// does not, so null guards on freed pointers stay silent.
		c.useOperand(st, e.X)
		c.useOperand(st, e.Y)
		c.evalExpr(st, e.X, false)
		c.evalExpr(st, e.Y, false)

	default:
		c.evalExpr(st, e.X, false)
		c.evalExpr(st, e.Y, false)
	}
}

func (c *fnChecker) evalAssign(st *state, e *ast.Expr, stmtPos bool) {
	lhs := c.b.Expr(e.X)
	c.evalExpr(st, e.Y, false)

	if lhs == nil {
		return
	}
	switch lhs.Kind {
	case ast.ExprIdent:
		if eid := c.g.Lookup(c.fn, lhs.Name); eid.IsValid() && stmtPos {
			c.bind(st, eid, e.Y, nil)
			return
		}

	case ast.ExprMember:
		// Storing into a container field. If the field is Owner-tagged
		// the stored value's obligation transfers to the container.
		c.useOperand(st, lhs.X)
		c.storeIntoField(st, lhs, e.Y)
		return
	}
	c.evalExpr(st, e.X, false)
}

func (c *fnChecker) storeIntoField(st *state, lhs *ast.Expr, rhs ast.ExprID) {
	val := c.b.Expr(rhs)
	if val == nil || val.Kind != ast.ExprIdent {
		return
	}
	vid := c.g.Lookup(c.fn, val.Name)
	if !vid.IsValid() {
		return
	}
	fieldEnt := c.fieldOfBase(lhs)
	if fieldEnt == nil {
		return
	}
	if fieldEnt.Tag == annot.TagOwner || fieldEnt.Tag == annot.TagTakePossession {
		es := st.get(vid)
		if es.st == rules.Owned {
			st.escapeGroup(es.group)
		}
	}
}

// fieldOfBase resolves base->name to the field entity via the base
// variable's declared struct type.
func (c *fnChecker) fieldOfBase(member *ast.Expr) *own.Entity {
	base := c.b.Expr(member.X)
	if base == nil || base.Kind != ast.ExprIdent {
		return nil
	}
	bid := c.g.Lookup(c.fn, base.Name)
	if !bid.IsValid() {
		return nil
	}
	typ := c.g.Entity(bid).Type
	if !typ.IsStruct {
		return nil
	}
	sid, ok := c.g.StructByName(typ.Name)
	if !ok {
		return nil
	}
	for _, fldID := range c.b.Struct(sid).Fields {
		if c.b.Field(fldID).Name == member.Name {
			if eid := c.g.FieldEntity(fldID); eid.IsValid() {
				return c.g.Entity(eid)
			}
		}
	}
	return nil
}

func (c *fnChecker) evalCall(st *state, call *ast.Expr) {
	if !call.Name.IsValid() {
		// Indirect call: every tracked argument degrades to Unknown.
		for _, argID := range call.Args {
			c.evalExpr(st, argID, false)
			if eid := c.identEntity(argID); eid.IsValid() {
				c.degrade(st, eid, call.Span)
			}
		}
		c.evalExpr(st, call.X, false)
		return
	}

	name := c.b.Name(call.Name)
	switch {
	case c.g.Symbols.IsReleaser(name):
		c.evalReleaseCall(st, call)

	case c.g.Symbols.IsRetainer(name):
		c.evalRetainCall(st, call)

	case c.g.Symbols.IsAllocator(name):
		for _, argID := range call.Args {
			c.evalExpr(st, argID, false)
		}

	default:
		c.evalDeclaredCall(st, call)
	}
}

func (c *fnChecker) evalRetainCall(st *state, call *ast.Expr) {
	for _, argID := range call.Args {
		arg := c.b.Expr(argID)
		if arg == nil {
			continue
		}
		if arg.Kind == ast.ExprIdent {
			eid := c.g.Lookup(c.fn, arg.Name)
			if eid.IsValid() && c.g.Entity(eid).Tag == annot.TagRefCounted {
				c.refRetain(st, eid, call.Span)
				continue
			}
		}
		c.evalExpr(st, argID, false)
	}
}

func (c *fnChecker) evalReleaseCall(st *state, call *ast.Expr) {
	for _, argID := range call.Args {
		arg := c.b.Expr(argID)
		if arg == nil {
			continue
		}
		switch arg.Kind {
		case ast.ExprIdent:
			eid := c.g.Lookup(c.fn, arg.Name)
			if !eid.IsValid() {
				continue
			}
			if c.g.Entity(eid).Tag == annot.TagRefCounted {
				c.refRelease(st, eid, call.Span)
			} else {
				c.release(st, eid, call.Span)
			}

		case ast.ExprMember:
			// Releasing a field: recorded for destructor-obligation
			// checking; the base pointer itself is merely used.
			c.useOperand(st, arg.X)
			c.recordFieldRelease(arg.Name)

		default:
			c.evalExpr(st, argID, false)
		}
	}
}

func (c *fnChecker) evalDeclaredCall(st *state, call *ast.Expr) {
	callee, declared := c.g.FuncByName(call.Name)
	if !declared {
		// A function-pointer variable; the builder verified the name
		// resolves to something. Arguments degrade.
		for _, argID := range call.Args {
			c.evalExpr(st, argID, false)
			if eid := c.identEntity(argID); eid.IsValid() {
				c.degrade(st, eid, call.Span)
			}
		}
		return
	}

	calleeFn := c.b.Func(callee)
	for i, argID := range call.Args {
		arg := c.b.Expr(argID)
		if arg == nil {
			continue
		}
		var paramEnt *own.Entity
		if i < len(calleeFn.Params) {
			if pe := c.g.ParamEntity(calleeFn.Params[i]); pe.IsValid() {
				paramEnt = c.g.Entity(pe)
			}
		}

		switch arg.Kind {
		case ast.ExprIdent:
			eid := c.g.Lookup(c.fn, arg.Name)
			if !eid.IsValid() {
				continue
			}
			c.passEntity(st, eid, paramEnt, arg.Span)

		case ast.ExprUnary:
			if arg.Un == ast.UnaryAddr {
				c.passAddress(st, arg, paramEnt)
				continue
			}
			c.evalExpr(st, argID, false)

		default:
			c.evalExpr(st, argID, false)
		}
	}
}

// passEntity applies the callee parameter's contract to one tracked
// argument.
func (c *fnChecker) passEntity(st *state, eid own.EntityID, param *own.Entity, site source.Span) {
	es := st.get(eid)

	if param != nil && param.Tag == annot.TagTakePossession {
		// Transfer is a release from the caller's point of view.
		c.release(st, eid, site)
		return
	}

	outParam := param != nil &&
		(param.Anns.Has(annot.TagPtrOut) || param.Anns.Has(annot.TagPtrInOut))
	if es.st == rules.Released && !outParam {
		c.transition(eid, rules.Transition{
			Event: rules.EvUse,
			From:  es.st,
			Site:  site,
		})
		return
	}

	// Handing a refcounted pointer to a refcounted parameter is a
	// retain: the callee holds its own reference.
	if param != nil && param.Tag == annot.TagRefCounted {
		if ent := c.g.Entity(eid); ent != nil && ent.Tag == annot.TagRefCounted {
			c.refRetain(st, eid, site)
			return
		}
	}
	// Borrow for the duration of the call, reverting on return: no
	// persistent state change for Guarded and untagged parameters.
	if param != nil && param.Anns.Has(annot.TagPtrOut) {
		st.set(eid, entState{st: rules.Owned, group: c.newGroup()})
	}
}

// passAddress handles &x arguments: an out-parameter write leaves x
// holding a fresh owned value.
func (c *fnChecker) passAddress(st *state, addr *ast.Expr, param *own.Entity) {
	inner := c.b.Expr(addr.X)
	if inner == nil || inner.Kind != ast.ExprIdent {
		return
	}
	eid := c.g.Lookup(c.fn, inner.Name)
	if !eid.IsValid() || param == nil {
		return
	}
	if param.Anns.Has(annot.TagPtrOut) {
		st.set(eid, entState{st: rules.Owned, group: c.newGroup()})
	}
	// PtrInOut: same ownership, possibly new contents. Nothing to do.
}

// release runs the release transition and poisons the alias group.
func (c *fnChecker) release(st *state, eid own.EntityID, site source.Span) {
	es := st.get(eid)
	ent := c.g.Entity(eid)
	c.transition(eid, rules.Transition{
		Event:    rules.EvRelease,
		From:     es.st,
		To:       rules.Released,
		Site:     site,
		Guarded:  ent.Tag == annot.TagGuarded && es.st != rules.Released,
		Adjusted: es.adjusted,
	})
	if es.group != 0 {
		st.releaseGroup(es.group)
	} else {
		es.st = rules.Released
		st.set(eid, es)
	}
}

// refRetain increments the reference-count machine.
func (c *fnChecker) refRetain(st *state, eid own.EntityID, site source.Span) {
	es := st.get(eid)
	es.count++
	st.set(eid, es)
	c.transition(eid, rules.Transition{
		Event: rules.EvRefRetain,
		From:  es.st,
		Site:  site,
		Count: es.count,
	})
}

// refRelease decrements the reference-count machine.
func (c *fnChecker) refRelease(st *state, eid own.EntityID, site source.Span) {
	es := st.get(eid)
	es.count--
	st.set(eid, es)
	c.transition(eid, rules.Transition{
		Event: rules.EvRefRelease,
		From:  es.st,
		Site:  site,
		Count: es.count,
	})
	if es.count == 0 {
		st.releaseGroup(es.group)
	}
}

// useOperand flags a use of a released pointer when the operand is a
// tracked identifier.
func (c *fnChecker) useOperand(st *state, id ast.ExprID) {
	eid := c.identEntity(id)
	if !eid.IsValid() {
		return
	}
	es := st.get(eid)
	if es.st == rules.Released {
		c.transition(eid, rules.Transition{
			Event: rules.EvUse,
			From:  es.st,
			Site:  c.b.Expr(id).Span,
		})
	}
}

// adjustOperand marks pointer arithmetic on a tracked identifier.
func (c *fnChecker) adjustOperand(st *state, id ast.ExprID) {
	eid := c.identEntity(id)
	if !eid.IsValid() {
		c.evalExpr(st, id, false)
		return
	}
	c.useOperand(st, id)
	es := st.get(eid)
	es.adjusted = true
	st.set(eid, es)
}

func (c *fnChecker) identEntity(id ast.ExprID) own.EntityID {
	e := c.b.Expr(id)
	if e == nil || e.Kind != ast.ExprIdent {
		return own.NoEntityID
	}
	return c.g.Lookup(c.fn, e.Name)
}
