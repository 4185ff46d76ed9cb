package flow

import (
	"memlint/internal/own"
	"memlint/internal/rules"
	"memlint/internal/source"
)

func (c *fnChecker) recordFieldRelease(name source.StringID) {
	c.released[name] = true
}

// checkDestructorObligations verifies that a destructor-named function
// releases every Owner field of the struct it destroys. The check is
// syntactic over the whole body: a conditional release satisfies it,
// path divergence inside destructors is the owner's business.
func (c *fnChecker) checkDestructorObligations() {
	fn := c.b.Func(c.fn)
	if !own.IsDestructorName(c.b.Name(fn.Name)) {
		return
	}
	for _, pid := range fn.Params {
		prm := c.b.Param(pid)
		if !prm.Type.IsStruct || !prm.Type.IsPointer() {
			continue
		}
		sid, ok := c.g.StructByName(prm.Type.Name)
		if !ok {
			continue
		}
		for _, eid := range c.g.OwnedFields(sid) {
			ent := c.g.Entity(eid)
			if c.released[ent.Name] {
				continue
			}
			c.transition(eid, rules.Transition{
				Event: rules.EvExit,
				From:  rules.Owned,
				Site:  fn.Span,
			})
		}
	}
}
