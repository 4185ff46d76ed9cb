package own

import (
	"fmt"
	"strings"

	"memlint/internal/annot"
	"memlint/internal/ast"
	"memlint/internal/diag"
	"memlint/internal/source"
)

// Options controls one graph build.
type Options struct {
	Reporter diag.Reporter
	// Symbols defaults to DefaultSymbols when zero.
	Symbols Symbols
}

// Graph is the read-only ownership model of one translation unit.
type Graph struct {
	B       *ast.Builder
	Symbols Symbols

	entities []Entity
	Edges    []Edge

	funcsByName   map[source.StringID]ast.FuncID
	structsByName map[source.StringID]ast.StructID

	params    map[ast.ParamID]EntityID
	fields    map[ast.FieldID]EntityID
	returns   map[ast.FuncID]EntityID
	paramList map[ast.FuncID][]EntityID
	locals    map[ast.FuncID]map[source.StringID]EntityID
	owned     map[ast.StructID][]EntityID
}

// Entity returns the entity for id, or nil for the sentinel.
func (g *Graph) Entity(id EntityID) *Entity {
	if !id.IsValid() || int(id) >= len(g.entities) {
		return nil
	}
	return &g.entities[id]
}

// Entities returns every real entity in declaration order.
func (g *Graph) Entities() []Entity { return g.entities[1:] }

// ParamEntity maps a parameter onto its entity, if it has one.
func (g *Graph) ParamEntity(id ast.ParamID) EntityID { return g.params[id] }

// FieldEntity maps a field onto its entity, if it has one.
func (g *Graph) FieldEntity(id ast.FieldID) EntityID { return g.fields[id] }

// ReturnEntity returns the function's return-slot entity, if any.
func (g *Graph) ReturnEntity(fn ast.FuncID) EntityID { return g.returns[fn] }

// Params returns the function's pointer-parameter entities in order.
func (g *Graph) Params(fn ast.FuncID) []EntityID { return g.paramList[fn] }

// Lookup resolves a name inside a function to its parameter or local
// entity.
func (g *Graph) Lookup(fn ast.FuncID, name source.StringID) EntityID {
	if locals := g.locals[fn]; locals != nil {
		if id, ok := locals[name]; ok {
			return id
		}
	}
	for _, eid := range g.paramList[fn] {
		if g.entities[eid].Name == name {
			return eid
		}
	}
	return NoEntityID
}

// FuncByName resolves a function name declared in the unit.
func (g *Graph) FuncByName(name source.StringID) (ast.FuncID, bool) {
	id, ok := g.funcsByName[name]
	return id, ok
}

// StructByName resolves a struct tag declared in the unit.
func (g *Graph) StructByName(name source.StringID) (ast.StructID, bool) {
	id, ok := g.structsByName[name]
	return id, ok
}

// OwnedFields returns the struct's Owner-tagged field entities: the
// release obligations of its destructor.
func (g *Graph) OwnedFields(id ast.StructID) []EntityID { return g.owned[id] }

type builder struct {
	g    *Graph
	b    *ast.Builder
	opts Options
}

// Build constructs the ownership graph for one unit. Annotation
// conflicts and unresolved symbols abort the unit with a BuildError;
// the same condition is also reported as a diagnostic so callers can
// surface it without unwrapping.
func Build(b *ast.Builder, opts Options) (*Graph, error) {
	if opts.Symbols.Allocators == nil {
		opts.Symbols = DefaultSymbols()
	}
	g := &Graph{
		B:             b,
		Symbols:       opts.Symbols,
		entities:      make([]Entity, 1),
		funcsByName:   make(map[source.StringID]ast.FuncID),
		structsByName: make(map[source.StringID]ast.StructID),
		params:        make(map[ast.ParamID]EntityID),
		fields:        make(map[ast.FieldID]EntityID),
		returns:       make(map[ast.FuncID]EntityID),
		paramList:     make(map[ast.FuncID][]EntityID),
		locals:        make(map[ast.FuncID]map[source.StringID]EntityID),
		owned:         make(map[ast.StructID][]EntityID),
	}
	bd := &builder{g: g, b: b, opts: opts}

	if err := bd.indexSymbols(); err != nil {
		return nil, err
	}
	if err := bd.buildFuncs(); err != nil {
		return nil, err
	}
	if err := bd.buildStructs(); err != nil {
		return nil, err
	}
	if err := bd.resolveTargets(); err != nil {
		return nil, err
	}
	if err := bd.crossReferenceCalls(); err != nil {
		return nil, err
	}
	return g, nil
}

// indexSymbols maps names onto declarations. A definition wins over a
// forward declaration; two definitions of one name is an error.
func (bd *builder) indexSymbols() error {
	for _, fid := range bd.b.Unit.Funcs {
		fn := bd.b.Func(fid)
		prev, seen := bd.g.funcsByName[fn.Name]
		if !seen {
			bd.g.funcsByName[fn.Name] = fid
			continue
		}
		prevFn := bd.b.Func(prev)
		if prevFn.IsDefinition() && fn.IsDefinition() {
			return bd.fail(ErrDuplicateSymbol, diag.BuildDuplicateSymbol, fn.Span,
				bd.b.Name(fn.Name), fmt.Sprintf("function %q defined twice", bd.b.Name(fn.Name)))
		}
		if fn.IsDefinition() {
			bd.g.funcsByName[fn.Name] = fid
		}
	}
	for _, sid := range bd.b.Unit.Structs {
		st := bd.b.Struct(sid)
		if _, seen := bd.g.structsByName[st.Name]; seen {
			return bd.fail(ErrDuplicateSymbol, diag.BuildDuplicateSymbol, st.Span,
				bd.b.Name(st.Name), fmt.Sprintf("struct %q declared twice", bd.b.Name(st.Name)))
		}
		bd.g.structsByName[st.Name] = sid
	}
	return nil
}

func (bd *builder) buildFuncs() error {
	for _, fid := range bd.b.Unit.Funcs {
		if bd.g.funcsByName[bd.b.Func(fid).Name] != fid {
			continue // shadowed forward declaration
		}
		if err := bd.buildFunc(fid); err != nil {
			return err
		}
	}
	return nil
}

func (bd *builder) buildFunc(fid ast.FuncID) error {
	fn := bd.b.Func(fid)

	for _, pid := range fn.Params {
		prm := bd.b.Param(pid)
		if !prm.Type.IsPointer() && len(prm.Anns) == 0 {
			continue
		}
		set, err := annot.Validate(prm.Anns)
		if err != nil {
			return bd.conflict(prm.Span, bd.b.Name(prm.Name), err)
		}
		ent := Entity{
			Kind: EntityParam,
			Name: prm.Name,
			Decl: prm.Span,
			Type: prm.Type,
			Anns: set,
			Func: fid,
		}
		switch own, ok := set.Ownership(); {
		case ok:
			ent.Tag = own.Tag
		case prm.Type.IsStruct && IsDestructorName(bd.b.Name(fn.Name)):
			// A destructor owns the object it destroys.
			ent.Tag = annot.TagTakePossession
			ent.Implicit = true
		default:
			// Undocumented pointer parameters default to borrowed
			// access; the callee must not release them.
			ent.Tag = annot.TagGuarded
			ent.Implicit = true
		}
		eid := bd.add(ent)
		bd.g.params[pid] = eid
		bd.g.paramList[fid] = append(bd.g.paramList[fid], eid)
	}

	if fn.Ret.IsPointer() || len(fn.RetAnns) > 0 {
		set, err := annot.Validate(fn.RetAnns)
		if err != nil {
			return bd.conflict(fn.Span, bd.b.Name(fn.Name), err)
		}
		ent := Entity{
			Kind: EntityReturn,
			Name: fn.Name,
			Decl: fn.Span,
			Type: fn.Ret,
			Anns: set,
			Func: fid,
		}
		if own, ok := set.Ownership(); ok {
			ent.Tag = own.Tag
		}
		bd.g.returns[fid] = bd.add(ent)
	}

	if fn.IsDefinition() {
		if err := bd.buildLocals(fid, fn); err != nil {
			return err
		}
	}
	return nil
}

func (bd *builder) buildLocals(fid ast.FuncID, fn *ast.Func) error {
	var firstErr error
	ast.WalkStmts(bd.b, fn.Body, func(_ ast.StmtID, s *ast.Stmt) {
		if firstErr != nil || s.Kind != ast.StmtDecl || !s.Type.IsPointer() {
			return
		}
		set, err := annot.Validate(s.Anns)
		if err != nil {
			firstErr = bd.conflict(s.Span, bd.b.Name(s.Name), err)
			return
		}
		ent := Entity{
			Kind: EntityLocal,
			Name: s.Name,
			Decl: s.Span,
			Type: s.Type,
			Anns: set,
			Func: fid,
		}
		if own, ok := set.Ownership(); ok {
			ent.Tag = own.Tag
		}
		eid := bd.add(ent)
		if bd.g.locals[fid] == nil {
			bd.g.locals[fid] = make(map[source.StringID]EntityID)
		}
		bd.g.locals[fid][s.Name] = eid
	})
	return firstErr
}

func (bd *builder) buildStructs() error {
	for _, sid := range bd.b.Unit.Structs {
		st := bd.b.Struct(sid)
		for _, fldID := range st.Fields {
			fld := bd.b.Field(fldID)
			if !fld.Type.IsPointer() && len(fld.Anns) == 0 {
				continue
			}
			set, err := annot.Validate(fld.Anns)
			if err != nil {
				return bd.conflict(fld.Span, bd.b.Name(fld.Name), err)
			}
			ent := Entity{
				Kind:   EntityField,
				Name:   fld.Name,
				Decl:   fld.Span,
				Type:   fld.Type,
				Anns:   set,
				Struct: sid,
			}
			switch own, ok := set.Ownership(); {
			case ok:
				ent.Tag = own.Tag
			case bd.destructorReleases(st, fld.Name):
				ent.Tag = annot.TagOwner
				ent.Implicit = true
			default:
				diag.ReportInfo(bd.opts.Reporter, diag.MemAmbiguousOwnership, fld.Span,
					fmt.Sprintf("pointer field %q of struct %q has no ownership annotation and no destructor releases it",
						bd.b.Name(fld.Name), bd.b.Name(st.Name))).
					WithEntity(bd.b.Name(fld.Name), fld.Span).
					Emit()
			}
			eid := bd.add(ent)
			bd.g.fields[fldID] = eid
			if ent.Tag == annot.TagOwner {
				bd.g.owned[sid] = append(bd.g.owned[sid], eid)
				bd.g.Edges = append(bd.g.Edges, Edge{Kind: EdgeOwns, From: eid, Site: fld.Span})
			}
		}
	}
	return nil
}

// destructorReleases reports whether a destructor-named function of
// the struct releases the field: the heuristic behind the implicit
// Owner default for unannotated pointer fields.
func (bd *builder) destructorReleases(st *ast.Struct, field source.StringID) bool {
	for _, fid := range bd.g.funcsByName {
		fn := bd.b.Func(fid)
		if !fn.IsDefinition() || !IsDestructorName(bd.b.Name(fn.Name)) {
			continue
		}
		if !bd.takesStructPointer(fn, st.Name) {
			continue
		}
		if bd.bodyReleasesField(fn.Body, field) {
			return true
		}
	}
	return false
}

// IsDestructorName reports whether the function name follows the
// destructor convention (*_free, *_delete, *_destroy).
func IsDestructorName(name string) bool {
	return strings.HasSuffix(name, "_free") ||
		strings.HasSuffix(name, "_delete") ||
		strings.HasSuffix(name, "_destroy")
}

func (bd *builder) takesStructPointer(fn *ast.Func, tag source.StringID) bool {
	for _, pid := range fn.Params {
		prm := bd.b.Param(pid)
		if prm.Type.IsStruct && prm.Type.IsPointer() && prm.Type.Name == tag {
			return true
		}
	}
	return false
}

func (bd *builder) bodyReleasesField(body ast.StmtID, field source.StringID) bool {
	found := false
	ast.WalkStmts(bd.b, body, func(sid ast.StmtID, _ *ast.Stmt) {
		ast.StmtExprs(bd.b, sid, func(_ ast.ExprID, e *ast.Expr) {
			if found || e.Kind != ast.ExprCall || !e.Name.IsValid() {
				return
			}
			if !bd.g.Symbols.IsReleaser(bd.b.Name(e.Name)) {
				return
			}
			for _, arg := range e.Args {
				if m := bd.b.Expr(arg); m != nil && m.Kind == ast.ExprMember && m.Name == field {
					found = true
				}
			}
		})
	})
	return found
}

// resolveTargets binds ReleaseAfter/OwnerOf arguments: for params and
// locals within the same function, for fields within the same struct.
// References never cross a function or struct boundary.
func (bd *builder) resolveTargets() error {
	for i := 1; i < len(bd.g.entities); i++ {
		ent := &bd.g.entities[i]
		for _, tag := range []annot.Tag{annot.TagReleaseAfter, annot.TagOwnerOf} {
			a, ok := ent.Anns.Find(tag)
			if !ok {
				continue
			}
			target := bd.resolveTarget(ent, a.Target)
			if !target.IsValid() {
				return bd.fail(ErrUnresolvedSymbol, diag.AnnUnresolvedTarget, a.Span,
					bd.b.Name(a.Target),
					fmt.Sprintf("%s target %q names no declaration in scope", a.Tag, bd.b.Name(a.Target)))
			}
			ent.Target = target
		}
	}
	return nil
}

func (bd *builder) resolveTarget(ent *Entity, name source.StringID) EntityID {
	switch ent.Kind {
	case EntityParam, EntityLocal, EntityReturn:
		return bd.g.Lookup(ent.Func, name)
	case EntityField:
		st := bd.b.Struct(ent.Struct)
		for _, fldID := range st.Fields {
			if bd.b.Field(fldID).Name == name {
				return bd.g.fields[fldID]
			}
		}
	}
	return NoEntityID
}

// crossReferenceCalls records transfer and borrow edges for each
// direct call whose argument is a tracked entity. A direct call to a
// name that is neither declared nor a known symbol is an unresolved
// symbol; calls through members or derefs stay in the graph unedged
// and degrade to Unknown during flow analysis.
func (bd *builder) crossReferenceCalls() error {
	for _, fid := range bd.b.Unit.Funcs {
		if bd.g.funcsByName[bd.b.Func(fid).Name] != fid {
			continue
		}
		fn := bd.b.Func(fid)
		if !fn.IsDefinition() {
			continue
		}
		var firstErr error
		ast.WalkStmts(bd.b, fn.Body, func(sid ast.StmtID, _ *ast.Stmt) {
			ast.StmtExprs(bd.b, sid, func(_ ast.ExprID, e *ast.Expr) {
				if firstErr != nil || e.Kind != ast.ExprCall || !e.Name.IsValid() {
					return
				}
				if err := bd.referenceCall(fid, e); err != nil {
					firstErr = err
				}
			})
		})
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}

func (bd *builder) referenceCall(caller ast.FuncID, call *ast.Expr) error {
	name := bd.b.Name(call.Name)
	callee, declared := bd.g.funcsByName[call.Name]
	if !declared {
		if bd.g.Symbols.IsAllocator(name) || bd.g.Symbols.IsReleaser(name) || bd.g.Symbols.IsRetainer(name) {
			return nil
		}
		if bd.g.Lookup(caller, call.Name).IsValid() {
			return nil // call through a function pointer variable
		}
		return bd.fail(ErrUnresolvedSymbol, diag.BuildUnresolvedSymbol, call.Span,
			name, fmt.Sprintf("call to undeclared function %q", name))
	}

	calleeFn := bd.b.Func(callee)
	for i, argID := range call.Args {
		if i >= len(calleeFn.Params) {
			break
		}
		arg := bd.b.Expr(argID)
		if arg == nil || arg.Kind != ast.ExprIdent {
			continue
		}
		from := bd.g.Lookup(caller, arg.Name)
		to := bd.g.params[calleeFn.Params[i]]
		if !from.IsValid() || !to.IsValid() {
			continue
		}
		switch bd.g.entities[to].Tag {
		case annot.TagTakePossession:
			bd.g.Edges = append(bd.g.Edges, Edge{Kind: EdgeTransfer, From: from, To: to, Site: arg.Span})
		case annot.TagGuarded:
			bd.g.Edges = append(bd.g.Edges, Edge{Kind: EdgeBorrow, From: from, To: to, Site: arg.Span})
		}
	}
	return nil
}

func (bd *builder) add(ent Entity) EntityID {
	id := entityID(len(bd.g.entities))
	ent.ID = id
	bd.g.entities = append(bd.g.entities, ent)
	return id
}

func (bd *builder) conflict(span source.Span, name string, err error) error {
	diag.ReportError(bd.opts.Reporter, diag.BuildAnnotationConflict, span,
		fmt.Sprintf("%s on %q", err, name)).Emit()
	return &BuildError{Kind: ErrAnnotationConflict, Name: name, Span: span, Err: err}
}

func (bd *builder) fail(kind BuildErrorKind, code diag.Code, span source.Span, name, msg string) error {
	diag.ReportError(bd.opts.Reporter, code, span, msg).Emit()
	return &BuildError{Kind: kind, Name: name, Span: span}
}
