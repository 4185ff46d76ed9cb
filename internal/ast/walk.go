package ast

// WalkStmts visits root and every statement reachable from it in
// source order.
func WalkStmts(b *Builder, root StmtID, visit func(StmtID, *Stmt)) {
	s := b.Stmt(root)
	if s == nil {
		return
	}
	visit(root, s)
	for _, item := range s.Items {
		WalkStmts(b, item, visit)
	}
	WalkStmts(b, s.Then, visit)
	WalkStmts(b, s.Else, visit)
	WalkStmts(b, s.Body, visit)
}

// WalkExprs visits root and every subexpression in evaluation order.
func WalkExprs(b *Builder, root ExprID, visit func(ExprID, *Expr)) {
	e := b.Expr(root)
	if e == nil {
		return
	}
	visit(root, e)
	WalkExprs(b, e.X, visit)
	WalkExprs(b, e.Y, visit)
	for _, a := range e.Args {
		WalkExprs(b, a, visit)
	}
}

// StmtExprs visits every expression hanging off one statement,
// without descending into nested statements.
func StmtExprs(b *Builder, id StmtID, visit func(ExprID, *Expr)) {
	s := b.Stmt(id)
	if s == nil {
		return
	}
	WalkExprs(b, s.Init, visit)
	WalkExprs(b, s.X, visit)
}
