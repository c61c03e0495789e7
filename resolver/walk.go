package resolver

import (
	"yqlang/ast"
	"yqlang/token"
)

func (r *resolver) stmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExpressionStmt:
		return r.expr(st.Expression)

	case *ast.ActionStmt:
		if st.Value != nil {
			return r.expr(st.Value)
		}
		return nil

	case *ast.BlockStmt:
		r.current().pushBlock()
		defer r.current().popBlock()
		for _, inner := range st.Statements {
			if err := r.stmt(inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStmt:
		if err := r.expr(st.Condition); err != nil {
			return err
		}
		if err := r.stmt(st.Then); err != nil {
			return err
		}
		if st.Else != nil {
			return r.stmt(st.Else)
		}
		return nil

	case *ast.WhileStmt:
		if err := r.expr(st.Condition); err != nil {
			return err
		}
		return r.stmt(st.Body)

	case *ast.ForStmt:
		if err := r.expr(st.Iterable); err != nil {
			return err
		}
		r.current().pushBlock()
		defer r.current().popBlock()
		if err := r.declarePattern(st.Pattern); err != nil {
			return err
		}
		return r.stmt(st.Body)

	case *ast.FuncStmt:
		// Sugar for assigning a closure to NAME: the name binds like any other
		// assignment target, so redeclaring it is a plain rebind, not an error.
		binding, err := r.resolveWrite(st.Name.Lexeme, st.Name.Line, st.Name.Column)
		if err != nil {
			return err
		}
		r.result.FuncNames[st] = binding
		info, err := r.function(st.Params, st.Body)
		if err != nil {
			return err
		}
		r.result.FuncFrames[st] = info
		return nil

	case *ast.ReturnStmt:
		if st.Value != nil {
			return r.expr(st.Value)
		}
		return nil

	case *ast.BreakStmt, *ast.ContinueStmt:
		return nil

	case *ast.AssignStmt:
		if err := r.expr(st.Value); err != nil {
			return err
		}
		return r.resolveAssignTarget(st.Target)

	case *ast.InitStmt:
		return r.stmt(st.Body)

	default:
		return nil
	}
}

func (r *resolver) expr(e ast.Expression) error {
	switch ex := e.(type) {
	case *ast.Binary:
		if err := r.expr(ex.Left); err != nil {
			return err
		}
		return r.expr(ex.Right)

	case *ast.Logical:
		if err := r.expr(ex.Left); err != nil {
			return err
		}
		return r.expr(ex.Right)

	case *ast.Unary:
		return r.expr(ex.Right)

	case *ast.Literal:
		return nil

	case *ast.Grouping:
		return r.expr(ex.Expression)

	case *ast.Variable:
		name := ex.Name.Lexeme
		if ex.Name.TokenType == token.THIS || isReserved(name) {
			return nil // reserved forms are compiler-special-cased by lexeme
		}
		binding, err := r.resolveRead(name, ex.Name.Line, ex.Name.Column)
		if err != nil {
			return err
		}
		r.result.Bindings[ex] = binding
		return nil

	case *ast.Call:
		if err := r.expr(ex.Callee); err != nil {
			return err
		}
		for _, a := range ex.Args {
			if err := r.expr(a); err != nil {
				return err
			}
		}
		return nil

	case *ast.Index:
		if err := r.expr(ex.Target); err != nil {
			return err
		}
		if ex.Begin != nil {
			if err := r.expr(ex.Begin); err != nil {
				return err
			}
		}
		if ex.IsSlice && ex.End != nil {
			if err := r.expr(ex.End); err != nil {
				return err
			}
		}
		return nil

	case *ast.Attribute:
		return r.expr(ex.Target)

	case *ast.ListLiteral:
		for _, el := range ex.Elements {
			if err := r.expr(el); err != nil {
				return err
			}
		}
		return nil

	case *ast.ObjectLiteral:
		for _, v := range ex.Values {
			if err := r.expr(v); err != nil {
				return err
			}
		}
		return nil

	case *ast.ListPattern:
		for _, el := range ex.Elements {
			if err := r.expr(el); err != nil {
				return err
			}
		}
		return nil

	case *ast.Lambda:
		info, err := r.function(ex.Params, ex.Body)
		if err != nil {
			return err
		}
		r.result.LambdaFrames[ex] = info
		return nil

	default:
		return nil
	}
}

// function resolves a function/lambda body in a fresh frame, binding params
// as fresh locals (duplicate parameter names are a RedeclarationError), and
// returns the resulting FrameInfo.
func (r *resolver) function(params []token.Token, body ast.Stmt) (*FrameInfo, error) {
	frame := r.pushFunction()
	defer r.popFunction()
	for _, p := range params {
		if _, err := r.declareNew(p); err != nil {
			return nil, err
		}
	}
	frame.info.ParamCount = len(params)
	if err := r.stmt(body); err != nil {
		return nil, err
	}
	return frame.info, nil
}

// resolveAssignTarget resolves the LHS of an assignment statement: a bare
// Variable resolves like any other write (creating a fresh binding in the
// current frame if the name was never seen before); Index/Attribute targets
// only need their addressing sub-expressions resolved as reads; a
// ListPattern recurses element-wise.
func (r *resolver) resolveAssignTarget(target ast.Expression) error {
	switch t := target.(type) {
	case *ast.Variable:
		name := t.Name.Lexeme
		if t.Name.TokenType == token.THIS || isReserved(name) {
			return newReservedNameError(name, t.Name.Line, t.Name.Column)
		}
		binding, err := r.resolveWrite(name, t.Name.Line, t.Name.Column)
		if err != nil {
			return err
		}
		r.result.Bindings[t] = binding
		return nil

	case *ast.Index:
		if err := r.expr(t.Target); err != nil {
			return err
		}
		if t.Begin != nil {
			if err := r.expr(t.Begin); err != nil {
				return err
			}
		}
		if t.IsSlice && t.End != nil {
			return r.expr(t.End)
		}
		return nil

	case *ast.Attribute:
		return r.expr(t.Target)

	case *ast.ListPattern:
		for _, el := range t.Elements {
			if err := r.resolveAssignTarget(el); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

// declarePattern binds every leaf Variable in a for-loop pattern as a fresh
// local/global scoped to the loop body, erroring if the same name appears
// twice in the one pattern.
func (r *resolver) declarePattern(pattern ast.Expression) error {
	switch t := pattern.(type) {
	case *ast.Variable:
		binding, err := r.declareNew(t.Name)
		if err != nil {
			return err
		}
		r.result.Bindings[t] = binding
		return nil
	case *ast.ListPattern:
		for _, el := range t.Elements {
			if err := r.declarePattern(el); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
