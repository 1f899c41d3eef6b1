package syntax

import (
	"strconv"

	"tyrb/internal/diag"
	"tyrb/internal/source"
)

// Parse scans and parses one file into a Tree. Identifiers are interned
// into the provided name table. Errors go to the reporter; the parser
// recovers at statement boundaries, so a Tree always comes back.
func Parse(fileID source.FileID, file *source.File, names *source.Interner, reporter diag.Reporter) *Tree {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	p := &parser{
		lx:       NewLexer(fileID, file, reporter),
		names:    names,
		reporter: reporter,
		fileID:   fileID,
	}
	p.advance()
	return &Tree{File: fileID, Stmts: p.parseStmts(false)}
}

type parser struct {
	lx       *Lexer
	names    *source.Interner
	reporter diag.Reporter
	fileID   source.FileID
	tok      Token
}

func (p *parser) advance() {
	p.tok = p.lx.Next()
}

func (p *parser) skipSeparators() {
	for p.tok.Kind == TokNewline || p.tok.Kind == TokSemi {
		p.advance()
	}
}

func (p *parser) errorf(sp source.Span, code diag.Code, msg string) {
	diag.ReportError(p.reporter, code, sp, msg)
}

// recover skips to the next statement boundary.
func (p *parser) recover() {
	for {
		switch p.tok.Kind {
		case TokNewline, TokSemi, TokKwEnd, TokEOF:
			return
		}
		p.advance()
	}
}

// parseStmts reads statements until 'end' (insideBlock) or EOF.
func (p *parser) parseStmts(insideBlock bool) []Node {
	var out []Node
	for {
		p.skipSeparators()
		if p.tok.Kind == TokEOF {
			if insideBlock {
				p.errorf(p.tok.Span, diag.SynExpectEnd, "expected 'end' before end of file")
			}
			return out
		}
		if p.tok.Kind == TokKwEnd {
			if insideBlock {
				return out
			}
			p.errorf(p.tok.Span, diag.SynUnexpectedToken, "unexpected 'end'")
			p.advance()
			continue
		}
		if stmt := p.parseStmt(); stmt != nil {
			out = append(out, stmt)
		}
	}
}

func (p *parser) parseStmt() Node {
	switch p.tok.Kind {
	case TokKwClass:
		return p.parseClass(false)
	case TokKwModule:
		return p.parseClass(true)
	case TokKwDef:
		return p.parseDef()
	case TokIdent:
		if p.tok.Text == "type_member" {
			return p.parseTypeMember()
		}
	}
	return p.parseExprStmt()
}

func (p *parser) parseClass(isModule bool) Node {
	kw := p.tok
	keyword := "class"
	if isModule {
		keyword = "module"
	}
	p.advance()
	if p.tok.Kind != TokConst {
		p.errorf(p.tok.Span, diag.SynExpectName, "expected constant name after '"+keyword+"'")
		p.recover()
		return nil
	}
	decl := &ClassDecl{
		Name:     p.names.Intern(p.tok.Text),
		NameSpan: p.tok.Span,
		IsModule: isModule,
	}
	p.advance()
	if !isModule && p.tok.Kind == TokOp && p.tok.Text == "<" {
		p.advance()
		if p.tok.Kind != TokConst {
			p.errorf(p.tok.Span, diag.SynExpectName, "expected superclass name after '<'")
		} else {
			decl.SuperName = p.names.Intern(p.tok.Text)
			decl.SuperSpan = p.tok.Span
			p.advance()
		}
	}
	decl.Body = p.parseStmts(true)
	endSpan := p.tok.Span
	if p.tok.Kind == TokKwEnd {
		p.advance()
	}
	decl.Sp = kw.Span.Cover(endSpan)
	return decl
}

func (p *parser) parseDef() Node {
	kw := p.tok
	p.advance()
	var name string
	var nameSpan source.Span
	switch p.tok.Kind {
	case TokIdent, TokConst, TokOp:
		name = p.tok.Text
		nameSpan = p.tok.Span
		p.advance()
	default:
		p.errorf(p.tok.Span, diag.SynExpectName, "expected method name after 'def'")
		p.recover()
		return nil
	}
	decl := &MethodDecl{
		Name:     p.names.Intern(name),
		NameSpan: nameSpan,
	}
	if p.tok.Kind == TokLParen {
		p.advance()
		p.skipSeparators()
		for p.tok.Kind != TokRParen && p.tok.Kind != TokEOF {
			param := p.parseParam()
			if param != nil {
				decl.Params = append(decl.Params, param)
			}
			p.skipSeparators()
			if p.tok.Kind == TokComma {
				p.advance()
				p.skipSeparators()
				continue
			}
			break
		}
		if p.tok.Kind != TokRParen {
			p.errorf(p.tok.Span, diag.SynExpectParen, "expected ')' after parameters")
		} else {
			p.advance()
		}
	}
	if p.tok.Kind == TokArrow {
		p.advance()
		if p.tok.Kind != TokConst {
			p.errorf(p.tok.Span, diag.SynExpectName, "expected result type after '->'")
		} else {
			decl.ResultAnn = p.names.Intern(p.tok.Text)
			p.advance()
		}
	}
	decl.Body = p.parseStmts(true)
	endSpan := p.tok.Span
	if p.tok.Kind == TokKwEnd {
		p.advance()
	}
	decl.Sp = kw.Span.Cover(endSpan)
	return decl
}

func (p *parser) parseParam() *ParamDecl {
	if p.tok.Kind != TokIdent {
		p.errorf(p.tok.Span, diag.SynExpectName, "expected parameter name")
		p.advance()
		return nil
	}
	param := &ParamDecl{
		Sp:   p.tok.Span,
		Name: p.names.Intern(p.tok.Text),
	}
	p.advance()
	if p.tok.Kind == TokColon {
		p.advance()
		if p.tok.Kind != TokConst {
			p.errorf(p.tok.Span, diag.SynExpectName, "expected type name after ':'")
		} else {
			param.Ann = p.names.Intern(p.tok.Text)
			param.Sp = param.Sp.Cover(p.tok.Span)
			p.advance()
		}
	}
	return param
}

func (p *parser) parseTypeMember() Node {
	kw := p.tok
	p.advance()
	if p.tok.Kind != TokColon {
		p.errorf(p.tok.Span, diag.SynUnexpectedToken, "expected ':Name' after 'type_member'")
		p.recover()
		return nil
	}
	p.advance()
	if p.tok.Kind != TokConst && p.tok.Kind != TokIdent {
		p.errorf(p.tok.Span, diag.SynExpectName, "expected type member name")
		p.recover()
		return nil
	}
	decl := &TypeMemberDecl{
		Sp:       kw.Span.Cover(p.tok.Span),
		Name:     p.names.Intern(p.tok.Text),
		NameSpan: p.tok.Span,
	}
	p.advance()
	return decl
}

func (p *parser) parseExprStmt() Node {
	expr := p.parseExpr()
	if expr == nil {
		p.recover()
	}
	return expr
}

func (p *parser) parseExpr() Node {
	lhs := p.parseBinary()
	if lhs == nil {
		return nil
	}
	if p.tok.Kind == TokAssign {
		switch lhs.(type) {
		case *Ident, *IVar, *ConstRef:
			p.advance()
			value := p.parseExpr()
			if value == nil {
				return nil
			}
			return &Assign{
				Sp:     lhs.Span().Cover(value.Span()),
				Target: lhs,
				Value:  value,
			}
		default:
			p.errorf(p.tok.Span, diag.SynUnexpectedToken, "cannot assign to this expression")
			p.advance()
			return lhs
		}
	}
	return lhs
}

func (p *parser) parseBinary() Node {
	lhs := p.parsePostfix()
	if lhs == nil {
		return nil
	}
	for p.tok.Kind == TokOp {
		op := p.tok
		p.advance()
		rhs := p.parsePostfix()
		if rhs == nil {
			return lhs
		}
		lhs = &Call{
			Sp:       lhs.Span().Cover(rhs.Span()),
			Recv:     lhs,
			Name:     p.names.Intern(op.Text),
			NameSpan: op.Span,
			Args:     []Node{rhs},
		}
	}
	return lhs
}

func (p *parser) parsePostfix() Node {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for p.tok.Kind == TokDot {
		p.advance()
		if p.tok.Kind != TokIdent && p.tok.Kind != TokConst && p.tok.Kind != TokOp {
			p.errorf(p.tok.Span, diag.SynExpectName, "expected method name after '.'")
			return expr
		}
		call := &Call{
			Recv:     expr,
			Name:     p.names.Intern(p.tok.Text),
			NameSpan: p.tok.Span,
		}
		end := p.tok.Span
		p.advance()
		if p.tok.Kind == TokLParen {
			p.advance()
			p.skipSeparators()
			for p.tok.Kind != TokRParen && p.tok.Kind != TokEOF {
				arg := p.parseExpr()
				if arg == nil {
					break
				}
				call.Args = append(call.Args, arg)
				p.skipSeparators()
				if p.tok.Kind == TokComma {
					p.advance()
					p.skipSeparators()
					continue
				}
				break
			}
			if p.tok.Kind != TokRParen {
				p.errorf(p.tok.Span, diag.SynExpectParen, "expected ')' after arguments")
			} else {
				end = p.tok.Span
				p.advance()
			}
		}
		call.Sp = expr.Span().Cover(end)
		expr = call
	}
	return expr
}

func (p *parser) parsePrimary() Node {
	tok := p.tok
	switch tok.Kind {
	case TokInt:
		p.advance()
		value, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			p.errorf(tok.Span, diag.SynBadNumber, "integer literal out of range")
			value = 0
		}
		return &IntLit{Sp: tok.Span, Value: value}
	case TokString:
		p.advance()
		return &StrLit{Sp: tok.Span, Value: tok.Text}
	case TokIdent:
		p.advance()
		return &Ident{Sp: tok.Span, Name: p.names.Intern(tok.Text)}
	case TokIVar:
		p.advance()
		return &IVar{Sp: tok.Span, Name: p.names.Intern(tok.Text)}
	case TokConst:
		p.advance()
		return &ConstRef{Sp: tok.Span, Name: p.names.Intern(tok.Text)}
	case TokLParen:
		p.advance()
		p.skipSeparators()
		inner := p.parseExpr()
		p.skipSeparators()
		if p.tok.Kind != TokRParen {
			p.errorf(p.tok.Span, diag.SynExpectParen, "expected ')'")
		} else {
			p.advance()
		}
		return inner
	}
	p.errorf(tok.Span, diag.SynUnexpectedToken, "unexpected "+tok.Kind.String())
	p.advance()
	return nil
}
