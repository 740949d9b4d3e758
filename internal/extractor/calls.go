package extractor

import sitter "github.com/smacker/go-tree-sitter"

// ThisFieldCall matches a call of the form this.<field>.<method>(...) and
// returns the field and method names.
func ThisFieldCall(call *sitter.Node, source []byte) (field, method string, ok bool) {
	if call == nil || call.Type() != "call_expression" {
		return "", "", false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return "", "", false
	}
	target := fn.ChildByFieldName("object")
	if target == nil || target.Type() != "member_expression" {
		return "", "", false
	}
	obj := target.ChildByFieldName("object")
	if obj == nil || obj.Type() != "this" {
		return "", "", false
	}
	field = Content(target.ChildByFieldName("property"), source)
	method = Content(fn.ChildByFieldName("property"), source)
	return field, method, field != "" && method != ""
}

// CalleeName returns the member name of a call's callee (obj.name(...)),
// or the identifier for a plain call (name(...)).
func CalleeName(call *sitter.Node, source []byte) string {
	if call == nil {
		return ""
	}
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "member_expression":
		return Content(fn.ChildByFieldName("property"), source)
	case "identifier":
		return Content(fn, source)
	}
	return ""
}

// ArgCount returns the number of arguments of a call expression.
func ArgCount(call *sitter.Node) int {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return 0
	}
	n := 0
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if args.NamedChild(i).Type() != "comment" {
			n++
		}
	}
	return n
}
