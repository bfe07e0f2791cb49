// Package cparse extracts function declarations from C and C++ sources
// using tree-sitter, and tokenizes declaration text into normalized
// signatures. It never panics past its boundary: parse problems come
// back as diagnostic strings.
package cparse

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"sigidx/internal/model"
)

// Language hints understood by the parser and the normalizer.
const (
	LangC   = "c"
	LangCPP = "c++"
)

// placeholder inserted into synthetic declarations built from a
// function's return type and parameter types.
const sigPlaceholder = "__f__"

var placeholderRe = regexp.MustCompile(`\b__f__\b`)

// DialectsForPath returns the language candidates to try for a file,
// in order. Headers are ambiguous, so they get C first and C++ as a
// fallback. The order is a policy choice, not a correctness guarantee.
func DialectsForPath(path string) []string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c":
		return []string{LangC}
	case ".cc", ".cpp", ".cxx", ".c++":
		return []string{LangCPP}
	case ".h", ".hh", ".hpp", ".hxx":
		return []string{LangC, LangCPP}
	}
	return nil
}

// Extensions reports whether a path has a recognized C/C++ extension.
func Extensions(path string) bool {
	return len(DialectsForPath(path)) > 0
}

// Parser extracts function declarations from source files.
type Parser struct {
	includeArgs []string
}

// NewParser creates a parser. It probes the system compiler's default
// include search paths once; a failed probe is non-fatal and leaves
// the argument list empty.
func NewParser() *Parser {
	args, err := IncludeSearchArgs()
	if err != nil {
		args = nil
	}
	return &Parser{includeArgs: args}
}

// IncludeArgs returns the -isystem argument pairs discovered from the
// environment, if any.
func (p *Parser) IncludeArgs() []string {
	return p.includeArgs
}

// ParseFile parses a source file and returns its function declarations
// with normalized signatures, or a diagnostic string. Exactly one of
// the results is meaningful: a non-empty error string means zero
// functions.
func (p *Parser) ParseFile(path string, src []byte) ([]model.Function, string) {
	dialects := DialectsForPath(path)
	if len(dialects) == 0 {
		return nil, "unsupported file type"
	}

	var diags []string
	for _, lang := range dialects {
		tree, err := parseBytes(src, lang)
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s: parse failed: %v", lang, err))
			continue
		}
		if tree.RootNode().HasError() {
			tree.Close()
			diags = append(diags, fmt.Sprintf("%s: source contains syntax errors", lang))
			continue
		}

		funcs := extractFunctions(tree.RootNode(), src)
		tree.Close()
		for i := range funcs {
			funcs[i].SignatureNorm = p.normalizedSignature(&funcs[i], lang)
		}
		return funcs, ""
	}
	return nil, strings.Join(diags, "\n")
}

// normalizedSignature builds a synthetic declaration from the return
// type and parameter types and tokenizes it. If tokenization fails the
// signature falls back to a plain "ret ( t1, t2 )" spelling.
func (p *Parser) normalizedSignature(fn *model.Function, lang string) string {
	types := paramTypes(fn)
	proto := fmt.Sprintf("%s %s(%s);", fn.ReturnType, sigPlaceholder, strings.Join(types, ", "))

	sig, err := Normalize(proto, lang)
	if err != nil {
		return FallbackSignature(fn)
	}
	sig = placeholderRe.ReplaceAllString(sig, "")
	sig = strings.ReplaceAll(sig, " ;", "")
	return strings.Join(strings.Fields(sig), " ")
}

// FallbackSignature is the signature spelling used when tokenization
// is unavailable for a declaration.
func FallbackSignature(fn *model.Function) string {
	return fmt.Sprintf("%s ( %s )", fn.ReturnType, strings.Join(paramTypes(fn), ", "))
}

func paramTypes(fn *model.Function) []string {
	types := make([]string, 0, len(fn.Params)+1)
	for _, p := range fn.Params {
		types = append(types, p.Type)
	}
	if fn.Variadic {
		types = append(types, "...")
	}
	return types
}

func parseBytes(src []byte, lang string) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(grammarFor(lang))
	return parser.ParseCtx(context.Background(), nil, src)
}

// extractFunctions walks the tree collecting function definitions and
// prototypes. Declarations that are not functions (variables, function
// pointers) are skipped.
func extractFunctions(root *sitter.Node, src []byte) []model.Function {
	var funcs []model.Function

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "declaration":
			if fn, ok := functionFromNode(n, src); ok {
				funcs = append(funcs, fn)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return funcs
}

func functionFromNode(n *sitter.Node, src []byte) (model.Function, bool) {
	decl := n.ChildByFieldName("declarator")
	fd := unwrapFunctionDeclarator(decl)
	if fd == nil {
		return model.Function{}, false
	}

	// Only plain identifiers name a function here; a parenthesized
	// declarator means a function-pointer variable.
	nameNode := fd.ChildByFieldName("declarator")
	if nameNode == nil || nameNode.Type() != "identifier" {
		return model.Function{}, false
	}

	retText := string(src[n.StartByte():fd.StartByte()])
	fn := model.Function{
		Name:       nameNode.Content(src),
		ReturnType: returnTypeSpelling(retText),
		Line:       int(nameNode.StartPoint().Row) + 1,
		Column:     int(nameNode.StartPoint().Column) + 1,
	}
	if fn.ReturnType == "" {
		return model.Function{}, false
	}

	params := fd.ChildByFieldName("parameters")
	if params == nil {
		return model.Function{}, false
	}
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		switch child.Type() {
		case "parameter_declaration":
			fn.Params = append(fn.Params, paramFromNode(child, src))
		case "variadic_parameter", "...":
			fn.Variadic = true
		}
	}
	// "(void)" declares zero parameters.
	if len(fn.Params) == 1 && fn.Params[0].Type == "void" && fn.Params[0].Name == "" {
		fn.Params = nil
	}
	return fn, true
}

// unwrapFunctionDeclarator peels pointer declarators off a declarator
// until it reaches the function declarator, or nil for non-functions.
func unwrapFunctionDeclarator(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "function_declarator":
			return n
		case "pointer_declarator", "reference_declarator":
			n = innerDeclarator(n)
		default:
			return nil
		}
	}
	return nil
}

// innerDeclarator follows the declarator field, falling back to the
// first declarator-shaped named child for nodes without the field
// (reference and parenthesized declarators).
func innerDeclarator(n *sitter.Node) *sitter.Node {
	if d := n.ChildByFieldName("declarator"); d != nil {
		return d
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "identifier" || strings.HasSuffix(child.Type(), "declarator") {
			return child
		}
	}
	return nil
}

// returnTypeSpelling normalizes the raw text preceding the function
// declarator: whitespace collapsed, storage-class specifiers dropped.
func returnTypeSpelling(text string) string {
	fields := strings.Fields(text)
	for len(fields) > 0 {
		switch fields[0] {
		case "static", "extern", "inline", "register", "_Noreturn":
			fields = fields[1:]
		default:
			return strings.Join(fields, " ")
		}
	}
	return ""
}

func paramFromNode(pd *sitter.Node, src []byte) model.Param {
	nameNode := innermostIdentifier(pd.ChildByFieldName("declarator"))
	if nameNode == nil {
		return model.Param{Type: collapseSpelling(pd.Content(src))}
	}

	// The parameter's type spelling is its full text with the name cut
	// out, which keeps pointer and array syntax in place: "const char
	// *s" becomes "const char *", "int (*cb)(int)" becomes "int (*)(int)".
	start, end := pd.StartByte(), pd.EndByte()
	ns, ne := nameNode.StartByte(), nameNode.EndByte()
	typeText := string(src[start:ns]) + string(src[ne:end])
	return model.Param{
		Type: collapseSpelling(typeText),
		Name: nameNode.Content(src),
	}
}

func innermostIdentifier(n *sitter.Node) *sitter.Node {
	for n != nil {
		if n.Type() == "identifier" {
			return n
		}
		n = innerDeclarator(n)
	}
	return nil
}

func collapseSpelling(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	s = strings.ReplaceAll(s, " [", "[")
	s = strings.ReplaceAll(s, "( *", "(*")
	return strings.TrimSpace(s)
}
