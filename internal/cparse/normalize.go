package cparse

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsc "github.com/smacker/go-tree-sitter/c"
	tscpp "github.com/smacker/go-tree-sitter/cpp"
)

func grammarFor(lang string) *sitter.Language {
	switch strings.TrimSpace(strings.ToLower(lang)) {
	case LangCPP, "cpp", "cxx", "cc":
		return tscpp.GetLanguage()
	}
	return tsc.GetLanguage()
}

// Normalize tokenizes a declaration under the given dialect and joins
// the tokens with single spaces, producing the canonical signature
// spelling. It fails if the declaration does not parse cleanly.
func Normalize(decl, lang string) (string, error) {
	src := []byte(decl)
	tree, err := parseBytes(src, lang)
	if err != nil {
		return "", fmt.Errorf("normalize %q: %w", decl, err)
	}
	defer tree.Close()

	if tree.RootNode().HasError() {
		return "", fmt.Errorf("normalize %q: not a valid %s declaration", decl, lang)
	}

	var tokens []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.ChildCount() == 0 {
			if tok := n.Content(src); tok != "" {
				tokens = append(tokens, tok)
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return strings.Join(tokens, " "), nil
}
