// Package model holds the data types shared between the parser, the
// store, and the query engine. Rows coming out of the store are
// converted into these types once, at the store boundary.
package model

// Param is one function parameter. Name is empty for unnamed
// parameters (common in prototypes).
type Param struct {
	Type string
	Name string
}

// Function is one function declaration extracted from a source file.
type Function struct {
	Name          string
	ReturnType    string
	Params        []Param
	Variadic      bool
	SignatureNorm string
	Line          int
	Column        int
}

// Query is a parsed search request. Empty fields mean "not filtered".
type Query struct {
	Name          string
	SignatureNorm string
}

// Candidate is a stored function returned by an unranked store lookup.
type Candidate struct {
	ID            int64
	Path          string
	Name          string
	ReturnType    string
	Params        []Param
	SignatureNorm string
	Line          int
	Column        int
}
