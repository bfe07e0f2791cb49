package cparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigidx/internal/model"
)

func findFunc(t *testing.T, funcs []model.Function, name string) model.Function {
	t.Helper()
	for _, fn := range funcs {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found in %v", name, funcs)
	return model.Function{}
}

func TestDialectsForPath(t *testing.T) {
	assert.Equal(t, []string{LangC}, DialectsForPath("x.c"))
	assert.Equal(t, []string{LangCPP}, DialectsForPath("x.cpp"))
	assert.Equal(t, []string{LangC, LangCPP}, DialectsForPath("x.h"))
	assert.Equal(t, []string{LangC, LangCPP}, DialectsForPath("X.HPP"))
	assert.Nil(t, DialectsForPath("x.txt"))
}

func TestParseFileExtractsDefinitions(t *testing.T) {
	src := []byte(`
int add(int a, int b) {
    return a + b;
}

void greet(const char *name) {
    (void)name;
}

void *alloc_buf(unsigned long n) {
    return 0;
}
`)
	p := NewParser()
	funcs, errStr := p.ParseFile("test.c", src)
	require.Empty(t, errStr)
	require.Len(t, funcs, 3)

	add := findFunc(t, funcs, "add")
	assert.Equal(t, "int", add.ReturnType)
	require.Len(t, add.Params, 2)
	assert.Equal(t, model.Param{Type: "int", Name: "a"}, add.Params[0])
	assert.Equal(t, model.Param{Type: "int", Name: "b"}, add.Params[1])
	assert.Equal(t, "int ( int , int )", add.SignatureNorm)
	assert.Equal(t, 2, add.Line)
	assert.Equal(t, 5, add.Column)

	greet := findFunc(t, funcs, "greet")
	require.Len(t, greet.Params, 1)
	assert.Equal(t, "const char *", greet.Params[0].Type)
	assert.Equal(t, "name", greet.Params[0].Name)

	alloc := findFunc(t, funcs, "alloc_buf")
	assert.Equal(t, "void *", alloc.ReturnType)
}

func TestParseFileExtractsPrototypesAndVariadics(t *testing.T) {
	src := []byte(`
int b(void);
int log_fmt(const char *fmt, ...);
static int hidden(int x);
`)
	p := NewParser()
	funcs, errStr := p.ParseFile("decls.h", src)
	require.Empty(t, errStr)
	require.Len(t, funcs, 3)

	b := findFunc(t, funcs, "b")
	assert.Empty(t, b.Params, "(void) declares zero parameters")

	logFmt := findFunc(t, funcs, "log_fmt")
	assert.True(t, logFmt.Variadic)
	assert.Equal(t, "int ( const char * , ... )", logFmt.SignatureNorm)

	hidden := findFunc(t, funcs, "hidden")
	assert.Equal(t, "int", hidden.ReturnType, "storage class is not part of the return type")
}

func TestParseFileSkipsNonFunctions(t *testing.T) {
	src := []byte(`
int counter;
int (*handler)(int);
struct point { int x; int y; };
`)
	p := NewParser()
	funcs, errStr := p.ParseFile("vars.c", src)
	assert.Empty(t, errStr)
	assert.Empty(t, funcs)
}

func TestParseFileReportsSyntaxErrors(t *testing.T) {
	p := NewParser()
	funcs, errStr := p.ParseFile("broken.c", []byte("int broken(\n"))
	assert.Empty(t, funcs)
	assert.Contains(t, errStr, "syntax errors")
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	p := NewParser()
	funcs, errStr := p.ParseFile("readme.txt", []byte("hello"))
	assert.Empty(t, funcs)
	assert.Equal(t, "unsupported file type", errStr)
}

func TestFallbackSignature(t *testing.T) {
	fn := model.Function{
		ReturnType: "int",
		Params:     []model.Param{{Type: "int"}, {Type: "const char *"}},
		Variadic:   true,
	}
	assert.Equal(t, "int ( int, const char *, ... )", FallbackSignature(&fn))
}
