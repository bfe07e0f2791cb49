package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigidx/internal/model"
)

func TestDistanceProperties(t *testing.T) {
	cases := [][2]string{
		{"", ""},
		{"", "abc"},
		{"kitten", "sitting"},
		{"Foo", "foo"},
		{"int ( int , int )", "int ( int )"},
	}
	for _, c := range cases {
		assert.Equal(t, Distance(c[0], c[1]), Distance(c[1], c[0]), "symmetry for %q/%q", c[0], c[1])
		assert.Zero(t, Distance(c[0], c[0]))
		assert.Equal(t, len(c[1]), Distance("", c[1]))
	}
}

func TestDistanceKnownValues(t *testing.T) {
	assert.Equal(t, 0, Distance("Foo", "foo"))
	assert.Equal(t, 3, Distance("", "abc"))
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 3, Distance("add", "sub"))
}

func TestParseBuildsSyntheticDeclarationAndStripsPlaceholder(t *testing.T) {
	var captured []string
	normalize := func(decl, lang string) (string, error) {
		captured = append(captured, decl)
		return "int __q__ ( int , int ) ;", nil
	}

	q, err := Parse("int (int, int)", normalize)
	require.NoError(t, err)

	assert.Equal(t, []string{"int __q__ (int, int);"}, captured)
	assert.Empty(t, q.Name)
	assert.Equal(t, "int ( int , int )", q.SignatureNorm)
}

func TestParseNameWithBlankSignatureSkipsNormalizer(t *testing.T) {
	called := false
	normalize := func(decl, lang string) (string, error) {
		called = true
		return "ignored", nil
	}

	q, err := Parse("foo ::   ", normalize)
	require.NoError(t, err)

	assert.Equal(t, "foo", q.Name)
	assert.Empty(t, q.SignatureNorm)
	assert.False(t, called)
}

func TestParseKeepsNamedPrototypeUntouched(t *testing.T) {
	var captured []string
	normalize := func(decl, lang string) (string, error) {
		captured = append(captured, decl)
		return "int foo ( int ) ;", nil
	}

	q, err := Parse("int foo(int)", normalize)
	require.NoError(t, err)

	assert.Equal(t, []string{"int foo(int);"}, captured)
	assert.Equal(t, "int foo ( int )", q.SignatureNorm)
}

func TestParseRetriesAlternateDialect(t *testing.T) {
	var langs []string
	normalize := func(decl, lang string) (string, error) {
		langs = append(langs, lang)
		if lang == "c" {
			return "", errors.New("not valid C")
		}
		return "int __q__ ( const int & ) ;", nil
	}

	q, err := Parse("int (const int &)", normalize)
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "c++"}, langs)
	assert.Equal(t, "int ( const int & )", q.SignatureNorm)
}

func TestParseSurfacesNormalizationFailure(t *testing.T) {
	normalize := func(decl, lang string) (string, error) {
		return "", errors.New("no dialect accepts this")
	}

	_, err := Parse("int (int", normalize)
	assert.Error(t, err)
}

func candidate(name, path string, line int, sig string) model.Candidate {
	return model.Candidate{
		Name:          name,
		Path:          path,
		Line:          line,
		Column:        1,
		ReturnType:    "int",
		SignatureNorm: sig,
	}
}

func TestRankOrdersByScoreThenTotalOrder(t *testing.T) {
	candidates := []model.Candidate{
		candidate("subtract", "b.c", 20, "int ( int , int )"),
		candidate("add", "a.c", 10, "int ( int , int )"),
		candidate("addr", "z.c", 5, "int ( int , int )"),
	}
	q := model.Query{Name: "add", SignatureNorm: "int ( int , int )"}

	ranked := Rank(candidates, q, 10)
	require.Len(t, ranked, 3)
	assert.Equal(t, "add", ranked[0].Name)
	assert.Equal(t, "addr", ranked[1].Name)
	assert.Equal(t, "subtract", ranked[2].Name)
}

func TestRankIsDeterministic(t *testing.T) {
	candidates := []model.Candidate{
		candidate("beta", "x.c", 3, "void ( )"),
		candidate("alpha", "x.c", 1, "void ( )"),
		candidate("alpha", "a.c", 9, "void ( )"),
		candidate("Alpha", "a.c", 2, "void ( )"),
	}
	q := model.Query{Name: "alpha"}

	first := Rank(candidates, q, len(candidates))
	second := Rank(candidates, q, len(candidates))
	assert.Equal(t, first, second)

	// Equal scores and equal lowercased names fall back to path, then line.
	assert.Equal(t, "a.c", first[0].Path)
	assert.Equal(t, 2, first[0].Line)
	assert.Equal(t, 9, first[1].Line)
	assert.Equal(t, "x.c", first[2].Path)
}

func TestRankClampsTop(t *testing.T) {
	candidates := []model.Candidate{
		candidate("a", "a.c", 1, ""),
		candidate("b", "b.c", 1, ""),
	}
	q := model.Query{Name: "a"}

	assert.Len(t, Rank(candidates, q, 1), 1)
	assert.Len(t, Rank(candidates, q, 5), 2)
	assert.Empty(t, Rank(candidates, q, 0))
	assert.Empty(t, Rank(candidates, q, -3))
}
