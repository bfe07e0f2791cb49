package cparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTokenizesDeclaration(t *testing.T) {
	got, err := Normalize("int __q__ (int,   int);", LangC)
	require.NoError(t, err)
	assert.Equal(t, "int __q__ ( int , int ) ;", got)
}

func TestNormalizePointerSpelling(t *testing.T) {
	got, err := Normalize("int __f__(int, const char *);", LangC)
	require.NoError(t, err)
	assert.Equal(t, "int __f__ ( int , const char * ) ;", got)
}

func TestNormalizeRejectsInvalidDeclarations(t *testing.T) {
	_, err := Normalize("int (int", LangC)
	assert.Error(t, err)
}

func TestNormalizeCPPDialect(t *testing.T) {
	// References don't parse as C; the C++ grammar accepts them.
	_, err := Normalize("int __q__(const int &);", LangC)
	assert.Error(t, err)

	got, err := Normalize("int __q__(const int &);", LangCPP)
	require.NoError(t, err)
	assert.Equal(t, "int __q__ ( const int & ) ;", got)
}
