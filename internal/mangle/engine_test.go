package mangle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
Decl candidate_name(Name, Type) bound [/string, /string].
Decl rejected_location(Name) bound [/string].

rejected_location(Name) :-
  candidate_name(Name, "location"),
  :match_prefix(Name, "偏僻").
`

func TestEngineAssertAndQuery(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, e.LoadSchemaString(`
Decl candidate_name(Name, Type) bound [/string, /string].
`))

	require.NoError(t, e.AddFact("candidate_name", "花果山", "location"))
	require.NoError(t, e.AddFact("candidate_name", "孙悟空", "person"))

	facts, err := e.GetFacts("candidate_name")
	require.NoError(t, err)
	assert.Len(t, facts, 2)

	result, err := e.Query(context.Background(), "candidate_name(Name, \"location\")")
	require.NoError(t, err)
	require.Len(t, result.Bindings, 1)
	assert.Equal(t, "花果山", result.Bindings[0]["Name"])
}

func TestEngineReplaceFactsForScope(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.LoadSchemaString(`Decl candidate_name(Name, Type) bound [/string, /string].`))

	require.NoError(t, e.ReplaceFactsForScope("novel-1", []Fact{
		{Predicate: "candidate_name", Args: []interface{}{"novel-1", "person"}},
	}))
	facts, err := e.GetFacts("candidate_name")
	require.NoError(t, err)
	assert.Len(t, facts, 1)

	require.NoError(t, e.ReplaceFactsForScope("novel-1", []Fact{
		{Predicate: "candidate_name", Args: []interface{}{"novel-1", "location"}},
	}))
	facts, err = e.GetFacts("candidate_name")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "location", facts[0].Args[1])
}

func TestFactLimitExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FactLimit = 1
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	require.NoError(t, e.LoadSchemaString(`Decl candidate_name(Name, Type) bound [/string, /string].`))

	require.NoError(t, e.AddFact("candidate_name", "a", "person"))
	err = e.AddFact("candidate_name", "b", "person")
	assert.Error(t, err)
}
