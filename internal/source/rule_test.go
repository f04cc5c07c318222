package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldRule_DirectString(t *testing.T) {
	var rule FieldRule
	require.NoError(t, json.Unmarshal([]byte(`"FULLADDR"`), &rule))

	assert.Equal(t, RuleDirect, rule.Kind)
	assert.Equal(t, "fulladdr", rule.Field) // references are case-smashed
}

func TestFieldRule_JoinArray(t *testing.T) {
	var rule FieldRule
	require.NoError(t, json.Unmarshal([]byte(`["PreDir", "StName", "SufType"]`), &rule))

	assert.Equal(t, RuleJoin, rule.Kind)
	assert.Equal(t, []string{"predir", "stname", "suftype"}, rule.Fields)
}

func TestFieldRule_FunctionObject(t *testing.T) {
	raw := `{"function": "regexp", "field": "SITUS_TWO", "pattern": "(\\d{5})$"}`

	var rule FieldRule
	require.NoError(t, json.Unmarshal([]byte(raw), &rule))

	assert.Equal(t, RuleFunction, rule.Kind)
	require.NotNil(t, rule.Fn)
	assert.Equal(t, "regexp", rule.Fn.Function)
	assert.Equal(t, "situs_two", rule.Fn.Field)
	assert.Equal(t, `(\d{5})$`, rule.Fn.Pattern)
}

func TestFieldRule_ChainSmashesNestedReferences(t *testing.T) {
	raw := `{
		"function": "chain",
		"variable": "Road",
		"functions": [
			{"function": "remove_postfix", "field": "FullAddr", "field_to_remove": "UnitID"},
			{"function": "postfixed_street", "field": "Road"}
		]
	}`

	var rule FieldRule
	require.NoError(t, json.Unmarshal([]byte(raw), &rule))

	require.NotNil(t, rule.Fn)
	assert.Equal(t, "road", rule.Fn.Variable)
	require.Len(t, rule.Fn.Functions, 2)
	assert.Equal(t, "fulladdr", rule.Fn.Functions[0].Field)
	assert.Equal(t, "unitid", rule.Fn.Functions[0].FieldToRemove)
	assert.Equal(t, "road", rule.Fn.Functions[1].Field)
}

func TestFieldRule_UnrecognizedShape(t *testing.T) {
	var rule FieldRule
	err := json.Unmarshal([]byte(`42`), &rule)
	assert.Error(t, err)
}

func TestConformSpec_SplitsMetaFromRules(t *testing.T) {
	raw := `{
		"format": "csv",
		"csvsplit": ";",
		"encoding": "iso-8859-1",
		"accuracy": 2,
		"number": "HOUSENUM",
		"street": ["PREDIR", "NAME", "SUFFIX"],
		"custom_tag": "ignored by the engine"
	}`

	var cs ConformSpec
	require.NoError(t, json.Unmarshal([]byte(raw), &cs))

	assert.Equal(t, "csv", cs.Format)
	assert.Equal(t, ";", cs.CSVSplit)
	assert.Equal(t, "iso-8859-1", cs.Encoding)
	assert.Equal(t, 2, cs.Accuracy)

	assert.Len(t, cs.Rules, 2)
	assert.Equal(t, RuleDirect, cs.Rules["number"].Kind)
	assert.Equal(t, RuleJoin, cs.Rules["street"].Kind)
	_, hasCustom := cs.Rules["custom_tag"]
	assert.False(t, hasCustom)
}

func TestConformSpec_LayerAsNameOrIndex(t *testing.T) {
	var byName ConformSpec
	require.NoError(t, json.Unmarshal([]byte(`{"format": "shapefile", "layer": "parcels"}`), &byName))
	assert.Equal(t, "parcels", byName.Layer)

	var byIndex ConformSpec
	require.NoError(t, json.Unmarshal([]byte(`{"format": "shapefile", "layer": 2}`), &byIndex))
	assert.Equal(t, "2", byIndex.Layer)
}
