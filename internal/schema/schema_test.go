package schema

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	cats := reg.Categories()
	require.Len(t, cats, 5)
	assert.Equal(t, "surveys", cats[0].ID)
	assert.Equal(t, "Surveys & Investigations", cats[0].Label)
	assert.Len(t, reg.Districts(), 14)
	assert.True(t, reg.HasDistrict("District 14"))
	assert.False(t, reg.HasDistrict("District 15"))

	field, ok := reg.RepresentativeField("drilling")
	require.True(t, ok)
	assert.Equal(t, "borewells_completed", field.ID)

	expenditure := reg.ExpenditureMetrics()
	require.Len(t, expenditure, 2)
	assert.Equal(t, "drilling.drilling_expenditure", expenditure[0].Key)
	assert.Equal(t, "recharge.recharge_expenditure", expenditure[1].Key)
}

func TestLoadCustomDefinition(t *testing.T) {
	reg, err := Load(filepath.Join("testdata", "custom.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"North", "South"}, reg.Districts())
	assert.Equal(t, []string{"Wells_wells_dug", "Wells_spend"}, reg.FlattenedColumns())

	m, ok := reg.Metric("wells.spend")
	require.True(t, ok)
	assert.Equal(t, "Wells / Spend", m.Label)
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]Definition{
		"no categories": {Districts: []string{"A"}},
		"no districts":  {Categories: []Category{{ID: "a", Label: "A"}}},
		"duplicate category": {
			Categories: []Category{{ID: "a", Label: "A"}, {ID: "a", Label: "B"}},
			Districts:  []string{"X"},
		},
		"dropdown without options": {
			Categories: []Category{{ID: "a", Label: "A", Fields: []Field{{ID: "f", Type: FieldDropdown}}}},
			Districts:  []string{"X"},
		},
		"unknown type": {
			Categories: []Category{{ID: "a", Label: "A", Fields: []Field{{ID: "f", Type: "date"}}}},
			Districts:  []string{"X"},
		},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(def)
			assert.Error(t, err)
		})
	}
}

func TestNormalize(t *testing.T) {
	reg := Default()

	out, err := reg.Normalize(map[string]map[string]interface{}{
		"surveys": {
			"surveys_conducted": json.Number("4"),
			"surveys_type":      "VES",
			"surveys_remarks":   "ok",
			"area_covered":      nil,
		},
		"awareness": {},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]interface{}{
		"surveys": {"surveys_conducted": 4.0, "surveys_type": "VES", "surveys_remarks": "ok"},
	}, out)
}

func TestNormalizeRejects(t *testing.T) {
	reg := Default()
	cases := map[string]map[string]map[string]interface{}{
		"unknown category": {"finance": {"x": 1.0}},
		"unknown field":    {"surveys": {"depth": 1.0}},
		"negative number":  {"drilling": {"borewells_completed": -1.0}},
		"string number":    {"drilling": {"borewells_completed": "3"}},
		"bad option":       {"drilling": {"drilling_type": "Laser"}},
		"non text remark":  {"drilling": {"drilling_remarks": 12.0}},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Normalize(payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
}

func TestFlattenAndNumberValue(t *testing.T) {
	reg := Default()
	data := map[string]map[string]interface{}{
		"recharge": {"recharge_structures": 3.0, "recharge_type": "Check Dam"},
	}

	flat := reg.Flatten(data)
	assert.Equal(t, 3.0, flat["Recharge Structures_recharge_structures"])
	assert.Equal(t, "Check Dam", flat["Recharge Structures_recharge_type"])
	assert.NotContains(t, flat, "Recharge Structures_recharge_capacity")
	assert.NotContains(t, flat, "recharge_recharge_structures")

	v, ok := NumberValue(data, "recharge", "recharge_structures")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = NumberValue(data, "recharge", "recharge_type")
	assert.False(t, ok)
}
