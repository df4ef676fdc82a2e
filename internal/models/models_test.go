package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportKeyString(t *testing.T) {
	key := ReportKey{District: "District 3", Year: 2025, Month: 4}
	assert.Equal(t, "District 3_2025_04", key.String())
	assert.Equal(t, "2025-04", key.Period())
}

func TestParseReportID(t *testing.T) {
	key, err := ParseReportID("North_East_2024_11")
	require.NoError(t, err)
	assert.Equal(t, ReportKey{District: "North_East", Year: 2024, Month: 11}, key)

	for _, bad := range []string{"", "District", "District_2024", "District_x_01", "District_2024_1"} {
		_, err := ParseReportID(bad)
		assert.Error(t, err, bad)
	}
}

func TestReportDataScan(t *testing.T) {
	var data ReportData
	require.NoError(t, data.Scan([]byte(`{"surveys":{"surveys_conducted":4,"surveys_type":"VES"}}`)))
	assert.Equal(t, 4.0, data["surveys"]["surveys_conducted"])
	assert.Equal(t, "VES", data["surveys"]["surveys_type"])

	require.NoError(t, data.Scan(nil))
	assert.Empty(t, data)
	assert.Error(t, data.Scan(42))
}

func TestReportDataValueOfNil(t *testing.T) {
	var data ReportData
	v, err := data.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), v)
}

func TestActorFromClaims(t *testing.T) {
	actor := ActorFromClaims(&JWTClaims{UserID: "u1", Role: RoleDistrictUser, District: "District 2", CanEdit: true, IsActive: true})
	assert.Equal(t, "District 2", actor.District)
	assert.False(t, actor.IsAdmin())
	assert.Equal(t, Actor{}, ActorFromClaims(nil))
}
