package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctordir/importer/internal/directory"
)

func validRecord() directory.Record {
	return directory.Record{
		"prov_key":   "PK-1001",
		"idme":       "IDME-7",
		"npi":        "1234567890",
		"first_name": "Jane",
		"last_name":  "Doe",
		"suffix":     "MD",
		"gender":     "F",
		"locations": []any{
			map[string]any{
				"practice_name": "Midtown Medical Group",
				"address":       "123 Main St",
				"city":          "Sacramento",
				"state":         "CA",
				"zip":           "95814",
				"phone":         "916-555-0100",
			},
		},
	}
}

func TestMapValidRecord(t *testing.T) {
	doc, err := Map(validRecord())

	require.NoError(t, err)
	assert.Equal(t, "PK-1001", doc.ProviderKey)
	assert.Equal(t, "Jane Doe", doc.FullName())
	assert.Equal(t, "MD", doc.Degree)
	assert.Equal(t, "123 Main St", doc.Address)
	assert.Equal(t, "Sacramento", doc.City)
	assert.Equal(t, "CA", doc.State)
	assert.Equal(t, "95814", doc.Zip)
	assert.Equal(t, "jane-doe-md", doc.SlugCandidate())
}

func TestMapTerminatedProvider(t *testing.T) {
	// The terminated check runs before required-field validation, so a
	// terminated provider with no address still reports "terminated".
	for _, status := range []string{"terminated", "TERMINATED", "Terminated"} {
		rec := directory.Record{
			"first_name":  "Gone",
			"last_name":   "Provider",
			"prov_status": status,
		}

		_, err := Map(rec)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "status %q", status)
		assert.Equal(t, "prov_status", vErr.Field)
		assert.Contains(t, vErr.Reason, "terminated")
	}
}

func TestMapRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(loc map[string]any)
		field  string
	}{
		{"missing address", func(loc map[string]any) { delete(loc, "address") }, "address"},
		{"missing city", func(loc map[string]any) { delete(loc, "city") }, "city"},
		{"missing state", func(loc map[string]any) { delete(loc, "state") }, "state"},
		{"missing zip", func(loc map[string]any) { delete(loc, "zip") }, "zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			loc := rec["locations"].([]any)[0].(map[string]any)
			tt.mutate(loc)

			_, err := Map(rec)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestMapFirstLocationWins(t *testing.T) {
	rec := validRecord()
	rec["locations"] = []any{
		map[string]any{
			"address": "123 Main St",
			"city":    "Sacramento",
			"state":   "CA",
			"zip":     "95814",
		},
		map[string]any{
			"address": "999 Other Ave",
			"city":    "Davis",
			"state":   "CA",
			"zip":     "95616",
		},
	}

	doc, err := Map(rec)

	require.NoError(t, err)
	assert.Equal(t, "123 Main St", doc.Address)
	assert.Equal(t, "Sacramento", doc.City)
}

func TestMapGeolocationPriority(t *testing.T) {
	t.Run("top-level string always wins", func(t *testing.T) {
		rec := validRecord()
		loc := rec["locations"].([]any)[0].(map[string]any)
		loc["latitude"] = 10.0
		loc["longitude"] = 20.0
		rec["lat_lon"] = "38.5816, -121.4944"

		doc, err := Map(rec)

		require.NoError(t, err)
		assert.Equal(t, 38.5816, doc.Latitude)
		assert.Equal(t, -121.4944, doc.Longitude)
	})

	t.Run("unparseable top-level string keeps location fields", func(t *testing.T) {
		rec := validRecord()
		loc := rec["locations"].([]any)[0].(map[string]any)
		loc["latitude"] = 10.0
		loc["longitude"] = 20.0
		rec["lat_lon"] = "not-coordinates"

		doc, err := Map(rec)

		require.NoError(t, err)
		assert.Equal(t, 10.0, doc.Latitude)
		assert.Equal(t, 20.0, doc.Longitude)
	})

	t.Run("nested geolocation object", func(t *testing.T) {
		rec := validRecord()
		loc := rec["locations"].([]any)[0].(map[string]any)
		loc["geolocation"] = map[string]any{"lat": 38.58, "lon": -121.49}

		doc, err := Map(rec)

		require.NoError(t, err)
		assert.Equal(t, 38.58, doc.Latitude)
		assert.Equal(t, -121.49, doc.Longitude)
	})

	t.Run("geojson coordinates are lon-lat ordered", func(t *testing.T) {
		rec := validRecord()
		loc := rec["locations"].([]any)[0].(map[string]any)
		loc["geo"] = map[string]any{"coordinates": []any{-121.49, 38.58}}

		doc, err := Map(rec)

		require.NoError(t, err)
		assert.Equal(t, 38.58, doc.Latitude)
		assert.Equal(t, -121.49, doc.Longitude)
	})

	t.Run("no geolocation source yields zeroes", func(t *testing.T) {
		doc, err := Map(validRecord())

		require.NoError(t, err)
		assert.Zero(t, doc.Latitude)
		assert.Zero(t, doc.Longitude)
	})
}

func TestMapInsurance(t *testing.T) {
	rec := validRecord()
	rec["hmo"] = []any{"Blue Shield", "Kaiser"}
	rec["ppo"] = []any{"Blue Shield", "Aetna"}
	rec["medi_cal"] = []any{"Health Net"}

	doc, err := Map(rec)

	require.NoError(t, err)
	assert.Equal(t, []InsurancePlan{
		{Name: "Blue Shield", Type: "hmo"},
		{Name: "Kaiser", Type: "hmo"},
		{Name: "Blue Shield", Type: "ppo"},
		{Name: "Aetna", Type: "ppo"},
		{Name: "Health Net", Type: "medi_cal"},
	}, doc.InsurancePlans)
	// Display list is deduplicated by name and sorted.
	assert.Equal(t, "Aetna, Blue Shield, Health Net, Kaiser", doc.InsuranceNames)
}

func TestMapInsuranceDuplicateWithinCategory(t *testing.T) {
	rec := validRecord()
	rec["hmo"] = []any{"Blue Shield", "blue shield"}

	doc, err := Map(rec)

	require.NoError(t, err)
	assert.Equal(t, []InsurancePlan{{Name: "Blue Shield", Type: "hmo"}}, doc.InsurancePlans)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "jane-doe-md", Slugify("Jane Doe MD"))
	assert.Equal(t, "jane-doe-m-d", Slugify("Jane Doe, M.D."))
	assert.Equal(t, "a-b-c", Slugify("  a  b  c  "))
	assert.Equal(t, "", Slugify("!!!"))
}
