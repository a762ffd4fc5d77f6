package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordStr(t *testing.T) {
	rec := Record{
		"name":    "  John Smith  ",
		"npi":     float64(1234567890),
		"active":  true,
		"nothing": nil,
		"nested":  map[string]any{"a": "b"},
	}

	assert.Equal(t, "John Smith", rec.Str("name"))
	assert.Equal(t, "1234567890", rec.Str("npi"))
	assert.Equal(t, "true", rec.Str("active"))
	assert.Equal(t, "", rec.Str("nothing"))
	assert.Equal(t, "", rec.Str("nested"))
	assert.Equal(t, "", rec.Str("missing"))
}

func TestRecordFirstStr(t *testing.T) {
	rec := Record{"suffix": "", "degree": "MD"}

	assert.Equal(t, "MD", rec.FirstStr("suffix", "degree"))
	assert.Equal(t, "", rec.FirstStr("missing", "suffix"))
}

func TestRecordFloat(t *testing.T) {
	rec := Record{
		"lat":     38.5816,
		"lon":     "-121.4944",
		"garbage": "not-a-number",
	}

	lat, ok := rec.Float("lat")
	assert.True(t, ok)
	assert.Equal(t, 38.5816, lat)

	lon, ok := rec.Float("lon")
	assert.True(t, ok)
	assert.Equal(t, -121.4944, lon)

	_, ok = rec.Float("garbage")
	assert.False(t, ok)
	_, ok = rec.Float("missing")
	assert.False(t, ok)
}

func TestRecordObjList(t *testing.T) {
	t.Run("list of objects", func(t *testing.T) {
		rec := Record{"locations": []any{
			map[string]any{"city": "Sacramento"},
			map[string]any{"city": "Davis"},
		}}

		list := rec.ObjList("locations")
		assert.Len(t, list, 2)
		assert.Equal(t, "Sacramento", list[0].Str("city"))
	})

	t.Run("single object promoted to list", func(t *testing.T) {
		rec := Record{"locations": map[string]any{"city": "Sacramento"}}

		list := rec.ObjList("locations")
		assert.Len(t, list, 1)
		assert.Equal(t, "Sacramento", list[0].Str("city"))
	})

	t.Run("missing key", func(t *testing.T) {
		assert.Nil(t, Record{}.ObjList("locations"))
	})
}

func TestRecordStrList(t *testing.T) {
	rec := Record{
		"languages": []any{"English", " Spanish ", "", map[string]any{"name": "Tagalog"}},
		"single":    "Cardiology",
	}

	assert.Equal(t, []string{"English", "Spanish", "Tagalog"}, rec.StrList("languages"))
	assert.Equal(t, []string{"Cardiology"}, rec.StrList("single"))
	assert.Nil(t, rec.StrList("missing"))
}

func TestRecordFirstList(t *testing.T) {
	rec := Record{
		"education": []any{},
		"training":  []any{"1990|x|Residency, UC Davis"},
	}

	assert.Equal(t, []string{"1990|x|Residency, UC Davis"}, rec.FirstList("education", "training"))
	assert.Nil(t, rec.FirstList("missing"))
}

func TestRecordFloatList(t *testing.T) {
	rec := Record{"coordinates": []any{-121.4944, 38.5816}}

	assert.Equal(t, []float64{-121.4944, 38.5816}, rec.FloatList("coordinates"))
	assert.Nil(t, rec.FloatList("missing"))
}
