// Package mapper transforms raw directory API records into the
// normalized internal doctor shape. Mapping is a pure function: no
// storage access, no network access, one NormalizedDoctor per raw
// record.
package mapper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/doctordir/importer/internal/directory"
)

// InsurancePlan is one typed insurance network entry, kept alongside
// the flat display list so the reference-data synchronizer can key on
// (name, type).
type InsurancePlan struct {
	Name string
	Type string
}

// NormalizedDoctor is the canonical internal record shape. Immutable
// after creation; consumed by the duplicate resolver and storage write.
type NormalizedDoctor struct {
	ProviderKey string
	Idme        string
	NPI         string

	FirstName  string
	MiddleName string
	LastName   string
	Degree     string
	Gender     string
	Bio        string

	PracticeName string
	Address      string
	Address2     string
	City         string
	State        string
	Zip          string
	Phone        string
	Fax          string

	Latitude  float64
	Longitude float64

	MedicalSchool string
	Internship    string
	Residency     string
	Fellowship    string
	Certification string

	Specialties []string
	Languages   []string
	Hospitals   []string

	InsurancePlans []InsurancePlan
	InsuranceNames string
	HospitalNames  string

	Status string
}

// FullName returns the doctor's display name.
func (d NormalizedDoctor) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.FirstName, d.MiddleName, d.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// SlugCandidate derives the human-readable identifier candidate from
// name and degree. Uniqueness is enforced at storage time.
func (d NormalizedDoctor) SlugCandidate() string {
	return Slugify(strings.Join([]string{d.FirstName, d.LastName, d.Degree}, " "))
}

// Slugify lowercases and strips a string down to [a-z0-9-].
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// ValidationError is a record-level rejection: the record is skipped and
// the batch continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

const statusTerminated = "terminated"

// requiredFields must be non-empty after mapping or the record is
// rejected before any storage write.
var requiredFields = []string{"address", "city", "state", "zip"}

// Map normalizes one raw directory record. A ValidationError is returned
// for terminated providers and for records missing a required field;
// the terminated check runs first.
func Map(rec directory.Record) (NormalizedDoctor, error) {
	doc := NormalizedDoctor{
		ProviderKey: rec.FirstStr("prov_key", "provider_key"),
		Idme:        rec.Str("idme"),
		NPI:         rec.Str("npi"),
		FirstName:   rec.Str("first_name"),
		MiddleName:  rec.Str("middle_name"),
		LastName:    rec.Str("last_name"),
		Degree:      rec.FirstStr("suffix", "degree"),
		Gender:      rec.Str("gender"),
		Bio:         rec.FirstStr("bio", "about"),
		Status:      rec.Str("prov_status"),
		Specialties: rec.StrList("specialties"),
		Languages:   rec.StrList("languages"),
		Hospitals:   rec.StrList("hospital_affiliations"),
	}

	mapLocation(rec, &doc)
	mapGeolocation(rec, &doc)
	mapEducation(rec, &doc)
	mapInsurance(rec, &doc)
	doc.HospitalNames = strings.Join(doc.Hospitals, ", ")

	if strings.EqualFold(doc.Status, statusTerminated) {
		return NormalizedDoctor{}, &ValidationError{Field: "prov_status", Reason: "provider is terminated"}
	}

	for _, field := range requiredFields {
		if requiredFieldValue(doc, field) == "" {
			return NormalizedDoctor{}, &ValidationError{Field: field, Reason: "required field is empty"}
		}
	}

	return doc, nil
}

func requiredFieldValue(doc NormalizedDoctor, field string) string {
	switch field {
	case "address":
		return doc.Address
	case "city":
		return doc.City
	case "state":
		return doc.State
	case "zip":
		return doc.Zip
	}
	return ""
}

// mapLocation applies first-location-wins: contact fields come from the
// first entry of the location array only. No location array yields
// empty strings, not an error.
func mapLocation(rec directory.Record, doc *NormalizedDoctor) {
	locations := rec.ObjList("locations")
	if len(locations) == 0 {
		return
	}
	loc := locations[0]
	doc.PracticeName = loc.FirstStr("practice_name", "name")
	doc.Address = loc.FirstStr("address", "address1", "street")
	doc.Address2 = loc.Str("address2")
	doc.City = loc.Str("city")
	doc.State = loc.Str("state")
	doc.Zip = loc.FirstStr("zip", "zip_code", "postal_code")
	doc.Phone = loc.Str("phone")
	doc.Fax = loc.Str("fax")
}

// mapGeolocation resolves lat/lon by source priority:
// a top-level "lat,lon" string always wins when parseable; otherwise
// the first successfully parsed pair among explicit numeric fields on
// the first location, a nested geolocation object, and a GeoJSON
// [lon, lat] coordinate pair.
func mapGeolocation(rec directory.Record, doc *NormalizedDoctor) {
	locations := rec.ObjList("locations")
	if len(locations) > 0 {
		loc := locations[0]

		if lat, ok := loc.Float("latitude"); ok {
			if lon, ok := loc.Float("longitude"); ok {
				doc.Latitude, doc.Longitude = lat, lon
			}
		}

		if doc.Latitude == 0 && doc.Longitude == 0 {
			if geo := loc.Obj("geolocation"); geo != nil {
				if lat, ok := geo.Float("lat"); ok {
					if lon, ok := geo.Float("lon"); ok {
						doc.Latitude, doc.Longitude = lat, lon
					}
				}
			}
		}

		if doc.Latitude == 0 && doc.Longitude == 0 {
			if geo := loc.Obj("geo"); geo != nil {
				// GeoJSON order is [lon, lat].
				if coords := geo.FloatList("coordinates"); len(coords) == 2 {
					doc.Latitude, doc.Longitude = coords[1], coords[0]
				}
			}
		}
	}

	if lat, lon, ok := parseLatLon(rec.FirstStr("lat_lon", "latlon")); ok {
		doc.Latitude, doc.Longitude = lat, lon
	}
}

func parseLatLon(s string) (float64, float64, bool) {
	if s == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// mapInsurance merges the typed network categories into a deduplicated
// flat display list while keeping the typed entries for reference-data
// normalization.
func mapInsurance(rec directory.Record, doc *NormalizedDoctor) {
	seenPlans := make(map[InsurancePlan]struct{})
	for _, category := range InsuranceCategories {
		for _, name := range rec.StrList(category) {
			plan := InsurancePlan{Name: name, Type: category}
			key := InsurancePlan{Name: strings.ToLower(name), Type: category}
			if _, ok := seenPlans[key]; ok {
				continue
			}
			seenPlans[key] = struct{}{}
			doc.InsurancePlans = append(doc.InsurancePlans, plan)
		}
	}

	seen := make(map[string]struct{}, len(doc.InsurancePlans))
	names := make([]string, 0, len(doc.InsurancePlans))
	for _, plan := range doc.InsurancePlans {
		key := strings.ToLower(plan.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, plan.Name)
	}
	sort.Strings(names)
	doc.InsuranceNames = strings.Join(names, ", ")
}

// InsuranceCategories are the network-type fields carried by physician
// search results.
var InsuranceCategories = []string{"hmo", "ppo", "acn", "aco", "medi_cal"}
