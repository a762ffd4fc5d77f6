package mapper

import (
	"strings"

	"github.com/doctordir/importer/internal/directory"
)

// educationClass is the training category a free-text education entry
// resolves to. Entries that match none of the known classes are dropped.
type educationClass int

const (
	classNone educationClass = iota
	classMedicalSchool
	classInternship
	classResidency
	classFellowship
	classCertification
)

// mapEducation parses the education/training list and the board
// certification list. Education entries look like
// "1996-09-30|844041600|Medical School, Stanford University": the
// date/epoch prefix is stripped, the remainder splits on the first comma
// into (type, institution), and the type token is classified by
// case-insensitive substring match. Board certification entries carry
// the organization name in the trailing pipe segment.
func mapEducation(rec directory.Record, doc *NormalizedDoctor) {
	buckets := make(map[educationClass][]string)

	for _, entry := range rec.FirstList("education", "training") {
		typ, institution := splitEducationEntry(entry)
		if institution == "" {
			continue
		}
		class := classifyEducation(typ)
		if class == classNone {
			continue
		}
		buckets[class] = append(buckets[class], institution)
	}

	for _, entry := range rec.FirstList("board_certifications", "certifications") {
		org := lastPipeSegment(entry)
		if org != "" {
			buckets[classCertification] = append(buckets[classCertification], org)
		}
	}

	doc.MedicalSchool = strings.Join(buckets[classMedicalSchool], ", ")
	doc.Internship = strings.Join(buckets[classInternship], ", ")
	doc.Residency = strings.Join(buckets[classResidency], ", ")
	doc.Fellowship = strings.Join(buckets[classFellowship], ", ")
	doc.Certification = strings.Join(buckets[classCertification], ", ")
}

// splitEducationEntry strips the date/epoch pipe prefix and splits the
// remainder on the first comma into (type, institution).
func splitEducationEntry(entry string) (string, string) {
	body := lastPipeSegment(entry)
	if body == "" {
		return "", ""
	}
	typ, institution, found := strings.Cut(body, ",")
	if !found {
		return strings.TrimSpace(typ), ""
	}
	return strings.TrimSpace(typ), strings.TrimSpace(institution)
}

func lastPipeSegment(entry string) string {
	idx := strings.LastIndex(entry, "|")
	if idx < 0 {
		return strings.TrimSpace(entry)
	}
	return strings.TrimSpace(entry[idx+1:])
}

func classifyEducation(typ string) educationClass {
	lowered := strings.ToLower(typ)
	switch {
	case strings.Contains(lowered, "medical school"):
		return classMedicalSchool
	case strings.Contains(lowered, "intern"):
		return classInternship
	case strings.Contains(lowered, "residen"):
		return classResidency
	case strings.Contains(lowered, "fellow"):
		return classFellowship
	case strings.Contains(lowered, "certif"), strings.Contains(lowered, "board"):
		return classCertification
	}
	return classNone
}
