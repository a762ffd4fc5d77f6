package database

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doctordir/importer/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Doctor{},
		&entities.Language{},
		&entities.Specialty{},
		&entities.Hospital{},
		&entities.Insurance{},
		&entities.ImportSession{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindDoctorByProviderKey implements dedupe.DoctorFinder.
func (d *Database) FindDoctorByProviderKey(key string) (uint, bool, error) {
	return d.findDoctor("provider_key = ?", key)
}

// FindDoctorByIdme implements dedupe.DoctorFinder.
func (d *Database) FindDoctorByIdme(idme string) (uint, bool, error) {
	return d.findDoctor("idme = ?", idme)
}

// FindDoctorByNameAndDegree implements dedupe.DoctorFinder. This triple
// is not unique in general; the first match wins.
func (d *Database) FindDoctorByNameAndDegree(first, last, degree string) (uint, bool, error) {
	return d.findDoctor("first_name = ? AND last_name = ? AND degree = ?", first, last, degree)
}

func (d *Database) findDoctor(query string, args ...any) (uint, bool, error) {
	var doctor entities.Doctor
	err := d.DB.Select("id").Where(query, args...).First(&doctor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return doctor.ID, true, nil
}

// CreateDoctor inserts a new doctor, deriving a unique slug from the
// candidate already set on the entity.
func (d *Database) CreateDoctor(doctor *entities.Doctor) error {
	slug, err := d.uniqueSlug(doctor.Slug)
	if err != nil {
		return err
	}
	doctor.Slug = slug
	if err := d.DB.Omit("Languages", "Specialties", "Hospitals", "Insurances").Create(doctor).Error; err != nil {
		return fmt.Errorf("failed to create doctor %q: %w", doctor.Slug, err)
	}
	return d.replaceAssociations(doctor)
}

// UpdateDoctor fully overwrites the mapped fields of an existing doctor
// and replaces its relationship sets. The slug is durable: it is kept
// from the stored row even when name fields changed remotely. Stale
// links from a prior import are cleared, not merged.
func (d *Database) UpdateDoctor(id uint, doctor *entities.Doctor) error {
	var existing entities.Doctor
	if err := d.DB.First(&existing, id).Error; err != nil {
		return fmt.Errorf("failed to load doctor %d: %w", id, err)
	}

	doctor.ID = existing.ID
	doctor.Slug = existing.Slug
	doctor.CreatedAt = existing.CreatedAt
	if err := d.DB.Omit("Languages", "Specialties", "Hospitals", "Insurances").Save(doctor).Error; err != nil {
		return fmt.Errorf("failed to update doctor %d: %w", id, err)
	}
	return d.replaceAssociations(doctor)
}

func (d *Database) replaceAssociations(doctor *entities.Doctor) error {
	langs := make([]entities.Language, len(doctor.Languages))
	copy(langs, doctor.Languages)
	if err := d.DB.Model(doctor).Association("Languages").Replace(toAnySlice(langs)...); err != nil {
		return fmt.Errorf("failed to replace languages: %w", err)
	}
	specs := make([]entities.Specialty, len(doctor.Specialties))
	copy(specs, doctor.Specialties)
	if err := d.DB.Model(doctor).Association("Specialties").Replace(toAnySlice(specs)...); err != nil {
		return fmt.Errorf("failed to replace specialties: %w", err)
	}
	hosps := make([]entities.Hospital, len(doctor.Hospitals))
	copy(hosps, doctor.Hospitals)
	if err := d.DB.Model(doctor).Association("Hospitals").Replace(toAnySlice(hosps)...); err != nil {
		return fmt.Errorf("failed to replace hospitals: %w", err)
	}
	plans := make([]entities.Insurance, len(doctor.Insurances))
	copy(plans, doctor.Insurances)
	if err := d.DB.Model(doctor).Association("Insurances").Replace(toAnySlice(plans)...); err != nil {
		return fmt.Errorf("failed to replace insurances: %w", err)
	}
	return nil
}

func toAnySlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}

// uniqueSlug returns candidate, or candidate-2, candidate-3, ... until
// an unused slug is found.
func (d *Database) uniqueSlug(candidate string) (string, error) {
	if candidate == "" {
		candidate = "doctor"
	}
	slug := candidate
	for i := 2; ; i++ {
		var count int64
		if err := d.DB.Model(&entities.Doctor{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", candidate, i)
	}
}

func (d *Database) GetDoctorByID(id uint) (*entities.Doctor, error) {
	var doctor entities.Doctor
	err := d.DB.Preload("Languages").Preload("Specialties").
		Preload("Hospitals").Preload("Insurances").First(&doctor, id).Error
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (d *Database) GetDoctorBySlug(slug string) (*entities.Doctor, error) {
	var doctor entities.Doctor
	err := d.DB.Preload("Languages").Preload("Specialties").
		Preload("Hospitals").Preload("Insurances").
		Where("slug = ?", slug).First(&doctor).Error
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (d *Database) CountDoctors() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Doctor{}).Count(&count).Error
	return count, err
}

// Reference data lookups. All existence checks are case-insensitive so
// that "SPANISH" from one endpoint and "Spanish" from another resolve
// to the same row.

func (d *Database) LanguageExists(name string) (bool, error) {
	return d.existsFold(&entities.Language{}, "name", name)
}

func (d *Database) HospitalExists(name string) (bool, error) {
	return d.existsFold(&entities.Hospital{}, "name", name)
}

func (d *Database) SpecialtyExists(name string) (bool, error) {
	return d.existsFold(&entities.Specialty{}, "name", name)
}

func (d *Database) InsuranceExists(name, insType string) (bool, error) {
	var count int64
	err := d.DB.Model(&entities.Insurance{}).
		Where("LOWER(name) = LOWER(?) AND LOWER(type) = LOWER(?)", name, insType).
		Count(&count).Error
	return count > 0, err
}

func (d *Database) existsFold(model any, column, value string) (bool, error) {
	var count int64
	err := d.DB.Model(model).
		Where(fmt.Sprintf("LOWER(%s) = LOWER(?)", column), value).
		Count(&count).Error
	return count > 0, err
}

func (d *Database) CreateLanguage(name string) error {
	return d.DB.Create(&entities.Language{Name: strings.TrimSpace(name)}).Error
}

func (d *Database) CreateHospital(name string) error {
	return d.DB.Create(&entities.Hospital{Name: strings.TrimSpace(name)}).Error
}

func (d *Database) CreateInsurance(name, insType string) error {
	return d.DB.Create(&entities.Insurance{Name: strings.TrimSpace(name), Type: insType}).Error
}

// GetOrCreateLanguage resolves a language row case-insensitively,
// inserting it when missing.
func (d *Database) GetOrCreateLanguage(name string) (*entities.Language, error) {
	var lang entities.Language
	err := d.DB.Where("LOWER(name) = LOWER(?)", name).First(&lang).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		lang = entities.Language{Name: strings.TrimSpace(name)}
		if err := d.DB.Create(&lang).Error; err != nil {
			return nil, err
		}
		return &lang, nil
	}
	if err != nil {
		return nil, err
	}
	return &lang, nil
}

func (d *Database) GetOrCreateSpecialty(name string) (*entities.Specialty, error) {
	var spec entities.Specialty
	err := d.DB.Where("LOWER(name) = LOWER(?)", name).First(&spec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		spec = entities.Specialty{Name: strings.TrimSpace(name)}
		if err := d.DB.Create(&spec).Error; err != nil {
			return nil, err
		}
		return &spec, nil
	}
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

func (d *Database) GetOrCreateHospital(name string) (*entities.Hospital, error) {
	var hosp entities.Hospital
	err := d.DB.Where("LOWER(name) = LOWER(?)", name).First(&hosp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hosp = entities.Hospital{Name: strings.TrimSpace(name)}
		if err := d.DB.Create(&hosp).Error; err != nil {
			return nil, err
		}
		return &hosp, nil
	}
	if err != nil {
		return nil, err
	}
	return &hosp, nil
}

func (d *Database) GetOrCreateInsurance(name, insType string) (*entities.Insurance, error) {
	var plan entities.Insurance
	err := d.DB.Where("LOWER(name) = LOWER(?) AND LOWER(type) = LOWER(?)", name, insType).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		plan = entities.Insurance{Name: strings.TrimSpace(name), Type: insType}
		if err := d.DB.Create(&plan).Error; err != nil {
			return nil, err
		}
		return &plan, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
