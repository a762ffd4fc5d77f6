package entities

import (
	"time"

	"gorm.io/gorm"
)

type Doctor struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"uniqueIndex;size:256" json:"slug"`

	// External identity. ProviderKey is the remote directory's stable
	// identifier; Idme is a secondary identifier in the same value space.
	ProviderKey string `gorm:"index;size:64" json:"provider_key,omitempty"`
	Idme        string `gorm:"index;size:64" json:"idme,omitempty"`
	NPI         string `gorm:"index;size:20" json:"npi,omitempty"`

	FirstName  string `gorm:"index;size:128" json:"first_name"`
	MiddleName string `gorm:"size:128" json:"middle_name,omitempty"`
	LastName   string `gorm:"index;size:128" json:"last_name"`
	Degree     string `gorm:"size:64" json:"degree,omitempty"`
	Gender     string `gorm:"size:16" json:"gender,omitempty"`
	Bio        string `gorm:"type:text" json:"bio,omitempty"`

	// Primary practice location (first location entry from the remote record).
	PracticeName string  `gorm:"size:256" json:"practice_name,omitempty"`
	Address      string  `gorm:"size:256" json:"address"`
	Address2     string  `gorm:"size:256" json:"address2,omitempty"`
	City         string  `gorm:"size:128" json:"city"`
	State        string  `gorm:"size:32" json:"state"`
	Zip          string  `gorm:"size:16" json:"zip"`
	Phone        string  `gorm:"size:32" json:"phone,omitempty"`
	Fax          string  `gorm:"size:32" json:"fax,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`

	// Education and training, concatenated per class.
	MedicalSchool string `gorm:"size:512" json:"medical_school,omitempty"`
	Internship    string `gorm:"size:512" json:"internship,omitempty"`
	Residency     string `gorm:"size:512" json:"residency,omitempty"`
	Fellowship    string `gorm:"size:512" json:"fellowship,omitempty"`
	Certification string `gorm:"size:1024" json:"certification,omitempty"`

	// Flat display lists; the relational truth lives in the join tables.
	InsuranceNames string `gorm:"type:text" json:"insurance_names,omitempty"`
	HospitalNames  string `gorm:"type:text" json:"hospital_names,omitempty"`

	Status string `gorm:"size:32" json:"status,omitempty"`

	Languages   []Language  `gorm:"many2many:doctor_languages;" json:"languages,omitempty"`
	Specialties []Specialty `gorm:"many2many:doctor_specialties;" json:"specialties,omitempty"`
	Hospitals   []Hospital  `gorm:"many2many:doctor_hospitals;" json:"hospitals,omitempty"`
	Insurances  []Insurance `gorm:"many2many:doctor_insurances;" json:"insurances,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type Language struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Specialty struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Hospital struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Insurance is unique on (name, type): the same network name can appear
// under multiple plan categories (hmo, ppo, acn, aco, medi-cal).
type Insurance struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex:idx_insurance_name_type;size:256" json:"name"`
	Type      string    `gorm:"uniqueIndex:idx_insurance_name_type;size:32" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func (Doctor) TableName() string {
	return "doctors"
}

func (Language) TableName() string {
	return "languages"
}

func (Specialty) TableName() string {
	return "specialties"
}

func (Hospital) TableName() string {
	return "hospitals"
}

func (Insurance) TableName() string {
	return "insurances"
}
