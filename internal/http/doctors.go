package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/doctordir/importer/internal/database"
)

type DoctorController struct {
	db *database.Database
}

func NewDoctorController(db *database.Database) *DoctorController {
	return &DoctorController{db: db}
}

// Get returns one imported doctor by slug, with relationships preloaded.
func (controller *DoctorController) Get(c *gin.Context) {
	doctor, err := controller.db.GetDoctorBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "doctor not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, doctor)
}

// Count returns the number of doctors in storage, a cheap sanity check
// after an import run.
func (controller *DoctorController) Count(c *gin.Context) {
	count, err := controller.db.CountDoctors()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"count": count})
}
