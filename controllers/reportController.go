package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"damagereport-be/middlewares"
	"damagereport-be/models"
	"damagereport-be/services"
)

type ReportController struct {
	reports *services.ReportService
}

func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

// ListReports returns the caller's reports, newest first.
func (rc *ReportController) ListReports(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	reports, err := rc.reports.ListForDriver(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// CreateReport accepts a multipart form. submit=true files the report straight away.
func (rc *ReportController) CreateReport(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	input, submit, err := bindReportForm(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var report *models.DamageReport
	if submit {
		report, err = rc.reports.CreateAndSubmit(c.Request.Context(), actor, input)
	} else {
		report, err = rc.reports.CreateDraft(c.Request.Context(), actor, input)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (rc *ReportController) GetReport(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	report, err := rc.reports.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateReport replaces a draft's fields. A photo is only replaced when one is uploaded.
func (rc *ReportController) UpdateReport(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	input, submit, err := bindReportForm(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var report *models.DamageReport
	if submit {
		report, err = rc.reports.UpdateAndSubmit(c.Request.Context(), actor, id, input)
	} else {
		report, err = rc.reports.UpdateDraft(c.Request.Context(), actor, id, input)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (rc *ReportController) SubmitReport(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	report, err := rc.reports.Submit(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (rc *ReportController) DeleteReport(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	if err := rc.reports.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted successfully"})
}

// ListSubmittedReports is the supervisor review queue.
func (rc *ReportController) ListSubmittedReports(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	reports, err := rc.reports.ListSubmitted(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (rc *ReportController) ApproveReport(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	report, err := rc.reports.Approve(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middlewares.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return actor, ok
}

// actorAndID also treats a malformed id as a missing report.
func actorAndID(c *gin.Context) (models.Actor, primitive.ObjectID, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return actor, primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, services.ErrNotFound)
		return actor, primitive.NilObjectID, false
	}
	return actor, id, true
}

func bindReportForm(c *gin.Context) (services.ReportInput, bool, error) {
	input := services.ReportInput{
		PackageID: c.PostForm("package_id"),
		Location:  c.PostForm("location"),
	}
	if desc, ok := c.GetPostForm("description"); ok && strings.TrimSpace(desc) != "" {
		input.Description = &desc
	}

	submit := false
	if raw := c.PostForm("submit"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return input, false, &services.ValidationError{Fields: map[string]string{"submit": "submit must be true or false"}}
		}
		submit = v
	}

	photo, err := readPhoto(c)
	if err != nil {
		return input, false, err
	}
	input.Photo = photo
	return input, submit, nil
}

// readPhoto returns nil when no photo was uploaded. Reads stop one byte past the size
// limit so oversized uploads still fail validation.
func readPhoto(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{"photo": "photo could not be read"}}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, services.MaxPhotoBytes+1))
}

func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
