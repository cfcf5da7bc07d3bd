package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"sublet-market/pkg/jwt"
	"sublet-market/pkg/logger"
	"sublet-market/services/listing/internal/draft"
	"sublet-market/services/listing/internal/entity"
	"sublet-market/services/listing/internal/repo/persistent"
	"sublet-market/services/listing/internal/usecase"

	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	draftUseCase      usecase.DraftUseCase
	submissionUseCase usecase.SubmissionUseCase
	jwtService        *jwt.Service
	logger            *logger.Logger
}

func NewDraftHandler(draftUseCase usecase.DraftUseCase, submissionUseCase usecase.SubmissionUseCase, jwtService *jwt.Service, logger *logger.Logger) *DraftHandler {
	return &DraftHandler{
		draftUseCase:      draftUseCase,
		submissionUseCase: submissionUseCase,
		jwtService:        jwtService,
		logger:            logger,
	}
}

type ReorderRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

type SubmitRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	MonthlyRent   int       `json:"monthly_rent"`
	City          string    `json:"city"`
	Address       string    `json:"address"`
	AvailableFrom time.Time `json:"available_from"`
	AvailableTo   time.Time `json:"available_to"`
}

func draftRef(c *gin.Context) usecase.DraftRef {
	return usecase.DraftRef{
		OwnerID:   c.GetString("user_id"),
		Key:       c.Param("key"),
		ListingID: c.Query("listing_id"),
	}
}

// GetDraft godoc
// @Summary      Get a photo draft
// @Description  Restore the draft (and seed it from the listing when listing_id is given)
// @Tags         drafts
// @Produce      json
// @Security     BearerAuth
// @Param        key path string true "Draft key"
// @Param        listing_id query string false "Listing being edited"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /drafts/{key} [get]
func (h *DraftHandler) GetDraft(c *gin.Context) {
	snapshot, err := h.draftUseCase.GetDraft(c.Request.Context(), draftRef(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": snapshot})
}

// AddPhotos godoc
// @Summary      Add photos to a draft
// @Description  Validate, convert and upload a batch of photos. Files that fail are reported by name; the rest are added.
// @Tags         drafts
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        key path string true "Draft key"
// @Param        photos formData file true "Image files (jpg/png/webp/gif/heic) - multiple files allowed"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /drafts/{key}/photos [post]
func (h *DraftHandler) AddPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form"})
		return
	}

	headers := form.File["photos[]"]
	if len(headers) == 0 {
		headers = form.File["photos"]
	}
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one photo is required"})
		return
	}

	files := make([]draft.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			h.logger.Error("Failed to read uploaded file %s: %v", fh.Filename, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read " + fh.Filename})
			return
		}
		files = append(files, f)
	}

	report, snapshot, err := h.draftUseCase.AddPhotos(c.Request.Context(), draftRef(c), files)
	if err != nil {
		h.respondError(c, err)
		return
	}

	fileErrors := make([]gin.H, 0)
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fileErrors = append(fileErrors, gin.H{"file": o.FileName, "error": o.Err.Error()})
		}
	}

	response := gin.H{
		"draft":                snapshot,
		"added":                len(report.Added),
		"errors":               fileErrors,
		"skipped_for_capacity": report.SkippedForCapacity,
		"warnings":             report.Warnings,
	}
	if report.PersistErr != nil {
		response["persist_warning"] = "Draft could not be saved; changes will be lost on reload"
	}
	c.JSON(http.StatusOK, response)
}

func readFile(fh *multipart.FileHeader) (draft.File, error) {
	src, err := fh.Open()
	if err != nil {
		return draft.File{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return draft.File{}, err
	}
	return draft.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Data:        data,
	}, nil
}

// RemovePhoto godoc
// @Summary      Remove a photo
// @Tags         drafts
// @Produce      json
// @Security     BearerAuth
// @Param        key path string true "Draft key"
// @Param        index path int true "Photo position"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /drafts/{key}/photos/{index} [delete]
func (h *DraftHandler) RemovePhoto(c *gin.Context) {
	index, ok := h.indexParam(c)
	if !ok {
		return
	}
	snapshot, err := h.draftUseCase.RemovePhoto(c.Request.Context(), draftRef(c), index)
	h.respondSnapshot(c, snapshot, err)
}

// SetCover godoc
// @Summary      Make a photo the cover
// @Description  Moves the photo to the front; the others keep their relative order
// @Tags         drafts
// @Produce      json
// @Security     BearerAuth
// @Param        key path string true "Draft key"
// @Param        index path int true "Photo position"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /drafts/{key}/photos/{index}/cover [post]
func (h *DraftHandler) SetCover(c *gin.Context) {
	index, ok := h.indexParam(c)
	if !ok {
		return
	}
	snapshot, err := h.draftUseCase.SetCover(c.Request.Context(), draftRef(c), index)
	h.respondSnapshot(c, snapshot, err)
}

// Reorder godoc
// @Summary      Move a photo
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        key path string true "Draft key"
// @Param        request body ReorderRequest true "Source and destination positions"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /drafts/{key}/photos/reorder [post]
func (h *DraftHandler) Reorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snapshot, err := h.draftUseCase.Reorder(c.Request.Context(), draftRef(c), *req.From, *req.To)
	h.respondSnapshot(c, snapshot, err)
}

// SetNote godoc
// @Summary      Set a photo note
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        key path string true "Draft key"
// @Param        index path int true "Photo position"
// @Param        request body NoteRequest true "Note text"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /drafts/{key}/photos/{index}/note [put]
func (h *DraftHandler) SetNote(c *gin.Context) {
	index, ok := h.indexParam(c)
	if !ok {
		return
	}
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snapshot, err := h.draftUseCase.SetNote(c.Request.Context(), draftRef(c), index, req.Note)
	h.respondSnapshot(c, snapshot, err)
}

// ResetDraft godoc
// @Summary      Discard a draft
// @Tags         drafts
// @Produce      json
// @Security     BearerAuth
// @Param        key path string true "Draft key"
// @Success      200  {object}  map[string]string
// @Router       /drafts/{key} [delete]
func (h *DraftHandler) ResetDraft(c *gin.Context) {
	err := h.draftUseCase.Reset(c.Request.Context(), draftRef(c))
	if err != nil && !draft.IsNonBlocking(err) {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Draft discarded"})
}

// Submit godoc
// @Summary      Submit the draft as a listing
// @Description  Stores the listing with status pending and clears the draft
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        key path string true "Draft key"
// @Param        listing_id query string false "Listing being edited"
// @Param        request body SubmitRequest true "Listing details"
// @Success      201  {object}  entity.Listing
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /drafts/{key}/submit [post]
func (h *DraftHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ref := draftRef(c)
	if ref.ListingID == "" && req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	listing, err := h.submissionUseCase.Submit(c.Request.Context(), ref, usecase.ListingDetails{
		Title:         req.Title,
		Description:   req.Description,
		MonthlyRent:   req.MonthlyRent,
		City:          req.City,
		Address:       req.Address,
		AvailableFrom: req.AvailableFrom,
		AvailableTo:   req.AvailableTo,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// GetPreview serves an in-memory preview thumbnail.
func (h *DraftHandler) GetPreview(c *gin.Context) {
	data, ok := h.draftUseCase.Preview(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preview not found"})
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (h *DraftHandler) indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid photo index"})
		return 0, false
	}
	return index, true
}

func (h *DraftHandler) respondSnapshot(c *gin.Context, snapshot entity.DraftSnapshot, err error) {
	if err != nil && draft.IsNonBlocking(err) {
		c.JSON(http.StatusOK, gin.H{
			"draft":           snapshot,
			"persist_warning": "Draft could not be saved; changes will be lost on reload",
		})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": snapshot})
}

func (h *DraftHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, draft.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, persistent.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
	case errors.Is(err, usecase.ErrDraftBoundToOther):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrNotEnoughPhotos):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Draft request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
