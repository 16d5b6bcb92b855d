package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AmitJPatil13/ESahayak-Task/internal/buyer"
	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
	"github.com/AmitJPatil13/ESahayak-Task/internal/notify"
	"github.com/AmitJPatil13/ESahayak-Task/internal/search"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

// BuyerHandler handles buyer CRUD, import/export and history requests.
type BuyerHandler struct {
	store    store.Store
	updater  *buyer.Updater
	importer *buyer.Importer
	search   *search.SearchClient
	notifier *notify.Notifier
	log      *zap.Logger
}

// NewBuyerHandler creates a new buyer handler. search and notifier may be nil.
func NewBuyerHandler(st store.Store, up *buyer.Updater, im *buyer.Importer,
	sc *search.SearchClient, nt *notify.Notifier, log *zap.Logger) *BuyerHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BuyerHandler{
		store:    st,
		updater:  up,
		importer: im,
		search:   sc,
		notifier: nt,
		log:      log,
	}
}

// List returns a filtered, paginated buyer listing.
func (h *BuyerHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	f := store.Filters{
		Search:       c.Query("search"),
		City:         c.Query("city"),
		PropertyType: c.Query("propertyType"),
		Status:       c.Query("status"),
		Timeline:     c.Query("timeline"),
		SortBy:       c.Query("sortBy"),
		SortOrder:    c.Query("sortOrder"),
		Page:         page,
		Limit:        limit,
	}

	result, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buyers"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns one buyer together with its five most recent history entries.
func (h *BuyerHandler) Get(c *gin.Context) {
	id := c.Param("id")

	b, err := h.store.FindByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Buyer not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buyer"})
		return
	}

	history, err := h.store.ListHistory(c.Request.Context(), id, 5)
	if err != nil {
		h.log.Warn("failed to load buyer history", zap.String("buyer_id", id), zap.Error(err))
		history = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"buyer":   b,
		"history": history,
	})
}

// Create inserts a new buyer owned by the acting user.
func (h *BuyerHandler) Create(c *gin.Context) {
	var in buyer.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	actor := identityFrom(c)
	b, err := buyer.Create(c.Request.Context(), h.store, &in, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.search != nil {
		if err := h.search.IndexBuyer(b); err != nil {
			h.log.Warn("failed to index buyer", zap.String("buyer_id", b.ID), zap.Error(err))
		}
	}
	h.notifier.Publish(notify.EventCreated, b.ID, 0)

	c.JSON(http.StatusCreated, b)
}

// Update applies a partial update with ownership and version checks.
func (h *BuyerHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var patch buyer.UpdatePayload
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	actor := identityFrom(c)
	b, err := h.updater.Update(c.Request.Context(), id, actor, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.search != nil {
		if err := h.search.IndexBuyer(b); err != nil {
			h.log.Warn("failed to index buyer", zap.String("buyer_id", b.ID), zap.Error(err))
		}
	}
	h.notifier.Publish(notify.EventUpdated, b.ID, 0)

	c.JSON(http.StatusOK, b)
}

// Delete removes a buyer. The history trail survives, including the final
// "deleted" entry.
func (h *BuyerHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	actor := identityFrom(c)
	if err := buyer.Delete(c.Request.Context(), h.store, id, actor); err != nil {
		h.writeError(c, err)
		return
	}

	if h.search != nil {
		if err := h.search.RemoveBuyer(id); err != nil {
			h.log.Warn("failed to deindex buyer", zap.String("buyer_id", id), zap.Error(err))
		}
	}
	h.notifier.Publish(notify.EventDeleted, id, 0)

	c.Status(http.StatusNoContent)
}

// Import ingests a CSV file (multipart field "file") transactionally.
func (h *BuyerHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is required (multipart field 'file')"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	actor := identityFrom(c)
	result, err := h.importer.Import(c.Request.Context(), string(data), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if result.Inserted > 0 {
		if h.search != nil {
			buyers, listErr := h.store.ListAll(c.Request.Context(), store.Filters{})
			if listErr == nil {
				if err := h.search.IndexBuyers(buyers); err != nil {
					h.log.Warn("failed to index imported buyers", zap.Error(err))
				}
			}
		}
		h.notifier.Publish(notify.EventImported, "", result.Inserted)
	}

	c.JSON(http.StatusOK, result)
}

// ExportCSV streams the filtered buyer list as CSV.
func (h *BuyerHandler) ExportCSV(c *gin.Context) {
	buyers, err := h.listForExport(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buyers"})
		return
	}

	filename := fmt.Sprintf("buyers-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := buyer.WriteCSV(c.Writer, buyers); err != nil {
		h.log.Error("csv export failed", zap.Error(err))
	}
}

// ExportXLSX streams the filtered buyer list as an Excel workbook.
func (h *BuyerHandler) ExportXLSX(c *gin.Context) {
	buyers, err := h.listForExport(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buyers"})
		return
	}

	data, err := buyer.BuildXLSX(buyers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build workbook"})
		return
	}

	filename := fmt.Sprintf("buyers-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// History returns the change trail for one buyer, newest first.
func (h *BuyerHandler) History(c *gin.Context) {
	id := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if _, err := h.store.FindByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Buyer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buyer"})
		return
	}

	history, err := h.store.ListHistory(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"buyer_id": id,
		"history":  history,
		"count":    len(history),
	})
}

// listForExport applies the same filters as List but without pagination.
func (h *BuyerHandler) listForExport(c *gin.Context) ([]models.Buyer, error) {
	f := store.Filters{
		Search:       c.Query("search"),
		City:         c.Query("city"),
		PropertyType: c.Query("propertyType"),
		Status:       c.Query("status"),
		Timeline:     c.Query("timeline"),
		SortBy:       c.Query("sortBy"),
		SortOrder:    c.Query("sortOrder"),
	}
	return h.store.ListAll(c.Request.Context(), f)
}

// writeError maps a core flow error to its HTTP response.
func (h *BuyerHandler) writeError(c *gin.Context, err error) {
	var vErr *buyer.ValidationError
	var cErr *buyer.ConflictError
	var sErr *buyer.StorageError

	switch {
	case errors.Is(err, buyer.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Buyer not found"})
	case errors.Is(err, buyer.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, buyer.ErrRowLimitExceeded):
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV import is limited to 200 rows"})
	case errors.As(err, &cErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":            "Record has been modified by another user, please refresh",
			"currentUpdatedAt": cErr.CurrentUpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"fields": vErr.Fields,
		})
	case errors.As(err, &sErr):
		h.log.Error("storage failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage failure"})
	default:
		h.log.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
