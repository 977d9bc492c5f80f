package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/http/middleware"
	"github.com/microbes-potential/conatoc-net/internal/service"
)

// maxUploadBytes caps library file uploads.
const maxUploadBytes = 16 << 20

// LibraryHandler exposes the shared papers and datasets. Submissions
// arrive as multipart forms so a file can ride along with the metadata.
type LibraryHandler struct {
	Library *service.LibraryService
}

// NewLibraryHandler wires dependencies.
func NewLibraryHandler(library *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{Library: library}
}

// ListPapers returns the paper listing.
func (h *LibraryHandler) ListPapers(c *gin.Context) {
	items, err := h.Library.ListPapers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"papers": items})
}

// SharePaper accepts a multipart paper submission.
func (h *LibraryHandler) SharePaper(c *gin.Context) {
	fileName, fileBytes, ok := h.formFile(c)
	if !ok {
		return
	}

	sess := middleware.GetSession(c)
	paper, err := h.Library.SharePaper(c.Request.Context(), sess, service.SharePaperInput{
		Title:     c.PostForm("title"),
		Link:      c.PostForm("link"),
		Tags:      c.PostForm("tags"),
		Summary:   c.PostForm("summary"),
		FileName:  fileName,
		FileBytes: fileBytes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": paper.ID})
}

// DownloadPaper streams a paper's uploaded file.
func (h *LibraryHandler) DownloadPaper(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid paper id."})
		return
	}

	sess := middleware.GetSession(c)
	file, dlErr := h.Library.DownloadPaper(c.Request.Context(), sess, id)
	if dlErr != nil {
		respondError(c, dlErr)
		return
	}
	serveFile(c, file)
}

// ListDatasets returns the dataset listing.
func (h *LibraryHandler) ListDatasets(c *gin.Context) {
	items, err := h.Library.ListDatasets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": items})
}

// ShareDataset accepts a multipart dataset submission.
func (h *LibraryHandler) ShareDataset(c *gin.Context) {
	visibility, err := domain.ParseVisibility(c.PostForm("visibility"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Unknown visibility."})
		return
	}

	fileName, fileBytes, ok := h.formFile(c)
	if !ok {
		return
	}

	sess := middleware.GetSession(c)
	dataset, shareErr := h.Library.ShareDataset(c.Request.Context(), sess, service.ShareDatasetInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Link:        c.PostForm("link"),
		Tags:        c.PostForm("tags"),
		Visibility:  visibility,
		FileName:    fileName,
		FileBytes:   fileBytes,
	})
	if shareErr != nil {
		respondError(c, shareErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": dataset.ID})
}

// DownloadDataset streams a dataset's uploaded file; the service
// enforces the record's visibility.
func (h *LibraryHandler) DownloadDataset(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid dataset id."})
		return
	}

	sess := middleware.GetSession(c)
	file, dlErr := h.Library.DownloadDataset(c.Request.Context(), sess, id)
	if dlErr != nil {
		respondError(c, dlErr)
		return
	}
	serveFile(c, file)
}

// formFile reads the optional "file" part of the submission. A missing
// part is fine; an oversized or unreadable one ends the request.
func (h *LibraryHandler) formFile(c *gin.Context) (string, []byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid upload."})
		return "", nil, false
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large", "error_description": "Uploads are limited to 16 MiB."})
		return "", nil, false
	}

	data, err := readUpload(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid upload."})
		return "", nil, false
	}
	return filepath.Base(header.Filename), data, true
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes))
}

func serveFile(c *gin.Context, file service.FileDownload) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, "application/octet-stream", file.Bytes)
}
