package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/blob"
	"github.com/zulandar/stash/internal/ledger"
)

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// idParam parses a numeric path parameter.
func (h *handlers) idParam(c *gin.Context, name string) (uint, bool) {
	id, err := ledger.ParseID(name, c.Param(name))
	if err != nil {
		h.fail(c, err)
		return 0, false
	}
	return id, true
}

// serveBlob streams a stored file to the client. disposition is "inline" or
// "attachment".
func serveBlob(c *gin.Context, info blob.Info, rc io.ReadCloser, disposition, filename string) {
	defer rc.Close()
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{}
	if filename != "" {
		headers["Content-Disposition"] = disposition + "; filename=" + strconv.Quote(filename)
	} else if disposition == "attachment" {
		headers["Content-Disposition"] = disposition
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, headers)
}

// openUpload opens the multipart file field. ok is false when the field is
// absent or the request is not multipart at all.
func openUpload(c *gin.Context, field string) (*multipart.FileHeader, multipart.File, bool, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, apperr.Validationf("read upload: %v", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, false, apperr.Validationf("open upload: %v", err)
	}
	return fh, f, true, nil
}

func (h *handlers) dashboard(c *gin.Context) {
	t, err := h.ledger.Totals(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, totalsView(*t))
}
