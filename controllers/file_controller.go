package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// DownloadSigner resolves signed download tokens to stored files.
type DownloadSigner interface {
	VerifyToken(token string) (string, error)
	Open(path string) (*os.File, error)
}

type FileController struct {
	files DownloadSigner
}

func NewFileController(files DownloadSigner) *FileController {
	return &FileController{files: files}
}

// Download streams the file granted by the token query parameter. The token
// is the authorisation; no session is needed.
func (fc *FileController) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	path, err := fc.files.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired download link"})
		return
	}

	f, err := fc.files.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return
	}

	// Stored names are "<uuid>_<original>"; offer the original name.
	name := filepath.Base(path)
	if i := strings.Index(name, "_"); i > 0 {
		name = name[i+1:]
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}
