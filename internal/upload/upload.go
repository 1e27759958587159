// Package upload stores bike, park and avatar images on local disk with a 300px thumbnail.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"motorent/internal/apperr"
	"motorent/internal/auth"
	"motorent/internal/config"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

const (
	ThumbDir   = "thumb"
	ThumbWidth = 300
	FormField  = "file"
)

var (
	ErrFileTooLarge = errors.New("file is too large")
	ErrInvalidType  = errors.New("only jpg, png, gif, bmp and tiff images are accepted")

	allowedExt = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
	}
	allowedMIME = map[string]bool{
		"image/jpeg": true, "image/png": true, "image/gif": true, "image/bmp": true, "image/tiff": true,
	}
)

type Result struct {
	Filename     string `json:"filename"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type Store struct {
	Dir       string
	PublicURL string
	MaxBytes  int64
}

func NewStore(cfg *config.Config) *Store {
	return &Store{
		Dir:       cfg.UploadDir,
		PublicURL: cfg.PublicAssetURL,
		MaxBytes:  int64(cfg.MaxUploadSizeMegabyte) << 20,
	}
}

func (s *Store) url(parts ...string) string {
	base := strings.TrimRight(s.PublicURL, "/")
	return base + "/" + path.Join(parts...)
}

// Save re-encodes the image as JPEG under a random uuid name.
func (s *Store) Save(fh *multipart.FileHeader) (Result, error) {
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return Result{}, ErrFileTooLarge
	}
	if !allowedExt[strings.ToLower(filepath.Ext(fh.Filename))] {
		return Result{}, ErrInvalidType
	}

	src, err := fh.Open()
	if err != nil {
		return Result{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	var r io.Reader = src
	if s.MaxBytes > 0 {
		r = io.LimitReader(src, s.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read upload: %w", err)
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return Result{}, ErrFileTooLarge
	}
	if !allowedMIME[http.DetectContentType(data)] {
		return Result{}, ErrInvalidType
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, ErrInvalidType
	}

	if err := os.MkdirAll(filepath.Join(s.Dir, ThumbDir), 0o755); err != nil {
		return Result{}, fmt.Errorf("create upload directory: %w", err)
	}

	name := uuid.New().String() + ".jpg"
	if err := imaging.Save(img, filepath.Join(s.Dir, name), imaging.JPEGQuality(85)); err != nil {
		return Result{}, fmt.Errorf("save image: %w", err)
	}
	thumb := imaging.Resize(img, ThumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(s.Dir, ThumbDir, name), imaging.JPEGQuality(80)); err != nil {
		return Result{}, fmt.Errorf("save thumbnail: %w", err)
	}

	return Result{Filename: name, URL: s.url(name), ThumbnailURL: s.url(ThumbDir, name)}, nil
}

// POST /api/v1/uploads/image (multipart field "file")
func ImageHandler(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile(FormField)
		if err != nil {
			return apperr.Invalid(FormField, "an image file is required")
		}

		res, err := store.Save(fh)
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, ErrInvalidType):
			return apperr.Invalid(FormField, err.Error())
		case err != nil:
			return err
		}

		if user := auth.CurrentUser(c); user != nil {
			log.Infof("[UPLOAD] user #%d stored %s (%d bytes)", user.ID, res.Filename, fh.Size)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func RegisterRoutes(app *fiber.App, api fiber.Router, cfg *config.Config) {
	store := NewStore(cfg)
	app.Static("/uploads", store.Dir, fiber.Static{MaxAge: 86400})
	api.Post("/uploads/image", auth.JWTMiddleware(cfg), ImageHandler(store))
}
