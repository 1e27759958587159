package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"motorent/internal/testutil"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newUploadRequest(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(FormField, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func newApp(store *Store) *fiber.App {
	app := testutil.NewApp(testutil.Dealer())
	app.Post("/uploads/image", ImageHandler(store))
	return app
}

func post(t *testing.T, app *fiber.App, filename string, data []byte) int {
	t.Helper()
	body, ctype := newUploadRequest(t, filename, data)
	req := httptest.NewRequest("POST", "/uploads/image", body)
	req.Header.Set("Content-Type", ctype)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestUploadStoresImageAndThumbnail(t *testing.T) {
	dir := t.TempDir()
	store := &Store{Dir: dir, PublicURL: "https://cdn.motorent.vn/uploads/", MaxBytes: 1 << 20}
	app := newApp(store)

	body, ctype := newUploadRequest(t, "vision.PNG", pngBytes(t, 800, 400))
	req := httptest.NewRequest("POST", "/uploads/image", body)
	req.Header.Set("Content-Type", ctype)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	res := testutil.DecodeJSON[Result](t, resp)
	assert.Equal(t, ".jpg", filepath.Ext(res.Filename))
	assert.Equal(t, "https://cdn.motorent.vn/uploads/"+res.Filename, res.URL)
	assert.Equal(t, "https://cdn.motorent.vn/uploads/thumb/"+res.Filename, res.ThumbnailURL)

	_, err = os.Stat(filepath.Join(dir, res.Filename))
	require.NoError(t, err)
	thumb, err := imaging.Open(filepath.Join(dir, ThumbDir, res.Filename))
	require.NoError(t, err)
	assert.Equal(t, ThumbWidth, thumb.Bounds().Dx())
	assert.Equal(t, 150, thumb.Bounds().Dy())
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	app := newApp(&Store{Dir: t.TempDir(), PublicURL: "/uploads", MaxBytes: 1 << 20})
	assert.Equal(t, fiber.StatusBadRequest, post(t, app, "notes.txt", pngBytes(t, 10, 10)))
}

func TestUploadRejectsSpoofedContent(t *testing.T) {
	app := newApp(&Store{Dir: t.TempDir(), PublicURL: "/uploads", MaxBytes: 1 << 20})
	assert.Equal(t, fiber.StatusBadRequest, post(t, app, "photo.jpg", []byte("<html><script>alert(1)</script></html>")))
}

func TestUploadRejectsLargeFile(t *testing.T) {
	app := newApp(&Store{Dir: t.TempDir(), PublicURL: "/uploads", MaxBytes: 16})
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, post(t, app, "big.png", pngBytes(t, 200, 200)))
}

func TestUploadRequiresFile(t *testing.T) {
	app := newApp(&Store{Dir: t.TempDir(), PublicURL: "/uploads", MaxBytes: 1 << 20})
	req := httptest.NewRequest("POST", "/uploads/image", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
