package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/code4indo/DE-GAN/internal/models"
	"github.com/code4indo/DE-GAN/pkg/predictor"
	"github.com/code4indo/DE-GAN/pkg/restoration"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	params := &restoration.Params{Task: models.TaskBinarize, TileSize: 16, TileWorkers: 1, ClampOutput: true}
	runner := restoration.NewRunner(params, predictor.Identity{}, zerolog.Nop())
	return New(runner, "identity", zerolog.Nop())
}

// uploadRequest builds a multipart POST carrying content as the "file" field
func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(1, 1, color.Gray{Y: 10})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["task"] != "binarize" || body["backend"] != "identity" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestRestore(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, uploadRequest(t, "scan.png", encodePNG(t, 20, 12)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	if w.Header().Get("X-Processing-Seconds") == "" {
		t.Error("missing X-Processing-Seconds header")
	}

	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("response is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 12 {
		t.Errorf("expected 20x12 result, got %dx%d", b.Dx(), b.Dy())
	}
	if g := color.GrayModel.Convert(img.At(1, 1)).(color.Gray).Y; g != 0 {
		t.Errorf("dark pixel should binarize to 0, got %d", g)
	}
}

func TestRestoreFailedJob(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, uploadRequest(t, "broken.png", []byte("not an image")))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var rep models.ImageJobReport
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Status != models.StatusFailed || rep.ErrorMessage == nil {
		t.Errorf("expected a failed report, got %+v", rep)
	}
	if rep.InputFile != "broken.png" {
		t.Errorf("report should name the upload, got %q", rep.InputFile)
	}
}

func TestRestoreBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{"missing file", func(t *testing.T) *http.Request {
			return httptest.NewRequest(http.MethodPost, "/api/v1/restore", nil)
		}},
		{"unsupported type", func(t *testing.T) *http.Request {
			return uploadRequest(t, "notes.txt", []byte("hello"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestServer().Handler().ServeHTTP(w, tt.req(t))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}
