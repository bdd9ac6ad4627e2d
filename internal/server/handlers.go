package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// FormatsResponse is returned by /formats. Configured lists the symbologies
// the server decodes; an empty configuration means every supported one.
type FormatsResponse struct {
	Supported  []string `json:"supported"`
	Configured []string `json:"configured"`
	Count      int      `json:"count"`
}

// DecodeResponse is returned by /decode/image. Found is false with Success
// true when the image held no barcode.
type DecodeResponse struct {
	Success    bool            `json:"success"`
	Found      bool            `json:"found"`
	Result     *barcode.Result `json:"result,omitempty"`
	Width      int             `json:"width,omitempty"`
	Height     int             `json:"height,omitempty"`
	Processing *Processing     `json:"processing,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Processing holds timing information for a decode.
type Processing struct {
	DecodeTimeMs int64 `json:"decode_time_ms"`
}

// PDFResponse is returned by /decode/pdf.
type PDFResponse struct {
	Success   bool                `json:"success"`
	Result    *pdf.DocumentResult `json:"result,omitempty"`
	Found     int                 `json:"found"`
	RequestID string              `json:"request_id,omitempty"`
	Error     string              `json:"error,omitempty"`
}

func formatNames(set barcode.FormatSet) []string {
	names := make([]string, 0, set.Len())
	for _, f := range set {
		names = append(names, f.String())
	}
	return names
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) formatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	supported := barcode.SupportedFormats()
	configured := s.formats
	if configured.Len() == 0 {
		configured = supported
	}
	writeJSON(w, http.StatusOK, FormatsResponse{
		Supported:  formatNames(supported),
		Configured: formatNames(configured),
		Count:      supported.Len(),
	})
}

// decodeImageHandler decodes the multipart "image" field. The optional
// crop_width and crop_height fields select the centered region.
func (s *Server) decodeImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := RequestIDFromContext(r.Context())
	fail := func(msg string, status int) {
		decodeRequestsTotal.WithLabelValues("image", "error").Inc()
		writeJSON(w, status, DecodeResponse{Error: msg, RequestID: requestID})
	}

	file, header, err := s.parseUpload(w, r, "image")
	if err != nil {
		fail(err.Error(), uploadStatus(err))
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	cropWidth, cropHeight, err := parseCrop(r)
	if err != nil {
		fail(err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		fail("Failed to read image data", http.StatusInternalServerError)
		return
	}
	img, meta, err := utils.DecodeImageBytes(data)
	if err != nil {
		fail("Invalid image format", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := s.decoder.Decode(ctx, img, cropWidth, cropHeight)
	duration := time.Since(start)
	decodeDuration.WithLabelValues("image").Observe(duration.Seconds())
	if err != nil {
		slog.Error("Image decode failed", "request_id", requestID, "error", err)
		fail(fmt.Sprintf("Decode failed: %v", err), decodeStatus(err))
		return
	}

	decodeRequestsTotal.WithLabelValues("image", decodeOutcome(res != nil, nil)).Inc()
	if res != nil {
		barcodesDecoded.WithLabelValues(res.Format.String()).Inc()
	}
	writeJSON(w, http.StatusOK, DecodeResponse{
		Success:    true,
		Found:      res != nil,
		Result:     res,
		Width:      meta.Width,
		Height:     meta.Height,
		Processing: &Processing{DecodeTimeMs: duration.Milliseconds()},
		RequestID:  requestID,
	})
}

// decodePDFHandler decodes every image embedded in the multipart "pdf"
// field. Optional fields: pages, crop_width, crop_height, user_password,
// owner_password.
func (s *Server) decodePDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := RequestIDFromContext(r.Context())
	fail := func(msg string, status int) {
		decodeRequestsTotal.WithLabelValues("pdf", "error").Inc()
		writeJSON(w, status, PDFResponse{Error: msg, RequestID: requestID})
	}

	file, header, err := s.parseUpload(w, r, "pdf")
	if err != nil {
		fail(err.Error(), uploadStatus(err))
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	cropWidth, cropHeight, err := parseCrop(r)
	if err != nil {
		fail(err.Error(), http.StatusBadRequest)
		return
	}
	pages := r.FormValue("pages")
	if pages != "" {
		if _, err := pdf.ParsePageRange(pages); err != nil {
			fail(err.Error(), http.StatusBadRequest)
			return
		}
	}

	tmpPath, err := saveTempPDF(file)
	if err != nil {
		fail("Failed to store upload", http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.Remove(tmpPath) }()

	ctx, cancel := s.requestContext(r)
	defer cancel()

	opts := pdf.ScanOptions{PageRange: pages, CropWidth: cropWidth, CropHeight: cropHeight}
	if up, op := r.FormValue("user_password"), r.FormValue("owner_password"); up != "" || op != "" {
		opts.Credentials = &pdf.PasswordCredentials{UserPassword: up, OwnerPassword: op}
	}

	start := time.Now()
	doc, err := s.scanner.Scan(ctx, tmpPath, opts)
	decodeDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Error("PDF decode failed", "request_id", requestID, "file", header.Filename, "error", err)
		status := decodeStatus(err)
		if pdf.IsPasswordError(err) {
			status = http.StatusUnauthorized
		}
		fail(fmt.Sprintf("PDF processing failed: %v", err), status)
		return
	}
	doc.Filename = header.Filename

	found := doc.Barcodes()
	decodeRequestsTotal.WithLabelValues("pdf", decodeOutcome(len(found) > 0, nil)).Inc()
	for _, b := range found {
		barcodesDecoded.WithLabelValues(b.Result.Format.String()).Inc()
	}
	writeJSON(w, http.StatusOK, PDFResponse{
		Success:   true,
		Result:    doc,
		Found:     len(found),
		RequestID: requestID,
	})
}

var errFileTooLarge = errors.New("file too large")

func uploadStatus(err error) int {
	if errors.Is(err, errFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// parseUpload enforces the upload limit and returns the named form file.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, nil, errFileTooLarge
		}
		return nil, nil, errors.New("failed to parse form data")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("no %s file provided", field)
	}
	if header.Size > limit {
		_ = file.Close()
		return nil, nil, errFileTooLarge
	}
	return file, header, nil
}

// parseCrop reads crop_width and crop_height. Missing values mean the full
// image dimension.
func parseCrop(r *http.Request) (int, int, error) {
	width, err := parseNonNegative(r.FormValue("crop_width"), "crop_width")
	if err != nil {
		return 0, 0, err
	}
	height, err := parseNonNegative(r.FormValue("crop_height"), "crop_height")
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func parseNonNegative(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, value)
	}
	return n, nil
}

func saveTempPDF(src io.Reader) (string, error) {
	f, err := os.CreateTemp("", "barscan-upload-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
