// Package identify validates uploaded or base64 encoded photographs and
// hands them to the computer-vision scorer.
package identify

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/observability/metrics"
	"github.com/tphakala/wildlife-go/internal/vision"
)

// MaxImageBytes is the largest accepted image, 10 MiB.
const MaxImageBytes = 10 * 1024 * 1024

var allowedExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// User-facing failure reasons.
const (
	ErrNoImage         = "No image provided"
	ErrFileEmpty       = "File is empty"
	ErrFileTooLarge    = "File too large (max 10MB)"
	ErrInvalidFileType = "Invalid file type. Allowed: JPG, PNG, WebP"
	ErrInvalidBase64   = "Invalid base64 image data"
	ErrImageTooLarge   = "Image too large (max 10MB)"
)

// Scorer scores image bytes. *vision.Client implements it.
type Scorer interface {
	Identify(ctx context.Context, image []byte, geo *vision.GeoHint) vision.Result
}

// File is an uploaded image. Size is the declared size; the content is
// still bounded while reading.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Request carries either a File or an EncodedImage plus an optional location.
// File wins when both are set.
type Request struct {
	File         *File
	EncodedImage string
	Latitude     *float64
	Longitude    *float64
}

// Service validates identification requests before any network call.
type Service struct {
	scorer  Scorer
	metrics metrics.Recorder
}

// NewService creates an identification service. A nil recorder disables metrics.
func NewService(scorer Scorer, recorder metrics.Recorder) *Service {
	return &Service{scorer: scorer, metrics: metrics.OrNoOp(recorder)}
}

// Identify validates req and scores the image. It never returns an error or
// panics; every problem is reported through a failed result.
func (s *Service) Identify(ctx context.Context, req Request) (result vision.Result) {
	start := time.Now()
	log := GetLogger().WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("identification panicked", logger.Any("panic", r))
			result = vision.Failure(fmt.Sprintf("Service error: %v", r))
			s.metrics.RecordOperation(metrics.OpIdentify, metrics.IdentifyFailed)
		}
	}()

	image, reason, err := s.loadImage(req)
	if err != nil {
		s.metrics.RecordOperation(metrics.OpIdentify, metrics.IdentifyFailed)
		readErr := errors.New(err).
			Component("identify").
			Category(errors.CategoryHTTP).
			FileContext(req.File.Name, req.File.Size).
			Context("operation", "read_upload").
			Build()
		log.Warn("failed to read image", logger.Error(readErr))
		return vision.Failure("Service error: " + readErr.Error())
	}
	if reason != "" {
		s.metrics.RecordOperation(metrics.OpIdentify, metrics.IdentifyRejected)
		log.Debug("identification request rejected", logger.String("reason", reason))
		return vision.Failure(reason)
	}

	result = s.scorer.Identify(ctx, image, geoHint(req))

	status := metrics.StatusSuccess
	if !result.Success {
		status = metrics.IdentifyFailed
	}
	s.metrics.RecordOperation(metrics.OpIdentify, status)
	s.metrics.RecordDuration(metrics.OpIdentify, time.Since(start).Seconds())

	log.Info("identification completed",
		logger.Bool("success", result.Success),
		logger.String("scientific_name", result.ScientificName),
		logger.Float64("confidence", result.Confidence),
		logger.Int("image_size", len(image)))

	return result
}

// loadImage returns the image bytes, or a validation reason, or a read error.
func (s *Service) loadImage(req Request) (image []byte, reason string, err error) {
	switch {
	case req.File != nil:
		return readFile(req.File)
	case req.EncodedImage != "":
		image, reason = decodeImage(req.EncodedImage)
		return image, reason, nil
	default:
		return nil, ErrNoImage, nil
	}
}

func readFile(f *File) ([]byte, string, error) {
	if f.Size == 0 {
		return nil, ErrFileEmpty, nil
	}
	if f.Size > MaxImageBytes {
		return nil, ErrFileTooLarge, nil
	}
	if !slices.Contains(allowedExtensions, strings.ToLower(filepath.Ext(f.Name))) {
		return nil, ErrInvalidFileType, nil
	}
	if f.Content == nil {
		return nil, ErrFileEmpty, nil
	}

	// The declared size is not trusted, so read at most one byte past the limit
	data, err := io.ReadAll(io.LimitReader(f.Content, MaxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	switch {
	case len(data) == 0:
		return nil, ErrFileEmpty, nil
	case len(data) > MaxImageBytes:
		return nil, ErrFileTooLarge, nil
	}
	return data, "", nil
}

// decodeImage strips an optional data-URL prefix and decodes standard base64.
// Whitespace, including MIME line breaks, is ignored.
func decodeImage(encoded string) ([]byte, string) {
	if i := strings.IndexByte(encoded, ','); i >= 0 {
		encoded = encoded[i+1:]
	}
	encoded = strings.Map(dropSpace, encoded)

	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxImageBytes+3 {
		return nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidBase64
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	return data, ""
}

func dropSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return -1
	}
	return r
}

func geoHint(req Request) *vision.GeoHint {
	if req.Latitude == nil || req.Longitude == nil {
		return nil
	}
	return &vision.GeoHint{Latitude: *req.Latitude, Longitude: *req.Longitude}
}
