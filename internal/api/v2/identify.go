package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/wildlife-go/internal/identify"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/vision"
)

// Base64IdentifyRequest is the JSON body of POST /identify/base64.
type Base64IdentifyRequest struct {
	EncodedImage string   `json:"encodedImage"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	AutoImport   bool     `json:"autoImport"`
}

func (c *Controller) initIdentifyRoutes() {
	c.Group.POST("/identify", c.IdentifyUpload)
	c.Group.POST("/identify/base64", c.IdentifyBase64)
}

// IdentifyUpload identifies a multipart upload in the "image" field.
func (c *Controller) IdentifyUpload(ctx echo.Context) error {
	lat, err := optionalFloat(ctx.FormValue("latitude"), "latitude")
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}
	lng, err := optionalFloat(ctx.FormValue("longitude"), "longitude")
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}
	autoImport, err := optionalBool(ctx.FormValue("autoimport"), "autoimport")
	if err != nil {
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	req := identify.Request{Latitude: lat, Longitude: lng}

	// A missing file is reported by the identification service
	if fh, err := ctx.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return c.HandleError(ctx, err, "Failed to read uploaded image", http.StatusBadRequest)
		}
		defer func() {
			if err := f.Close(); err != nil {
				GetLogger().Debug("failed to close upload", logger.Error(err))
			}
		}()
		req.File = &identify.File{Name: fh.Filename, Size: fh.Size, Content: f}
	}

	return c.identify(ctx, req, autoImport)
}

// IdentifyBase64 identifies a base64 encoded image, optionally with a data-URL prefix.
func (c *Controller) IdentifyBase64(ctx echo.Context) error {
	var body Base64IdentifyRequest
	if err := ctx.Bind(&body); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	return c.identify(ctx, identify.Request{
		EncodedImage: body.EncodedImage,
		Latitude:     body.Latitude,
		Longitude:    body.Longitude,
	}, body.AutoImport)
}

func (c *Controller) identify(ctx echo.Context, req identify.Request, autoImport bool) error {
	reqCtx := ctx.Request().Context()

	result := c.Identifier.Identify(reqCtx, req)
	if autoImport {
		result = c.Species.ImportTop(reqCtx, result)
	}

	return ctx.JSON(identifyStatus(result), result)
}

func identifyStatus(result vision.Result) int {
	if result.Success {
		return http.StatusOK
	}
	return http.StatusBadRequest
}

func optionalFloat(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, validationError("%s must be a number, got %q", name, raw)
	}
	return &v, nil
}

func optionalBool(raw, name string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, validationError("%s must be a boolean, got %q", name, raw)
	}
	return v, nil
}
