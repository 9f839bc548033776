package handler

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
	maxImages    = 20
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// extractImages reads every "images" file of a multipart form
func extractImages(c *fiber.Ctx) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	files := form.File["images"]
	if len(files) == 0 {
		return nil, domain.ErrNotEnoughImages
	}
	if len(files) > maxImages {
		return nil, domain.ErrValidationFailed
	}

	images := make([][]byte, 0, len(files))
	for _, file := range files {
		data, err := readImage(file)
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}

	return images, nil
}

func readImage(file *multipart.FileHeader) ([]byte, error) {
	// 1. Validate size
	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage
	}

	// 2. Validate Content-Type
	if !validImageTypes[file.Header.Get("Content-Type")] {
		return nil, domain.ErrInvalidImage
	}

	// 3. Read bytes
	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return data, nil
}
