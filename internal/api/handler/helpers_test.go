package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/api/middleware"
)

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body errorBody
	decode(t, resp, &body)
	return body.Error.Code
}

type formImage struct {
	content     []byte
	contentType string
}

func jpegImage() formImage {
	return formImage{content: []byte{0xff, 0xd8, 0xff, 0xe0, 0x01}, contentType: "image/jpeg"}
}

// multipartBody builds a form with text fields and "images" files
func multipartBody(fields map[string]string, images ...formImage) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}

	for i, img := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="pose`+string(rune('a'+i))+`.jpg"`)
		h.Set("Content-Type", img.contentType)
		part, _ := writer.CreatePart(h)
		_, _ = part.Write(img.content)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType()
}
