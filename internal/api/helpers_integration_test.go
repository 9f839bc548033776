//go:build integration

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

type handlerImage struct {
	data []byte
}

func enrollForm(externalID, name string, images []handlerImage) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	_ = w.WriteField("external_id", externalID)
	_ = w.WriteField("name", name)
	for i, img := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="pose`+strconv.Itoa(i)+`.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, _ := w.CreatePart(h)
		_, _ = part.Write(img.data)
	}
	_ = w.Close()
	return body, w.FormDataContentType()
}

func decodeJSON(t *testing.T, r io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r).Decode(v))
}
