package console

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/joao-fontenele/orderflow-console/internal/orderapi"
)

const indent = "  "

// RenderOK formats a successful response body for the result panel. A body
// that is not valid JSON is shown as plain text.
func RenderOK(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", indent); err != nil {
		return string(raw)
	}
	return buf.String()
}

// RenderError prefers the order service's own error body and falls back to
// the transport error message.
func RenderError(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *orderapi.APIError
	if errors.As(err, &apiErr) {
		if body := bytes.TrimSpace(apiErr.Body); len(body) > 0 {
			return RenderOK(body)
		}
	}

	return err.Error()
}
