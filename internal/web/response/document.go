package response

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// MediaType is the content type of rendered documents
const MediaType = "application/vnd.api+json"

// Accepts reports whether the request's Accept header allows MediaType.
// A missing header accepts anything.
func Accepts(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}

	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case MediaType, "application/json", "application/*", "*/*":
			return true
		}
	}
	return false
}

// RenderDocument encodes payload, which may be a document or a list of
// documents, and writes it with MediaType
func RenderDocument(w http.ResponseWriter, status int, payload interface{}) error {
	// encode first so a failure leaves the response untouched
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	w.Header().Set("Content-Type", MediaType)
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
