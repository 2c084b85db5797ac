package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
)

// MaxJSONBody limits decoded request bodies.
const MaxJSONBody = 1 << 20

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondAudio writes a synthesized clip with its content type.
func RespondAudio(w http.ResponseWriter, contentType, filename string, audio []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	if filename != "" {
		w.Header().Set("Content-Disposition", "inline; filename="+filename)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		log.Printf("failed to write audio response: %v", err)
	}
}

// DecodeJSON reads a bounded JSON body into dst. An empty body is an error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
