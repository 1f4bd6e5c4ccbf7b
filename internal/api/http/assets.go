package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/edvisory/exam-engine/internal/storage"

	"github.com/go-chi/chi/v5"
)

// Question media (audio prompts, figures) referenced by AudioKey/ImageKey on
// catalog questions. Uploads are admin-gated at the router; reads are any
// authenticated user.

// POST /assets/{testID} with multipart "file" and "key" form fields
func UploadAssetHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		name := r.FormValue("key")
		if name == "" {
			http.Error(w, "key required", http.StatusBadRequest)
			return
		}
		key := "tests/" + chi.URLParam(r, "testID") + "/" + name
		stored, err := bs.Put(key, f)
		if err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"key": stored})
	}
}

// GET /assets/*  -> returns the blob at whatever follows /assets/
func GetAssetHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	}
}
