package loader

import (
	"errors"
	"net/http"

	"csrdesk/render"
	"csrdesk/resources"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxUploadSize = 32 << 20

// ImportHandler accepts a multipart upload ("file") of CSV rows for one resource.
func ImportHandler(im *Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["resource"]
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			render.Error(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			render.Error(w, "A CSV file is required.", http.StatusBadRequest)
			return
		}
		defer file.Close()

		n, err := im.Import(r.Context(), key, file)
		if err != nil {
			if errors.Is(err, resources.ErrUnknownResource) {
				render.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			if errors.Is(err, resources.ErrReadOnlyResource) {
				render.Error(w, err.Error(), http.StatusMethodNotAllowed)
				return
			}
			if errors.Is(err, ErrInvalidCSV) {
				render.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			im.logger.Error("import failed", zap.String("resource", key), zap.Error(err))
			render.Error(w, "Import failed.", http.StatusInternalServerError)
			return
		}
		render.JSON(w, http.StatusOK, map[string]any{
			"message":  "Import completed.",
			"imported": n,
		})
	}
}
