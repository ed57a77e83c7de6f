package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"winshirt-sync/pkg/apierror"
)

// maxBodyBytes bounds JSON request bodies. Backups use maxBackupBytes.
const (
	maxBodyBytes   = 1 << 20
	maxBackupBytes = 64 << 20
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("invalid id")
	}
	return id, nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// featuredRequest is the body of the featured toggles. A missing flag flips
// the current value.
type featuredRequest struct {
	Featured *bool `json:"featured"`
}

func (f featuredRequest) resolve(current bool) bool {
	if f.Featured == nil {
		return !current
	}
	return *f.Featured
}
