package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Every response body is a JSON envelope with at least success and message.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, success bool, message string) {
	writeJSON(w, code, envelope{"success": success, "message": message})
}

// fail writes an error envelope. Internal detail rides along only outside
// production.
func (a *API) fail(w http.ResponseWriter, r *http.Request, code int, message string, err error) {
	body := envelope{"success": false, "message": message}
	if err != nil && !a.production {
		body["error"] = err.Error()
	}
	writeJSON(w, code, body)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
