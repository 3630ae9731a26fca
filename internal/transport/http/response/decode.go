package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/baechuer/contacts-service/internal/domain"
)

// maxJSONBody caps request bodies read by DecodeJSON.
const maxJSONBody = 1 << 20

var errTrailingData = errors.New("body must hold a single JSON value")

// DecodeJSON reads exactly one JSON value into dst. Unknown fields, trailing
// values and bodies over maxJSONBody are rejected as invalid_json.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return domain.ErrInvalidJSON(io.EOF)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidJSON(err)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return domain.ErrInvalidJSON(err)
	}
	return nil
}
