package validation

import (
	"net/http"

	"github.com/isekhard17/academia-sekhard/common/httputil"
	"github.com/isekhard17/academia-sekhard/internal/apperr"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Normalizer is implemented by payloads that clean their input (trim,
// upper-case) before the schema is checked.
type Normalizer interface {
	Normalize()
}

// Decode reads the JSON body into dst, normalizes it and validates it.
func (v *Validator) Decode(r *http.Request, dst any) error {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		return apperr.Invalid("body", "cuerpo de la solicitud inválido")
	}
	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}
	return v.Struct(dst)
}

// PathUUID parses the chi URL parameter name as a UUID.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "debe ser un identificador válido")
	}
	return id, nil
}
