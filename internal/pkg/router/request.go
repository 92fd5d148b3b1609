package router

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
)

// MaxBodyBytes bounds the JSON body DecodeBody will read.
const MaxBodyBytes int64 = 1 << 20

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

// CorrelationID returns the ID assigned by the correlation middleware.
func (r *Request) CorrelationID() string {
	return instrument.GetCorrelationID(r.Context())
}

// DecodeBody strictly decodes a single JSON object into dst. Unknown fields,
// trailing data, a non-JSON content type and bodies over MaxBodyBytes are
// all reported as goerror invalid-format errors.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat()
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.EqualFold(mt, "application/json") {
			return goerror.NewInvalidFormat("Unsupported content type")
		}
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes+1))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}
