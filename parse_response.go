package wisp

import (
	"fmt"
	"os"
)

// Model is the marker interface for declarative data classes bound from a
// JSON request body and, symmetrically, convertible back to a JSON
// response body by parseResponse.
type Model interface {
	// IsModel is a zero-cost tag; Model has no other requirement.
	IsModel()
}

// parseResponse converts a handler's return value to a Response:
//   - (value, status) tuple → parseResponse(value) with status overridden
//   - string            → text/html
//   - map / slice       → JSON
//   - Model             → JSON
//   - *os.File          → file stream
//   - *Response         → identity
func (a *Application) parseResponse(v any) (*Response, error) {
	switch val := v.(type) {
	case nil:
		return NewResponse(nil).WithStatus(204), nil

	case *Response:
		return val, nil

	case Tuple:
		resp, err := a.parseResponse(val.Value)
		if err != nil {
			return nil, err
		}
		return resp.WithStatus(val.Status), nil

	case string:
		return HTML(val), nil

	case []byte:
		return NewResponse(val), nil

	case *os.File:
		return FileResponse(val, ""), nil

	case Model:
		return JSON(val)

	default:
		return jsonOrHTML(val)
	}
}

// Tuple represents a handler returning "(value, status)". Handlers build
// one with wisp.WithStatus(value, status) instead of a language-level
// tuple literal.
type Tuple struct {
	Value  any
	Status int
}

// WithStatus wraps value so parseResponse overrides the resulting
// Response's status code, for handlers that want to return a value and a
// status code together without constructing a full *Response.
func WithStatus(value any, status int) Tuple {
	return Tuple{Value: value, Status: status}
}

func jsonOrHTML(v any) (*Response, error) {
	resp, err := JSON(v)
	if err != nil {
		return nil, fmt.Errorf("wisp: handler returned unconvertible value of type %T: %w", v, err)
	}
	return resp, nil
}
