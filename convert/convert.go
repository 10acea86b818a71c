// Package convert implements the argument converter handlers use: a Params
// value with typed accessors over captured path parameters, plus a Bind
// helper that drives the Model half (JSON body decode + struct-tag
// validation).
package convert

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// BadConversionError is raised when a captured parameter can't be coerced
// to its declared type, or a Model fails to bind/validate; the connection
// handler turns it into a 400 naming the parameter and target type.
type BadConversionError struct {
	Param string
	Type  string
	Cause error
}

func (e *BadConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("convert: parameter %q: cannot convert to %s: %v", e.Param, e.Type, e.Cause)
	}
	return fmt.Sprintf("convert: parameter %q: cannot convert to %s", e.Param, e.Type)
}

func (e *BadConversionError) Unwrap() error { return e.Cause }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params wraps the router's named captures with typed accessors: raw
// strings pass through untyped, annotated parameters are coerced with a
// one-argument conversion (here: Int/Int64/Float64/Bool), and failures
// become *BadConversionError.
type Params struct {
	captures map[string]string
}

// New builds a Params view over a router's captured named groups.
func New(captures map[string]string) *Params {
	if captures == nil {
		captures = map[string]string{}
	}
	return &Params{captures: captures}
}

// Str returns the raw, unconverted capture.
func (p *Params) Str(name string) (string, bool) {
	v, ok := p.captures[name]
	return v, ok
}

// MustStr returns the raw capture or "" if absent.
func (p *Params) MustStr(name string) string {
	return p.captures[name]
}

// Int converts a capture to int.
func (p *Params) Int(name string) (int, error) {
	raw, ok := p.captures[name]
	if !ok {
		return 0, &BadConversionError{Param: name, Type: "int"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &BadConversionError{Param: name, Type: "int", Cause: err}
	}
	return n, nil
}

// Int64 converts a capture to int64.
func (p *Params) Int64(name string) (int64, error) {
	raw, ok := p.captures[name]
	if !ok {
		return 0, &BadConversionError{Param: name, Type: "int64"}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &BadConversionError{Param: name, Type: "int64", Cause: err}
	}
	return n, nil
}

// Float64 converts a capture to float64.
func (p *Params) Float64(name string) (float64, error) {
	raw, ok := p.captures[name]
	if !ok {
		return 0, &BadConversionError{Param: name, Type: "float64"}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &BadConversionError{Param: name, Type: "float64", Cause: err}
	}
	return f, nil
}

// Bool converts a capture to bool.
func (p *Params) Bool(name string) (bool, error) {
	raw, ok := p.captures[name]
	if !ok {
		return false, &BadConversionError{Param: name, Type: "bool"}
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &BadConversionError{Param: name, Type: "bool", Cause: err}
	}
	return b, nil
}

// BindBody decodes the whole JSON body into dest, then validates it with
// struct tags (`validate:"..."`), the Model half of argument conversion.
func BindBody(body []byte, dest any) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return &BadConversionError{Param: "<body>", Type: fmt.Sprintf("%T", dest), Cause: err}
	}
	if err := validate.Struct(dest); err != nil {
		return &BadConversionError{Param: "<body>", Type: fmt.Sprintf("%T", dest), Cause: err}
	}
	return nil
}

// BindKey decodes one named sub-document of a JSON body object into dest
// and validates it, for handlers whose Model parameter is looked up by key
// rather than occupying the whole body.
func BindKey(body []byte, key string, dest any) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return &BadConversionError{Param: key, Type: fmt.Sprintf("%T", dest), Cause: err}
	}
	raw, ok := doc[key]
	if !ok {
		return &BadConversionError{Param: key, Type: fmt.Sprintf("%T", dest)}
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &BadConversionError{Param: key, Type: fmt.Sprintf("%T", dest), Cause: err}
	}
	if err := validate.Struct(dest); err != nil {
		return &BadConversionError{Param: key, Type: fmt.Sprintf("%T", dest), Cause: err}
	}
	return nil
}
