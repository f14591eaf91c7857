package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Spidey0819/Container-1/calc"
)

// storeFile handles POST /store-file with a body of the form
// {"file": "a/b.txt", "data": "hello"}.
func (s *Server) storeFile(r *http.Request) outcome {
	fields, err := decodeObject(r, "file", "data")
	if err != nil {
		return invalidInput(err)
	}
	name, err := fileName(fields["file"])
	if err != nil {
		return invalidInput(err)
	}
	var data string
	if err := decodeString(fields["data"], &data); err != nil {
		return invalidInput(fmt.Errorf("data: %v", err))
	}
	if err := s.opts.store.Put(name, []byte(data)); err != nil {
		return fileError(name, msgStoreFailed, err)
	}
	return success(name, fileResponse{File: &name, Message: msgSuccess})
}

// calculate handles POST /calculate with a body of the form
// {"file": "a/b.txt", "product": <any non-null JSON value>}. The file must
// have been stored beforehand.
func (s *Server) calculate(r *http.Request) outcome {
	fields, err := decodeObject(r, "file", "product")
	if err != nil {
		return invalidInput(err)
	}
	name, err := fileName(fields["file"])
	if err != nil {
		return invalidInput(err)
	}
	product := fields["product"]
	if isNull(product) {
		return invalidInput(errors.New("product is null"))
	}

	ok, err := s.opts.store.Exists(name)
	if err != nil {
		return internalError(name, err)
	}
	if !ok {
		return fileError(name, msgFileNotFound, fmt.Errorf("%q: %w", name, errFileNotFound))
	}

	result, err := s.opts.calculator.Calculate(r.Context(), name, product)
	switch {
	case err == nil:
		return relay(name, result)
	case errors.Is(err, calc.ErrCommunication):
		return fileError(name, msgCommunication, err)
	case errors.Is(err, calc.ErrInvalidResponse):
		return fileError(name, msgInvalidResponse, err)
	default:
		return internalError(name, err)
	}
}

// decodeObject parses the request body as a single JSON object that must
// contain all the given keys.
func decodeObject(r *http.Request, keys ...string) (map[string]json.RawMessage, error) {
	if r.Body == nil {
		return nil, errors.New("empty body")
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("body is not an object")
	}
	for _, key := range keys {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("missing %q", key)
		}
	}
	return fields, nil
}

func fileName(raw json.RawMessage) (string, error) {
	var name string
	if err := decodeString(raw, &name); err != nil {
		return "", fmt.Errorf("file: %v", err)
	}
	if name == "" {
		return "", errors.New("file: empty name")
	}
	return name, nil
}

// decodeString is json.Unmarshal, except that null is rejected rather than
// leaving dst untouched.
func decodeString(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		return errors.New("null")
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
