package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	msgSuccess          = "Success."
	msgInvalidInput     = "Invalid JSON input."
	msgStoreFailed      = "Error while storing the file to the storage."
	msgFileNotFound     = "File not found."
	msgCommunication    = "Error communicating with calculation service."
	msgInvalidResponse  = "Invalid response from calculation service."
	msgInternal         = "Internal Server Error"
	msgNotFound         = "Not Found."
	msgMethodNotAllowed = "Method Not Allowed."
)

var (
	errInvalidInput = errors.New("invalid input")
	errFileNotFound = errors.New("file not found")
)

// fileResponse is the envelope of every response concerning a file, except
// relayed calculation results. File is null when the request could not be
// validated.
type fileResponse struct {
	File    *string `json:"file"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// outcome is what a handler produces: either a value to encode as JSON, or a
// raw JSON body to write as is. A non-nil err marks a failure, to be logged,
// and is never written to the client.
type outcome struct {
	status int
	value  interface{}
	raw    json.RawMessage
	file   string
	err    error
}

func success(file string, value interface{}) outcome {
	return outcome{status: http.StatusOK, value: value, file: file}
}

func relay(file string, raw json.RawMessage) outcome {
	return outcome{status: http.StatusOK, raw: raw, file: file}
}

func invalidInput(err error) outcome {
	return outcome{
		status: http.StatusOK,
		value:  fileResponse{Error: msgInvalidInput},
		err:    fmt.Errorf("%v: %w", err, errInvalidInput),
	}
}

func fileError(file, message string, err error) outcome {
	return outcome{
		status: http.StatusOK,
		value:  fileResponse{File: &file, Error: message},
		file:   file,
		err:    err,
	}
}

func internalError(file string, err error) outcome {
	return outcome{
		status: http.StatusInternalServerError,
		value:  errorResponse{Error: msgInternal},
		file:   file,
		err:    err,
	}
}

// postOnly rejects anything but POST requests.
func postOnly(handle func(*http.Request) outcome) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) outcome {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			return outcome{
				status: http.StatusMethodNotAllowed,
				value:  errorResponse{Error: msgMethodNotAllowed},
				err:    fmt.Errorf("%s: %w", r.Method, errInvalidInput),
			}
		}
		return handle(r)
	}
}

func notFound(_ http.ResponseWriter, r *http.Request) outcome {
	return outcome{
		status: http.StatusNotFound,
		value:  errorResponse{Error: msgNotFound},
		err:    fmt.Errorf("no route for %q", r.URL.Path),
	}
}

type handlerFunc func(http.ResponseWriter, *http.Request) outcome

// route adapts a handler to net/http. It recovers from panics, tags the
// request with an id, and logs the outcome.
func (s *Server) route(op string, handle handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		out := func() (out outcome) {
			defer func() {
				if p := recover(); p != nil {
					out = internalError(out.file, fmt.Errorf("panic: %v", p))
				}
			}()
			return handle(w, r)
		}()
		logger := log.WithFields(log.Fields{
			"op":       op,
			"req":      id,
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   out.status,
			"duration": time.Since(start),
		})
		if out.file != "" {
			logger = logger.WithField("file", out.file)
		}
		logOutcome(logger, out)
		write(w, logger, out)
	})
}

func logOutcome(logger *log.Entry, out outcome) {
	switch {
	case out.err == nil:
		logger.Debug("Success")
	case errors.Is(out.err, errInvalidInput):
		logger.WithField("err", out.err).Warn("Bad request")
	case errors.Is(out.err, errFileNotFound):
		logger.WithField("err", out.err).Info("File not found")
	case out.status == http.StatusNotFound:
		logger.WithField("err", out.err).Debug("Not found")
	default:
		logger.WithField("err", out.err).Error()
	}
}

func write(w http.ResponseWriter, logger *log.Entry, out outcome) {
	body := []byte(out.raw)
	if body == nil {
		var err error
		body, err = json.Marshal(out.value)
		if err != nil {
			logger.WithField("err", err).Error("Could not encode response")
			out.status = http.StatusInternalServerError
			body = []byte(`{"error":"` + msgInternal + `"}`)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(out.status)
	if _, err := w.Write(body); err != nil {
		logger.WithField("err", err).Error("Failed writing response")
	}
}
