package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/Tutortoise/threat-detection-service/detections"
)

type upload struct {
	Data     []byte
	Filename string
}

var errEmptyUpload = errors.New("empty upload")

func handleDetect(state *AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, state.Config.MaxUploadBytes())

		up, err := readUpload(r, state.Config.MaxUploadBytes())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			state.Log.Error("Upload rejected: %v", err)
			state.Metrics.RecordFailure(CodeUploadTooLarge)
			sendErrorResponse(w, CodeUploadTooLarge, fmt.Sprintf(MsgUploadTooLarge, tooLarge.Limit>>20), err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil {
			state.Log.Error("Invalid upload: %v", err)
			state.Metrics.RecordFailure(CodeInvalidRequest)
			sendErrorResponse(w, CodeInvalidRequest, MsgNoUpload, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := state.Analyzer.Analyze(r.Context(), up.Data, up.Filename)
		if err != nil {
			code := errorCode(err)
			state.Log.Error("Error processing image: %v", err)
			state.Metrics.RecordFailure(code)
			sendErrorResponse(w, code, fmt.Sprintf("%s: %v", MsgProcessingFailed, err), "", http.StatusInternalServerError)
			return
		}

		threats := 0
		for _, d := range result.Detections {
			if d.IsThreat {
				threats++
			}
		}
		state.Metrics.RecordFrame(len(result.Detections), threats, msToDuration(result.ProcessingTimeMs))

		sendJSON(w, http.StatusOK, result)
	}
}

func errorCode(err error) string {
	switch detections.KindOf(err) {
	case detections.KindImageDecode:
		return CodeInvalidImage
	case detections.KindModelLoad:
		return CodeModelUnavailable
	case detections.KindInference:
		return CodeInferenceError
	default:
		return CodeInternal
	}
}

// readUpload accepts multipart (field "file"), JSON with a base64 "image",
// or the raw image as the request body.
func readUpload(r *http.Request, maxBytes int64) (*upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		up  *upload
		err error
	)
	switch mediaType {
	case "multipart/form-data":
		up, err = handleMultipartRequest(r, maxBytes)
	case "application/json":
		up, err = handleJSONRequest(r)
	default:
		up, err = handleRawRequest(r)
	}
	if err != nil {
		return nil, err
	}
	if len(up.Data) == 0 {
		return nil, errEmptyUpload
	}
	return up, nil
}

func handleMultipartRequest(r *http.Request, maxBytes int64) (*upload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &upload{Data: data, Filename: header.Filename}, nil
}

func handleJSONRequest(r *http.Request) (*upload, error) {
	var req struct {
		Image    string `json:"image"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return &upload{Data: data, Filename: req.Filename}, nil
}

func handleRawRequest(r *http.Request) (*upload, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return &upload{Data: data, Filename: r.URL.Query().Get("filename")}, nil
}
