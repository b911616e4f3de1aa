//go:build !gocv
// +build !gocv

package detections

import "errors"

var ErrOpenCVUnavailable = errors.New("opencv backend requires building with -tags gocv")

func NewOpenCVBackend(BackendConfig) (Backend, error) {
	return nil, ErrOpenCVUnavailable
}
