package detections

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Tutortoise/threat-detection-service/models"

	"github.com/disintegration/imaging"
)

const DefaultRemoteTimeout = 10 * time.Second

// RemoteBackend forwards frames to an external inference service that
// answers with xyxy rows.
type RemoteBackend struct {
	inferenceURL string
	client       *http.Client
}

func NewRemoteBackend(inferenceURL string, timeout time.Duration) (*RemoteBackend, error) {
	if inferenceURL == "" {
		return nil, fmt.Errorf("remote inference URL is not configured")
	}
	u, err := url.Parse(inferenceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid remote inference URL %q", inferenceURL)
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}

	return &RemoteBackend{
		inferenceURL: inferenceURL,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

func (r *RemoteBackend) Name() string { return BackendRemote }

// remoteRow uses pointers so missing fields can be told apart from zeros.
type remoteRow struct {
	XMin       *float64 `json:"xmin"`
	YMin       *float64 `json:"ymin"`
	XMax       *float64 `json:"xmax"`
	YMax       *float64 `json:"ymax"`
	Confidence *float64 `json:"confidence"`
	Class      *int     `json:"class"`
	Name       *string  `json:"name"`
}

func (row remoteRow) toRaw(i int) (models.RawDetection, error) {
	var missing []string
	if row.XMin == nil {
		missing = append(missing, "xmin")
	}
	if row.YMin == nil {
		missing = append(missing, "ymin")
	}
	if row.XMax == nil {
		missing = append(missing, "xmax")
	}
	if row.YMax == nil {
		missing = append(missing, "ymax")
	}
	if row.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if row.Class == nil {
		missing = append(missing, "class")
	}
	if row.Name == nil {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return models.RawDetection{}, fmt.Errorf("row %d: missing fields %s", i, strings.Join(missing, ", "))
	}

	return models.RawDetection{
		XMin:       *row.XMin,
		YMin:       *row.YMin,
		XMax:       *row.XMax,
		YMax:       *row.YMax,
		Confidence: *row.Confidence,
		Class:      *row.Class,
		Name:       *row.Name,
	}, nil
}

func (r *RemoteBackend) Infer(ctx context.Context, img image.Image) ([]models.RawDetection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := imaging.Encode(part, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result struct {
		Detections []remoteRow `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	rows := make([]models.RawDetection, 0, len(result.Detections))
	for i, row := range result.Detections {
		raw, err := row.toRaw(i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, raw)
	}
	return rows, nil
}

func (r *RemoteBackend) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
