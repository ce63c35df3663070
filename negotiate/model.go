package negotiate

import (
	"github.com/xxxsen/mediaup/uploader"
)

type CreateUploadRequest struct {
	Title       string `json:"title"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

type UploadSession struct {
	ResourceID string            `json:"video_id"`
	UploadURL  string            `json:"upload_url"`
	Method     string            `json:"http_method"`
	Headers    map[string]string `json:"headers"`
}

func (s *UploadSession) Credential() *uploader.Credential {
	headers := make(map[string]string, len(s.Headers))
	for k, v := range s.Headers {
		headers[k] = v
	}
	return &uploader.Credential{
		UploadURL: s.UploadURL,
		Method:    s.Method,
		Headers:   headers,
	}
}

// ProcessingState follows the numeric status codes of the video provider.
type ProcessingState int

const (
	StateCreated ProcessingState = iota
	StateUploaded
	StateProcessing
	StateTranscoding
	StateFinished
	StateError
	StateUploadFailed
)

func (s ProcessingState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateUploaded:
		return "uploaded"
	case StateProcessing:
		return "processing"
	case StateTranscoding:
		return "transcoding"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	case StateUploadFailed:
		return "upload-failed"
	default:
		return "unknown"
	}
}

func (s ProcessingState) IsTerminal() bool {
	return s == StateFinished || s == StateError || s == StateUploadFailed
}

func (s ProcessingState) IsFailed() bool {
	return s == StateError || s == StateUploadFailed
}

type ProcessingStatus struct {
	ResourceID     string          `json:"video_id"`
	State          ProcessingState `json:"status"`
	EncodeProgress int             `json:"encode_progress"`
	Length         int64           `json:"length"`
}
