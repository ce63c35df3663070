package negotiate

import (
	"context"
)

// IClient talks to the backend that hands out transfer credentials and owns
// the video records behind them.
type IClient interface {
	CreateUpload(ctx context.Context, req *CreateUploadRequest) (*UploadSession, error)
	DeleteUpload(ctx context.Context, resourceID string) error
	GetStatus(ctx context.Context, resourceID string) (*ProcessingStatus, error)
	// Cleanup is DeleteUpload under the name the uploader expects.
	Cleanup(ctx context.Context, resourceID string) error
}
