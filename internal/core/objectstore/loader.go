package objectstore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gusmmm/docrag/internal/core"
)

// Loader reads source documents from local paths or s3:// URLs.
// The object client may be nil when no AWS credentials are configured;
// s3 paths then fail per-document instead of at startup.
type Loader struct {
	obj core.ObjectClient
}

func NewLoader(obj core.ObjectClient) *Loader {
	return &Loader{obj: obj}
}

func (l *Loader) Load(ctx context.Context, path string) ([]byte, error) {
	if !strings.HasPrefix(path, "s3://") {
		return os.ReadFile(path)
	}
	if l.obj == nil {
		return nil, fmt.Errorf("s3 source %q but object storage not configured", path)
	}
	bucket, key, err := parseS3URL(path)
	if err != nil {
		return nil, err
	}
	return l.obj.GetFile(ctx, bucket, key)
}

// parseS3URL splits "s3://bucket/path/to/file.md" into bucket and key.
func parseS3URL(u string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(u, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid s3 url: %q", u)
	}
	return parts[0], parts[1], nil
}
