package blob

import (
	"context"
	"fmt"

	"github.com/zulandar/stash/internal/config"
)

// Open selects a Store implementation from configuration.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.Root)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("blob: unknown driver %q", cfg.Driver)
}
