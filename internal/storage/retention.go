package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// SnapshotPrefix is where devices upload face snapshots, as
// snapshots/<device_id>/<sortable-name>.
const SnapshotPrefix = "snapshots/"

// ObjectPruner lists and batch-deletes objects.
type ObjectPruner interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	DeleteObjects(ctx context.Context, keys []string) error
}

// PruneSnapshots keeps the newest retention snapshots per device and deletes
// the rest. Keys sort oldest first within a device. It returns how many
// objects were deleted.
func PruneSnapshots(ctx context.Context, objects ObjectPruner, retention int) (int, error) {
	if retention <= 0 {
		return 0, nil
	}

	keys, err := objects.ListObjects(ctx, SnapshotPrefix)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}

	byDevice := make(map[string][]string)
	for _, key := range keys {
		device, _, ok := strings.Cut(strings.TrimPrefix(key, SnapshotPrefix), "/")
		if !ok || device == "" {
			continue
		}
		byDevice[device] = append(byDevice[device], key)
	}

	deleted := 0
	for device, deviceKeys := range byDevice {
		if len(deviceKeys) <= retention {
			continue
		}
		sort.Strings(deviceKeys)
		toDelete := deviceKeys[:len(deviceKeys)-retention]
		if err := objects.DeleteObjects(ctx, toDelete); err != nil {
			slog.Warn("cleanup: delete snapshots", "device_id", device, "error", err)
			continue
		}
		deleted += len(toDelete)
		slog.Info("cleanup: deleted old snapshots", "device_id", device, "deleted", len(toDelete), "remaining", retention)
	}
	return deleted, nil
}
