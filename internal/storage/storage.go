package storage

import (
	"context"
	"log/slog"
)

type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Mirrored saves to the primary store and copies the same bytes to a mirror.
// Mirror failures are logged and do not fail the save.
type Mirrored struct {
	primary Store
	mirror  Store
}

func NewMirrored(primary, mirror Store) *Mirrored {
	return &Mirrored{primary: primary, mirror: mirror}
}

func (m *Mirrored) Save(ctx context.Context, name string, data []byte) (string, error) {
	path, err := m.primary.Save(ctx, name, data)
	if err != nil {
		return "", err
	}

	if m.mirror != nil {
		uri, err := m.mirror.Save(ctx, name, data)
		if err != nil {
			slog.Warn("Failed to mirror media", "name", name, "error", err)
		} else {
			slog.Info("Mirrored media", "name", name, "uri", uri)
		}
	}

	return path, nil
}
