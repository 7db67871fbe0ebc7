package wa

import (
	"context"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// NewContainer opens the sqlite-backed whatsmeow device store at path.
func NewContainer(ctx context.Context, path string) (*sqlstore.Container, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", path)
	container, err := sqlstore.New(ctx, "sqlite3", dsn, waLog.Noop)
	if err != nil {
		return nil, fmt.Errorf("open device store %s: %w", path, err)
	}
	return container, nil
}

// DeviceStore adapts the whatsmeow device container to ports.AuthStore.
// The credential layout inside the container is whatsmeow's business; only
// restore/persist/wipe are part of the contract.
type DeviceStore struct {
	container *sqlstore.Container
}

func NewDeviceStore(container *sqlstore.Container) *DeviceStore {
	return &DeviceStore{container: container}
}

// Restore reports whether a paired device credential is present.
func (s *DeviceStore) Restore(ctx context.Context) (bool, error) {
	device, err := s.container.GetFirstDevice(ctx)
	if err != nil {
		return false, fmt.Errorf("restore device: %w", err)
	}
	return device.ID != nil, nil
}

// Persist flushes the device credential after pairing.
func (s *DeviceStore) Persist(ctx context.Context) error {
	device, err := s.container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("load device: %w", err)
	}
	if err := device.Save(ctx); err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

// Wipe deletes every stored device credential. Irreversible.
func (s *DeviceStore) Wipe(ctx context.Context) error {
	devices, err := s.container.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	for _, device := range devices {
		if err := device.Delete(ctx); err != nil {
			return fmt.Errorf("delete device: %w", err)
		}
	}
	return nil
}
