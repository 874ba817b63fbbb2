package adapters

import (
	"context"
	"errors"

	leadsrepo "leadbot_backend/internal/leads/repository"
	"leadbot_backend/internal/whatsapp"

	"github.com/google/uuid"
)

// DeviceRepository is the tenant to device mapping of the leads repository.
type DeviceRepository interface {
	ListDevices(ctx context.Context) ([]leadsrepo.Device, error)
	GetDevice(ctx context.Context, tenantID uuid.UUID) (leadsrepo.Device, error)
	SaveDevice(ctx context.Context, tenantID uuid.UUID, deviceJID string) error
	DeleteDevice(ctx context.Context, tenantID uuid.UUID) error
}

// WhatsAppDeviceStore adapts the repository to whatsapp.DeviceStore.
type WhatsAppDeviceStore struct {
	repo DeviceRepository
}

func NewWhatsAppDeviceStore(repo DeviceRepository) *WhatsAppDeviceStore {
	return &WhatsAppDeviceStore{repo: repo}
}

var _ whatsapp.DeviceStore = (*WhatsAppDeviceStore)(nil)

// LoadDevice returns "" for a tenant that never paired.
func (a *WhatsAppDeviceStore) LoadDevice(ctx context.Context, tenantID uuid.UUID) (string, error) {
	d, err := a.repo.GetDevice(ctx, tenantID)
	if errors.Is(err, leadsrepo.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return d.DeviceJID, nil
}

func (a *WhatsAppDeviceStore) SaveDevice(ctx context.Context, tenantID uuid.UUID, deviceJID string) error {
	return a.repo.SaveDevice(ctx, tenantID, deviceJID)
}

func (a *WhatsAppDeviceStore) DeleteDevice(ctx context.Context, tenantID uuid.UUID) error {
	return a.repo.DeleteDevice(ctx, tenantID)
}

// ListPairedTenants returns every tenant with a stored device, for session restore.
func (a *WhatsAppDeviceStore) ListPairedTenants(ctx context.Context) ([]uuid.UUID, error) {
	devices, err := a.repo.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.TenantID)
	}
	return ids, nil
}
