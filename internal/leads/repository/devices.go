package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Device binds a tenant to the WhatsApp device it paired.
type Device struct {
	TenantID  uuid.UUID
	DeviceJID string
	UpdatedAt time.Time
}

const listDevicesQuery = `
	SELECT tenant_id, device_jid, updated_at
	FROM whatsapp_devices
	ORDER BY updated_at ASC`

const getDeviceQuery = `
	SELECT tenant_id, device_jid, updated_at
	FROM whatsapp_devices
	WHERE tenant_id = $1`

const saveDeviceQuery = `
	INSERT INTO whatsapp_devices (tenant_id, device_jid, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (tenant_id) DO UPDATE SET
		device_jid = EXCLUDED.device_jid,
		updated_at = now()`

const deleteDeviceQuery = `DELETE FROM whatsapp_devices WHERE tenant_id = $1`

func (r *Repository) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := r.pool.Query(ctx, listDevicesQuery)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	devices := make([]Device, 0)
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.TenantID, &d.DeviceJID, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *Repository) GetDevice(ctx context.Context, tenantID uuid.UUID) (Device, error) {
	var d Device
	err := r.pool.QueryRow(ctx, getDeviceQuery, tenantID).Scan(&d.TenantID, &d.DeviceJID, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Device{}, ErrNotFound
	}
	if err != nil {
		return Device{}, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

func (r *Repository) SaveDevice(ctx context.Context, tenantID uuid.UUID, deviceJID string) error {
	if _, err := r.pool.Exec(ctx, saveDeviceQuery, tenantID, deviceJID); err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

func (r *Repository) DeleteDevice(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, deleteDeviceQuery, tenantID); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}
