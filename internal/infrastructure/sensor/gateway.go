package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

const defaultFixTimeout = 15 * time.Second

// DeviceGateway bridges device-pushed sensor callbacks to the blocking
// SensorGateway port. The mobile client posts permission outcomes and
// position fixes over HTTP; detection goroutines await them here.
//
// Concurrent waiters for the same sensor share one pending promise, so a
// single device push settles all of them.
type DeviceGateway struct {
	mu          sync.Mutex
	permission  *OneShot[bool]
	fix         *OneShot[*domain.Position]
	fingerprint string
	fixTimeout  time.Duration
}

func NewDeviceGateway() *DeviceGateway {
	return &DeviceGateway{fixTimeout: defaultFixTimeout}
}

func (g *DeviceGateway) RequestPermission(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.permission == nil {
		g.permission = NewOneShot[bool]()
	}
	pending := g.permission
	g.mu.Unlock()

	granted, err := pending.Await(ctx)
	if err != nil {
		return false, err
	}
	return granted, nil
}

// PushPermission settles the pending permission request. It reports false
// when no request was waiting or the request already settled.
func (g *DeviceGateway) PushPermission(granted bool) bool {
	g.mu.Lock()
	pending := g.permission
	g.permission = nil
	g.mu.Unlock()

	if pending == nil {
		return false
	}
	return pending.Resolve(granted)
}

func (g *DeviceGateway) CurrentFix(ctx context.Context) (*domain.Position, error) {
	g.mu.Lock()
	if g.fix == nil {
		g.fix = NewOneShot[*domain.Position]()
	}
	pending := g.fix
	g.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, g.fixTimeout)
	defer cancel()

	position, err := pending.Await(waitCtx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSensorUnavailable, "await position fix", err)
	}
	return position, nil
}

// PushFix settles the pending fix request with a position.
func (g *DeviceGateway) PushFix(position domain.Position) bool {
	g.mu.Lock()
	pending := g.fix
	g.fix = nil
	g.mu.Unlock()

	if pending == nil {
		return false
	}
	return pending.Resolve(&position)
}

// PushFixFailure settles the pending fix request with a device-reported
// sensor error.
func (g *DeviceGateway) PushFixFailure(reason string) bool {
	g.mu.Lock()
	pending := g.fix
	g.fix = nil
	g.mu.Unlock()

	if pending == nil {
		return false
	}
	return pending.Fail(domain.WrapError(domain.ErrSensorUnavailable, "device fix", fmt.Errorf("%s", reason)))
}

// SetFingerprint records the device's latest connectivity fingerprint.
func (g *DeviceGateway) SetFingerprint(fingerprint string) {
	g.mu.Lock()
	g.fingerprint = fingerprint
	g.mu.Unlock()
}

func (g *DeviceGateway) ReadFingerprint(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fingerprint, nil
}
