// Copyright 2025 The luxd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	powerService   = "org.kde.Solid.PowerManagement"
	powerPath      = "/org/kde/Solid/PowerManagement/Actions/BrightnessControl"
	powerInterface = "org.kde.Solid.PowerManagement.Actions.BrightnessControl"

	kwinService        = "org.kde.KWin"
	nightLightPath     = "/org/kde/KWin/NightLight"
	nightLightIface    = "org.kde.KWin.NightLight"
	propertiesIface    = "org.freedesktop.DBus.Properties"
	neutralKelvinFloor = 5500
)

// Session drives brightness and color temperature through the desktop
// session's D-Bus interfaces (KDE Plasma). Brightness writes may show the
// desktop OSD and carry bus round-trip latency, so this backend is a
// fallback when no writable backlight device exists. Color temperature uses
// the compositor's night light: at neutral targets (>= 5500K) night light
// is inhibited, below that the target is applied as a preview.
type Session struct {
	conn *dbus.Conn

	mu            sync.Mutex
	inhibitCookie *uint32
	hasNightLight bool
}

// NewSession connects to the session bus and verifies the brightness
// control interface responds. Night light support is detected separately;
// its absence only clears the ColorTemp capability.
func NewSession() (*Session, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", ErrNotSupported, err)
	}

	s := &Session{conn: conn}
	if _, err := s.maxBrightness(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: brightness control: %v", ErrNotSupported, err)
	}

	var temp uint32
	obj := conn.Object(kwinService, nightLightPath)
	if err := obj.Call(nightLightIface+".currentTemperature", 0).Store(&temp); err == nil {
		s.hasNightLight = true
	}

	return s, nil
}

// ID returns the bus-level identifier.
func (s *Session) ID() string { return "session-dbus" }

// Name returns the backend description.
func (s *Session) Name() string { return "desktop session (dbus)" }

// Capabilities reports brightness plus color temperature when the
// compositor exposes night light.
func (s *Session) Capabilities() Capabilities {
	return Capabilities{Brightness: true, ColorTemp: s.hasNightLight}
}

// Read returns current brightness as a percentage of the session maximum.
func (s *Session) Read(ctx context.Context) (float64, error) {
	obj := s.conn.Object(powerService, powerPath)

	var cur int32
	if err := obj.CallWithContext(ctx, powerInterface+".brightness", 0).Store(&cur); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	maxV, err := s.maxBrightness(ctx)
	if err != nil {
		return 0, err
	}
	if maxV == 0 {
		return 0, nil
	}
	return float64(cur) / float64(maxV) * 100.0, nil
}

// Write applies brightness and, when supported and kelvin > 0, the color
// temperature.
func (s *Session) Write(ctx context.Context, pct float64, kelvin int) error {
	if err := checkRange(pct); err != nil {
		return err
	}

	maxV, err := s.maxBrightness(ctx)
	if err != nil {
		return err
	}
	target := int32(math.Round(pct / 100.0 * float64(maxV)))

	obj := s.conn.Object(powerService, powerPath)
	if call := obj.CallWithContext(ctx, powerInterface+".setBrightness", 0, target); call.Err != nil {
		return fmt.Errorf("%w: setBrightness: %v", ErrDeviceUnavailable, call.Err)
	}

	if kelvin > 0 && s.hasNightLight {
		if err := s.setKelvin(ctx, uint32(kelvin)); err != nil {
			return err
		}
	}
	return nil
}

// setKelvin applies the hybrid night light strategy: inhibit for neutral
// daytime targets so the compositor's own schedule cannot fight the
// daemon, preview for warm targets.
func (s *Session) setKelvin(ctx context.Context, kelvin uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj := s.conn.Object(kwinService, nightLightPath)

	if kelvin >= neutralKelvinFloor {
		if s.inhibitCookie != nil {
			return nil
		}
		var cookie uint32
		if err := obj.CallWithContext(ctx, nightLightIface+".inhibit", 0).Store(&cookie); err != nil {
			return fmt.Errorf("%w: night light inhibit: %v", ErrDeviceUnavailable, err)
		}
		s.inhibitCookie = &cookie
		return nil
	}

	if s.inhibitCookie != nil {
		// Must release the inhibition before a preview can take effect.
		obj.CallWithContext(ctx, nightLightIface+".uninhibit", 0, *s.inhibitCookie)
		s.inhibitCookie = nil
	}

	if call := obj.CallWithContext(ctx, nightLightIface+".preview", 0, kelvin); call.Err != nil {
		return fmt.Errorf("%w: night light preview: %v", ErrDeviceUnavailable, call.Err)
	}
	return nil
}

// CurrentKelvin reads the temperature the compositor is actually applying.
func (s *Session) CurrentKelvin(ctx context.Context) (int, error) {
	if !s.hasNightLight {
		return 0, ErrNotSupported
	}
	obj := s.conn.Object(kwinService, nightLightPath)

	variant, err := obj.GetProperty(nightLightIface + ".currentTemperature")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	temp, ok := variant.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected property type %T", ErrDeviceUnavailable, variant.Value())
	}
	return int(temp), nil
}

// Close releases any night light inhibition and the bus connection.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.inhibitCookie != nil {
		obj := s.conn.Object(kwinService, nightLightPath)
		obj.Call(nightLightIface+".uninhibit", 0, *s.inhibitCookie)
		s.inhibitCookie = nil
	}
	s.mu.Unlock()
	return s.conn.Close()
}

func (s *Session) maxBrightness(ctx context.Context) (int32, error) {
	obj := s.conn.Object(powerService, powerPath)
	var maxV int32
	if err := obj.CallWithContext(ctx, powerInterface+".brightnessMax", 0).Store(&maxV); err != nil {
		return 0, fmt.Errorf("%w: brightnessMax: %v", ErrDeviceUnavailable, err)
	}
	return maxV, nil
}
