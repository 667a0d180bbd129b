// Package soft is a software rendering backend. It generates seeded
// random primitives and rasterizes them with gg, so the harness can run
// end to end without a GPU device.
//
// Importing the package registers the backend under the library name
// "soft".
package soft

import (
	"fmt"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/feature"
)

// Name is the library name the backend registers under.
const Name = "soft"

// DefaultDevice is used when no device is requested.
const DefaultDevice = "default"

// DefaultRenderer is the only renderer the backend provides.
const DefaultRenderer = "default"

// Features lists the capability flags every device reports.
var Features = feature.Set{
	{Name: "ANARI_KHR_CAMERA_ORTHOGRAPHIC", Available: true},
	{Name: "ANARI_KHR_CAMERA_PERSPECTIVE", Available: false},
	{Name: "ANARI_KHR_FRAME_CHANNEL_DEPTH", Available: true},
	{Name: "ANARI_KHR_GEOMETRY_CONE", Available: false},
	{Name: "ANARI_KHR_GEOMETRY_CURVE", Available: false},
	{Name: "ANARI_KHR_GEOMETRY_CYLINDER", Available: false},
	{Name: "ANARI_KHR_GEOMETRY_QUAD", Available: true},
	{Name: "ANARI_KHR_GEOMETRY_SPHERE", Available: false},
	{Name: "ANARI_KHR_GEOMETRY_TRIANGLE", Available: true},
	{Name: "ANARI_KHR_INSTANCE_TRANSFORM", Available: false},
	{Name: "ANARI_KHR_MATERIAL_MATTE", Available: true},
}

func init() {
	backend.Register(Name, Open)
}

// Backend is the loaded software library.
type Backend struct {
	status backend.StatusFunc
}

// Open loads the backend. It never fails.
func Open(library string, status backend.StatusFunc) (backend.Backend, error) {
	if status == nil {
		status = func(string) {}
	}
	status(info("loaded library %s", library))
	return &Backend{status: status}, nil
}

// QueryFeatures implements backend.Backend.
func (b *Backend) QueryFeatures(device string) (feature.Set, error) {
	if err := checkDevice(device); err != nil {
		return nil, err
	}
	return append(feature.Set(nil), Features...), nil
}

// NewGenerator implements backend.Backend.
func (b *Backend) NewGenerator(device string) (backend.Generator, error) {
	if err := checkDevice(device); err != nil {
		return nil, err
	}
	b.status(info("created device %s", deviceName(device)))
	return newGenerator(b.status), nil
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	b.status(info("unloaded library"))
	return nil
}

func deviceName(device string) string {
	if device == "" {
		return DefaultDevice
	}
	return device
}

func checkDevice(device string) error {
	if deviceName(device) != DefaultDevice {
		return fmt.Errorf("unknown device %q", device)
	}
	return nil
}

// Status lines use the severity prefixes of the device status callback.
func info(format string, args ...any) string {
	return "[INFO ] " + fmt.Sprintf(format, args...)
}

func warn(format string, args ...any) string {
	return "[WARN ] " + fmt.Sprintf(format, args...)
}
