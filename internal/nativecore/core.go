package nativecore

import (
	"context"
	"errors"
	"fmt"

	"github.com/coppebars/rslauncher/core/state/launcher"
)

// PrepareRequest asks a driver to place everything version ID needs into the game
// tree at Root.
type PrepareRequest struct {
	UID  string `json:"uid"`
	ID   string `json:"id"`
	Root string `json:"path"`
}

// LaunchRequest starts version ID from the game tree at Root. Vars are substituted
// into the argument templates of the version.
type LaunchRequest struct {
	UID       string            `json:"uid"`
	ID        string            `json:"id"`
	Root      string            `json:"path"`
	Vars      map[string]string `json:"vars"`
	Alloc     int               `json:"alloc,omitempty"`
	ExtraArgs []string          `json:"extra_args,omitempty"`

	// OnStarted is called once the game process is running.
	OnStarted func(pid int) `json:"-"`
}

//go:generate mockgen -destination=mocks/mock_driver.go -package=mocks github.com/coppebars/rslauncher/internal/nativecore Driver,Emitter

// Driver stages and starts versions of one provider.
type Driver interface {
	Type() launcher.Provider
	Prepare(ctx context.Context, req *PrepareRequest, events Emitter) error
	// Launch blocks until the game exits. The start of the process is reported through
	// LaunchRequest.OnStarted, which lets callers mark the instance running early.
	Launch(ctx context.Context, req *LaunchRequest, events Emitter) error
}

var (
	ErrDriverNotFound = errors.New("no driver found")
)

// Core is the command surface of the native core. Commands are dispatched to the
// driver of the requested provider.
type Core struct {
	drivers map[launcher.Provider]Driver
	bus     *Bus
}

func NewCore(bus *Bus, drivers []Driver) *Core {
	c := &Core{
		drivers: make(map[launcher.Provider]Driver),
		bus:     bus,
	}
	for _, driver := range drivers {
		c.drivers[driver.Type()] = driver
	}
	return c
}

func (c *Core) Bus() *Bus {
	return c.bus
}

func (c *Core) driver(provider launcher.Provider) (Driver, error) {
	switch provider {
	case launcher.ProviderLocal, launcher.ProviderMojang:
		// local versions use the vanilla tree layout
		if d, ok := c.drivers[launcher.ProviderMojang]; ok {
			return d, nil
		}
	default:
		if d, ok := c.drivers[provider]; ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDriverNotFound, provider)
}

func (c *Core) Prepare(ctx context.Context, provider launcher.Provider, req *PrepareRequest) error {
	driver, err := c.driver(provider)
	if err != nil {
		return err
	}
	return driver.Prepare(ctx, req, c.bus)
}

func (c *Core) Launch(ctx context.Context, provider launcher.Provider, req *LaunchRequest) error {
	driver, err := c.driver(provider)
	if err != nil {
		return err
	}
	return driver.Launch(ctx, req, c.bus)
}
