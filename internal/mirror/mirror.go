package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrUnavailable = errors.New("cloud mirror unavailable")

// Filter narrows a Select. Zero values mean "no constraint".
type Filter struct {
	CompanyID *int64
	ID        *int64
	OrderBy   string
	Desc      bool
}

// Mirror is the remote copy of every entity table. All calls are fallible.
type Mirror interface {
	Available() bool
	Select(ctx context.Context, table string, filter Filter) ([]json.RawMessage, error)
	Insert(ctx context.Context, table string, row map[string]any) (json.RawMessage, error)
	Update(ctx context.Context, table string, id int64, patch map[string]any) (json.RawMessage, error)
	Delete(ctx context.Context, table string, id int64) error
	Ping(ctx context.Context) error
}

// APIError is a non-2xx answer from the mirror.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mirror %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("mirror %d: %s", e.Status, e.Message)
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Disabled is the mirror used when no credentials are configured.
type Disabled struct{}

func (Disabled) Available() bool { return false }

func (Disabled) Select(context.Context, string, Filter) ([]json.RawMessage, error) {
	return nil, ErrUnavailable
}

func (Disabled) Insert(context.Context, string, map[string]any) (json.RawMessage, error) {
	return nil, ErrUnavailable
}

func (Disabled) Update(context.Context, string, int64, map[string]any) (json.RawMessage, error) {
	return nil, ErrUnavailable
}

func (Disabled) Delete(context.Context, string, int64) error { return ErrUnavailable }

func (Disabled) Ping(context.Context) error { return ErrUnavailable }

// Connectivity is the device "online" flag. It is not a reachability check
// per call; a probe loop may refresh it.
type Connectivity struct {
	online atomic.Bool
}

func NewConnectivity(online bool) *Connectivity {
	c := &Connectivity{}
	c.online.Store(online)
	return c
}

func (c *Connectivity) Online() bool {
	if c == nil {
		return true
	}
	return c.online.Load()
}

func (c *Connectivity) Set(online bool) {
	c.online.Store(online)
}

// Probe pings the mirror every interval and updates the flag until ctx ends.
func (c *Connectivity) Probe(ctx context.Context, m Mirror, interval time.Duration, timeout time.Duration, logger logrus.FieldLogger) {
	if interval <= 0 || !m.Available() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			err := m.Ping(pingCtx)
			cancel()

			was := c.Online()
			c.Set(err == nil)
			if was != (err == nil) {
				logger.WithField("online", err == nil).WithError(err).Warn("mirror connectivity changed")
			}
		}
	}
}
