// Package autofetch manages the server-side recurring-fetch flag. The
// toggle is optimistic: the flag flips immediately and rolls back if the
// server call fails. A 403 means the user may not see the control at all,
// which hides it for the rest of the session.
package autofetch

import (
	"context"
	"log"
	"sync"
	"time"

	"newsdesk/internal/api"
)

// State is the client's view of the auto-fetch feature.
type State struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
	// Visible is false once any call has come back 403; it never becomes
	// true again within the session.
	Visible bool `json:"visible"`
}

// Controller owns the auto-fetch state for one session.
type Controller struct {
	client *api.Client

	// mu serializes toggles and state reads. It is held across the
	// toggle's server call so two toggles cannot interleave.
	mu    sync.Mutex
	state State
}

func New(client *api.Client) *Controller {
	return &Controller{
		client: client,
		state:  State{Visible: true},
	}
}

// State returns the current auto-fetch state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load fetches the authoritative state from the server. A 403 hides the
// control permanently for the session; any other failure leaves the state
// as it was.
func (c *Controller) Load(ctx context.Context) error {
	status, err := c.client.GetAutoFetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if api.IsPermissionDenied(err) {
			c.state.Visible = false
		}
		return err
	}
	c.state.Enabled = status.Enabled
	c.state.Interval = time.Duration(status.IntervalSeconds) * time.Second
	return nil
}

// LoadSilent is Load for background initialization: errors are logged, not
// returned.
func (c *Controller) LoadSilent(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		log.Printf("autofetch: load state: %v", err)
	}
}

// Toggle optimistically flips the enabled flag, calls the matching server
// endpoint, and rolls the flip back on failure. On success the interval is
// reconciled from the server's authoritative intervalSeconds.
func (c *Controller) Toggle(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := !c.state.Enabled
	var status *api.AutoFetchStatus
	err := optimistic(&c.state.Enabled, target, func() error {
		var callErr error
		status, callErr = c.client.SetAutoFetch(ctx, target)
		return callErr
	})
	if err != nil {
		if api.IsPermissionDenied(err) {
			c.state.Visible = false
		}
		return c.state, err
	}

	if status.IntervalSeconds > 0 {
		c.state.Interval = time.Duration(status.IntervalSeconds) * time.Second
	}
	return c.state, nil
}

// optimistic applies next to target before running call, and restores the
// prior value when call fails. The snapshot-apply-restore shape is reusable
// for any optimistic flag.
func optimistic[T any](target *T, next T, call func() error) error {
	prev := *target
	*target = next
	if err := call(); err != nil {
		*target = prev
		return err
	}
	return nil
}
