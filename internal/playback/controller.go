package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/google/uuid"
)

const (
	DefaultConnectTimeout = 8 * time.Second
	DefaultSuppressWindow = 500 * time.Millisecond
	DefaultTickInterval   = time.Second

	loopThreshold = 1000
)

// PlayerAPI issues Web API player calls against /me/player/{action}.
type PlayerAPI interface {
	PlayerCommand(ctx context.Context, method, action string, params url.Values, body any) error
}

// Options configures a [Controller]. Zero values get defaults.
type Options struct {
	// Logout is called when the device fails or a command is rejected with 401.
	Logout         func() error
	Logger         *log.Logger
	Now            func() time.Time
	ConnectTimeout time.Duration
	SuppressWindow time.Duration
	TickInterval   time.Duration
}

// Controller owns one device connection and the local playback mirror.
type Controller struct {
	id        string
	device    Device
	transport Transport
	api       PlayerAPI
	opts      Options
	logger    *log.Logger

	mu          sync.Mutex
	state       State
	queue       Queue
	sup         suppression
	loopTrack   string
	loopHandled bool
	started     bool
	ready       chan struct{}
	failed      chan error
	cancel      context.CancelFunc
	ctx         context.Context
	wg          sync.WaitGroup

	subMu sync.Mutex
	subs  map[chan State]struct{}
}

// NewController binds device, preferring its native [Transport] when it has one.
func NewController(device Device, api PlayerAPI, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.SuppressWindow <= 0 {
		opts.SuppressWindow = DefaultSuppressWindow
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	id := uuid.NewString()
	c := &Controller{
		id:     id,
		device: device,
		api:    api,
		opts:   opts,
		logger: shared.WithLogger(opts.Logger, "component", "playback", "conn", id[:8]),
		state:  initialState(),
		ctx:    context.Background(),
		subs:   map[chan State]struct{}{},
	}
	if t, ok := device.(Transport); ok {
		c.transport = t
	}
	return c
}

// Start connects the device and waits until it reports ready. Calls after the
// first return immediately, or return the stored error when that attempt
// failed. A device error, a not_ready event or the connect deadline moves the
// controller to Error and logs the session out. Cancelling ctx abandons the
// attempt and leaves the controller Disconnected with the session intact.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		err := c.state.Err
		if c.state.Status == StatusError && err == nil {
			err = shared.ErrDeviceFatal
		}
		c.mu.Unlock()
		return err
	}
	c.started = true
	runCtx, cancel := context.WithCancel(context.Background())
	c.ctx, c.cancel = runCtx, cancel
	c.ready = make(chan struct{})
	c.failed = make(chan error, 1)
	c.state = initialState()
	c.state.Status = StatusConnecting
	c.mu.Unlock()
	c.publish()

	for _, kind := range []EventKind{
		EventReady, EventNotReady, EventStateChanged,
		EventInitializationError, EventAuthenticationError, EventAccountError,
	} {
		c.device.On(kind, c.handleEvent)
	}

	connectCtx, stop := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer stop()

	c.logger.Debug("connecting device", "timeout", c.opts.ConnectTimeout)
	if err := c.device.Connect(connectCtx); err != nil {
		if ctx.Err() != nil {
			return c.abort(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: device not ready after %s", shared.ErrTimeout, c.opts.ConnectTimeout)
		}
		return c.fail(fmt.Errorf("%w: %w", shared.ErrDeviceFatal, err))
	}

	c.mu.Lock()
	ready, failed := c.ready, c.failed
	c.mu.Unlock()

	select {
	case <-ready:
	case err := <-failed:
		return err
	case <-connectCtx.Done():
		if ctx.Err() != nil {
			return c.abort(ctx.Err())
		}
		return c.fail(fmt.Errorf("%w: %w: device not ready after %s", shared.ErrDeviceFatal, shared.ErrTimeout, c.opts.ConnectTimeout))
	}

	return nil
}

// Run calls Tick every TickInterval until ctx ends or the connection is
// closed or fails.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	done := c.ctx.Done()
	c.mu.Unlock()

	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

func (c *Controller) handleEvent(e Event) {
	switch {
	case e.Kind == EventReady:
		c.onReady(e.DeviceID)
	case e.Kind == EventStateChanged:
		c.onState(e.State)
	case e.Kind.Fatal():
		err := e.Err
		if err == nil {
			err = shared.ErrDeviceNotReady
		}
		c.fail(fmt.Errorf("%w: %s: %v", shared.ErrDeviceFatal, e.Kind, err))
	}
}

func (c *Controller) onReady(deviceID string) {
	if deviceID == "" {
		c.logger.Warn("ready event without device id")
		return
	}

	c.mu.Lock()
	if c.state.Status != StatusConnecting {
		c.mu.Unlock()
		return
	}
	c.state.Status = StatusReady
	c.state.DeviceID = deviceID
	close(c.ready)
	c.mu.Unlock()

	c.logger.Info("device ready", "device_id", deviceID)
	c.publish()
}

func (c *Controller) onState(ds *DeviceState) {
	if ds == nil {
		return
	}

	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.state = reduce(c.state, ds, c.sup, c.opts.Now())
	if ds.Track != nil {
		c.queue.Sync(ds.Track.URI)
	}
	restart := c.checkLoop()
	ctx := c.ctx
	if restart {
		// Close cancels ctx under mu before it waits.
		c.wg.Add(1)
	}
	c.mu.Unlock()

	c.publish()
	if restart {
		go func() {
			defer c.wg.Done()
			c.restartTrack(ctx)
		}()
	}
}

// abort abandons a connection attempt whose caller went away. The session is
// left alone and a later Start may try again.
func (c *Controller) abort(err error) error {
	c.mu.Lock()
	if c.state.Status != StatusConnecting {
		c.mu.Unlock()
		return err
	}
	c.state = initialState()
	c.state.Status = StatusDisconnected
	c.started = false
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	if derr := c.device.Disconnect(); derr != nil {
		c.logger.Warn("disconnect failed", "error", derr)
	}
	c.logger.Info("connection abandoned", "reason", err)
	c.publish()
	return err
}

// fail moves to Error and calls Logout once per connection.
func (c *Controller) fail(err error) error {
	c.mu.Lock()
	if c.state.Status == StatusError || c.state.Status == StatusDisconnected {
		c.mu.Unlock()
		return err
	}
	c.state.Status = StatusError
	c.state.Err = err
	if c.cancel != nil {
		c.cancel()
	}
	failed := c.failed
	c.mu.Unlock()

	select {
	case failed <- err:
	default:
	}

	c.logger.Error("playback failed", "error", err)
	c.publish()

	if c.opts.Logout != nil {
		if lerr := c.opts.Logout(); lerr != nil {
			c.logger.Warn("logout failed", "error", lerr)
		}
	}
	return err
}

// check passes err through, failing the connection on 401.
func (c *Controller) check(action string, err error) error {
	if err == nil {
		return nil
	}
	if services.StatusCode(err) == http.StatusUnauthorized {
		return c.fail(fmt.Errorf("%w: %s: %v", shared.ErrNotAuthenticated, action, err))
	}
	c.logger.Warn("command failed", "action", action, "error", err)
	return fmt.Errorf("%s failed: %w", action, err)
}

// command sends a Web API player call addressed at the bound device.
func (c *Controller) command(ctx context.Context, method, action string, params url.Values, body any) error {
	c.mu.Lock()
	deviceID := c.state.DeviceID
	c.mu.Unlock()

	if params == nil {
		params = url.Values{}
	}
	if deviceID != "" {
		params.Set("device_id", deviceID)
	}
	return c.check(action, c.api.PlayerCommand(ctx, method, action, params, body))
}

type playOffset struct {
	Position int `json:"position"`
}

type playBody struct {
	URIs   []string    `json:"uris"`
	Offset *playOffset `json:"offset,omitempty"`
}

// Play starts uri. With a list of uris the queue becomes that list at offset;
// otherwise the queue is just uri.
func (c *Controller) Play(ctx context.Context, uri string, uris []string, offset int) error {
	if uri == "" {
		return nil
	}

	var body playBody
	c.mu.Lock()
	if len(uris) > 0 {
		c.queue = NewQueue(uris, offset)
		body = playBody{URIs: c.queue.URIs, Offset: &playOffset{Position: c.queue.Offset}}
	} else {
		c.queue = NewQueue([]string{uri}, 0)
		body = playBody{URIs: c.queue.URIs}
	}
	c.mu.Unlock()
	c.publish()

	return c.command(ctx, http.MethodPut, "play", nil, body)
}

// TogglePlay pauses or resumes.
func (c *Controller) TogglePlay(ctx context.Context) error {
	if c.transport != nil {
		return c.check("toggle", c.transport.TogglePlay(ctx))
	}

	c.mu.Lock()
	paused := c.state.Paused
	c.mu.Unlock()

	action := "pause"
	if paused {
		action = "play"
	}
	if err := c.command(ctx, http.MethodPut, action, nil, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.state.Paused = !paused
	c.mu.Unlock()
	c.publish()
	return nil
}

// NextTrack advances within the queue when it has room, else asks the device.
func (c *Controller) NextTrack(ctx context.Context) error {
	if ok, err := c.step(ctx, Queue.Next); ok {
		return err
	}
	if c.transport != nil {
		return c.check("next", c.transport.NextTrack(ctx))
	}
	return c.command(ctx, http.MethodPost, "next", nil, nil)
}

// PreviousTrack moves back within the queue when it has room, else asks the device.
func (c *Controller) PreviousTrack(ctx context.Context) error {
	if ok, err := c.step(ctx, Queue.Prev); ok {
		return err
	}
	if c.transport != nil {
		return c.check("previous", c.transport.PreviousTrack(ctx))
	}
	return c.command(ctx, http.MethodPost, "previous", nil, nil)
}

func (c *Controller) step(ctx context.Context, move func(Queue) (int, bool)) (bool, error) {
	c.mu.Lock()
	offset, ok := move(c.queue)
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	c.queue.Offset = offset
	uris := c.queue.clone().URIs
	c.mu.Unlock()

	return true, c.Play(ctx, uris[offset], uris, offset)
}

// ChangeVolume sets the volume percentage, clamped to 0..100.
func (c *Controller) ChangeVolume(ctx context.Context, percent int) error {
	percent = max(0, min(percent, 100))

	c.mu.Lock()
	c.state.Volume = percent
	c.mu.Unlock()
	c.publish()

	if c.transport != nil {
		return c.check("volume", c.transport.SetVolume(ctx, percent))
	}
	return c.command(ctx, http.MethodPut, "volume", url.Values{"volume_percent": {strconv.Itoa(percent)}}, nil)
}

// Seek jumps to positionMS. Device reports inside the suppression window
// do not move the position back.
func (c *Controller) Seek(ctx context.Context, positionMS int) error {
	c.mu.Lock()
	positionMS = max(0, positionMS)
	if c.state.Duration > 0 {
		positionMS = min(positionMS, c.state.Duration)
	}
	c.state.Position = positionMS
	c.sup.positionUntil = c.opts.Now().Add(c.opts.SuppressWindow)
	c.mu.Unlock()
	c.publish()

	if c.transport != nil {
		return c.check("seek", c.transport.Seek(ctx, positionMS))
	}
	return c.command(ctx, http.MethodPut, "seek", url.Values{"position_ms": {strconv.Itoa(positionMS)}}, nil)
}

// ToggleRepeat cycles the repeat mode. Device reports are ignored while the
// call is in flight and for the suppression window after it lands. On failure
// the previous mode is restored.
func (c *Controller) ToggleRepeat(ctx context.Context) (RepeatMode, error) {
	c.mu.Lock()
	prev := c.state.Repeat
	next := prev.Next()
	c.state.Repeat = next
	c.sup.repeatInFlight++
	c.mu.Unlock()
	c.publish()

	err := c.command(ctx, http.MethodPut, "repeat", url.Values{"state": {string(next)}}, nil)

	c.mu.Lock()
	c.sup.repeatInFlight--
	if err != nil {
		c.state.Repeat = prev
		c.sup.repeatUntil = time.Time{}
	} else {
		c.sup.repeatUntil = c.opts.Now().Add(c.opts.SuppressWindow)
	}
	mode := c.state.Repeat
	c.mu.Unlock()
	c.publish()

	return mode, err
}

// Tick advances the local position by one interval while playing and restarts
// the track at its end when repeating a single track.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.state.Status != StatusReady {
		c.mu.Unlock()
		return
	}
	c.state = advance(c.state, c.opts.TickInterval)
	restart := c.checkLoop()
	c.mu.Unlock()

	c.publish()
	if restart {
		c.restartTrack(ctx)
	}
}

// checkLoop reports whether the current track end should be replayed. The
// handled flag clears on a new track or once the position leaves the end.
// Callers hold c.mu.
func (c *Controller) checkLoop() bool {
	st := c.state
	if st.Track == nil || st.Duration == 0 {
		return false
	}
	if st.Track.URI != c.loopTrack {
		c.loopTrack = st.Track.URI
		c.loopHandled = false
	}
	if st.Position < st.Duration-loopThreshold {
		c.loopHandled = false
		return false
	}
	if st.Repeat != RepeatTrack || st.Paused || c.loopHandled {
		return false
	}
	c.loopHandled = true
	return true
}

func (c *Controller) restartTrack(ctx context.Context) {
	c.logger.Debug("restarting track")
	if err := c.Seek(ctx, 0); err != nil {
		c.mu.Lock()
		c.loopHandled = false
		c.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Queue = c.queue.clone()
	return st
}

// Subscribe returns a channel holding the latest state after each change and
// a function that ends the subscription.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.subMu.Lock()
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
		})
	}
}

// publish replaces any unread state in each subscriber's buffer.
func (c *Controller) publish() {
	st := c.Snapshot()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

// Close stops background work, disconnects the device and resets the state.
// It is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	wasStarted := c.started
	c.started = false
	c.mu.Unlock()

	c.wg.Wait()

	var err error
	if wasStarted {
		err = c.device.Disconnect()
	}

	c.mu.Lock()
	c.state = initialState()
	c.state.Status = StatusDisconnected
	c.queue = Queue{}
	c.sup = suppression{}
	c.loopTrack, c.loopHandled = "", false
	c.mu.Unlock()
	c.publish()

	c.subMu.Lock()
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
	c.subMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to disconnect device: %w", err)
	}
	return nil
}
