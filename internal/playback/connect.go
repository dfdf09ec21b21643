package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

var (
	_ Device    = (*ConnectDevice)(nil)
	_ Transport = (*ConnectDevice)(nil)
)

// NewClient returns a Web API client authorized by ts. baseURL overrides the
// default API root when set.
func NewClient(ctx context.Context, ts oauth2.TokenSource, baseURL string) *spotify.Client {
	var opts []spotify.ClientOption
	if baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}
	return spotify.New(oauth2.NewClient(ctx, ts), opts...)
}

// DeviceInfo describes a Spotify Connect device.
type DeviceInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
	Volume int    `json:"volume"`
}

// ListDevices returns the devices visible to the account.
func ListDevices(ctx context.Context, client *spotify.Client) ([]DeviceInfo, error) {
	devices, err := client.PlayerDevices(ctx)
	if err != nil {
		return nil, apiError(err)
	}

	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceInfo{
			ID:     string(d.ID),
			Name:   d.Name,
			Type:   d.Type,
			Active: d.Active,
			Volume: int(d.Volume),
		})
	}
	return out, nil
}

// ConnectDevice drives a Spotify Connect device through the Web API. It
// resolves the device by name, or takes the active one when name is empty,
// then polls the player state and reports it while the device is active.
type ConnectDevice struct {
	client   *spotify.Client
	name     string
	interval time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	handlers map[EventKind][]func(Event)
	deviceID spotify.ID
	playing  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewConnectDevice creates a device bound to name that polls every interval.
func NewConnectDevice(client *spotify.Client, name string, interval time.Duration, logger *log.Logger) *ConnectDevice {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &ConnectDevice{
		client:   client,
		name:     name,
		interval: interval,
		logger:   shared.WithLogger(logger, "component", "connect", "device", name),
		handlers: map[EventKind][]func(Event){},
	}
}

func (d *ConnectDevice) On(kind EventKind, fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], fn)
}

func (d *ConnectDevice) emit(e Event) {
	d.mu.Lock()
	handlers := append([]func(Event){}, d.handlers[e.Kind]...)
	d.mu.Unlock()

	for _, fn := range handlers {
		fn(e)
	}
}

// Connect polls the device list until the device appears or ctx ends, emits
// ready and starts state polling.
func (d *ConnectDevice) Connect(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		dev, err := d.find(ctx)
		if err != nil {
			d.emit(Event{Kind: errorKind(err, EventInitializationError), Err: err})
			return err
		}
		if dev != nil {
			d.bind(ctx, dev)
			return nil
		}

		d.logger.Debug("waiting for device")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *ConnectDevice) find(ctx context.Context) (*spotify.PlayerDevice, error) {
	devices, err := d.client.PlayerDevices(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	for i := range devices {
		dev := &devices[i]
		if d.name == "" && dev.Active {
			return dev, nil
		}
		if d.name != "" && strings.EqualFold(dev.Name, d.name) {
			return dev, nil
		}
	}
	return nil, nil
}

// bind takes dev as the controlled device. The current play state is read
// once so a toggle before the first poll goes the right way.
func (d *ConnectDevice) bind(ctx context.Context, dev *spotify.PlayerDevice) {
	playing := false
	if state, err := d.client.PlayerState(ctx); err != nil {
		d.logger.Warn("player state unavailable", "error", apiError(err))
	} else if state != nil && state.Device.ID == dev.ID {
		playing = state.Playing
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	d.mu.Lock()
	d.deviceID = dev.ID
	d.playing = playing
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	d.logger.Info("device found", "id", dev.ID, "name", dev.Name)
	d.emit(Event{Kind: EventReady, DeviceID: string(dev.ID)})

	go d.poll(pollCtx, done)
}

func (d *ConnectDevice) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if stop := d.pollOnce(ctx); stop {
			return
		}
	}
}

// pollOnce reports the player state and returns true when polling should end.
func (d *ConnectDevice) pollOnce(ctx context.Context) bool {
	d.mu.Lock()
	id := d.deviceID
	d.mu.Unlock()

	state, err := d.client.PlayerState(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		err = apiError(err)
		switch services.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			d.emit(Event{Kind: errorKind(err, EventInitializationError), Err: err})
			return true
		}
		d.logger.Warn("player state unavailable", "error", err)
		return false
	}

	if state != nil && state.Device.ID == id {
		d.mu.Lock()
		d.playing = state.Playing
		d.mu.Unlock()
		d.emit(Event{Kind: EventStateChanged, State: deviceState(state)})
		return false
	}

	devices, err := d.client.PlayerDevices(ctx)
	if err != nil {
		d.logger.Warn("device list unavailable", "error", err)
		return false
	}
	for _, dev := range devices {
		if dev.ID == id {
			return false
		}
	}

	d.emit(Event{Kind: EventNotReady, Err: fmt.Errorf("%w: device %s went away", shared.ErrDeviceNotReady, id)})
	return true
}

// Disconnect stops polling and drops the event handlers.
func (d *ConnectDevice) Disconnect() error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.handlers = map[EventKind][]func(Event){}
	d.deviceID = ""
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (d *ConnectDevice) opts() *spotify.PlayOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.deviceID
	return &spotify.PlayOptions{DeviceID: &id}
}

func (d *ConnectDevice) TogglePlay(ctx context.Context) error {
	d.mu.Lock()
	playing := d.playing
	d.mu.Unlock()

	var err error
	if playing {
		err = d.client.PauseOpt(ctx, d.opts())
	} else {
		err = d.client.PlayOpt(ctx, d.opts())
	}
	if err != nil {
		return apiError(err)
	}

	d.mu.Lock()
	d.playing = !playing
	d.mu.Unlock()
	return nil
}

func (d *ConnectDevice) NextTrack(ctx context.Context) error {
	return apiError(d.client.NextOpt(ctx, d.opts()))
}

func (d *ConnectDevice) PreviousTrack(ctx context.Context) error {
	return apiError(d.client.PreviousOpt(ctx, d.opts()))
}

func (d *ConnectDevice) Seek(ctx context.Context, positionMS int) error {
	return apiError(d.client.SeekOpt(ctx, positionMS, d.opts()))
}

func (d *ConnectDevice) SetVolume(ctx context.Context, percent int) error {
	return apiError(d.client.VolumeOpt(ctx, percent, d.opts()))
}

// apiError converts a client error to [*services.APIError] so callers can
// read the status the same way for both transports.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var e spotify.Error
	if errors.As(err, &e) {
		return &services.APIError{Status: e.Status, Message: e.Message}
	}
	return err
}

func errorKind(err error, fallback EventKind) EventKind {
	switch services.StatusCode(err) {
	case http.StatusUnauthorized:
		return EventAuthenticationError
	case http.StatusForbidden:
		return EventAccountError
	}
	return fallback
}

func deviceState(s *spotify.PlayerState) *DeviceState {
	ds := &DeviceState{
		Paused:   !s.Playing,
		Position: int(s.Progress),
	}
	if mode, ok := ParseRepeatMode(s.RepeatState); ok {
		ds.Repeat = mode
	}
	vol := int(s.Device.Volume)
	ds.Volume = &vol

	if s.Item != nil {
		t := fullTrack(s.Item)
		ds.Track = &t
		ds.Duration = t.DurationMS
	}
	return ds
}

func fullTrack(t *spotify.FullTrack) models.Track {
	artists := make([]models.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.Artist{ID: string(a.ID), Name: a.Name, URI: string(a.URI)})
	}

	images := make([]models.Image, 0, len(t.Album.Images))
	for _, img := range t.Album.Images {
		images = append(images, models.Image{URL: img.URL, Width: int(img.Width), Height: int(img.Height)})
	}

	return models.Track{
		ID:         string(t.ID),
		URI:        string(t.URI),
		Name:       t.Name,
		Artists:    artists,
		DurationMS: int(t.Duration),
		Explicit:   t.Explicit,
		Album: models.Album{
			ID:     string(t.Album.ID),
			Name:   t.Album.Name,
			URI:    string(t.Album.URI),
			Images: images,
		},
	}
}
