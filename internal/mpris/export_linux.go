// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

//go:build linux

package mpris

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/player"
)

// volumeTimeout bounds the initial mycroft.volume.get round trip.
const volumeTimeout = 500 * time.Millisecond

// noTrackPath is the MPRIS sentinel track id for an empty player.
const noTrackPath = dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")

// Export publishes OCP itself as org.mpris.MediaPlayer2.OCP so desktop
// media controls drive our playback. Transport methods delegate to the
// player; property pushes follow player change events.
type Export struct {
	bus bus.Conn
	p   *player.Player
	cfg *config.Config

	mu    sync.Mutex
	props *prop.Properties
}

// NewExport wires the export against the player. The change listener is
// registered once here; it stays quiet until Serve has the name on the bus.
func NewExport(conn bus.Conn, p *player.Player, cfg *config.Config) *Export {
	e := &Export{bus: conn, p: p, cfg: cfg}
	p.AddListener(e.onEvent)
	return e
}

// Serve claims the MPRIS name and holds it until ctx is canceled.
// Implements the supervision tree service contract.
func (e *Export) Serve(ctx context.Context) error {
	if e.cfg.OCP.DisableMPRIS {
		logging.Info().Str("component", "mpris").Msg("export disabled by config")
		<-ctx.Done()
		return ctx.Err()
	}

	conn, err := connectBus(e.cfg.Media.DBusType)
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(exportName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already claimed: %w", exportName, media.ErrBridgeFatal)
	}
	defer conn.ReleaseName(exportName)

	if err := conn.Export(rootObject{e}, mprisPath, mprisRootIface); err != nil {
		return fmt.Errorf("export root: %w", err)
	}
	if err := conn.Export(playerObject{e}, mprisPath, mprisPlayerIface); err != nil {
		return fmt.Errorf("export player: %w", err)
	}

	props, err := prop.Export(conn, mprisPath, e.propsSpec())
	if err != nil {
		return fmt.Errorf("export props: %w", err)
	}

	e.mu.Lock()
	e.props = props
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.props = nil
		e.mu.Unlock()
	}()

	e.refreshVolume(ctx)
	e.push(e.p.Snapshot(), true)
	logging.Info().Str("component", "mpris").Str("name", exportName).Msg("exported as MPRIS player")

	<-ctx.Done()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (e *Export) String() string {
	return "mpris-export"
}

func (e *Export) propsSpec() map[string]map[string]*prop.Prop {
	return map[string]map[string]*prop.Prop{
		mprisRootIface: {
			"CanQuit":             {Value: false, Emit: prop.EmitTrue},
			"CanRaise":            {Value: false, Emit: prop.EmitTrue},
			"HasTrackList":        {Value: false, Emit: prop.EmitTrue},
			"Identity":            {Value: "OCP", Emit: prop.EmitTrue},
			"DesktopEntry":        {Value: "ocpd", Emit: prop.EmitTrue},
			"SupportedUriSchemes": {Value: []string{"file", "http", "https"}, Emit: prop.EmitTrue},
			"SupportedMimeTypes":  {Value: []string{"audio/mpeg", "audio/ogg", "audio/flac", "video/mp4"}, Emit: prop.EmitTrue},
		},
		mprisPlayerIface: {
			"PlaybackStatus": {Value: "Stopped", Emit: prop.EmitTrue},
			"LoopStatus":     {Value: "None", Writable: true, Emit: prop.EmitTrue, Callback: e.onLoopStatus},
			"Rate":           {Value: 1.0, Writable: true, Emit: prop.EmitTrue},
			"Shuffle":        {Value: false, Writable: true, Emit: prop.EmitTrue, Callback: e.onShuffle},
			"Metadata":       {Value: map[string]dbus.Variant{"mpris:trackid": dbus.MakeVariant(noTrackPath)}, Emit: prop.EmitTrue},
			"Volume":         {Value: 1.0, Writable: true, Emit: prop.EmitTrue, Callback: e.onVolume},
			"Position":       {Value: int64(0), Emit: prop.EmitFalse},
			"MinimumRate":    {Value: 1.0, Emit: prop.EmitTrue},
			"MaximumRate":    {Value: 1.0, Emit: prop.EmitTrue},
			"CanGoNext":      {Value: true, Emit: prop.EmitTrue},
			"CanGoPrevious":  {Value: true, Emit: prop.EmitTrue},
			"CanPlay":        {Value: true, Emit: prop.EmitTrue},
			"CanPause":       {Value: true, Emit: prop.EmitTrue},
			"CanSeek":        {Value: true, Emit: prop.EmitTrue},
			"CanControl":     {Value: true, Emit: prop.EmitTrue},
		},
	}
}

// refreshVolume pulls the assistant volume once so the exported Volume
// starts truthful. No reply within the timeout keeps the default.
func (e *Export) refreshVolume(ctx context.Context) {
	resp, err := e.bus.WaitForResponse(ctx, bus.New(bus.TypeVolumeGet, nil), volumeTimeout)
	if err != nil {
		logging.Debug().Str("component", "mpris").Err(err).Msg("volume query unanswered")
		return
	}
	var data struct {
		Percent float64 `json:"percent"`
	}
	if err := resp.DecodeData(&data); err != nil {
		return
	}
	e.setProp("Volume", data.Percent)
}

// onEvent pushes player changes into the exported property map.
func (e *Export) onEvent(ev player.Event) {
	full := ev.Kind != player.EventPosition
	e.push(ev.Snapshot, full)
}

func (e *Export) push(s player.Snapshot, full bool) {
	e.mu.Lock()
	props := e.props
	e.mu.Unlock()
	if props == nil {
		return
	}

	e.setProp("Position", s.Position*1000)
	if !full {
		return
	}

	e.setProp("PlaybackStatus", playbackStatusFor(s.PlayerState))
	e.setProp("LoopStatus", loopStatusFor(s.LoopState))
	e.setProp("Shuffle", s.Shuffle)
	e.setProp("Metadata", exportMetadata(s))
	e.setProp("CanGoNext", s.PlaylistSize > 0 && (s.PlaylistPos+1 < s.PlaylistSize || s.LoopState != "NONE" || s.Shuffle))
	e.setProp("CanGoPrevious", s.PlaylistPos > 0 || s.Shuffle)
}

func (e *Export) setProp(name string, value any) {
	e.mu.Lock()
	props := e.props
	e.mu.Unlock()
	if props == nil {
		return
	}
	// SetMust is the internal setter: no writable check, no callback
	// re-entry, still emits PropertiesChanged.
	props.SetMust(mprisPlayerIface, name, value)
}

// playbackStatusFor maps a snapshot player state onto the MPRIS string.
func playbackStatusFor(state string) string {
	switch state {
	case media.PlayerPlaying.String():
		return "Playing"
	case media.PlayerPaused.String():
		return "Paused"
	default:
		return "Stopped"
	}
}

// loopStatusFor maps a snapshot loop state onto the MPRIS string.
func loopStatusFor(loop string) string {
	switch loop {
	case media.LoopRepeatTrack.String():
		return "Track"
	case media.LoopRepeatPlaylist.String():
		return "Playlist"
	default:
		return "None"
	}
}

// exportMetadata builds the MPRIS metadata dictionary for the now playing
// entry. Empty fields stay out of the map.
func exportMetadata(s player.Snapshot) map[string]dbus.Variant {
	entry := s.NowPlaying
	if entry.IsEmpty() {
		return map[string]dbus.Variant{"mpris:trackid": dbus.MakeVariant(noTrackPath)}
	}
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpris/MediaPlayer2/ocp/track/" + strconv.Itoa(s.PlaylistPos+1))),
		"xesam:url":     dbus.MakeVariant(entry.URI),
	}
	if entry.Title != "" {
		md["xesam:title"] = dbus.MakeVariant(entry.Title)
	}
	if entry.Album != "" {
		md["xesam:album"] = dbus.MakeVariant(entry.Album)
	}
	if entry.Artist != "" {
		md["xesam:artist"] = dbus.MakeVariant([]string{entry.Artist})
	}
	if entry.Image != "" {
		md["mpris:artUrl"] = dbus.MakeVariant(entry.Image)
	}
	if s.Length > 0 {
		md["mpris:length"] = dbus.MakeVariant(s.Length * 1000)
	}
	return md
}

// Writable property callbacks.

func (e *Export) onShuffle(c *prop.Change) *dbus.Error {
	if on, ok := c.Value.(bool); ok {
		e.p.SetShuffle(on)
	}
	return nil
}

func (e *Export) onLoopStatus(c *prop.Change) *dbus.Error {
	if s, ok := c.Value.(string); ok {
		e.p.SetLoop(loopFromMPRIS(s))
	}
	return nil
}

func (e *Export) onVolume(c *prop.Change) *dbus.Error {
	v, ok := c.Value.(float64)
	if !ok {
		return nil
	}
	if v < 0 {
		v = 0
	}
	if err := e.bus.Emit(bus.New(bus.TypeVolumeSet, map[string]float64{"percent": v})); err != nil {
		logging.Warn().Str("component", "mpris").Err(err).Msg("volume set emit failed")
	}
	return nil
}

// rootObject is the org.mpris.MediaPlayer2 method surface. OCP is headless,
// so Raise and Quit accept and ignore.
type rootObject struct {
	e *Export
}

func (rootObject) Raise() *dbus.Error { return nil }

func (rootObject) Quit() *dbus.Error { return nil }

// playerObject is the org.mpris.MediaPlayer2.Player method surface.
type playerObject struct {
	e *Export
}

func (o playerObject) Next() *dbus.Error {
	o.e.p.PlayNext()
	return nil
}

func (o playerObject) Previous() *dbus.Error {
	o.e.p.PlayPrev()
	return nil
}

func (o playerObject) Pause() *dbus.Error {
	o.e.p.Pause()
	return nil
}

func (o playerObject) PlayPause() *dbus.Error {
	if o.e.p.State() == media.PlayerPlaying {
		o.e.p.Pause()
	} else {
		o.e.p.Resume()
	}
	return nil
}

func (o playerObject) Play() *dbus.Error {
	o.e.p.Resume()
	return nil
}

// Stop pauses instead of stopping so the desktop control cannot tear down
// the playlist state. Matches the long-standing OCP behavior.
func (o playerObject) Stop() *dbus.Error {
	o.e.p.Pause()
	return nil
}

// Seek moves relative; the offset arrives in microseconds.
func (o playerObject) Seek(offset int64) *dbus.Error {
	o.e.p.Seek(float64(offset)/1e6, true)
	return nil
}

// SetPosition jumps absolute; position arrives in microseconds.
func (o playerObject) SetPosition(_ dbus.ObjectPath, position int64) *dbus.Error {
	o.e.p.SetPosition(position / 1000)
	return nil
}

func (o playerObject) OpenUri(uri string) *dbus.Error {
	entry := media.NewMediaEntry(uri)
	entry.Playback = media.PlaybackAudio
	if err := o.e.p.PlayEntries([]media.MediaEntry{entry}); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}
