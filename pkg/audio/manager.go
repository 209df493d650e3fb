// Package audio renders feedback ticks through the speaker using gopxl/beep.
// It is one of the thin platform adapters behind the pacing core; the core
// itself never touches a device API.
package audio

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"ghostpace/pkg/config"
	"ghostpace/pkg/model"
)

// Manager implements the audio side of the feedback contract: a looping
// ambient bed whose volume fades toward the tick's target, and one-shot
// cues fired by name.
type Manager struct {
	mu sync.Mutex

	cfg   config.AudioConfig
	focus Focus

	speakerInitialized bool
	currentSampleRate  beep.SampleRate
	focusHeld          bool

	buffers map[string]*beep.Buffer

	ambientCtrl *beep.Ctrl
	ambientVol  *effects.Volume
	ambientCur  float64

	cueCtrls map[string]*beep.Ctrl
	cueBusy  map[string]bool
}

// New creates a manager. A nil focus gets a no-op implementation.
func New(cfg config.AudioConfig, focus Focus) *Manager {
	if focus == nil {
		focus = noopFocus{}
	}
	if cfg.FadeStep <= 0 {
		cfg.FadeStep = 0.15
	}
	m := &Manager{
		cfg:      cfg,
		focus:    focus,
		buffers:  make(map[string]*beep.Buffer),
		cueCtrls: make(map[string]*beep.Ctrl),
		cueBusy:  make(map[string]bool),
	}
	focus.OnRevoked(func() {
		slog.Warn("Audio: focus revoked by platform, tearing down")
		m.Teardown()
	})
	return m
}

// Apply renders one feedback tick: ambient fade plus any cue triggers.
// A Stop tick tears everything down.
func (m *Manager) Apply(tick model.FeedbackTick) {
	if !m.cfg.Enabled {
		return
	}
	if tick.Stop {
		m.Teardown()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.fadeAmbientLocked(tick.AmbientTarget)
	for _, cue := range tick.Cues {
		if err := m.fireCueLocked(cue); err != nil {
			slog.Warn("Audio: cue failed", "cue", cue.Name, "error", err)
		}
	}
}

// Teardown stops all channels and releases audio focus. Safe to call twice.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.speakerInitialized {
		return
	}
	speaker.Clear()
	m.ambientCtrl = nil
	m.ambientVol = nil
	m.ambientCur = 0
	m.cueCtrls = make(map[string]*beep.Ctrl)
	m.cueBusy = make(map[string]bool)
	if m.focusHeld {
		m.focus.Release()
		m.focusHeld = false
	}
	slog.Debug("Audio: teardown complete")
}

// AmbientVolume returns the current (post-fade) ambient volume.
func (m *Manager) AmbientVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ambientCur
}

// fadeAmbientLocked moves the ambient volume one step toward target. The
// coordinator only supplies targets; fading here keeps the core free of
// timer primitives.
func (m *Manager) fadeAmbientLocked(target float64) {
	next := fadeStep(m.ambientCur, target, m.cfg.FadeStep)
	if next == m.ambientCur {
		return
	}

	if next > 0 && m.ambientCtrl == nil {
		if err := m.startAmbientLocked(); err != nil {
			slog.Warn("Audio: ambient bed unavailable", "error", err)
			return
		}
	}
	m.ambientCur = next

	if m.ambientVol != nil {
		speaker.Lock()
		m.ambientVol.Volume = volumeToPower(next)
		m.ambientVol.Silent = next <= 0.01
		speaker.Unlock()
	}
}

func (m *Manager) startAmbientLocked() error {
	buf, err := m.bufferLocked(m.cfg.AmbientFile)
	if err != nil {
		return err
	}
	if err := m.ensureSpeakerLocked(); err != nil {
		return err
	}
	if err := m.acquireFocusLocked(); err != nil {
		return err
	}

	loop := beep.Loop(-1, buf.Streamer(0, buf.Len()))
	resampled := beep.Resample(3, buf.Format().SampleRate, m.currentSampleRate, loop)
	vol := &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeToPower(0),
		Silent:   true,
	}
	ctrl := &beep.Ctrl{Streamer: vol}

	m.ambientCtrl = ctrl
	m.ambientVol = vol
	speaker.Play(ctrl)
	slog.Debug("Audio: ambient bed started", "file", m.cfg.AmbientFile)
	return nil
}

func (m *Manager) fireCueLocked(cue model.CueTrigger) error {
	path, ok := m.cfg.CueFiles[cue.Name]
	if !ok {
		return fmt.Errorf("no asset configured for cue %q", cue.Name)
	}
	buf, err := m.bufferLocked(path)
	if err != nil {
		return err
	}
	if err := m.ensureSpeakerLocked(); err != nil {
		return err
	}
	if err := m.acquireFocusLocked(); err != nil {
		return err
	}

	// Retrigger: mute the previous instance instead of overlapping it.
	if prev, ok := m.cueCtrls[cue.Name]; ok && m.cueBusy[cue.Name] {
		if !cue.Retrigger {
			// Cue still sounding and no restart requested: skip.
			return nil
		}
		speaker.Lock()
		prev.Paused = true
		speaker.Unlock()
	}

	resampled := beep.Resample(3, buf.Format().SampleRate, m.currentSampleRate, buf.Streamer(0, buf.Len()))
	vol := &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeToPower(cue.Intensity),
		Silent:   cue.Intensity <= 0.01,
	}
	ctrl := &beep.Ctrl{Streamer: vol}
	m.cueCtrls[cue.Name] = ctrl
	m.cueBusy[cue.Name] = true

	name := cue.Name
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		go func() {
			m.mu.Lock()
			if m.cueCtrls[name] == ctrl {
				m.cueBusy[name] = false
			}
			m.mu.Unlock()
		}()
	})))
	slog.Debug("Audio: cue fired", "cue", cue.Name, "intensity", cue.Intensity, "retrigger", cue.Retrigger)
	return nil
}

func (m *Manager) ensureSpeakerLocked() error {
	const targetSampleRate = 48000
	if m.speakerInitialized {
		return nil
	}
	err := speaker.Init(beep.SampleRate(targetSampleRate), beep.SampleRate(targetSampleRate).N(time.Second/10))
	if err != nil {
		slog.Error("Failed to initialize speaker", "error", err)
		return err
	}
	m.speakerInitialized = true
	m.currentSampleRate = beep.SampleRate(targetSampleRate)
	return nil
}

func (m *Manager) acquireFocusLocked() error {
	if m.focusHeld {
		return nil
	}
	if err := m.focus.Acquire(); err != nil {
		return fmt.Errorf("audio focus denied: %w", err)
	}
	m.focusHeld = true
	return nil
}

// bufferLocked loads and caches a decoded asset.
func (m *Manager) bufferLocked(path string) (*beep.Buffer, error) {
	if buf, ok := m.buffers[path]; ok {
		return buf, nil
	}

	streamer, format, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	m.buffers[path] = buf
	return buf, nil
}

// decodeFile opens an asset, trying WAV first and MP3 second.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err := wav.Decode(f)
	if err == nil {
		return streamer, format, nil
	}

	// Reopen for the MP3 attempt; a failed decode leaves file state uncertain.
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err = mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("undecodable audio asset %s: %w", path, err)
	}
	return streamer, format, nil
}
