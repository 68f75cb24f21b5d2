// Package availability tracks which remote models the generation pipeline
// may use: the active text model (primary or fallback), whether speech
// synthesis is reachable, and whether the whole service has dropped into
// offline mode.
//
// Demotion from primary to fallback is one-directional within a session of
// live draws; only an explicit health check can promote back to primary.
// Offline mode is entered when both text probes fail a health check, or when
// a live generation call reports quota exhaustion, and left when a later
// health check passes.
package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/resonance/internal/devlog"
	"github.com/MrWong99/resonance/internal/persona"
	"github.com/MrWong99/resonance/pkg/provider/genai"
)

// probePrompt is the trivial request sent to every probed model.
const probePrompt = "healthcheck"

// Config names the models the monitor watches.
type Config struct {
	// PrimaryModel is the preferred text model.
	PrimaryModel string

	// FallbackModel is used after demotion. May equal PrimaryModel.
	FallbackModel string

	// SpeechModel is probed independently; its failure degrades audio but
	// never blocks text generation.
	SpeechModel string
}

// Status is the outcome of one health check.
type Status struct {
	// Available reports whether any text model answered.
	Available bool `json:"available"`

	// ActiveModel is the text model now in use, empty when unavailable.
	ActiveModel string `json:"activeModel"`

	// SpeechOK reports whether the speech probe succeeded.
	SpeechOK bool `json:"speechOk"`

	// Offline reports whether the service is in offline mode after the
	// check.
	Offline bool `json:"offline"`

	// IsQuotaError reports whether the failure was rate-limit shaped, so
	// clients can frame the switch to offline mode positively.
	IsQuotaError bool `json:"isQuotaError"`

	// Error describes the failure when Available is false.
	Error string `json:"error,omitempty"`
}

// Monitor is the availability state machine. Safe for concurrent use.
type Monitor struct {
	chat   genai.ChatProvider
	speech genai.SpeechProvider
	cfg    Config
	log    devlog.Sink
	logger *slog.Logger

	mu       sync.Mutex
	active   string
	offline  bool
	speechOK bool
	checked  bool
	lastErr  string
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithDevLog routes probe records to sink.
func WithDevLog(sink devlog.Sink) Option {
	return func(m *Monitor) { m.log = sink }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// NewMonitor creates a monitor starting on the primary model, not offline.
// Speech is assumed reachable until a probe says otherwise.
func NewMonitor(chat genai.ChatProvider, speech genai.SpeechProvider, cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		chat:     chat,
		speech:   speech,
		cfg:      cfg,
		log:      devlog.Discard,
		logger:   slog.Default(),
		active:   cfg.PrimaryModel,
		speechOK: true,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ActiveModel returns the text model live calls should use.
func (m *Monitor) ActiveModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Offline reports whether draws must be served from the local card source.
func (m *Monitor) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// SpeechOK reports the result of the last speech probe.
func (m *Monitor) SpeechOK() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speechOK
}

// SetOffline flips the service into offline mode. Called when a live
// generation call reports quota exhaustion.
func (m *Monitor) SetOffline(reason string) {
	m.mu.Lock()
	already := m.offline
	m.offline = true
	m.mu.Unlock()
	if !already {
		m.logger.Warn("availability: entering offline mode", "reason", reason)
	}
}

// Demote switches the active text model from primary to fallback. The switch
// is one-way; repeat calls are no-ops, and so is demoting while already on
// the fallback.
func (m *Monitor) Demote() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != m.cfg.PrimaryModel {
		return
	}
	m.logger.Warn("availability: demoting to fallback model",
		"from", m.cfg.PrimaryModel, "to", m.cfg.FallbackModel)
	m.active = m.cfg.FallbackModel
}

// CheckHealth probes the primary text model, then the fallback, then the
// speech model. A passing text probe promotes back to that model and leaves
// offline mode; failure of both text probes enters it.
func (m *Monitor) CheckHealth(ctx context.Context) Status {
	okPrimary, quotaPrimary := m.probeText(ctx, m.cfg.PrimaryModel)
	if okPrimary {
		return m.finishCheck(ctx, m.cfg.PrimaryModel, "", false)
	}
	okFallback, quotaFallback := m.probeText(ctx, m.cfg.FallbackModel)
	if okFallback {
		return m.finishCheck(ctx, m.cfg.FallbackModel, "", false)
	}
	return m.finishCheck(ctx, "",
		"both primary and fallback models are unavailable", quotaPrimary || quotaFallback)
}

// probeText issues one trivial generation against model and records the
// outcome. quota reports a rate-limit-shaped failure.
func (m *Monitor) probeText(ctx context.Context, model string) (ok, quota bool) {
	start := time.Now()
	_, err := m.chat.Generate(ctx, model, probePrompt)
	entry := devlog.Entry{
		Kind:       devlog.KindHealthCheck,
		RequestAt:  start,
		ResponseAt: time.Now(),
		Input:      "checking model: " + model,
	}
	if err != nil {
		entry.Error = err.Error()
		m.log.Record(entry)
		m.logger.Warn("availability: text probe failed", "model", model, "error", err)
		return false, genai.IsQuotaErr(err)
	}
	entry.Output = "success"
	m.log.Record(entry)
	return true, false
}

// finishCheck probes speech when a text model passed and commits the new
// state. A check with no passing text model enters offline mode.
func (m *Monitor) finishCheck(ctx context.Context, activeModel, errMsg string, quota bool) Status {
	speechOK := false
	if activeModel != "" {
		speechOK = m.probeSpeech(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = true
	m.speechOK = speechOK
	m.lastErr = errMsg
	if activeModel != "" {
		m.active = activeModel
		m.offline = false
		m.logger.Info("availability: health check passed",
			"activeModel", activeModel, "speechOk", speechOK)
	} else {
		m.offline = true
		m.logger.Error("availability: health check failed, entering offline mode",
			"error", errMsg, "quota", quota)
	}
	return Status{
		Available:    activeModel != "",
		ActiveModel:  activeModel,
		SpeechOK:     speechOK,
		Offline:      m.offline,
		IsQuotaError: quota,
		Error:        errMsg,
	}
}

// probeSpeech synthesizes the probe phrase. Failure never blocks text
// generation; cards just ship without audio.
func (m *Monitor) probeSpeech(ctx context.Context) bool {
	start := time.Now()
	_, err := m.speech.Synthesize(ctx, probePrompt, persona.DefaultVoice)
	entry := devlog.Entry{
		Kind:       devlog.KindHealthCheck,
		RequestAt:  start,
		ResponseAt: time.Now(),
		Input:      "checking model: " + m.cfg.SpeechModel,
	}
	if err != nil {
		entry.Error = err.Error()
		m.log.Record(entry)
		m.logger.Warn("availability: speech probe failed", "model", m.cfg.SpeechModel, "error", err)
		return false
	}
	entry.Output = "success"
	m.log.Record(entry)
	return true
}

// Ready reports readiness for serving draws: at least one completed health
// check, or offline mode (the local source can always serve).
func (m *Monitor) Ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return nil
	}
	if !m.checked {
		return errNotChecked
	}
	if m.lastErr != "" {
		return &unavailableError{msg: m.lastErr}
	}
	return nil
}

// Run re-checks health every interval until ctx is cancelled. An initial
// check runs immediately.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.CheckHealth(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckHealth(ctx)
		}
	}
}
