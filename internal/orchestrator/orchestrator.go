// Package orchestrator runs the card draw pipeline: deck selection, the
// card-front model call, auxiliary speech synthesis, detached card-back
// generation, and follow-up assembly for timed activities.
//
// One draw is in flight at a time. The front call is fully resolved before
// any auxiliary work starts; front and follow-up audio are then awaited in
// parallel, while back notes are generated on a detached goroutine and
// attached to the already-returned card.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/resonance/internal/availability"
	"github.com/MrWong99/resonance/internal/card"
	"github.com/MrWong99/resonance/internal/deck"
	"github.com/MrWong99/resonance/internal/devlog"
	"github.com/MrWong99/resonance/internal/observe"
	"github.com/MrWong99/resonance/internal/offline"
	"github.com/MrWong99/resonance/internal/parse"
	"github.com/MrWong99/resonance/internal/persona"
	"github.com/MrWong99/resonance/internal/session"
	"github.com/MrWong99/resonance/pkg/audio"
	"github.com/MrWong99/resonance/pkg/provider/genai"
)

const (
	// defaultTimeout bounds every model call in the draw pipeline.
	defaultTimeout = 20 * time.Second

	// maxHistory caps the in-memory draw history.
	maxHistory = 13
)

// State is the pipeline position of the orchestrator.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateAwaitingFront
	StateAwaitingAuxiliary
	StateAssembled
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateAwaitingFront:
		return "awaiting-front"
	case StateAwaitingAuxiliary:
		return "awaiting-auxiliary"
	case StateAssembled:
		return "assembled"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Selection carries everything one draw request decides: which deck (or how
// to pick one), who is playing, and how the card should sound.
type Selection struct {
	// DeckID selects a specific deck. Empty means a uniform pick among the
	// eligible decks, optionally narrowed by CategoryID.
	DeckID string

	// CategoryID narrows a random pick to one built-in category.
	CategoryID string

	// Setting is the social context of the session.
	Setting deck.SocialContext

	// Ages are the active age groups. Minors trigger the intensity hard lock.
	Ages deck.AgeFilters

	// Intensities is the soft intensity filter, empty for all bands.
	Intensities []deck.Intensity

	// ParticipantCount, Participants and ActiveParticipant describe the
	// roster. All optional.
	ParticipantCount  int
	Participants      []string
	ActiveParticipant string

	// Voice is the requested persona voice, normalized before use.
	Voice string

	// Muted suppresses all speech synthesis for this draw.
	Muted bool

	// Language is the BCP 47 code the card should be written in.
	Language string

	// Redraw marks a draw replacing a disliked card.
	Redraw bool
}

// Orchestrator coordinates one draw at a time. Safe for concurrent use.
type Orchestrator struct {
	catalog  *deck.Catalog
	sessions *session.Registry
	speech   genai.SpeechProvider
	monitor  *availability.Monitor
	offline  *offline.Source
	log      devlog.Sink
	logger   *slog.Logger
	metrics  *observe.Metrics
	timeout  time.Duration
	randN    func(n int) int

	mu      sync.Mutex
	drawing bool
	state   State
	history []*card.Card
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDevLog routes pipeline records to sink.
func WithDevLog(sink devlog.Sink) Option {
	return func(o *Orchestrator) { o.log = sink }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTimeout overrides the per-call generation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithRandN injects the random source used for deck picks.
func WithRandN(randN func(n int) int) Option {
	return func(o *Orchestrator) { o.randN = randN }
}

// New creates an orchestrator over the given collaborators.
func New(catalog *deck.Catalog, sessions *session.Registry, speech genai.SpeechProvider,
	monitor *availability.Monitor, offlineSrc *offline.Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:  catalog,
		sessions: sessions,
		speech:   speech,
		monitor:  monitor,
		offline:  offlineSrc,
		log:      devlog.Discard,
		logger:   slog.Default(),
		timeout:  defaultTimeout,
		randN:    rand.IntN,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// CurrentState returns the pipeline position, for diagnostics.
func (o *Orchestrator) CurrentState() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// History returns the recent draws, oldest first. The list is capped; older
// cards fall off the end.
func (o *Orchestrator) History() []*card.Card {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*card.Card, len(o.history))
	copy(out, o.history)
	return out
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) appendHistory(c *card.Card) {
	o.mu.Lock()
	o.history = append(o.history, c)
	if len(o.history) > maxHistory {
		o.history = o.history[len(o.history)-maxHistory:]
	}
	o.mu.Unlock()
}

// DrawCard runs one complete draw. While a draw is in flight further calls
// return ErrDrawInProgress without side effects.
//
// The returned card is complete except for back notes, which arrive on a
// detached goroutine after this method returns.
func (o *Orchestrator) DrawCard(ctx context.Context, sel Selection) (*card.Card, error) {
	o.mu.Lock()
	if o.drawing {
		o.mu.Unlock()
		o.metrics.DrawsRejected.Add(ctx, 1)
		return nil, ErrDrawInProgress
	}
	o.drawing = true
	o.state = StateSelecting
	o.mu.Unlock()

	start := time.Now()
	deckID := "unknown"
	outcome := "error"
	defer func() {
		o.mu.Lock()
		o.drawing = false
		o.mu.Unlock()
		o.metrics.RecordDraw(ctx, deckID, outcome, time.Since(start).Seconds())
	}()

	if o.monitor.Offline() {
		c := o.drawOffline(ctx)
		deckID, outcome = c.DeckID, "offline"
		return c, nil
	}

	d, err := o.selectDeck(sel)
	if err != nil {
		o.setState(StateErrored)
		return nil, err
	}
	deckID = d.ID()

	o.setState(StateAwaitingFront)
	res, err := o.generateFront(ctx, d, sel)
	if err != nil {
		o.setState(StateErrored)
		return nil, err
	}

	c := &card.Card{
		ID:                  uuid.NewString(),
		DeckID:              d.ID(),
		DrawnForParticipant: sel.ActiveParticipant,
		DrawnAt:             time.Now(),
		Text:                res.Text,
		TTSInput:            res.TTSInput,
		TTSVoice:            res.TTSVoice,
	}
	if res.IsTimed() {
		c.IsTimed = true
		c.TimerSeconds = res.TimerSeconds
		c.FollowUpPromptText = res.ReflectionText
	}

	o.setState(StateAwaitingAuxiliary)
	if !sel.Muted && o.monitor.SpeechOK() {
		o.fetchAudio(ctx, c, d, sel)
	}

	// Back notes arrive after the card has been handed out; detach them from
	// the request context so a fast client disconnect does not strand the
	// card without notes.
	go o.generateBackNotes(context.WithoutCancel(ctx), c.Text, "", d, c.SetBackNotes)

	o.appendHistory(c)
	o.setState(StateAssembled)
	outcome = "ok"
	o.logger.Info("orchestrator: card drawn",
		"cardId", c.ID, "deck", d.ID(), "timed", c.IsTimed, "strategy", res.Strategy)
	return c, nil
}

// selectDeck resolves the Selection to one deck, applying the eligibility
// rules. An explicit DeckID may name a special deck hidden from listings,
// but the minors hard lock still applies.
func (o *Orchestrator) selectDeck(sel Selection) (deck.Deck, error) {
	if sel.DeckID != "" {
		d := o.catalog.ByID(sel.DeckID)
		if d == nil {
			return nil, &NoEligibleDeckError{DeckID: sel.DeckID, Reason: "unknown deck"}
		}
		if sel.Ages.MinorsPresent() && d.Recipe().TouchesIntensityAtOrAbove(deck.MinorsLockThreshold) {
			return nil, &NoEligibleDeckError{DeckID: sel.DeckID, Reason: "intensity locked for the active audience"}
		}
		return d, nil
	}

	var eligible []deck.Deck
	if sel.CategoryID != "" {
		eligible = o.catalog.EligibleInCategory(sel.CategoryID, sel.Setting, sel.Ages, sel.Intensities)
	} else {
		eligible = o.catalog.Eligible(sel.Setting, sel.Ages, sel.Intensities)
	}
	if len(eligible) == 0 {
		return nil, &NoEligibleDeckError{Reason: "no deck matches the active filters"}
	}
	return eligible[o.randN(len(eligible))], nil
}

// drawOffline serves a card from the local list.
func (o *Orchestrator) drawOffline(ctx context.Context) *card.Card {
	c := o.offline.Draw()
	o.metrics.OfflineDraws.Add(ctx, 1)
	now := time.Now()
	o.log.Record(devlog.Entry{
		Kind:       devlog.KindOffline,
		RequestAt:  now,
		ResponseAt: now,
		Input:      "offline draw",
		Output:     c.Text,
	})
	o.appendHistory(c)
	o.setState(StateAssembled)
	o.logger.Info("orchestrator: offline card drawn", "cardId", c.ID)
	return c
}

// generateFront issues the card-front call and parses the reply. A timeout
// demotes the active model; quota exhaustion flips the service offline.
func (o *Orchestrator) generateFront(ctx context.Context, d deck.Deck, sel Selection) (*parse.Result, error) {
	chat, err := o.sessions.GetOrCreate(ctx, session.KeyCardFront, cardFrontInstruction)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: card-front session: %w", err)
	}
	prompt, err := buildFrontPrompt(o.catalog, d, sel, len(o.History()))
	if err != nil {
		return nil, err
	}

	model := o.monitor.ActiveModel()
	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	start := time.Now()
	reply, err := chat.Send(genCtx, prompt)
	cancel()
	o.metrics.RecordGeneration(ctx, "card-front", model, time.Since(start).Seconds())

	entry := devlog.Entry{
		Kind:       devlog.KindCardFront,
		RequestAt:  start,
		ResponseAt: time.Now(),
		Input:      prompt,
		Output:     reply,
	}
	if err != nil {
		entry.Error = err.Error()
		o.log.Record(entry)
		return nil, o.classifyFrontErr(err)
	}
	o.log.Record(entry)

	res, err := parse.Response(reply)
	if err != nil {
		o.logger.Error("orchestrator: unparseable card-front response", "error", err)
		return nil, err
	}
	return res, nil
}

func (o *Orchestrator) classifyFrontErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		o.logger.Warn("orchestrator: card-front generation timed out, demoting model")
		o.monitor.Demote()
		return &GenerationTimeoutError{Stage: "card-front"}
	case genai.IsQuotaErr(err):
		o.monitor.SetOffline("quota exhausted during card-front generation")
		return &QuotaExhaustedError{Err: err}
	default:
		return fmt.Errorf("orchestrator: card-front generation: %w", err)
	}
}

// fetchAudio synthesizes the card-front speech and, for timed cards, the
// follow-up speech, in parallel. Failures never fail the draw. Callers skip
// it entirely while the draw is muted or the speech model is unreachable.
func (o *Orchestrator) fetchAudio(ctx context.Context, c *card.Card, d deck.Deck, sel Selection) {
	voice := c.TTSVoice
	if voice == "" {
		voice = persona.NormalizeVoice(sel.Voice)
		c.TTSVoice = voice
	}

	frontInput := c.TTSInput
	if frontInput == "" {
		// The model omitted the narration object; fall back to wrapping the
		// display text in the persona's style directive.
		frontInput = persona.StyleDirective(voice, false, d) + " " + quote(c.Text)
		c.TTSInput = frontInput
	}

	var g errgroup.Group
	g.Go(func() error {
		if data, mime, ok := o.synthesize(ctx, frontInput, voice); ok {
			c.Audio, c.AudioMIMEType = data, mime
		}
		return nil
	})
	if c.IsTimed {
		followInput := persona.StyleDirective(voice, false, d) + " " + quote(c.FollowUpPromptText)
		g.Go(func() error {
			if data, mime, ok := o.synthesize(ctx, followInput, voice); ok {
				c.FollowUpAudio, c.FollowUpAudioMIMEType = data, mime
			}
			return nil
		})
	}
	g.Wait()
}

// synthesize renders one speech blob, returning it in a client-playable
// encoding. ok is false on failure; the error is recorded, not returned.
func (o *Orchestrator) synthesize(ctx context.Context, text, voice string) (data []byte, mime string, ok bool) {
	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	blob, err := o.speech.Synthesize(genCtx, text, voice)
	entry := devlog.Entry{
		Kind:       devlog.KindSpeech,
		RequestAt:  start,
		ResponseAt: time.Now(),
		Input:      text,
	}
	if err != nil {
		aerr := &AudioGenerationError{Err: err}
		entry.Error = aerr.Error()
		o.log.Record(entry)
		o.metrics.RecordProviderRequest(ctx, "speech", "synthesize", "error")
		o.logger.Warn("orchestrator: audio generation failed", "voice", voice, "error", err)
		return nil, "", false
	}
	entry.Output = fmt.Sprintf("received %d bytes of audio data", len(blob.Data))
	o.log.Record(entry)
	o.metrics.RecordProviderRequest(ctx, "speech", "synthesize", "ok")

	data, mime = audio.EnsurePlayable(blob.Data, blob.MIMEType)
	return data, mime, true
}

// generateBackNotes runs the card-back call and hands the result to attach.
// contextPrompt carries the parent activity text for follow-up reflections.
func (o *Orchestrator) generateBackNotes(ctx context.Context, cardText, contextPrompt string, d deck.Deck, attach func(string)) {
	chat, err := o.sessions.GetOrCreate(ctx, session.KeyCardBack, cardBackInstruction)
	if err != nil {
		o.logger.Warn("orchestrator: card-back session", "error", err)
		return
	}
	prompt := buildBackPrompt(cardText, contextPrompt, d)

	model := o.monitor.ActiveModel()
	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	reply, err := chat.Send(genCtx, prompt)
	o.metrics.RecordGeneration(ctx, "card-back", model, time.Since(start).Seconds())

	entry := devlog.Entry{
		Kind:       devlog.KindCardBack,
		RequestAt:  start,
		ResponseAt: time.Now(),
		Input:      prompt,
		Output:     reply,
	}
	if err != nil {
		entry.Error = err.Error()
		o.log.Record(entry)
		o.logger.Warn("orchestrator: card-back generation failed", "error", err)
		if genai.IsQuotaErr(err) {
			o.monitor.SetOffline("quota exhausted during card-back generation")
		}
		return
	}
	o.log.Record(entry)
	attach(parse.BackNotes(reply))
}

// CompleteActivity finishes a timed activity and reveals its follow-up
// reflection card. The follow-up is built exactly once per parent; repeated
// calls return the already-attached follow-up. Untimed cards have none.
func (o *Orchestrator) CompleteActivity(ctx context.Context, c *card.Card) (*card.FollowUp, error) {
	if !c.IsTimed || c.FollowUpPromptText == "" {
		return nil, nil
	}
	f, created := c.CompleteWithFollowUp(func() *card.FollowUp {
		return &card.FollowUp{
			ID:            uuid.NewString(),
			ParentID:      c.ID,
			Text:          c.FollowUpPromptText,
			Audio:         c.FollowUpAudio,
			AudioMIMEType: c.FollowUpAudioMIMEType,
		}
	})
	if !created {
		return f, nil
	}

	if c.Offline || o.monitor.Offline() {
		f.SetBackNotes(offline.BackNotes())
		return f, nil
	}
	go o.generateBackNotes(context.WithoutCancel(ctx), f.Text, c.Text, o.catalog.ByID(c.DeckID), f.SetBackNotes)
	return f, nil
}

// Feedback records the player's reaction on the card and routes it into the
// card-front session so later draws can adapt. Offline cards keep the local
// reaction only.
func (o *Orchestrator) Feedback(ctx context.Context, c *card.Card, fb card.Feedback) {
	c.SetFeedback(fb)
	if fb == card.FeedbackNone || c.Offline {
		return
	}
	o.sessions.SendFeedback(ctx, c.Text, string(fb))
}

// FollowUpFeedback records the player's reaction on a follow-up card and
// routes it like Feedback.
func (o *Orchestrator) FollowUpFeedback(ctx context.Context, f *card.FollowUp, fb card.Feedback) {
	f.SetFeedback(fb)
	if fb == card.FeedbackNone {
		return
	}
	o.sessions.SendFeedback(ctx, f.Text, string(fb))
}

func quote(s string) string {
	return `"` + s + `"`
}
