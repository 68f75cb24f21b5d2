// Package httpapi exposes the draw pipeline over HTTP.
//
// The layer is deliberately thin: it decodes requests into orchestrator
// calls, renders cards as JSON, and maps the error taxonomy onto status
// codes and user-facing messages. Quota-driven offline transitions are
// reported as a mode switch, not a raw failure.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/resonance/internal/availability"
	"github.com/MrWong99/resonance/internal/card"
	"github.com/MrWong99/resonance/internal/deck"
	"github.com/MrWong99/resonance/internal/devlog"
	"github.com/MrWong99/resonance/internal/orchestrator"
	"github.com/MrWong99/resonance/internal/parse"
)

// offlineSwitchMessage is the user-facing text for quota-driven offline
// transitions. The current draw fails, the next one serves locally.
const offlineSwitchMessage = "You've drawn a lot of cards! The live deck needs a rest, so we're switching to offline mode. Draw again for a card from the local hand."

// Server holds the HTTP handlers of the card API. Safe for concurrent use.
type Server struct {
	orch    *orchestrator.Orchestrator
	catalog *deck.Catalog
	monitor *availability.Monitor
	stream  http.Handler
	ring    *devlog.Ring
	logger  *slog.Logger

	// defaultLanguage is applied to draw requests without one.
	defaultLanguage string

	mu        sync.Mutex
	cards     map[string]*card.Card
	followUps map[string]*card.FollowUp
}

// Option configures a Server.
type Option func(*Server)

// WithStream mounts handler at GET /api/devlog/stream.
func WithStream(handler http.Handler) Option {
	return func(s *Server) { s.stream = handler }
}

// WithRing exposes the diagnostic ring at GET /api/devlog.
func WithRing(ring *devlog.Ring) Option {
	return func(s *Server) { s.ring = ring }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithDefaultLanguage sets the language applied to draw requests that omit
// one.
func WithDefaultLanguage(code string) Option {
	return func(s *Server) { s.defaultLanguage = code }
}

// New creates the API server over the given collaborators.
func New(orch *orchestrator.Orchestrator, catalog *deck.Catalog, monitor *availability.Monitor, opts ...Option) *Server {
	s := &Server{
		orch:            orch,
		catalog:         catalog,
		monitor:         monitor,
		logger:          slog.Default(),
		defaultLanguage: "en-US",
		cards:           make(map[string]*card.Card),
		followUps:       make(map[string]*card.FollowUp),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds all API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/draw", s.handleDraw)
	mux.HandleFunc("GET /api/cards/{id}", s.handleGetCard)
	mux.HandleFunc("POST /api/cards/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/cards/{id}/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/decks", s.handleDecks)
	mux.HandleFunc("POST /api/health-check", s.handleHealthCheck)
	if s.ring != nil {
		mux.HandleFunc("GET /api/devlog", s.handleDevLog)
	}
	if s.stream != nil {
		mux.Handle("GET /api/devlog/stream", s.stream)
	}
}

// drawRequest is the POST /api/draw body. All fields are optional; an empty
// body draws a random eligible deck for a solo adult session.
type drawRequest struct {
	DeckID            string   `json:"deckId"`
	CategoryID        string   `json:"categoryId"`
	Setting           string   `json:"setting"`
	Adults            bool     `json:"adults"`
	Teens             bool     `json:"teens"`
	Kids              bool     `json:"kids"`
	Intensities       []int    `json:"intensities"`
	ParticipantCount  int      `json:"participantCount"`
	Participants      []string `json:"participants"`
	ActiveParticipant string   `json:"activeParticipant"`
	Voice             string   `json:"voice"`
	Language          string   `json:"language"`
	Muted             bool     `json:"muted"`
	Redraw            bool     `json:"redraw"`
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sel := orchestrator.Selection{
		DeckID:            req.DeckID,
		CategoryID:        req.CategoryID,
		Setting:           deck.SocialContext(req.Setting),
		Ages:              deck.AgeFilters{Adults: req.Adults, Teens: req.Teens, Kids: req.Kids},
		ParticipantCount:  req.ParticipantCount,
		Participants:      req.Participants,
		ActiveParticipant: req.ActiveParticipant,
		Voice:             req.Voice,
		Language:          req.Language,
		Muted:             req.Muted,
		Redraw:            req.Redraw,
	}
	if sel.Setting == "" {
		sel.Setting = deck.DefaultContext
	}
	if !sel.Ages.Adults && !sel.Ages.Teens && !sel.Ages.Kids {
		sel.Ages.Adults = true
	}
	if sel.Language == "" {
		sel.Language = s.defaultLanguage
	}
	for _, i := range req.Intensities {
		sel.Intensities = append(sel.Intensities, deck.Intensity(i))
	}

	c, err := s.orch.DrawCard(r.Context(), sel)
	if err != nil {
		s.writeDrawError(w, err)
		return
	}

	s.mu.Lock()
	s.cards[c.ID] = c
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, renderCard(c))
}

// writeDrawError maps the draw error taxonomy onto HTTP statuses.
func (s *Server) writeDrawError(w http.ResponseWriter, err error) {
	var (
		deckErr      *orchestrator.NoEligibleDeckError
		timeoutErr   *orchestrator.GenerationTimeoutError
		quotaErr     *orchestrator.QuotaExhaustedError
		malformedErr *parse.MalformedResponseError
	)
	switch {
	case errors.Is(err, orchestrator.ErrDrawInProgress):
		writeError(w, http.StatusConflict, "a draw is already in progress")
	case errors.As(err, &deckErr):
		writeError(w, http.StatusUnprocessableEntity, deckErr.Error())
	case errors.As(err, &timeoutErr):
		writeError(w, http.StatusGatewayTimeout, "the model took too long to respond, please try drawing again")
	case errors.As(err, &quotaErr):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":   offlineSwitchMessage,
			"offline": true,
		})
	case errors.As(err, &malformedErr):
		writeError(w, http.StatusBadGateway, "the model returned an incomplete or invalid response, please try drawing again")
	default:
		s.logger.Error("httpapi: draw failed", "error", err)
		writeError(w, http.StatusInternalServerError, "card generation failed")
	}
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCard(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown card")
		return
	}
	writeJSON(w, http.StatusOK, renderCard(c))
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCard(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown card")
		return
	}

	f, err := s.orch.CompleteActivity(r.Context(), c)
	if err != nil {
		s.logger.Error("httpapi: complete failed", "cardId", c.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not complete the activity")
		return
	}
	if f == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.mu.Lock()
	s.followUps[f.ID] = f
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, renderFollowUp(f))
}

// feedbackRequest is the POST /api/cards/{id}/feedback body.
type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	fb := card.Feedback(req.Feedback)
	if fb != card.FeedbackLiked && fb != card.FeedbackDisliked && fb != card.FeedbackNone {
		writeError(w, http.StatusBadRequest, `feedback must be "liked", "disliked" or empty`)
		return
	}

	id := r.PathValue("id")
	if c, ok := s.lookupCard(id); ok {
		s.orch.Feedback(r.Context(), c, fb)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mu.Lock()
	f, ok := s.followUps[id]
	s.mu.Unlock()
	if ok {
		s.orch.FollowUpFeedback(r.Context(), f, fb)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeError(w, http.StatusNotFound, "unknown card")
}

func (s *Server) handleDecks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	setting := deck.SocialContext(q.Get("setting"))
	if setting == "" {
		setting = deck.DefaultContext
	}
	ages := deck.AgeFilters{
		Adults: q.Get("adults") != "false",
		Teens:  q.Get("teens") == "true",
		Kids:   q.Get("kids") == "true",
	}
	var intensities []deck.Intensity
	if raw := q.Get("intensities"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid intensities parameter")
				return
			}
			intensities = append(intensities, deck.Intensity(n))
		}
	}

	var eligible []deck.Deck
	if categoryID := q.Get("category"); categoryID != "" {
		eligible = s.catalog.EligibleInCategory(categoryID, setting, ages, intensities)
	} else {
		eligible = s.catalog.Eligible(setting, ages, intensities)
	}

	decks := make([]deckJSON, 0, len(eligible))
	for _, d := range eligible {
		decks = append(decks, renderDeck(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": deck.Categories,
		"decks":      decks,
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := s.monitor.CheckHealth(r.Context())
	code := http.StatusOK
	if !status.Available {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleDevLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.ring.Entries()})
}

func (s *Server) lookupCard(id string) (*card.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	return c, ok
}

// cardJSON is the wire shape of a drawn card. The follow-up prompt stays
// hidden until the activity completes.
type cardJSON struct {
	ID                  string        `json:"id"`
	DeckID              string        `json:"deckId"`
	Text                string        `json:"text"`
	DrawnAt             time.Time     `json:"drawnAt"`
	DrawnForParticipant string        `json:"drawnForParticipant,omitempty"`
	TTSVoice            string        `json:"ttsVoice,omitempty"`
	Audio               []byte        `json:"audio,omitempty"`
	AudioMIMEType       string        `json:"audioMimeType,omitempty"`
	IsTimed             bool          `json:"isTimed"`
	TimerSeconds        int           `json:"timerSeconds,omitempty"`
	BackNotes           string        `json:"backNotes,omitempty"`
	Feedback            string        `json:"feedback,omitempty"`
	Offline             bool          `json:"offline,omitempty"`
	FollowUp            *followUpJSON `json:"followUp,omitempty"`
}

type followUpJSON struct {
	ID            string `json:"id"`
	ParentID      string `json:"parentId"`
	Text          string `json:"text"`
	Audio         []byte `json:"audio,omitempty"`
	AudioMIMEType string `json:"audioMimeType,omitempty"`
	BackNotes     string `json:"backNotes,omitempty"`
	Feedback      string `json:"feedback,omitempty"`
}

func renderCard(c *card.Card) cardJSON {
	out := cardJSON{
		ID:                  c.ID,
		DeckID:              c.DeckID,
		Text:                c.Text,
		DrawnAt:             c.DrawnAt,
		DrawnForParticipant: c.DrawnForParticipant,
		TTSVoice:            c.TTSVoice,
		Audio:               c.Audio,
		AudioMIMEType:       c.AudioMIMEType,
		IsTimed:             c.IsTimed,
		TimerSeconds:        c.TimerSeconds,
		BackNotes:           c.BackNotes(),
		Feedback:            string(c.FeedbackValue()),
		Offline:             c.Offline,
	}
	if f := c.FollowUpCard(); f != nil {
		fu := renderFollowUp(f)
		out.FollowUp = &fu
	}
	return out
}

func renderFollowUp(f *card.FollowUp) followUpJSON {
	return followUpJSON{
		ID:            f.ID,
		ParentID:      f.ParentID,
		Text:          f.Text,
		Audio:         f.Audio,
		AudioMIMEType: f.AudioMIMEType,
		BackNotes:     f.BackNotes(),
		Feedback:      string(f.FeedbackValue()),
	}
}

type deckJSON struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category,omitempty"`
	Intensity   []deck.Intensity `json:"intensity,omitempty"`
	Themes      []deck.CoreTheme `json:"themes,omitempty"`
	CardTypes   []deck.CardType  `json:"cardTypes,omitempty"`
	VisualStyle string           `json:"visualStyle,omitempty"`
	Custom      bool             `json:"custom,omitempty"`
}

func renderDeck(d deck.Deck) deckJSON {
	out := deckJSON{
		ID:          d.ID(),
		Name:        d.Name(),
		Description: d.Description(),
		Intensity:   d.Recipe().Intensity,
		Themes:      d.Recipe().Themes,
		CardTypes:   d.Recipe().CardTypes,
	}
	switch v := d.(type) {
	case *deck.BuiltIn:
		out.Category = v.Category
		out.VisualStyle = v.VisualStyle
	case *deck.User:
		out.Custom = true
	}
	return out
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
