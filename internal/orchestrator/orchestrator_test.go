package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/resonance/internal/availability"
	"github.com/MrWong99/resonance/internal/card"
	"github.com/MrWong99/resonance/internal/deck"
	"github.com/MrWong99/resonance/internal/offline"
	"github.com/MrWong99/resonance/internal/session"
	"github.com/MrWong99/resonance/pkg/provider/genai/mock"
)

const taggedReply = "<card_front_prompt>Tell a story.</card_front_prompt>\n" +
	"```json\n{\"input\": {\"ttsInput\": \"Now, speak: \\\"Tell a story.\\\"\", \"voice\": \"Puck\"}}\n```"

const structuredTimedReply = `{"text":"Hold a soft gaze with your partner for 30 seconds.",` +
	`"reflectionText":"What did you notice in yourself?","timerDuration":30,` +
	`"ttsInput":"Now, speak: \"Hold a soft gaze.\"","ttsVoice":"Sulafat"}`

const backReply = "<card_back_notes>**The Idea:**\nA small experiment in attention.</card_back_notes>"

// routeReplies answers card-back requests with backReply and everything else
// with front.
func routeReplies(front string) func(ctx context.Context, message string) (string, error) {
	return func(_ context.Context, message string) (string, error) {
		if strings.HasPrefix(message, "The card front prompt is:") {
			return backReply, nil
		}
		return front, nil
	}
}

func newTestOrchestrator(t *testing.T, chat *mock.ChatProvider, speech *mock.SpeechProvider, opts ...Option) (*Orchestrator, *availability.Monitor) {
	t.Helper()
	catalog, err := deck.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	monitor := availability.NewMonitor(chat, speech, availability.Config{
		PrimaryModel:  "primary",
		FallbackModel: "fallback",
		SpeechModel:   "tts",
	})
	registry := session.NewRegistry(chat, monitor)
	return New(catalog, registry, speech, monitor, offline.NewSource(), opts...), monitor
}

func adultSelection() Selection {
	return Selection{
		Setting:  deck.ContextGeneral,
		Ages:     deck.AgeFilters{Adults: true},
		Voice:    "Puck",
		Language: "en-US",
	}
}

func waitForBackNotes(t *testing.T, notes func() string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n := notes(); n != "" {
			return n
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("back notes never attached")
	return ""
}

func TestDrawCardTaggedResponse(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(taggedReply)}
	speech := &mock.SpeechProvider{}
	orch, _ := newTestOrchestrator(t, chat, speech)

	c, err := orch.DrawCard(context.Background(), adultSelection())
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if c.Text != "Tell a story." {
		t.Errorf("Text = %q", c.Text)
	}
	if c.TTSVoice != "Puck" {
		t.Errorf("TTSVoice = %q, want Puck", c.TTSVoice)
	}
	if c.IsTimed {
		t.Error("standard prompt marked as timed")
	}
	if len(c.Audio) == 0 {
		t.Error("no card-front audio attached")
	}

	notes := waitForBackNotes(t, c.BackNotes)
	if !strings.Contains(notes, "The Idea") {
		t.Errorf("back notes = %q", notes)
	}
}

func TestDrawCardMutualExclusion(t *testing.T) {
	release := make(chan struct{})
	var startedOnce sync.Once
	started := make(chan struct{})
	chat := &mock.ChatProvider{SendFunc: func(_ context.Context, message string) (string, error) {
		if strings.HasPrefix(message, "Here is the creative context") {
			startedOnce.Do(func() { close(started) })
			<-release
		}
		return taggedReply, nil
	}}
	orch, _ := newTestOrchestrator(t, chat, &mock.SpeechProvider{})

	done := make(chan error, 1)
	go func() {
		_, err := orch.DrawCard(context.Background(), adultSelection())
		done <- err
	}()
	<-started

	if _, err := orch.DrawCard(context.Background(), adultSelection()); !errors.Is(err, ErrDrawInProgress) {
		t.Errorf("concurrent draw err = %v, want ErrDrawInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first draw failed: %v", err)
	}

	// The flag must clear once the draw finishes.
	if _, err := orch.DrawCard(context.Background(), adultSelection()); err != nil {
		t.Errorf("draw after completion: %v", err)
	}
}

func TestDrawCardTimeoutDemotesModel(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: func(ctx context.Context, message string) (string, error) {
		if strings.HasPrefix(message, "Here is the creative context") {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return backReply, nil
	}}
	orch, monitor := newTestOrchestrator(t, chat, &mock.SpeechProvider{}, WithTimeout(20*time.Millisecond))

	_, err := orch.DrawCard(context.Background(), adultSelection())
	var timeoutErr *GenerationTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("err = %v, want GenerationTimeoutError", err)
	}
	if monitor.ActiveModel() != "fallback" {
		t.Errorf("active model = %q, want fallback after timeout", monitor.ActiveModel())
	}
}

func TestDrawCardQuotaFlipsOffline(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: func(_ context.Context, message string) (string, error) {
		return "", errors.New("googleapi: 429 RESOURCE_EXHAUSTED")
	}}
	orch, monitor := newTestOrchestrator(t, chat, &mock.SpeechProvider{})

	_, err := orch.DrawCard(context.Background(), adultSelection())
	var quotaErr *QuotaExhaustedError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("err = %v, want QuotaExhaustedError", err)
	}
	if !monitor.Offline() {
		t.Fatal("quota exhaustion did not enter offline mode")
	}

	c, err := orch.DrawCard(context.Background(), adultSelection())
	if err != nil {
		t.Fatalf("offline draw: %v", err)
	}
	if !c.Offline {
		t.Error("card not marked offline")
	}
	if c.Audio != nil {
		t.Error("offline card carries audio")
	}
	if c.DeckID != deck.Offline.ID() {
		t.Errorf("DeckID = %q, want %q", c.DeckID, deck.Offline.ID())
	}
	if c.BackNotes() == "" {
		t.Error("offline card without canned back notes")
	}
}

func TestDrawCardExplicitDeckMinorsLock(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &mock.ChatProvider{SendFunc: routeReplies(taggedReply)}, &mock.SpeechProvider{})

	sel := adultSelection()
	sel.DeckID = "EROS_ESSENCE"
	sel.Ages = deck.AgeFilters{Adults: true, Kids: true}

	_, err := orch.DrawCard(context.Background(), sel)
	var deckErr *NoEligibleDeckError
	if !errors.As(err, &deckErr) {
		t.Fatalf("err = %v, want NoEligibleDeckError", err)
	}
}

func TestDrawCardUnknownDeck(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &mock.ChatProvider{SendFunc: routeReplies(taggedReply)}, &mock.SpeechProvider{})

	sel := adultSelection()
	sel.DeckID = "NO_SUCH_DECK"
	var deckErr *NoEligibleDeckError
	if _, err := orch.DrawCard(context.Background(), sel); !errors.As(err, &deckErr) {
		t.Fatalf("err = %v, want NoEligibleDeckError", err)
	}
}

func TestDrawCardCategoryNarrowsPick(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(taggedReply)}
	orch, _ := newTestOrchestrator(t, chat, &mock.SpeechProvider{}, WithRandN(func(n int) int { return 0 }))

	sel := adultSelection()
	sel.CategoryID = "INTRODUCTIONS"
	c, err := orch.DrawCard(context.Background(), sel)
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if c.DeckID != "GENTLE_CURRENTS" {
		t.Errorf("DeckID = %q, want first deck of the category", c.DeckID)
	}
}

func TestDrawCardStyleDirectiveFallback(t *testing.T) {
	// Front reply without the narration JSON: speech falls back to the
	// persona style directive wrapping the display text.
	front := "<card_front_prompt>Breathe.</card_front_prompt>"
	chat := &mock.ChatProvider{SendFunc: routeReplies(front)}
	speech := &mock.SpeechProvider{}
	orch, _ := newTestOrchestrator(t, chat, speech)

	c, err := orch.DrawCard(context.Background(), adultSelection())
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if c.TTSVoice != "Puck" {
		t.Errorf("TTSVoice = %q, want requested voice", c.TTSVoice)
	}
	if len(speech.CallsSynthesize) != 1 {
		t.Fatalf("synthesize calls = %d, want 1", len(speech.CallsSynthesize))
	}
	input := speech.CallsSynthesize[0].Text
	if !strings.Contains(input, "Now, speak the following:") || !strings.Contains(input, `"Breathe."`) {
		t.Errorf("synthesis input = %q", input)
	}
}

func TestDrawCardMutedSkipsSpeech(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(structuredTimedReply)}
	speech := &mock.SpeechProvider{}
	orch, _ := newTestOrchestrator(t, chat, speech)

	sel := adultSelection()
	sel.Muted = true
	c, err := orch.DrawCard(context.Background(), sel)
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if len(speech.CallsSynthesize) != 0 {
		t.Errorf("muted draw issued %d speech calls, want 0", len(speech.CallsSynthesize))
	}
	if c.Audio != nil || c.FollowUpAudio != nil {
		t.Error("muted draw attached audio")
	}
	if c.Text == "" {
		t.Error("muted draw lost the card text")
	}
}

func TestDrawCardSpeechUnavailableSkipsSpeech(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(taggedReply), GenerateResult: "ok"}
	speech := &mock.SpeechProvider{SynthesizeErr: errors.New("tts down")}
	orch, monitor := newTestOrchestrator(t, chat, speech)

	monitor.CheckHealth(context.Background())
	if monitor.SpeechOK() {
		t.Fatal("failing speech probe left SpeechOK true")
	}
	probes := len(speech.CallsSynthesize)

	c, err := orch.DrawCard(context.Background(), adultSelection())
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if got := len(speech.CallsSynthesize) - probes; got != 0 {
		t.Errorf("draw issued %d speech calls while synthesis is unavailable, want 0", got)
	}
	if c.Audio != nil {
		t.Error("audio attached while synthesis is unavailable")
	}
}

func TestDrawCardAudioFailureIsSoft(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(taggedReply)}
	speech := &mock.SpeechProvider{SynthesizeErr: errors.New("tts down")}
	orch, _ := newTestOrchestrator(t, chat, speech)

	c, err := orch.DrawCard(context.Background(), adultSelection())
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if c.Audio != nil {
		t.Error("audio attached despite synthesis failure")
	}
	if c.Text != "Tell a story." {
		t.Errorf("Text = %q", c.Text)
	}
}

func TestCompleteActivityExactlyOnce(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(structuredTimedReply)}
	orch, _ := newTestOrchestrator(t, chat, &mock.SpeechProvider{})

	c, err := orch.DrawCard(context.Background(), adultSelection())
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if !c.IsTimed || c.TimerSeconds != 30 {
		t.Fatalf("timed metadata = (%v, %d)", c.IsTimed, c.TimerSeconds)
	}
	if len(c.FollowUpAudio) == 0 {
		t.Error("follow-up audio not pre-fetched")
	}

	var (
		mu  sync.Mutex
		ids = make(map[string]int)
		wg  sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := orch.CompleteActivity(context.Background(), c)
			if err != nil || f == nil {
				t.Errorf("CompleteActivity: f=%v err=%v", f, err)
				return
			}
			mu.Lock()
			ids[f.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Errorf("distinct follow-up IDs = %d, want exactly one", len(ids))
	}

	f := c.FollowUpCard()
	if f.Text != "What did you notice in yourself?" {
		t.Errorf("follow-up text = %q", f.Text)
	}
	if f.ParentID != c.ID {
		t.Errorf("ParentID = %q, want %q", f.ParentID, c.ID)
	}
	notes := waitForBackNotes(t, f.BackNotes)
	if !strings.Contains(notes, "The Idea") {
		t.Errorf("follow-up back notes = %q", notes)
	}
}

func TestCompleteActivityUntimedIsNoOp(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(taggedReply)}
	orch, _ := newTestOrchestrator(t, chat, &mock.SpeechProvider{})

	c, err := orch.DrawCard(context.Background(), adultSelection())
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	f, err := orch.CompleteActivity(context.Background(), c)
	if err != nil {
		t.Fatalf("CompleteActivity: %v", err)
	}
	if f != nil {
		t.Error("untimed card produced a follow-up")
	}
}

func TestFeedbackRoutedToFrontSession(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(taggedReply)}
	orch, _ := newTestOrchestrator(t, chat, &mock.SpeechProvider{})

	c, err := orch.DrawCard(context.Background(), adultSelection())
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	waitForBackNotes(t, c.BackNotes)

	orch.Feedback(context.Background(), c, card.FeedbackLiked)
	if c.FeedbackValue() != card.FeedbackLiked {
		t.Error("feedback not recorded on the card")
	}

	var found bool
	for _, msg := range chat.Chats[0].History() {
		if strings.Contains(msg.Text, "User feedback for the prompt") && strings.Contains(msg.Text, "liked") {
			found = true
		}
	}
	if !found {
		t.Error("feedback never reached the card-front session")
	}
}

func TestHistoryCapped(t *testing.T) {
	chat := &mock.ChatProvider{SendFunc: routeReplies(taggedReply)}
	orch, _ := newTestOrchestrator(t, chat, &mock.SpeechProvider{})

	for i := 0; i < maxHistory+4; i++ {
		if _, err := orch.DrawCard(context.Background(), adultSelection()); err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
	}
	if got := len(orch.History()); got != maxHistory {
		t.Errorf("history length = %d, want %d", got, maxHistory)
	}
}
