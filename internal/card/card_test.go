package card

import (
	"sync"
	"testing"
)

func TestCompleteWithFollowUpOnce(t *testing.T) {
	c := &Card{ID: "a", IsTimed: true}
	f, created := c.CompleteWithFollowUp(func() *FollowUp {
		return &FollowUp{ID: "b", ParentID: "a", Text: "what shifted?"}
	})
	if !created {
		t.Fatal("first completion did not create")
	}
	if f == nil || f.ID != "b" || f.ParentID != "a" {
		t.Fatalf("follow-up = %+v", f)
	}
	if !c.Completed() {
		t.Fatal("card not marked completed")
	}

	again, created := c.CompleteWithFollowUp(func() *FollowUp {
		t.Fatal("second completion invoked build")
		return nil
	})
	if created || again != f {
		t.Errorf("repeat completion = (%p, %v), want the existing follow-up", again, created)
	}
	if c.FollowUpCard() != f {
		t.Error("FollowUpCard does not return the attached follow-up")
	}
}

func TestCompleteWithFollowUpConcurrent(t *testing.T) {
	c := &Card{ID: "a", IsTimed: true}
	const n = 32
	type outcome struct {
		f       *FollowUp
		created bool
	}
	results := make(chan outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, created := c.CompleteWithFollowUp(func() *FollowUp {
				return &FollowUp{ID: "b", ParentID: "a"}
			})
			results <- outcome{f: f, created: created}
		}()
	}
	wg.Wait()
	close(results)

	creations := 0
	var attached *FollowUp
	for r := range results {
		if r.created {
			creations++
		}
		if r.f == nil {
			t.Error("a completion observed a nil follow-up")
		}
		if attached == nil {
			attached = r.f
		} else if r.f != attached {
			t.Error("completions observed different follow-ups")
		}
	}
	if creations != 1 {
		t.Errorf("follow-up created %d times, want 1", creations)
	}
}

func TestLateBackNotes(t *testing.T) {
	c := &Card{ID: "a"}
	if got := c.BackNotes(); got != "" {
		t.Errorf("pending back notes = %q, want empty", got)
	}
	c.SetBackNotes("breathe")
	if got := c.BackNotes(); got != "breathe" {
		t.Errorf("back notes = %q, want breathe", got)
	}
}

func TestFeedbackOverwrite(t *testing.T) {
	c := &Card{ID: "a"}
	if c.FeedbackValue() != FeedbackNone {
		t.Error("new card has feedback")
	}
	c.SetFeedback(FeedbackLiked)
	c.SetFeedback(FeedbackDisliked)
	if got := c.FeedbackValue(); got != FeedbackDisliked {
		t.Errorf("feedback = %q, want disliked", got)
	}
}
