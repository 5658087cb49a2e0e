package services

import (
	"testing"

	"github.com/mihkeluutar/quiz-game/internal/models"
)

func findBlockView(state *SessionState, blockID uint) *BlockView {
	for i := range state.Blocks {
		if state.Blocks[i].ID == blockID {
			return &state.Blocks[i]
		}
	}
	return nil
}

func TestCreationStateIsolatesParticipants(t *testing.T) {
	env := newTestEnv(t)
	f := buildGame(t, env, env.sessions.DefaultConfig())

	state, err := env.sessions.StateForParticipant(f.session, f.alice)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(state.Participants) != 2 {
		t.Errorf("participants = %d, want 2", len(state.Participants))
	}

	own := findBlockView(state, f.aliceBlock.ID)
	if own == nil {
		t.Fatal("alice cannot see her own block")
	}
	if len(own.Questions) != 1 || own.Questions[0].CorrectText == "" {
		t.Errorf("alice's own block questions = %+v, want full content", own.Questions)
	}

	if v := findBlockView(state, f.bobBlock.ID); v != nil {
		t.Errorf("alice sees bob's block during creation: %+v", v)
	}
	if v := findBlockView(state, f.hostBlock.ID); v != nil {
		t.Errorf("alice sees the host block during creation: %+v", v)
	}
}

func TestHostStateIsComplete(t *testing.T) {
	env := newTestEnv(t)
	f := buildGame(t, env, env.sessions.DefaultConfig())

	state, err := env.sessions.StateForHost(f.session.ID, f.host.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(state.Blocks) != 3 {
		t.Fatalf("host sees %d blocks, want 3", len(state.Blocks))
	}

	av := findBlockView(state, f.aliceBlock.ID)
	if av == nil || av.AuthorName != "Alice" {
		t.Errorf("host view of alice's block = %+v, want author shown", av)
	}
	hv := findBlockView(state, f.hostBlock.ID)
	if hv == nil || len(hv.Questions) != 2 {
		t.Fatalf("host block view = %+v", hv)
	}
	mcq := hv.Questions[0]
	if len(mcq.Options) != 2 || mcq.Options[0].IsCorrect == nil {
		t.Errorf("host question options = %+v, want grading info included", mcq.Options)
	}
}

func TestPlayStateHidesAnswersAndAuthors(t *testing.T) {
	env := newTestEnv(t)
	f := buildGame(t, env, env.sessions.DefaultConfig())
	f.start(t)

	state, err := env.sessions.StateForParticipant(f.session, f.bob)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.CurrentQuestion == nil || state.CurrentQuestion.ID != f.hostQ1.ID {
		t.Fatalf("current question = %+v, want host question 1", state.CurrentQuestion)
	}
	if state.CurrentQuestion.CorrectText != "" {
		t.Error("participant sees correct_text of the live question")
	}
	if len(state.CurrentQuestion.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(state.CurrentQuestion.Options))
	}
	for _, o := range state.CurrentQuestion.Options {
		if o.IsCorrect != nil {
			t.Error("participant sees option correctness of the live question")
		}
	}
	if state.QuestionNumber != 1 || state.BlockSize != 2 {
		t.Errorf("position = %d/%d, want 1/2", state.QuestionNumber, state.BlockSize)
	}

	if v := findBlockView(state, f.aliceBlock.ID); v == nil || v.AuthorParticipantID != nil {
		t.Errorf("alice's authorship before reveal = %+v, want hidden", v)
	}
}

func TestAuthorshipVisibleAfterReveal(t *testing.T) {
	env := newTestEnv(t)
	f := buildGame(t, env, env.sessions.DefaultConfig())
	f.start(t)
	f.act(t, ActionAdvance) // host q2
	f.act(t, ActionAdvance) // alice question
	f.act(t, ActionAdvance) // alice guess

	state, err := env.sessions.StateForParticipant(f.session, f.bob)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if v := findBlockView(state, f.aliceBlock.ID); v == nil || v.AuthorParticipantID != nil {
		t.Errorf("authorship during guess phase = %+v, want hidden", v)
	}

	f.act(t, ActionReveal)
	state, err = env.sessions.StateForParticipant(f.session, f.bob)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	v := findBlockView(state, f.aliceBlock.ID)
	if v == nil || v.AuthorParticipantID == nil || *v.AuthorParticipantID != f.alice.ID {
		t.Fatalf("authorship after reveal = %+v, want alice", v)
	}
	if v.AuthorName != "Alice" {
		t.Errorf("author name = %q, want Alice", v.AuthorName)
	}

	// Bob's own block stays hidden from alice until its reveal.
	f.act(t, ActionAdvance) // bob question
	state, _ = env.sessions.StateForParticipant(f.session, f.alice)
	if v := findBlockView(state, f.bobBlock.ID); v == nil || v.AuthorParticipantID != nil {
		t.Errorf("bob's authorship while his block plays = %+v, want hidden", v)
	}
	// The already-revealed block stays public.
	if v := findBlockView(state, f.aliceBlock.ID); v == nil || v.AuthorParticipantID == nil {
		t.Errorf("alice's authorship regressed after her block passed: %+v", v)
	}
}

func TestFinishedStateRevealsEverything(t *testing.T) {
	env := newTestEnv(t)
	f := buildGame(t, env, env.sessions.DefaultConfig())
	f.start(t)
	for f.session.Phase != models.PhaseGrading {
		switch f.session.Phase {
		case models.PhaseAuthorGuess:
			f.act(t, ActionReveal)
		default:
			f.act(t, ActionAdvance)
		}
	}
	f.session = env.mustAction(t, f.session, f.host.ID, Action{Name: ActionFinish})

	state, err := env.sessions.StateForParticipant(f.session, f.bob)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(state.Blocks) != 3 {
		t.Fatalf("finished blocks = %d, want 3", len(state.Blocks))
	}
	for _, id := range []uint{f.aliceBlock.ID, f.bobBlock.ID} {
		v := findBlockView(state, id)
		if v == nil || v.AuthorParticipantID == nil {
			t.Errorf("block %d authorship hidden after finish: %+v", id, v)
		}
	}
}
