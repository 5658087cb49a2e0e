package services

import (
	"testing"

	"github.com/mihkeluutar/quiz-game/internal/apperrors"
	"github.com/mihkeluutar/quiz-game/internal/models"
)

func TestSaveParticipantBlockReplaces(t *testing.T) {
	env := newTestEnv(t)
	host := env.seedHost(t)
	session := env.seedSession(t, host.ID, env.sessions.DefaultConfig())
	alice := env.join(t, session, "tok-alice", "Alice")

	first, err := env.content.SaveParticipantBlock(session, alice, "", []QuestionInput{
		{Text: "Q one", Type: models.QuestionTypeOpen, CorrectText: "a"},
		{Text: "Q two", Type: models.QuestionTypeOpen, CorrectText: "b"},
	})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if first.Title != "Alice" {
		t.Errorf("default title = %q, want participant name", first.Title)
	}

	// Resubmission in a new order replaces the stored question set.
	second, err := env.content.SaveParticipantBlock(session, alice, "My round", []QuestionInput{
		{Text: "Q two", Type: models.QuestionTypeOpen, CorrectText: "b"},
		{Text: "Q three", Type: models.QuestionTypeOpen, CorrectText: "c"},
	})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resubmission created block %d, want %d", second.ID, first.ID)
	}
	if second.Title != "My round" {
		t.Errorf("title = %q, want My round", second.Title)
	}
	if len(second.Questions) != 2 {
		t.Fatalf("question count = %d, want 2", len(second.Questions))
	}
	if second.Questions[0].Text != "Q two" || second.Questions[1].Text != "Q three" {
		t.Errorf("questions = %q, %q; want submission order", second.Questions[0].Text, second.Questions[1].Text)
	}
	for i, q := range second.Questions {
		if q.IndexInBlock != i {
			t.Errorf("question %d has index_in_block %d", i, q.IndexInBlock)
		}
	}

	var count int64
	env.db.Model(&models.Question{}).Where("block_id = ?", first.ID).Count(&count)
	if count != 2 {
		t.Errorf("stored question count = %d, want 2", count)
	}
}

func TestSaveHostBlockUpdate(t *testing.T) {
	env := newTestEnv(t)
	host := env.seedHost(t)
	session := env.seedSession(t, host.ID, env.sessions.DefaultConfig())

	block, err := env.content.SaveHostBlock(session, nil, "Round 1", []QuestionInput{
		{Text: "Q", Type: models.QuestionTypeOpen, CorrectText: "a"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := env.content.SaveHostBlock(session, &block.ID, "Round 1 v2", []QuestionInput{
		{Text: "Q'", Type: models.QuestionTypeOpen, CorrectText: "a"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != block.ID || updated.Title != "Round 1 v2" {
		t.Errorf("updated block = %d/%q, want %d/Round 1 v2", updated.ID, updated.Title, block.ID)
	}

	missing := block.ID + 100
	if _, err := env.content.SaveHostBlock(session, &missing, "x", nil); !apperrors.IsNotFound(err) {
		t.Errorf("unknown block id: err = %v, want NotFoundError", err)
	}
}

func TestValidateQuestions(t *testing.T) {
	tests := []struct {
		name      string
		questions []QuestionInput
		wantErr   bool
	}{
		{
			name:      "draft with empty text passes",
			questions: []QuestionInput{{Text: "   "}},
		},
		{
			name:      "open without correct answer",
			questions: []QuestionInput{{Text: "Q", Type: models.QuestionTypeOpen}},
			wantErr:   true,
		},
		{
			name: "choice with one option",
			questions: []QuestionInput{{
				Text: "Q", Type: models.QuestionTypeMCQ,
				Options: []OptionInput{{Text: "a", IsCorrect: true}},
			}},
			wantErr: true,
		},
		{
			name: "choice with no correct option",
			questions: []QuestionInput{{
				Text: "Q", Type: models.QuestionTypeMCQ,
				Options: []OptionInput{{Text: "a"}, {Text: "b"}},
			}},
			wantErr: true,
		},
		{
			name: "choice with two correct options",
			questions: []QuestionInput{{
				Text: "Q", Type: models.QuestionTypeMCQ,
				Options: []OptionInput{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}},
			}},
			wantErr: true,
		},
		{
			name: "valid pair",
			questions: []QuestionInput{
				{Text: "Q1", Type: models.QuestionTypeOpen, CorrectText: "a"},
				{Text: "Q2", Type: models.QuestionTypeMCQ, Options: []OptionInput{
					{Text: "a", IsCorrect: true}, {Text: "b"},
				}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQuestions(tt.questions)
			if tt.wantErr && !apperrors.IsValidation(err) {
				t.Errorf("err = %v, want ValidationError", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
		})
	}
}

func TestContentLockedOutsideCreation(t *testing.T) {
	env := newTestEnv(t)
	f := buildGame(t, env, env.sessions.DefaultConfig())
	f.start(t)

	_, err := env.content.SaveParticipantBlock(f.session, f.alice, "late", []QuestionInput{
		{Text: "Q", Type: models.QuestionTypeOpen, CorrectText: "a"},
	})
	if !apperrors.IsLocked(err) {
		t.Fatalf("edit after start: err = %v, want LockedError", err)
	}
	if _, err := env.content.SaveHostBlock(f.session, nil, "late", nil); !apperrors.IsLocked(err) {
		t.Fatalf("host edit after start: err = %v, want LockedError", err)
	}
}

func TestLockAndOrderHostBlocksFirst(t *testing.T) {
	env := newTestEnv(t)
	host := env.seedHost(t)
	session := env.seedSession(t, host.ID, SessionConfig{
		MinQuestions: 0, SuggestedQuestions: 3, MaxQuestions: 10, EnableAuthorGuessing: true,
	})
	alice := env.join(t, session, "tok-alice", "Alice")
	bob := env.join(t, session, "tok-bob", "Bob")

	// Participant blocks created before the host block; ordering must still
	// put the host block first.
	if _, err := env.content.SaveParticipantBlock(session, alice, "", []QuestionInput{
		{Text: "A", Type: models.QuestionTypeOpen, CorrectText: "a"},
	}); err != nil {
		t.Fatalf("alice block: %v", err)
	}
	if _, err := env.content.SaveParticipantBlock(session, bob, "", []QuestionInput{
		{Text: "B", Type: models.QuestionTypeOpen, CorrectText: "b"},
		{Text: "   "}, // draft, dropped at lock
	}); err != nil {
		t.Fatalf("bob block: %v", err)
	}
	if _, err := env.content.SaveHostBlock(session, nil, "Warmup", []QuestionInput{
		{Text: "H", Type: models.QuestionTypeOpen, CorrectText: "h"},
	}); err != nil {
		t.Fatalf("host block: %v", err)
	}

	env.mustAction(t, session, host.ID, Action{Name: ActionStartGame, Shuffle: true})

	blocks, err := env.content.OrderedBlocks(session.ID)
	if err != nil {
		t.Fatalf("ordered blocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("block count = %d, want 3", len(blocks))
	}
	if !blocks[0].IsHostAuthored() {
		t.Errorf("first block author_type = %q, want host", blocks[0].AuthorType)
	}
	for i, b := range blocks {
		if b.OrderIndex != i {
			t.Errorf("block %d order_index = %d", i, b.OrderIndex)
		}
		if !b.IsLocked {
			t.Errorf("block %d not locked", i)
		}
	}

	// Draft questions with blank text are gone after locking.
	var drafts int64
	env.db.Model(&models.Question{}).
		Where("block_id IN (SELECT id FROM blocks WHERE session_id = ?) AND TRIM(text) = ''", session.ID).
		Count(&drafts)
	if drafts != 0 {
		t.Errorf("draft questions remaining = %d, want 0", drafts)
	}
}

func TestNonEmptyQuestionCounts(t *testing.T) {
	env := newTestEnv(t)
	host := env.seedHost(t)
	session := env.seedSession(t, host.ID, env.sessions.DefaultConfig())
	alice := env.join(t, session, "tok-alice", "Alice")

	if _, err := env.content.SaveParticipantBlock(session, alice, "", []QuestionInput{
		{Text: "A", Type: models.QuestionTypeOpen, CorrectText: "a"},
		{Text: "   "},
	}); err != nil {
		t.Fatalf("alice block: %v", err)
	}
	if _, err := env.content.SaveHostBlock(session, nil, "Warmup", []QuestionInput{
		{Text: "H", Type: models.QuestionTypeOpen, CorrectText: "h"},
	}); err != nil {
		t.Fatalf("host block: %v", err)
	}

	perParticipant, total, err := env.content.NonEmptyQuestionCounts(session.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 (drafts excluded)", total)
	}
	if perParticipant[alice.ID] != 1 {
		t.Errorf("alice count = %d, want 1", perParticipant[alice.ID])
	}
}
