package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/mihkeluutar/quiz-game/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// testDB opens a fresh in-memory database per test. The DSN is unique so
// parallel tests never share state through sqlite's shared cache.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Host{},
		&models.Session{},
		&models.Participant{},
		&models.Block{},
		&models.Question{},
		&models.Option{},
		&models.Answer{},
		&models.BlockGuess{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testEnv struct {
	db       *gorm.DB
	identity *IdentityService
	content  *ContentService
	scoring  *ScoringService
	sessions *SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testDB(t)
	content := NewContentService(db)
	scoring := NewScoringService(db, 1, 1, nil)
	sessions := NewSessionService(db, content, scoring, nil, SessionConfig{
		MinQuestions:         1,
		SuggestedQuestions:   3,
		MaxQuestions:         10,
		EnableAuthorGuessing: true,
	})
	return &testEnv{
		db:       db,
		identity: NewIdentityService(db),
		content:  content,
		scoring:  scoring,
		sessions: sessions,
	}
}

func (e *testEnv) seedHost(t *testing.T) *models.Host {
	t.Helper()
	host := models.Host{Username: "host", PasswordHash: "irrelevant"}
	if err := e.db.Create(&host).Error; err != nil {
		t.Fatalf("create host: %v", err)
	}
	return &host
}

func (e *testEnv) seedSession(t *testing.T, hostID uint, cfg SessionConfig) *models.Session {
	t.Helper()
	session, err := e.sessions.CreateSession(hostID, cfg)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func (e *testEnv) join(t *testing.T, session *models.Session, token, name string) *models.Participant {
	t.Helper()
	participant, _, err := e.identity.ResolveOrCreateParticipant(session, token, name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return participant
}

func (e *testEnv) mustAction(t *testing.T, session *models.Session, hostID uint, action Action) *models.Session {
	t.Helper()
	updated, err := e.sessions.PerformAction(session.ID, hostID, action)
	if err != nil {
		t.Fatalf("action %s: %v", action.Name, err)
	}
	return updated
}

// gameFixture is the standard three-block session used across the state
// machine and scoring tests: a two-question host block followed by one block
// from each of two participants.
type gameFixture struct {
	env        *testEnv
	host       *models.Host
	session    *models.Session
	alice, bob *models.Participant

	hostBlock, aliceBlock, bobBlock *models.Block
	hostQ1, hostQ2, aliceQ, bobQ    *models.Question
}

func buildGame(t *testing.T, env *testEnv, cfg SessionConfig) *gameFixture {
	t.Helper()
	host := env.seedHost(t)
	session := env.seedSession(t, host.ID, cfg)

	alice := env.join(t, session, "tok-alice", "Alice")
	bob := env.join(t, session, "tok-bob", "Bob")

	hostBlock, err := env.content.SaveHostBlock(session, nil, "Warmup", []QuestionInput{
		{
			Text: "Capital of France?",
			Type: models.QuestionTypeMCQ,
			Options: []OptionInput{
				{Text: "Paris", IsCorrect: true},
				{Text: "Rome"},
			},
		},
		{Text: "What is 2+2?", Type: models.QuestionTypeOpen, CorrectText: "4"},
	})
	if err != nil {
		t.Fatalf("save host block: %v", err)
	}

	aliceBlock, err := env.content.SaveParticipantBlock(session, alice, "", []QuestionInput{
		{Text: "Alice's favourite colour?", Type: models.QuestionTypeOpen, CorrectText: "blue"},
	})
	if err != nil {
		t.Fatalf("save alice block: %v", err)
	}

	bobBlock, err := env.content.SaveParticipantBlock(session, bob, "Bob's round", []QuestionInput{
		{
			Text: "Largest planet?",
			Type: models.QuestionTypeMCQ,
			Options: []OptionInput{
				{Text: "Jupiter", IsCorrect: true},
				{Text: "Mars"},
			},
		},
	})
	if err != nil {
		t.Fatalf("save bob block: %v", err)
	}

	return &gameFixture{
		env:        env,
		host:       host,
		session:    session,
		alice:      alice,
		bob:        bob,
		hostBlock:  hostBlock,
		aliceBlock: aliceBlock,
		bobBlock:   bobBlock,
		hostQ1:     &hostBlock.Questions[0],
		hostQ2:     &hostBlock.Questions[1],
		aliceQ:     &aliceBlock.Questions[0],
		bobQ:       &bobBlock.Questions[0],
	}
}

func (f *gameFixture) start(t *testing.T) {
	t.Helper()
	f.session = f.env.mustAction(t, f.session, f.host.ID, Action{Name: ActionStartGame})
}

func (f *gameFixture) act(t *testing.T, name ActionName) {
	t.Helper()
	f.session = f.env.mustAction(t, f.session, f.host.ID, Action{Name: name})
}

func (f *gameFixture) assertPosition(t *testing.T, phase string, blockID *uint, questionID *uint) {
	t.Helper()
	if f.session.Phase != phase {
		t.Fatalf("phase = %q, want %q", f.session.Phase, phase)
	}
	if !ptrEq(f.session.CurrentBlockID, blockID) {
		t.Fatalf("current block = %v, want %v", ptrVal(f.session.CurrentBlockID), ptrVal(blockID))
	}
	if !ptrEq(f.session.CurrentQuestionID, questionID) {
		t.Fatalf("current question = %v, want %v", ptrVal(f.session.CurrentQuestionID), ptrVal(questionID))
	}
}

func ptrEq(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrVal(p *uint) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
