package minigame

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRand always returns v modulo n.
type fixedRand int

func (f fixedRand) IntN(n int) int { return int(f) % n }

func seeded(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func opt(i int) *int { return &i }

func TestHandBeats(t *testing.T) {
	tests := []struct {
		a, b Hand
		want bool
	}{
		{Rock, Scissors, true},
		{Scissors, Paper, true},
		{Paper, Rock, true},
		{Scissors, Rock, false},
		{Rock, Rock, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.Beats(tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestHandsTieReplays(t *testing.T) {
	h := newHands()
	now := time.Now()

	w, err := h.Apply(models.SideA, Move{Hand: Rock}, now, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SideNone, w)

	_, err = h.Apply(models.SideA, Move{Hand: Paper}, now, nil)
	assert.ErrorIs(t, err, models.ErrAlreadyMoved)

	w, err = h.Apply(models.SideB, Move{Hand: Rock}, now, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SideNone, w, "a tie does not decide")
	assert.Equal(t, 2, h.Round)
	require.Len(t, h.Ties, 1)

	_, err = h.Apply(models.SideB, Move{Hand: Scissors}, now, nil)
	require.NoError(t, err)
	w, err = h.Apply(models.SideA, Move{Hand: Rock}, now, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SideA, w)
	require.NotNil(t, h.Final)

	_, err = h.Apply(models.SideA, Move{Hand: Rock}, now, nil)
	assert.ErrorIs(t, err, models.ErrMatchClosed)

	_, err = newHands().Apply(models.SideA, Move{Hand: "lizard"}, now, nil)
	assert.ErrorIs(t, err, models.ErrInvalidMove)
}

func TestHandsViewHidesOpponentChoice(t *testing.T) {
	h := newHands()
	_, err := h.Apply(models.SideA, Move{Hand: Paper}, time.Now(), nil)
	require.NoError(t, err)

	asA := h.View(models.SideA, time.Now(), false).(*Hands)
	asB := h.View(models.SideB, time.Now(), false).(*Hands)
	assert.Equal(t, Paper, asA.A)
	assert.Equal(t, handHidden, asB.A)
	assert.Equal(t, Paper, h.A, "view must not mutate the stored state")
}

func TestQuizQuestionsStayInRange(t *testing.T) {
	rng := seeded(7)
	for i := 0; i < 500; i++ {
		q := newQuiz(time.Now(), rng)
		var answer int
		switch q.Op {
		case "+":
			answer = q.Left + q.Right
			assert.LessOrEqual(t, q.Left, 20)
			assert.LessOrEqual(t, q.Right, 20)
		case "-":
			answer = q.Left - q.Right
		case "×":
			answer = q.Left * q.Right
			assert.LessOrEqual(t, q.Left, 10)
			assert.LessOrEqual(t, q.Right, 10)
		default:
			t.Fatalf("unexpected op %q", q.Op)
		}
		require.Greater(t, answer, 0)
		assert.Equal(t, answer, q.Options[q.Correct])

		seen := map[int]bool{}
		for _, o := range q.Options {
			assert.Greater(t, o, 0)
			assert.False(t, seen[o], "options must be distinct: %v", q.Options)
			seen[o] = true
		}
	}
}

func TestQuizOptionsTerminateWithConstantRand(t *testing.T) {
	q := newQuiz(time.Now(), fixedRand(0))
	assert.Equal(t, "+", q.Op)
	assert.Equal(t, q.Left+q.Right, q.Options[q.Correct])
}

func wrongOption(q *Quiz) int {
	return (q.Correct + 1) % quizOptions
}

func TestQuizCorrectSideWins(t *testing.T) {
	now := time.Now()
	for seed := uint64(0); seed < 20; seed++ {
		q := newQuiz(now, seeded(seed))
		w, err := q.Apply(models.SideB, Move{Option: opt(q.Correct)}, now, seeded(seed))
		require.NoError(t, err)
		assert.Equal(t, models.SideNone, w)

		w, err = q.Apply(models.SideA, Move{Option: opt(wrongOption(q))}, now, seeded(seed))
		require.NoError(t, err)
		assert.Equal(t, models.SideB, w)
	}
}

func TestQuizExpiryWithOneAnswer(t *testing.T) {
	now := time.Now()
	q := newQuiz(now, seeded(3))

	_, err := q.Apply(models.SideA, Move{Option: opt(q.Correct)}, now.Add(time.Second), nil)
	require.NoError(t, err)

	_, err = q.Expire(now.Add(QuizCountdown-time.Millisecond), nil)
	assert.ErrorIs(t, err, models.ErrNotExpired)

	w, err := q.Expire(now.Add(QuizCountdown), fixedRand(1))
	require.NoError(t, err)
	assert.Equal(t, models.SideA, w, "correct beats unanswered without a coin flip")

	_, err = q.Apply(models.SideB, Move{Option: opt(q.Correct)}, now.Add(QuizCountdown), nil)
	assert.ErrorIs(t, err, ErrTooLate)
}

func TestQuizTieBreak(t *testing.T) {
	now := time.Now()
	q := newQuiz(now, seeded(4))
	_, err := q.Apply(models.SideA, Move{Option: opt(wrongOption(q))}, now, nil)
	require.NoError(t, err)
	w, err := q.Apply(models.SideB, Move{Option: opt(wrongOption(q))}, now, fixedRand(1))
	require.NoError(t, err)
	assert.Equal(t, models.SideB, w)

	empty := newQuiz(now, seeded(5))
	w, err = empty.Expire(now.Add(QuizCountdown), fixedRand(0))
	require.NoError(t, err)
	assert.Equal(t, models.SideA, w)
}

func TestQuizViewHidesAnswerKey(t *testing.T) {
	now := time.Now()
	q := newQuiz(now, seeded(9))
	_, err := q.Apply(models.SideA, Move{Option: opt(2)}, now, nil)
	require.NoError(t, err)

	forB := q.View(models.SideB, now, false).(*Quiz)
	assert.Equal(t, -1, forB.Correct)
	assert.Empty(t, forB.Answers)

	forA := q.View(models.SideA, now, false).(*Quiz)
	assert.Equal(t, 2, forA.Answers[models.SideA])

	done := q.View(models.SideB, now, true).(*Quiz)
	assert.Equal(t, q.Correct, done.Correct)
}

func TestQuizRejectsBadOption(t *testing.T) {
	q := newQuiz(time.Now(), seeded(1))
	_, err := q.Apply(models.SideA, Move{}, time.Now(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidMove)
	_, err = q.Apply(models.SideA, Move{Option: opt(4)}, time.Now(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidMove)
}

func TestReactionIgnoresEarlyTaps(t *testing.T) {
	start := time.Now()
	r := newReaction(start, fixedRand(0))
	goAt := r.SignalAt()
	assert.Equal(t, start.Add(ReactionCountdown+time.Second), goAt)

	w, err := r.Apply(models.SideA, Move{Tap: true}, goAt.Add(-time.Millisecond), nil)
	require.NoError(t, err)
	assert.Equal(t, models.SideNone, w)
	assert.Equal(t, 1, r.Early[models.SideA])

	w, err = r.Apply(models.SideB, Move{Tap: true}, goAt, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SideB, w)

	_, err = r.Apply(models.SideA, Move{Tap: true}, goAt.Add(time.Millisecond), nil)
	assert.ErrorIs(t, err, models.ErrMatchClosed)
}

func TestReactionExpiry(t *testing.T) {
	start := time.Now()
	r := newReaction(start, seeded(2))

	_, err := r.Expire(r.EndsAt.Add(-time.Millisecond), nil)
	assert.ErrorIs(t, err, models.ErrNotExpired)

	w, err := r.Expire(r.EndsAt, fixedRand(1))
	require.NoError(t, err)
	assert.Equal(t, models.SideB, w)

	hidden := r.View(models.SideA, start, false).(*Reaction)
	assert.Nil(t, hidden.GoAt)
	shown := r.View(models.SideA, r.SignalAt(), false).(*Reaction)
	assert.NotNil(t, shown.GoAt)
}

func TestEncodeDecodeKeepsKind(t *testing.T) {
	now := time.Now()
	for _, kind := range Kinds {
		c, err := New(kind, now, seeded(11))
		require.NoError(t, err)
		blob, err := Encode(c)
		require.NoError(t, err)
		back, err := Decode(string(kind), blob)
		require.NoError(t, err)
		assert.Equal(t, kind, back.Kind())
		assert.Equal(t, c.Deadline().UnixMilli(), back.Deadline().UnixMilli())
	}

	_, err := New("darts", now, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = Decode("darts", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestReactionViewHidesSignalTiming(t *testing.T) {
	start := time.Now()
	r := newReaction(start, seeded(6))
	_, err := r.Apply(models.SideB, Move{Tap: true}, start.Add(time.Second), nil)
	require.NoError(t, err)

	hidden := r.View(models.SideA, start.Add(time.Second), false).(*Reaction)
	assert.Nil(t, hidden.GoAt)
	assert.True(t, hidden.EndsAt.IsZero())
	assert.True(t, hidden.Deadline().IsZero())
	assert.Equal(t, start, hidden.StartedAt)
	assert.Equal(t, 1, hidden.Early[models.SideB])

	blob, err := Encode(hidden)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "go_at")
	assert.NotContains(t, string(blob), "ends_at")

	// once the signal has fired the full timing is visible again
	shown := r.View(models.SideA, r.SignalAt(), false).(*Reaction)
	require.NotNil(t, shown.GoAt)
	assert.Equal(t, r.EndsAt, shown.EndsAt)
	assert.Equal(t, r.SignalAt(), *shown.GoAt)
}

func TestDecidedContestsReportResult(t *testing.T) {
	now := time.Now()

	h := newHands()
	assert.Equal(t, models.SideNone, h.Result())
	_, err := h.Expire(now, nil)
	assert.ErrorIs(t, err, models.ErrNotExpired)
	_, err = h.Apply(models.SideA, Move{Hand: Paper}, now, nil)
	require.NoError(t, err)
	_, err = h.Apply(models.SideB, Move{Hand: Scissors}, now, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SideB, h.Result())
	w, err := h.Expire(now, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SideB, w)

	q := newQuiz(now, seeded(8))
	_, err = q.Apply(models.SideA, Move{Option: opt(q.Correct)}, now, nil)
	require.NoError(t, err)
	_, err = q.Apply(models.SideB, Move{Option: opt(wrongOption(q))}, now, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SideA, q.Result())
	w, err = q.Expire(now, nil)
	require.NoError(t, err, "a decided quiz does not wait for its countdown")
	assert.Equal(t, models.SideA, w)
	_, err = q.Apply(models.SideB, Move{Option: opt(q.Correct)}, now, nil)
	assert.ErrorIs(t, err, models.ErrMatchClosed)
	assert.Equal(t, models.SideNone, q.View(models.SideB, now, false).(*Quiz).Winner)
}
