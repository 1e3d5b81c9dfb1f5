// internal/minigame/quiz.go
package minigame

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/gridclash/internal/models"
)

const (
	QuizCountdown = 10 * time.Second
	quizOptions   = 4
	distractorGap = 10
)

// Quiz is a timed multiple-choice arithmetic question. Answers holds each side's option index.
type Quiz struct {
	Prompt  string              `json:"prompt"`
	Left    int                 `json:"left"`
	Right   int                 `json:"right"`
	Op      string              `json:"op"`
	Options [quizOptions]int    `json:"options"`
	Correct int                 `json:"correct"`
	Answers map[models.Side]int `json:"answers,omitempty"`
	Winner  models.Side         `json:"winner,omitempty"`
	EndsAt  time.Time           `json:"ends_at"`
}

func newQuiz(now time.Time, rng Rand) *Quiz {
	left, right, op, answer := question(rng)
	q := &Quiz{
		Prompt: fmt.Sprintf("%d %s %d", left, op, right),
		Left:   left,
		Right:  right,
		Op:     op,
		EndsAt: now.Add(QuizCountdown),
	}
	q.Options, q.Correct = options(answer, rng)
	return q
}

// question draws an operation and operands that keep the result positive and small.
func question(rng Rand) (left, right int, op string, answer int) {
	switch rng.IntN(3) {
	case 0:
		left, right = rng.IntN(20)+1, rng.IntN(20)+1
		return left, right, "+", left + right
	case 1:
		left = rng.IntN(19) + 2
		right = rng.IntN(left-1) + 1
		return left, right, "-", left - right
	default:
		left, right = rng.IntN(10)+1, rng.IntN(10)+1
		return left, right, "×", left * right
	}
}

// options returns the answer plus three distinct positive distractors near it, shuffled,
// and the index the answer landed on.
func options(answer int, rng Rand) ([quizOptions]int, int) {
	var pool []int
	for v := answer - distractorGap; v <= answer+distractorGap; v++ {
		if v > 0 && v != answer {
			pool = append(pool, v)
		}
	}
	shuffle(pool, rng)

	all := []int{answer, pool[0], pool[1], pool[2]}
	shuffle(all, rng)

	var out [quizOptions]int
	correct := 0
	for i, v := range all {
		out[i] = v
		if v == answer {
			correct = i
		}
	}
	return out, correct
}

func shuffle(xs []int, rng Rand) {
	for i := len(xs) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func (q *Quiz) Kind() Kind { return KindQuiz }

func (q *Quiz) Deadline() time.Time { return q.EndsAt }

func (q *Quiz) Apply(side models.Side, mv Move, now time.Time, rng Rand) (models.Side, error) {
	if q.Winner != models.SideNone {
		return models.SideNone, models.ErrMatchClosed
	}
	if mv.Option == nil || *mv.Option < 0 || *mv.Option >= quizOptions {
		return models.SideNone, fmt.Errorf("%w: option must be 0-%d", models.ErrInvalidMove, quizOptions-1)
	}
	if !now.Before(q.EndsAt) {
		return models.SideNone, ErrTooLate
	}
	if _, done := q.Answers[side]; done {
		return models.SideNone, models.ErrAlreadyMoved
	}
	if q.Answers == nil {
		q.Answers = make(map[models.Side]int, 2)
	}
	q.Answers[side] = *mv.Option

	if len(q.Answers) < 2 {
		return models.SideNone, nil
	}
	q.Winner = q.decide(rng)
	return q.Winner, nil
}

func (q *Quiz) Result() models.Side { return q.Winner }

func (q *Quiz) Expire(now time.Time, rng Rand) (models.Side, error) {
	if q.Winner != models.SideNone {
		return q.Winner, nil
	}
	if now.Before(q.EndsAt) {
		return models.SideNone, models.ErrNotExpired
	}
	return q.decide(rng), nil
}

// decide: a lone correct side wins; otherwise a uniform tie-break.
func (q *Quiz) decide(rng Rand) models.Side {
	aOK := q.answeredCorrectly(models.SideA)
	bOK := q.answeredCorrectly(models.SideB)
	switch {
	case aOK && !bOK:
		return models.SideA
	case bOK && !aOK:
		return models.SideB
	}
	return coinFlip(rng)
}

func (q *Quiz) answeredCorrectly(side models.Side) bool {
	opt, ok := q.Answers[side]
	return ok && opt == q.Correct
}

func (q *Quiz) View(viewer models.Side, _ time.Time, resolved bool) Contest {
	c := *q
	if resolved {
		c.Answers = make(map[models.Side]int, len(q.Answers))
		for k, v := range q.Answers {
			c.Answers[k] = v
		}
		return &c
	}
	c.Correct = -1
	c.Winner = models.SideNone
	c.Answers = nil
	if opt, ok := q.Answers[viewer]; ok {
		c.Answers = map[models.Side]int{viewer: opt}
	}
	return &c
}
