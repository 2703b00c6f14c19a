package service

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrCaptchaFailed is returned for a missing, unknown, expired or wrong
// captcha answer.
var ErrCaptchaFailed = errors.New("please solve the math problem correctly")

// Captcha is a challenge handed to the contact form.
type Captcha struct {
	ID       string `json:"captcha_id"`
	Question string `json:"question"`
}

const maxPendingCaptchas = 10000

type challenge struct {
	answer    int
	expiresAt time.Time
}

// CaptchaStore issues single-use addition challenges and remembers their
// answers until they expire.
type CaptchaStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	challenges map[string]challenge
}

func NewCaptchaStore(ttl time.Duration) *CaptchaStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CaptchaStore{
		ttl:        ttl,
		now:        time.Now,
		challenges: make(map[string]challenge),
	}
}

// Issue creates a new challenge of the form "a + b" with both operands in
// 1..10.
func (c *CaptchaStore) Issue() Captcha {
	a := rand.IntN(10) + 1
	b := rand.IntN(10) + 1
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
	if len(c.challenges) >= maxPendingCaptchas {
		for old := range c.challenges {
			delete(c.challenges, old)
			break
		}
	}
	c.challenges[id] = challenge{answer: a + b, expiresAt: c.now().Add(c.ttl)}

	return Captcha{ID: id, Question: fmt.Sprintf("%d + %d", a, b)}
}

// Verify checks answer against the challenge id. The challenge is consumed
// whether or not the answer is right.
func (c *CaptchaStore) Verify(id, answer string) error {
	c.mu.Lock()
	ch, ok := c.challenges[id]
	delete(c.challenges, id)
	c.mu.Unlock()

	if !ok || !c.now().Before(ch.expiresAt) {
		return ErrCaptchaFailed
	}
	got, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || got != ch.answer {
		return ErrCaptchaFailed
	}
	return nil
}

// Pending returns the number of outstanding challenges.
func (c *CaptchaStore) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.challenges)
}

func (c *CaptchaStore) purgeLocked() {
	now := c.now()
	for id, ch := range c.challenges {
		if !now.Before(ch.expiresAt) {
			delete(c.challenges, id)
		}
	}
}
