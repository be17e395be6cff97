package cart

import (
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	SessionName = "ywfa_shop"

	cartKey  = "cart"
	tokenKey = "checkout_token"
)

func init() {
	gob.Register(map[string]Line{})
}

// Store loads and saves carts in the per-user cookie session. The session
// backend serializes writes per session key, which is the cart's
// mutual-exclusion boundary.
type Store struct {
	policy Policy
}

func NewStore(policy Policy) *Store {
	return &Store{policy: policy}
}

// Load returns the session's cart, creating an empty one on first access.
func (s *Store) Load(c echo.Context) (*Cart, error) {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	crt := New(s.policy)
	if lines, ok := sess.Values[cartKey].(map[string]Line); ok {
		crt.Lines = lines
	}
	return crt, nil
}

// Save writes the cart back to the session when it has been modified.
func (s *Store) Save(c echo.Context, crt *Cart) error {
	if !crt.Modified() {
		return nil
	}
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	sess.Values[cartKey] = crt.Lines
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	crt.ResetModified()
	return nil
}

// CheckoutToken returns the session's checkout idempotency token, minting a
// fresh one when none exists yet. The token is rotated after a successful
// order so a new checkout gets a new order.
func (s *Store) CheckoutToken(c echo.Context) (string, error) {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if token, ok := sess.Values[tokenKey].(string); ok && token != "" {
		return token, nil
	}
	token := uuid.NewString()
	sess.Values[tokenKey] = token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

// RotateCheckoutToken drops the session's checkout token.
func (s *Store) RotateCheckoutToken(c echo.Context) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	delete(sess.Values, tokenKey)
	return sess.Save(c.Request(), c.Response())
}

// Flash queues a one-shot message for the next rendered page.
func Flash(c echo.Context, message string) {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return
	}
	sess.AddFlash(message)
	_ = sess.Save(c.Request(), c.Response())
}

// Flashes drains the queued flash messages.
func Flashes(c echo.Context) []string {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			messages = append(messages, msg)
		}
	}
	_ = sess.Save(c.Request(), c.Response())
	return messages
}
