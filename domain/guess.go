package domain

import (
	stderrors "errors"
	"fmt"
	"io"
	"scenario-lab/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const (
	tooSmallMessage = "Guess value must be greater than or equal to 1, got %d."
	tooLargeMessage = "Guess value must be less than or equal to 100, got %d."
)

// guessRange carries the bounds of a Guess as validation tags.
type guessRange struct {
	Value int `validate:"min=1,max=100"`
}

// Guess is an integer guaranteed to lie in [1, 100].
type Guess struct {
	value int
}

func (g Guess) Value() int {
	return g.value
}

// ValidationError is raised when a Guess is built outside of its bounds.
// It matches errors.ErrGuessOutOfRange through errors.Is.
type ValidationError struct {
	Value   int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return errors.ErrGuessOutOfRange
}

// GuessPolicy selects how out of range values are reported.
// LegacyMessages swaps the two texts: a value below 1 reports the upper
// bound and a value above 100 reports the lower one.
type GuessPolicy struct {
	LegacyMessages bool
}

// Validate checks the bounds without aborting.
func (p GuessPolicy) Validate(value int) error {
	err := validate.Struct(guessRange{Value: value})
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("guess validation: %w", err)
	}

	tooSmall := fieldErrors[0].Tag() == "min"
	if p.LegacyMessages {
		tooSmall = !tooSmall
	}
	format := tooLargeMessage
	if tooSmall {
		format = tooSmallMessage
	}
	return &ValidationError{Value: value, Message: fmt.Sprintf(format, value)}
}

// New builds a Guess and panics with a *ValidationError when value is out of range.
func (p GuessPolicy) New(value int) Guess {
	if err := p.Validate(value); err != nil {
		panic(err)
	}
	return Guess{value: value}
}

// NewGuess builds a Guess with the default policy.
func NewGuess(value int) Guess {
	return GuessPolicy{}.New(value)
}

// ComputeTen writes the received value to w and always returns 10.
func ComputeTen(w io.Writer, a int) int {
	_, _ = fmt.Fprintf(w, "I got the value %d\n", a)
	return 10
}
