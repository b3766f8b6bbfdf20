package topology

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the structural invariants of a topology and its channels.
func Validate(t *Topology) error {
	if t == nil {
		return &Error{Kind: ErrorInvalidInput, Message: "topology is nil"}
	}
	if err := validate.Struct(t); err != nil {
		return &Error{
			Kind:    ErrorInvalidInput,
			Message: fmt.Sprintf("invalid topology %q", t.ServiceName),
			Cause:   describe(err),
		}
	}
	return nil
}

// ValidateChannel checks a single channel.
func ValidateChannel(ch Channel) error {
	if err := validate.Struct(ch); err != nil {
		return &Error{
			Kind:    ErrorInvalidInput,
			Channel: ch.Name,
			Message: "invalid channel",
			Cause:   describe(err),
		}
	}
	return nil
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
