package source

import (
	"errors"
	"fmt"
)

// Every error returned by Source.Check wraps exactly one of these kinds.
// Callers check with errors.Is(err, source.ErrLinkIsNotImage) and so on.
var (
	// ErrLinkIsNotImage means the target's content-type is missing or is not an image.
	ErrLinkIsNotImage = errors.New("link is not an image")
	// ErrMissingConfiguration means a value the source needs (an API key) was not supplied.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrTransport wraps network failures, non-2xx statuses and timeouts.
	ErrTransport = errors.New("transport error")
	// ErrDecode means the upstream answer did not have the expected shape.
	ErrDecode = errors.New("decode error")
	// ErrTemplating means the request URL template could not be filled.
	ErrTemplating = errors.New("templating error")

	// ErrUnknownSource is returned by the registry for a name it does not know.
	ErrUnknownSource = errors.New("unknown source")
)

// Both the kind and the cause stay reachable through errors.Is / errors.As.
func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

func decodeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDecode, op, err)
}

func templatingError(err error) error {
	return fmt.Errorf("%w: %w", ErrTemplating, err)
}

func missingConfiguration(source, field string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMissingConfiguration, source, field)
}

// Error kinds as reported in logs, metrics labels and API responses.
const (
	KindLinkIsNotImage       = "link_is_not_image"
	KindMissingConfiguration = "missing_configuration"
	KindTransport            = "transport"
	KindDecode               = "decode"
	KindTemplating           = "templating"
	KindUnknown              = "unknown"
)

// KindOf maps err to a stable snake_case kind. A nil error has no kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLinkIsNotImage):
		return KindLinkIsNotImage
	case errors.Is(err, ErrMissingConfiguration):
		return KindMissingConfiguration
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrTemplating):
		return KindTemplating
	default:
		return KindUnknown
	}
}
