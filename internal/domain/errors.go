package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigFormat marks a config document that cannot be decoded or fails validation.
	ErrConfigFormat = errors.New("bad config format")

	// ErrConfigSourceType marks an unknown source type or a source config its adapter rejects.
	ErrConfigSourceType = errors.New("bad config source type")

	// ErrNoHeartbeat is returned when no fresh heartbeat record exists for a group.
	ErrNoHeartbeat = errors.New("no fresh heartbeat record")
)

// ArticleParseError describes a single item that could not be extracted from a page.
type ArticleParseError struct {
	PageURL string
	Index   int
	Reason  string
	Err     error
}

func (e *ArticleParseError) Error() string {
	msg := fmt.Sprintf("bad article format: %s, page %s, article index %d", e.Reason, e.PageURL, e.Index)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArticleParseError) Unwrap() error {
	return e.Err
}
