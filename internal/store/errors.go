package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidName = errors.New("invalid name")
	ErrExists      = errors.New("already exists")
)

// StorageError wraps a failed storage operation with the campaign/story it concerned.
type StorageError struct {
	Op       string
	Campaign string
	Story    string
	Err      error
}

func (e *StorageError) Error() string {
	switch {
	case e.Story != "":
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Campaign, e.Story, e.Err)
	case e.Campaign != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Campaign, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *StorageError) Unwrap() error { return e.Err }

func wrapErr(op, campaign, story string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Campaign: campaign, Story: story, Err: err}
}
