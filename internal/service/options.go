package service

import "errors"

const (
	_defaultListLimit = 20
	_maxListLimit     = 100
)

type Option func(*ReminderService)

func WithDefaultListLimit(limit int) Option {
	return func(s *ReminderService) {
		if limit > 0 {
			s.defaultListLimit = limit
		}
	}
}

func WithMaxListLimit(limit int) Option {
	return func(s *ReminderService) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

func (s *ReminderService) validate() error {
	if s.repo == nil {
		return errors.New("invalid repository: must be non-nil")
	}
	if s.retries == nil {
		return errors.New("invalid retry manager: must be non-nil")
	}
	if s.dispatcher == nil {
		return errors.New("invalid dispatcher: must be non-nil")
	}
	if s.contacts == nil {
		return errors.New("invalid contact repository: must be non-nil")
	}
	if s.defaultListLimit > s.maxListLimit {
		return errors.New("invalid list limits: default exceeds max")
	}
	return nil
}
