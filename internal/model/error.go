// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package model

type ErrorReason int

const (
	ErrorReasonDeadline ErrorReason = iota
	ErrorReasonProcess
	ErrorReasonInvalidPage
)

func (r ErrorReason) String() string {
	switch r {
	case ErrorReasonDeadline:
		return "deadline"
	case ErrorReasonProcess:
		return "process"
	case ErrorReasonInvalidPage:
		return "invalid-page"
	default:
		return "unknown"
	}
}
