package service

import "fmt"

type Code int

const (
	// CodeValidation: missing or malformed input, reported before any store access.
	CodeValidation Code = iota
	// CodeNotFound: note, version, or user absent or owned by another actor.
	// The two cases are deliberately indistinguishable.
	CodeNotFound
	// CodeConflict: duplicate unique constraint (username, public token).
	CodeConflict
	// CodeStorage: underlying store failure; detail is for operators, callers
	// show a generic message.
	CodeStorage
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationErr(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

func notFoundErr(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func conflictErr(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func storageErr(message string, err error) *Error {
	return &Error{Code: CodeStorage, Message: message, Err: err}
}
