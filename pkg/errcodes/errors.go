package errcodes

import (
	"fmt"
	"net/http"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

// Conflict returns a 409 error for uniqueness violations such as a duplicate
// ISBN or email.
func Conflict(msg string) error {
	return &Error{
		http.StatusConflict,
		msg,
		"conflict",
	}
}

// DeleteBlocked returns a 409 error for deletes blocked by dependent rows.
func DeleteBlocked(msg string) error {
	return &Error{
		http.StatusConflict,
		msg,
		"delete_blocked",
	}
}

// BookUnavailable returns a 400 error when a book has no copies left to
// borrow.
func BookUnavailable(bookID int) error {
	return &Error{
		http.StatusBadRequest,
		fmt.Sprintf("No available copies of book with ID %d.", bookID),
		"book_unavailable",
	}
}

// BorrowLimitReached returns a 400 error when a user already holds the
// maximum number of unreturned borrows.
func BorrowLimitReached(limit int) error {
	return &Error{
		http.StatusBadRequest,
		fmt.Sprintf("User has reached the maximum borrow limit of %d.", limit),
		"borrow_limit_reached",
	}
}

// AlreadyReturned returns a 400 error when a borrow record is no longer
// active or overdue.
func AlreadyReturned() error {
	return &Error{
		http.StatusBadRequest,
		"Borrow record has already been returned.",
		"already_returned",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
