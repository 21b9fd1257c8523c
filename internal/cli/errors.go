package cli

import (
	"errors"
	"fmt"

	"github.com/mark3labs/apitool/internal/apiitem"
)

var ErrUsage = errors.New("cli usage error")

// usageError is an error the user can fix by changing flags or input files. It keeps
// the underlying error reachable for errors.Is/As.
type usageError struct {
	msg   string
	cause error
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func newUsageErrorWrap(msg string, cause error) error {
	return usageError{msg: msg, cause: cause}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

func (e usageError) Unwrap() error { return e.cause }

// wrapItemsError turns api configuration problems into usage errors naming the file.
func wrapItemsError(err error) error {
	var ce *apiitem.ConfigError
	if errors.As(err, &ce) {
		msg := fmt.Sprintf("api config: %s", ce.Message)
		if ce.Location != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, ce.Location)
		}
		if ce.Path != "" {
			msg = fmt.Sprintf("%s\nFile: %s", msg, ce.Path)
		}
		return newUsageErrorWrap(msg, err)
	}
	if errors.Is(err, apiitem.ErrNoApiItems) {
		return newUsageErrorWrap(err.Error()+"\nHint: add groups to the api config file or under the \"api\" key of the tool config.", err)
	}
	return err
}
