package protocol

import (
	"errors"
	"fmt"

	"github.com/marcus/macropad/internal/profile"
)

// Code identifies a request or response frame.
type Code int

const (
	CodePing                     Code = 0x0
	CodePong                     Code = 0x1
	CodeGetCurrentMacroName      Code = 0x2
	CodeSetCurrentMacroByName    Code = 0x3
	CodeGetMacroDefinition       Code = 0x4
	CodeCreateMacroDefinition    Code = 0x5
	CodeUpdateMacroDefinition    Code = 0x6
	CodeDeleteMacroDefinition    Code = 0x7
	CodeListMacroDefinitionNames Code = 0x8
)

var codeNames = map[Code]string{
	CodePing:                     "PING",
	CodePong:                     "PONG",
	CodeGetCurrentMacroName:      "GET_CURRENT_MACRO_NAME",
	CodeSetCurrentMacroByName:    "SET_CURRENT_MACRO_BY_NAME",
	CodeGetMacroDefinition:       "GET_MACRO_DEFINITION",
	CodeCreateMacroDefinition:    "CREATE_MACRO_DEFINITION",
	CodeUpdateMacroDefinition:    "UPDATE_MACRO_DEFINITION",
	CodeDeleteMacroDefinition:    "DELETE_MACRO_DEFINITION",
	CodeListMacroDefinitionNames: "LIST_MACRO_DEFINITION_NAMES",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// ErrorKind is the failure category carried in error payloads.
type ErrorKind struct {
	Name string
	Code int
}

var (
	KindNotFound       = ErrorKind{Name: "NOT_FOUND", Code: 1}
	KindInvalidPayload = ErrorKind{Name: "INVALID_PAYLOAD", Code: 2}
	KindUnknown        = ErrorKind{Name: "UNKNOWN", Code: 3}
	KindAlreadyExists  = ErrorKind{Name: "ALREADY_EXIST", Code: 4}
)

// KindByCode returns the error kind with the given numeric code.
func KindByCode(code int) (ErrorKind, bool) {
	for _, k := range []ErrorKind{KindNotFound, KindInvalidPayload, KindUnknown, KindAlreadyExists} {
		if k.Code == code {
			return k, true
		}
	}
	return ErrorKind{}, false
}

// KindOf classifies an operation error.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return KindNotFound
	case errors.Is(err, profile.ErrInvalidPayload):
		return KindInvalidPayload
	case errors.Is(err, profile.ErrAlreadyExists):
		return KindAlreadyExists
	default:
		return KindUnknown
	}
}
