package protocol

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/tidwall/gjson"
)

// MaxFrameSize bounds a request line, terminator included.
const MaxFrameSize = 4096

// StatusSuccess is the status of every success payload.
const StatusSuccess = "success"

// Request is a structurally valid request frame.
type Request struct {
	Code    Code
	Payload json.RawMessage
}

// ParseRequest validates one request line. ok is false for anything that is
// not a JSON object with an integral "code" and a "payload" of any type.
func ParseRequest(line []byte) (req Request, ok bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !gjson.ValidBytes(line) {
		return Request{}, false
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return Request{}, false
	}

	code := root.Get("code")
	if code.Type != gjson.Number || code.Num != math.Trunc(code.Num) ||
		code.Num > math.MaxInt32 || code.Num < math.MinInt32 {
		return Request{}, false
	}
	payload := root.Get("payload")
	if !payload.Exists() {
		return Request{}, false
	}

	return Request{Code: Code(code.Int()), Payload: json.RawMessage(payload.Raw)}, true
}

// Response is one response frame.
type Response struct {
	Code    Code `json:"code"`
	Payload any  `json:"payload"`
}

// SuccessPayload is the payload of a successful response.
type SuccessPayload struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorPayload is the payload of a failed response.
type ErrorPayload struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"errorCode"`
	Detail    string `json:"detail"`
}

// Success builds a success response. A nil data becomes an empty object.
func Success(code Code, data any) Response {
	if data == nil {
		data = map[string]any{}
	}
	return Response{Code: code, Payload: SuccessPayload{Status: StatusSuccess, Data: data}}
}

// Failure builds an error response.
func Failure(code Code, kind ErrorKind, detail string) Response {
	return Response{Code: code, Payload: ErrorPayload{Error: kind.Name, ErrorCode: kind.Code, Detail: detail}}
}

// Encode renders a response as a single JSON object without terminator.
func (r Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// IsError reports whether r carries an error payload.
func (r Response) IsError() bool {
	_, ok := r.Payload.(ErrorPayload)
	return ok
}
