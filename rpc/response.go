package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/valency/foxcoin/core"
	"github.com/valency/foxcoin/p2p"
)

const (
	CodeSuccess    = 0
	CodeFailed     = 1
	CodeBadRequest = 2
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPResponse is the body of every reply, the HTTP status tells the outcome as well
type HTTPResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// ParseHTTPResponse decodes a response, expectData receives the data field
func ParseHTTPResponse(j []byte, expectData interface{}) *HTTPResponse {
	result := &HTTPResponse{Data: expectData}
	if err := json.Unmarshal(j, result); err != nil {
		return nil
	}
	return result
}

func reply(status int, resp *HTTPResponse, w http.ResponseWriter) {
	respB, err := json.Marshal(resp)
	if err != nil {
		logger.Warn("json marshal HTTPResponse failed:%v\n", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(respB)
}

func okResponse(data interface{}, w http.ResponseWriter) {
	reply(http.StatusOK, &HTTPResponse{Code: CodeSuccess, Data: data}, w)
}

func badRequestResponse(w http.ResponseWriter, format string, v ...interface{}) {
	reply(http.StatusBadRequest, &HTTPResponse{
		Code:    CodeBadRequest,
		Message: fmt.Sprintf(format, v...),
	}, w)
}

func methodNotAllowed(allowed string, w http.ResponseWriter) {
	w.Header().Set("Allow", allowed)
	reply(http.StatusMethodNotAllowed, &HTTPResponse{
		Code:    CodeBadRequest,
		Message: "method not allowed, use " + allowed,
	}, w)
}

// failedResponse reports err of the core with status unless err has a
// status of its own; data too large is still a bad request of the caller
func failedResponse(err error, status int, w http.ResponseWriter) {
	if s, ok := failureStatus(err); ok {
		status = s
	}
	code := CodeFailed
	if status == http.StatusRequestEntityTooLarge {
		code = CodeBadRequest
	}
	reply(status, &HTTPResponse{Code: code, Message: err.Error()}, w)
}

func failureStatus(err error) (int, bool) {
	switch {
	case errors.As(err, &core.ErrDataTooLarge{}):
		return http.StatusRequestEntityTooLarge, true
	case errors.Is(err, p2p.ErrBlacklisted):
		return http.StatusTooManyRequests, true
	case errors.Is(err, p2p.ErrNegotiateTooManyPeers), errors.Is(err, p2p.ErrNegotiateDuplicate):
		return http.StatusConflict, true
	case errors.Is(err, core.ErrStopped), errors.Is(err, p2p.ErrNodeStopped),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, true
	}
	return 0, false
}
