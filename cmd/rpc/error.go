package rpc

import (
	"fmt"

	"github.com/p2pclaw/hive/lib"
)

func ErrRateLimited() lib.ErrorI {
	return lib.NewError(lib.CodeRateLimited, lib.RPCModule, "too many requests").
		WithHint("slow down and retry")
}

func ErrBadRequest(err error) lib.ErrorI {
	return lib.NewError(lib.CodeBadRequest, lib.RPCModule, fmt.Sprintf("bad request: %s", err.Error()))
}

func ErrPostRequest(err error) lib.ErrorI {
	return lib.NewError(lib.CodePostRequest, lib.RPCModule, fmt.Sprintf("http.Post() failed with err: %s", err.Error()))
}

func ErrGetRequest(err error) lib.ErrorI {
	return lib.NewError(lib.CodeGetRequest, lib.RPCModule, fmt.Sprintf("http.Get() failed with err: %s", err.Error()))
}

func ErrReadBody(err error) lib.ErrorI {
	return lib.NewError(lib.CodeReadBody, lib.RPCModule, fmt.Sprintf("io.ReadAll(http.ResponseBody) failed with err: %s", err.Error()))
}

func ErrHttpStatus(status string, statusCode int, body []byte) lib.ErrorI {
	return lib.NewError(lib.CodeHttpStatus, lib.RPCModule, fmt.Sprintf("http response bad status %s with code %d and body %s", status, statusCode, body))
}
