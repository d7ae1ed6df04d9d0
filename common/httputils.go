package common

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HttpInvokeJson sends reqBody as JSON and returns the response body of a 2xx response.
// Any other outcome is reported as *ErrHttpInvoke.
func HttpInvokeJson(ctx context.Context, client *http.Client, method, url string, headers http.Header, reqBody []byte) ([]byte, error) {
	var body io.Reader
	if reqBody != nil {
		body = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, NewErrHttpInvoke(req, reqBody, nil, nil, err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	for name, values := range headers {
		req.Header.Del(name)
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewErrHttpInvoke(req, reqBody, resp, nil, err)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewErrHttpInvoke(req, reqBody, resp, nil, err)
	}
	if !HttpStatusIsSuccess(resp.StatusCode) {
		return nil, NewErrHttpInvoke(req, reqBody, resp, respBody, nil)
	}

	return respBody, nil
}

func HttpStatusIsSuccess(status int) bool {
	return status >= 200 && status < 300
}

type ErrHttpInvoke struct {
	Method  string
	Url     string
	ReqBody string

	StatusCode int
	StatusText string
	RespBody   string

	Cause error
}

func NewErrHttpInvoke(req *http.Request, reqBody []byte, resp *http.Response, respBody []byte, cause error) *ErrHttpInvoke {
	err := ErrHttpInvoke{}
	err.Cause = cause
	if req != nil {
		err.Method = req.Method
		err.Url = req.URL.String()
		err.ReqBody = string(reqBody)
	}

	if resp != nil {
		err.StatusCode = resp.StatusCode
		err.StatusText = resp.Status
		err.RespBody = string(respBody)
	}
	return &err
}

func (e *ErrHttpInvoke) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("http invoke failed. request %s %s: %v", e.Method, e.Url, e.Cause)
	}
	return fmt.Sprintf("http invoke failed. request %s %s, response %d, body: '%s'",
		e.Method, e.Url, e.StatusCode, e.RespBody)
}

func (e *ErrHttpInvoke) Unwrap() error {
	return e.Cause
}
