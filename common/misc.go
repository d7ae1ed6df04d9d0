package common

// PagedBody is the envelope of list responses.
type PagedBody struct {
	List  interface{} `json:"data"`
	Total int         `json:"total"`
}

type ErrorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
