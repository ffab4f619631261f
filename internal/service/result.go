package service

import (
	"encoding/json"
	"errors"
	"portalbot-backend/internal/scrapers/session"
)

const (
	MessageLoginFailed   = "ログインに失敗しました"
	MessageNetworkPrefix = "ポータルに接続できませんでした: "
)

// Result is what every facade operation returns, it marshals to the value itself on
// success and to {"error": "..."} on failure.
type Result[T any] struct {
	Value T
	Err   string
}

func (r Result[T]) OK() bool {
	return r.Err == ""
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	if !r.OK() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.Err})
	}
	return json.Marshal(r.Value)
}

// ErrorMessage turns an operation error into the message shown to the bot's users.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if session.IsAuthError(err) {
		return MessageLoginFailed
	}
	var netErr *session.NetworkError
	if errors.As(err, &netErr) {
		return MessageNetworkPrefix + netErr.Err.Error()
	}
	return err.Error()
}
