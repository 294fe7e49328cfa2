// Package slogx contains helpers for log/slog shared by the whole server.
package slogx

import (
	"context"
	"log/slog"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// DiscardLogger drops every record. Tests pass it to the services they construct.
func DiscardLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

// Err is the attribute under which errors are logged. A nil error is logged as "<nil>".
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "<nil>")
	}
	return slog.String("err", err.Error())
}
