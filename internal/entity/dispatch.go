package entity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/resolver"
)

// HandleEvent dispatches an event to its handler. It returns whether the
// record should be saved afterwards.
func (r *Record) HandleEvent(ctx context.Context, in Input) (bool, error) {
	return r.dispatch(ctx, in, r.typ.events)
}

// HandleCall dispatches a contract call to its handler. It returns whether
// the record should be saved afterwards.
func (r *Record) HandleCall(ctx context.Context, in Input) (bool, error) {
	return r.dispatch(ctx, in, r.typ.calls)
}

// Handle dispatches in as a call or an event depending on its shape.
func (r *Record) Handle(ctx context.Context, in Input) (bool, error) {
	if in.IsCall() {
		return r.HandleCall(ctx, in)
	}
	return r.HandleEvent(ctx, in)
}

func (r *Record) dispatch(ctx context.Context, in Input, handlers *resolver.Registry) (bool, error) {
	reg, ok := handlers.Resolve(in.Name)
	if !ok {
		return false, &errs.DispatchError{Code: errs.CodeNoHandler, Input: in.Name}
	}
	handler, ok := r.typ.methods[reg.Method]
	if !ok {
		return false, &errs.DispatchError{Code: errs.CodeHandlerNotInvocable, Input: in.Name, Method: reg.Method}
	}

	r.state = Dispatching
	r.input = in
	r.assignOrigin()

	slog.Debug("dispatching",
		"type", r.typ.Name(),
		"kind", in.Kind(),
		"input", in.Name,
		"match", reg.MatchKey,
		"method", reg.Method)

	for _, name := range r.typ.beforeAll {
		before, ok := r.typ.methods[name]
		if !ok {
			return false, &errs.DispatchError{Code: errs.CodeHandlerNotInvocable, Input: in.Name, Method: name}
		}
		out, err := before(ctx, r, in)
		if err != nil {
			return false, fmt.Errorf("%s %s: before-all %s: %w", in.Kind(), in.Name, name, err)
		}
		if out == Halt {
			slog.Debug("dispatch halted", "type", r.typ.Name(), "input", in.Name, "by", name)
			r.state = Skipped
			return false, nil
		}
	}

	out, err := handler(ctx, r, in)
	if err != nil {
		return false, fmt.Errorf("%s %s: handler %s: %w", in.Kind(), in.Name, reg.Method, err)
	}

	autoSave := out != Halt && reg.ShouldAutoSave()
	if !autoSave && r.state == Dispatching {
		r.state = Skipped
	}
	return autoSave, nil
}
