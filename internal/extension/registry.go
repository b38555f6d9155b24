package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Kind identifies the entity a hook observes.
type Kind string

const (
	KindOffer Kind = "offer"
	KindOrder Kind = "order"
)

// Event identifies the lifecycle event a hook observes.
type Event string

const (
	EventCreate       Event = "create"
	EventStatusChange Event = "status_change"
)

// HookContext carries immutable snapshots of the entity around a lifecycle
// event. Before is nil for create events. Hooks must not rely on mutating
// these maps; the engines never read them back.
type HookContext struct {
	Kind   Kind
	Event  Event
	Before map[string]any
	After  map[string]any
}

// Hook is invoked around a lifecycle event. A non-nil error from a before
// hook vetoes the operation.
type Hook func(ctx context.Context, hc HookContext) error

// Extension declares the hooks a module contributes. Unset hooks are simply
// not dispatched.
type Extension struct {
	Name Name
	Kind Kind

	BeforeCreate       Hook
	AfterCreate        Hook
	BeforeStatusChange Hook
	AfterStatusChange  Hook
}

// Name is the unique extension identifier.
type Name string

var (
	ErrInvalidExtension = errors.New("invalid_extension")
	ErrVetoed           = errors.New("operation_vetoed")
)

// VetoError reports which extension rejected an operation and why. It wraps
// ErrVetoed so callers can classify it without knowing the extension.
type VetoError struct {
	Extension Name
	Reason    string
}

func (e *VetoError) Error() string {
	return fmt.Sprintf("vetoed by extension %s: %s", e.Extension, e.Reason)
}

func (e *VetoError) Unwrap() error {
	return ErrVetoed
}

// Registry holds registered extensions in registration order. It is populated
// during startup and read-only afterwards, so dispatch needs no locking.
type Registry struct {
	log        *zap.Logger
	extensions map[Kind][]Extension
	names      map[Name]struct{}
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		log:        log.Named("extension.registry"),
		extensions: make(map[Kind][]Extension),
		names:      make(map[Name]struct{}),
	}
}

// Register adds an extension. Registration order is dispatch order.
func (r *Registry) Register(ext Extension) error {
	name := Name(strings.TrimSpace(string(ext.Name)))
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidExtension)
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("%w: duplicate name %q", ErrInvalidExtension, name)
	}
	switch ext.Kind {
	case KindOffer, KindOrder:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidExtension, ext.Kind)
	}
	ext.Name = name
	r.names[name] = struct{}{}
	r.extensions[ext.Kind] = append(r.extensions[ext.Kind], ext)
	return nil
}

// DispatchBefore runs before hooks in registration order. The first hook to
// return an error vetoes the operation: remaining hooks are skipped and the
// veto is returned to the caller. Nothing has been written at this point.
func (r *Registry) DispatchBefore(ctx context.Context, hc HookContext) error {
	for _, ext := range r.extensions[hc.Kind] {
		hook := ext.before(hc.Event)
		if hook == nil {
			continue
		}
		if err := hook(ctx, hc); err != nil {
			veto := &VetoError{Extension: ext.Name, Reason: err.Error()}
			var existing *VetoError
			if errors.As(err, &existing) {
				veto.Reason = existing.Reason
			}
			return veto
		}
	}
	return nil
}

// DispatchAfter runs after hooks in registration order. After hooks are
// advisory: a failing hook is logged and never fails the committed operation.
func (r *Registry) DispatchAfter(ctx context.Context, hc HookContext) {
	for _, ext := range r.extensions[hc.Kind] {
		hook := ext.after(hc.Event)
		if hook == nil {
			continue
		}
		if err := hook(ctx, hc); err != nil {
			r.log.Warn("after hook failed",
				zap.String("extension", string(ext.Name)),
				zap.String("kind", string(hc.Kind)),
				zap.String("event", string(hc.Event)),
				zap.Error(err),
			)
		}
	}
}

func (e Extension) before(event Event) Hook {
	switch event {
	case EventCreate:
		return e.BeforeCreate
	case EventStatusChange:
		return e.BeforeStatusChange
	default:
		return nil
	}
}

func (e Extension) after(event Event) Hook {
	switch event {
	case EventCreate:
		return e.AfterCreate
	case EventStatusChange:
		return e.AfterStatusChange
	default:
		return nil
	}
}
