package receiver

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/eiscpctl/internal/protocol"
)

// DefaultCommandTimeout bounds how long a command waits for its reply.
const DefaultCommandTimeout = 5 * time.Second

// Logger is the leveled logging capability the client needs. *zap.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Recorder receives client activity for metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	CommandSent(code string)
	CommandCompleted(code string, took time.Duration, err error)
	EventReceived(event string)
	DecodeFailed(reason string)
}

// Options configures a Client.
type Options struct {
	// Address is the receiver host name or IP. Required.
	Address string

	// Port defaults to protocol.DefaultPort (60128).
	Port int

	// Name is a display name. Defaults to Address.
	Name string

	// Logger defaults to a no-op logger.
	Logger Logger

	// CommandTimeout defaults to DefaultCommandTimeout.
	CommandTimeout time.Duration

	// Recorder is optional.
	Recorder Recorder
}

// withDefaults validates o and returns a copy with defaults filled in.
func (o Options) withDefaults() (Options, error) {
	if o.Address == "" {
		return o, fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}

	switch {
	case o.Port == 0:
		o.Port = protocol.DefaultPort
	case o.Port < 0 || o.Port > 65535:
		return o, fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, o.Port)
	}

	if o.Name == "" {
		o.Name = o.Address
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	} else if isNilValue(o.Logger) {
		return o, fmt.Errorf("%w: logger %T is nil", ErrInvalidConfig, o.Logger)
	}

	switch {
	case o.CommandTimeout == 0:
		o.CommandTimeout = DefaultCommandTimeout
	case o.CommandTimeout < 0:
		return o, fmt.Errorf("%w: negative command timeout", ErrInvalidConfig)
	}

	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	} else if isNilValue(o.Recorder) {
		return o, fmt.Errorf("%w: recorder %T is nil", ErrInvalidConfig, o.Recorder)
	}

	return o, nil
}

// isNilValue catches typed nil pointers hiding inside a non-nil interface.
func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

type nopRecorder struct{}

func (nopRecorder) CommandSent(string) {}
func (nopRecorder) CommandCompleted(string, time.Duration, error) {}
func (nopRecorder) EventReceived(string) {}
func (nopRecorder) DecodeFailed(string) {}
