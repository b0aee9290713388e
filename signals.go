package autodict

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for autodict events.
var (
	SignalTypeRegistered   = capitan.NewSignal("autodict.type.registered", "Type marked dictable")
	SignalToDictStart      = capitan.NewSignal("autodict.todict.start", "ToDict operation beginning")
	SignalToDictComplete   = capitan.NewSignal("autodict.todict.complete", "ToDict operation finished")
	SignalFromDictStart    = capitan.NewSignal("autodict.fromdict.start", "FromDict operation beginning")
	SignalFromDictComplete = capitan.NewSignal("autodict.fromdict.complete", "FromDict operation finished")
	SignalEncodeComplete   = capitan.NewSignal("autodict.encode.complete", "Encode operation finished")
	SignalDecodeComplete   = capitan.NewSignal("autodict.decode.complete", "Decode operation finished")
)

// Keys for typed event data.
var (
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyTypeID      = capitan.NewStringKey("type_id")
	KeyContentType = capitan.NewStringKey("content_type")
	KeyFieldCount  = capitan.NewIntKey("field_count")
	KeySize        = capitan.NewIntKey("size")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
)

// emitTypeRegistered emits an event when a type is added to a registry.
func emitTypeRegistered(ctx context.Context, typeName, id string, fields int) {
	capitan.Emit(ctx, SignalTypeRegistered,
		KeyTypeName.Field(typeName),
		KeyTypeID.Field(id),
		KeyFieldCount.Field(fields),
	)
}

// emitToDictStart emits an event when ToDict begins.
func emitToDictStart(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalToDictStart,
		KeyTypeName.Field(typeName),
	)
}

// emitToDictComplete emits an event when ToDict finishes.
func emitToDictComplete(ctx context.Context, typeName string, duration time.Duration, keys int, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
		KeyFieldCount.Field(keys),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalToDictComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalToDictComplete, fields...)
	}
}

// emitFromDictStart emits an event when FromDict begins.
func emitFromDictStart(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalFromDictStart,
		KeyTypeName.Field(typeName),
	)
}

// emitFromDictComplete emits an event when FromDict finishes.
func emitFromDictComplete(ctx context.Context, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalFromDictComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalFromDictComplete, fields...)
	}
}

// emitEncodeComplete emits an event when Encode finishes.
func emitEncodeComplete(ctx context.Context, contentType string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalEncodeComplete, fields...)
	}
}

// emitDecodeComplete emits an event when Decode finishes.
func emitDecodeComplete(ctx context.Context, contentType string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDecodeComplete, fields...)
	}
}
