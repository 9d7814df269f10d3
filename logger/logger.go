// Package logger holds the named, file-scoped types.Logger instances used
// across the engine, wired up by logger/zap.Init.
package logger

import (
	"github.com/forbearing/uow/types"
	gorml "gorm.io/gorm/logger"
)

var (
	// Session logs Session façade calls (persist/remove/merge/detach/...).
	Session types.Logger
	// Flush logs the flush scheduler's transaction protocol.
	Flush types.Logger
	// Gorm is the gorm logger.Interface wired into the example executor.
	Gorm gorml.Interface
)
