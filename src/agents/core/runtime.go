package core

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RuntimeDeps captures shared resources that agents can opt into.
type RuntimeDeps struct {
	DB    *gorm.DB
	Redis *redis.Client
	HTTP  *http.Client
	Log   *zap.SugaredLogger
}
