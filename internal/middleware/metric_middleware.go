package middleware

import (
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

// SetupPrometheus exposes request metrics under the vault subsystem at
// the default /metrics path.
func SetupPrometheus(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem: "vault",
	})
	p.Use(r)
}
