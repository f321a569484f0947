package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
)

// FeatureGate guards the prediction surface behind the runtime flags. The
// prediction gate answers 404 so a disabled deployment looks like the routes
// do not exist; the write gate answers 403 on an otherwise visible surface.
type FeatureGate struct {
	log               *logger.Logger
	predictionEnabled bool
	writesEnabled     bool
}

func NewFeatureGate(log *logger.Logger, predictionEnabled, writesEnabled bool) *FeatureGate {
	return &FeatureGate{
		log:               log.With("middleware", "FeatureGate"),
		predictionEnabled: predictionEnabled,
		writesEnabled:     writesEnabled,
	}
}

func (fg *FeatureGate) PredictionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !fg.predictionEnabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Next()
	}
}

func (fg *FeatureGate) WriteRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !fg.writesEnabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "prediction writes are disabled"})
			return
		}
		c.Next()
	}
}
