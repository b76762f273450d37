package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
)

// RespondAppError renders a service-layer error with its own status, code and
// kind. Non-apierr errors fall back to a 500 internal_error envelope.
func RespondAppError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		c.JSON(ae.Status, ErrorEnvelope{
			Error: APIError{
				Message: ae.Error(),
				Code:    ae.Code,
				Kind:    string(ae.Kind),
			},
		})
		return
	}
	RespondError(c, apierr.StatusOf(err), apierr.CodeOf(err), err)
}
