package response

import (
	"stablehub/internal/shared/apperror"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes err in the standard envelope. Errors without a kind are
// reported as infrastructure errors and their cause is not exposed.
func RespondError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Infrastructure("internal server error", err)
	}
	_ = c.Error(err)

	payload := map[string]interface{}{"code": appErr.Kind}
	for k, v := range appErr.Details {
		payload[k] = v
	}
	RespondJSON(c, "error", apperror.HTTPStatus(appErr.Kind), appErr.Message, nil, payload)
}
