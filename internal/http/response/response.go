package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/completion-engine/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps any engine error onto its status and code. Internal
// failures are reported without their cause.
func RespondAPIError(c *gin.Context, err error) {
	apiErr := apierr.From(err)
	if apiErr == nil {
		apiErr = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	_ = c.Error(err)
	if apiErr.Status >= http.StatusInternalServerError {
		c.JSON(apiErr.Status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: apiErr.Code}})
		return
	}
	RespondError(c, apiErr.Status, apiErr.Code, apiErr)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
