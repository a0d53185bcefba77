// Package core holds the shared HTTP response envelope.
package core

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurabytelabs/modus-forge/pkg/errorx"
)

// ErrResponse is the error envelope returned by every endpoint.
type ErrResponse struct {
	Code   int    `json:"code"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WriteResponse writes either an error envelope (status from the
// error's registered coder) or data with 200.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		coder := errorx.ParseCoder(err)
		c.JSON(coder.HTTPStatus(), ErrResponse{
			Code:   coder.Code(),
			Error:  coder.String(),
			Detail: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, data)
}
