package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Success writes 200 with code 200.
func Success(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Msg: msg, Data: data})
}

// Fail writes 200 with code 500 and the error text as data, the way the
// dashboard clients expect business errors.
func Fail(c *gin.Context, msg string, err error) {
	var data any
	if err != nil {
		data = err.Error()
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusInternalServerError, Msg: msg, Data: data})
}

// AbortWithStatus aborts with an empty body.
func AbortWithStatus(c *gin.Context, status int) {
	c.AbortWithStatus(status)
}

// AbortWithStatusJSON aborts with status and {"error": err}.
func AbortWithStatusJSON(c *gin.Context, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{"code": status, "error": msg})
}
