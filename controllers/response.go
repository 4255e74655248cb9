package controllers

import "github.com/gin-gonic/gin"

// errorBody builds the standard error envelope used by every endpoint.
func errorBody(code, message string) gin.H {
	return gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func dataBody(data interface{}) gin.H {
	return gin.H{
		"success": true,
		"data":    data,
	}
}
