package core

import "github.com/gin-gonic/gin"

// renderError renders the error page with the given status and message.
func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.tmpl", gin.H{"Status": status, "Message": message})
}
