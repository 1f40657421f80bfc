package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRoles 创建一个角色授权中间件，要求当前用户属于给定角色之一。
// 必须在 AuthMiddleware 之后使用。
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[Role(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "没有权限执行此操作"})
			return
		}
		c.Next()
	}
}
