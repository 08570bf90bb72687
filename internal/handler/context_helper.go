package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/middleware"
)

func actorID(c *gin.Context) string {
	claims, ok := middleware.Claims(c)
	if !ok || claims == nil {
		return ""
	}
	return claims.UserID
}

func studentCourseParams(c *gin.Context) (string, string) {
	return strings.TrimSpace(c.Param("studentId")), strings.TrimSpace(c.Param("courseId"))
}
