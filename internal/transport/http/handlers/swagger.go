package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Reportify/teleopsold-sub002/docs"
)

// RegisterSwagger serves the RBAC API description at /docs. version is stamped into the document.
func RegisterSwagger(r *gin.Engine, version string) {
	if version != "" {
		docs.SwaggerInfo.Version = version
	}
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
