package route

import (
	"focusgallery/controller"
	mw "focusgallery/middlewares"

	"github.com/gin-gonic/gin"
)

func Protected(api *gin.RouterGroup, gallery *controller.Gallery, secret string) {
	protected := api.Group("/")

	protected.Use(mw.BearerSecret(secret))
	protected.POST("/images", gallery.UploadImage)
}
