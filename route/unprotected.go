package route

import (
	"focusgallery/controller"

	"github.com/gin-gonic/gin"
)

func Unprotected(api *gin.RouterGroup, gallery *controller.Gallery) {
	api.GET("/categories", gallery.GetCategories)
	api.GET("/images/years", gallery.GetYears)
	api.GET("/images", gallery.GetImages)
}
