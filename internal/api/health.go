package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/cropguard/internal/app"
)

func Root(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s is running", app.Config().ServiceName)})
}

func Healthz(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	set := app.Labels()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"model":         "loaded",
		"labels":        set.Table.Len(),
		"label_set":     set.Name,
		"normalization": app.Classifier().Preprocessor().Normalization().String(),
	})
}

// Labels lets clients check which label table and mapping are deployed.
func Labels(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	set := app.Labels()

	c.JSON(http.StatusOK, gin.H{
		"name":    set.Name,
		"labels":  set.Table.Names(),
		"mapping": set.Mapping.Entries(),
	})
}

func Metrics(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	app.Metrics().Handler().ServeHTTP(c.Writer, c.Request)
}
