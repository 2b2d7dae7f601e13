package main

import (
	"log"
	"net/http"

	"signup/src/common"
	"signup/src/types"

	"github.com/gin-gonic/gin"
)

func donationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/donations/checkout", func(ctx *gin.Context) {
			var body types.DonationCheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			url, err := common.InitiateDonationCheckout(ctx.Request.Context(), userId, &body)
			if err != nil {
				status := purchaseErrorStatus(err)
				log.Printf("[donations] checkout for user %d: %s\n", userId, err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"url": url})
		}).
		GET("/donations", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			donations, err := common.GetDonations(userId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": donations, "count": len(donations)})
		}).
		DELETE("/donations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			if err := common.CancelDonation(params.ID, userId); err != nil {
				status := purchaseErrorStatus(err)
				log.Printf("[donations] cancel %d: %s\n", params.ID, err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
