package main

import (
	"errors"
	"log"
	"net/http"

	"signup/src/common"
	"signup/src/db"
	"signup/src/models"
	"signup/src/types"

	"github.com/gin-gonic/gin"
)

func purchaseHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/checkout", func(ctx *gin.Context) {
			var body types.CheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			url, err := common.InitiateCheckout(ctx.Request.Context(), userId, &body)
			if err != nil {
				status := purchaseErrorStatus(err)
				log.Printf("[checkout] user %d: %s\n", userId, err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"url": url})
		}).
		GET("/purchases", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var purchases []models.Purchase
			err := gdb.
				Model(&models.Purchase{}).
				Where("user_id = ?", userId).
				Preload("Program").
				Preload("Event").
				Order("created_at DESC").
				Limit(100).
				Find(&purchases).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			// display fields joined at read time, never stored on the record
			data := make([]types.APIResponsePurchase, 0, len(purchases))
			for _, p := range purchases {
				item := types.APIResponsePurchase{
					ID:           p.ID,
					OrderNumber:  p.OrderNumber,
					Status:       p.Status,
					FinalPrice:   p.FinalPrice,
					Currency:     p.Currency,
					IsClassRep:   p.IsClassRep,
					IsEarlyBird:  p.IsEarlyBird,
					ProgramID:    p.ProgramID,
					EventID:      p.EventID,
					PurchaseDate: p.PurchaseDate,
					CreatedAt:    p.CreatedAt,
				}
				if p.Program != nil {
					item.OfferingTitle = p.Program.Title
				} else if p.Event != nil {
					item.OfferingTitle = p.Event.Title
				}
				data = append(data, item)
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/purchases/pending", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			purchases, err := common.GetPendingPurchases(userId)
			if err != nil {
				log.Printf("[purchases] Error listing pending for user %d: %s\n", userId, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": purchases, "count": len(purchases)})
		}).
		POST("/purchases/:id/retry", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			url, err := common.RetryPurchase(ctx.Request.Context(), params.ID, userId)
			if err != nil {
				status := purchaseErrorStatus(err)
				log.Printf("[retry] purchase %d: %s\n", params.ID, err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"url": url})
		}).
		DELETE("/purchases/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			if err := common.CancelPurchase(params.ID, userId); err != nil {
				status := purchaseErrorStatus(err)
				log.Printf("[cancel] purchase %d: %s\n", params.ID, err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/notifications", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			notifications, err := common.GetNotifications(userId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": notifications, "count": len(notifications)})
		})
	return g
}

// purchaseErrorStatus maps domain errors onto response codes.
func purchaseErrorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrAlreadyPurchased),
		errors.Is(err, types.ErrFreeOfferingNotPurchasable),
		errors.Is(err, types.ErrCapacityExceeded),
		errors.Is(err, types.ErrCannotModifyCompletedPurchase),
		errors.Is(err, types.ErrCannotRetryCompletedPurchase),
		errors.Is(err, types.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, types.ErrExternalService):
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}
