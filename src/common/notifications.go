package common

import (
	"errors"
	"fmt"
	"log"
	"os"

	"signup/src/db"
	"signup/src/lib"
	"signup/src/lib/mailer"
	"signup/src/models"
	"signup/src/types"

	"gorm.io/gorm"
)

// NotifyPurchaseCompleted records an in-app notification and sends the
// confirmation email for a completed purchase. Runs after the completion
// transaction commits; failures are logged, never propagated.
func NotifyPurchaseCompleted(purchase *models.Purchase) {
	gdb := db.GetDb()
	var user models.User
	if err := gdb.Where(&models.User{ID: purchase.UserID}).First(&user).Error; err != nil {
		log.Printf("[notify] Could not load user %d for order %s: %s\n", purchase.UserID, purchase.OrderNumber, err.Error())
		return
	}
	title := offeringTitle(gdb, purchase)

	desc := fmt.Sprintf("Your payment for %s was received. Order %s is confirmed.", title, purchase.OrderNumber)
	notification := models.Notification{
		UserID:          purchase.UserID,
		ReferenceSource: "purchase",
		ReferenceValue:  purchase.OrderNumber,
		Title:           "Payment confirmed",
		Description:     &desc,
		ReferenceBody: &types.JSONB{
			"purchase_id": purchase.ID,
			"final_price": purchase.FinalPrice,
			"currency":    purchase.Currency,
		},
	}
	if err := gdb.Create(&notification).Error; err != nil {
		log.Printf("[notify] Error saving notification for order %s: %s\n", purchase.OrderNumber, err.Error())
	}

	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nThank you! Your payment for %s was received.\r\nOrder number: %s\r\nAmount paid: %.2f %s\r\n\r\nSee you there!",
		user.Name, title, purchase.OrderNumber, float64(purchase.FinalPrice)/100, purchase.Currency,
	)
	err := mailer.NewMailerMessage(&lib.SendMailInput{
		From:     os.Getenv("SMTP_FROM"),
		FromName: os.Getenv("SMTP_FROM_NAME"),
		To:       []string{user.Email},
		Subject:  fmt.Sprintf("Order %s confirmed", purchase.OrderNumber),
		Body:     body,
	})
	if err != nil {
		log.Printf("[notify] Error sending confirmation for order %s: %s\n", purchase.OrderNumber, err.Error())
	}
}

// NotifyPurchaseFailed records an in-app notification pointing the user at
// the retry flow.
func NotifyPurchaseFailed(purchase *models.Purchase) {
	gdb := db.GetDb()
	title := offeringTitle(gdb, purchase)
	desc := fmt.Sprintf("Your payment for %s did not go through. You can retry from your pending purchases.", title)
	notification := models.Notification{
		UserID:          purchase.UserID,
		ReferenceSource: "purchase",
		ReferenceValue:  purchase.OrderNumber,
		Title:           "Payment failed",
		Description:     &desc,
		ReferenceBody: &types.JSONB{
			"purchase_id": purchase.ID,
		},
	}
	if err := gdb.Create(&notification).Error; err != nil {
		log.Printf("[notify] Error saving notification for order %s: %s\n", purchase.OrderNumber, err.Error())
	}
}

// GetNotifications lists a user's notifications, newest first.
func GetNotifications(userId uint) ([]models.Notification, error) {
	gdb := db.GetDb()
	var notifications []models.Notification
	err := gdb.
		Model(&models.Notification{}).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Limit(100).
		Find(&notifications).
		Error
	return notifications, err
}

func offeringTitle(tx *gorm.DB, purchase *models.Purchase) string {
	kind, offeringId := purchase.OfferingRef()
	offering, err := LookupOffering(tx, kind, offeringId)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			log.Printf("[notify] Error loading %s %d: %s\n", kind, offeringId, err.Error())
		}
		return "your order"
	}
	return offering.Title
}
