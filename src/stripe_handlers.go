package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"signup/src/common"
	"signup/src/lib"
	"signup/src/models"
	"signup/src/types"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeWebhookRoute reconciles provider events against purchase and
// donation records. Core transitions run synchronously so a store failure
// surfaces as a non-2xx and the provider redelivers. Events referencing
// records we do not know are acknowledged and logged; returning an error
// would only make the provider retry something we can never process.
func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "checkout.session.completed":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			log.Printf("[CheckoutSession] ID: %s %s\n", cs.ID, cs.Status)
			if cs.Mode == stripe.CheckoutSessionModeSubscription {
				if err := handleSubscriptionSessionCompleted(&cs); err != nil {
					ctx.Status(http.StatusInternalServerError)
					return
				}
				break
			}
			if err := handlePaymentSessionCompleted(ctx, &cs); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "payment_intent.succeeded":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				break
			}
			log.Printf("[PaymentIntent] ID: %s %s\n", pi.ID, pi.Status)
			if err := handlePaymentIntentSucceeded(ctx, &pi); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "payment_intent.payment_failed":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				break
			}
			log.Printf("[PaymentIntent] ID: %s failed\n", pi.ID)
			if err := handlePaymentIntentFailed(&pi); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "invoice.payment_succeeded":
			var inv stripe.Invoice
			if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
				log.Printf("[Stripe] Error parsing Invoice: %s\n", err.Error())
				break
			}
			if err := handleInvoicePaymentSucceeded(&inv); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
		}
		ctx.Status(http.StatusNoContent)
	})
	return apiv1
}

func handlePaymentSessionCompleted(ctx *gin.Context, cs *stripe.CheckoutSession) error {
	purchase, err := common.FindPurchaseBySession(ctx.Request.Context(), cs.ID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			log.Printf("[Stripe] No purchase for session %s\n", cs.ID)
			return nil
		}
		log.Printf("[Stripe] Error resolving session %s: %s\n", cs.ID, err.Error())
		return err
	}
	paymentIntentId := ""
	if cs.PaymentIntent != nil {
		paymentIntentId = cs.PaymentIntent.ID
	}
	transitioned, attached, err := common.CompletePurchase(purchase, paymentIntentId)
	if err != nil {
		log.Printf("[Stripe] Error completing order %s: %s\n", purchase.OrderNumber, err.Error())
		return err
	}
	if transitioned {
		enrichAndNotify(ctx, purchase, paymentIntentId)
	} else if attached {
		enrichBillingDetails(ctx, purchase, paymentIntentId)
	}
	return nil
}

func handlePaymentIntentSucceeded(ctx *gin.Context, pi *stripe.PaymentIntent) error {
	orderNumber := pi.Metadata["orderNumber"]
	if orderNumber == "" {
		log.Printf("[Stripe] PaymentIntent %s carries no order number\n", pi.ID)
		return nil
	}
	purchase, err := common.FindPurchaseByOrder(orderNumber)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			log.Printf("[Stripe] No purchase for order %s\n", orderNumber)
			return nil
		}
		return err
	}
	transitioned, attached, err := common.CompletePurchase(purchase, pi.ID)
	if err != nil {
		log.Printf("[Stripe] Error completing order %s: %s\n", orderNumber, err.Error())
		return err
	}
	if transitioned {
		enrichAndNotify(ctx, purchase, pi.ID)
	} else if attached {
		// session event completed the record without an intent id; this
		// delivery attached it, so only the billing backfill is owed
		enrichBillingDetails(ctx, purchase, pi.ID)
	}
	return nil
}

func handlePaymentIntentFailed(pi *stripe.PaymentIntent) error {
	orderNumber := pi.Metadata["orderNumber"]
	if orderNumber == "" {
		if err := common.FailPurchaseByIntent(pi.ID); err != nil && !errors.Is(err, types.ErrNotFound) {
			return err
		}
		return nil
	}
	purchase, err := common.FindPurchaseByOrder(orderNumber)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			log.Printf("[Stripe] No purchase for order %s\n", orderNumber)
			return nil
		}
		return err
	}
	if err := common.FailPurchase(purchase, pi.ID); err != nil {
		log.Printf("[Stripe] Error failing order %s: %s\n", orderNumber, err.Error())
		return err
	}
	go common.NotifyPurchaseFailed(purchase)
	return nil
}

func handleSubscriptionSessionCompleted(cs *stripe.CheckoutSession) error {
	customerId := ""
	if cs.Customer != nil {
		customerId = cs.Customer.ID
	}
	subscriptionId := ""
	if cs.Subscription != nil {
		subscriptionId = cs.Subscription.ID
	}
	if err := common.ActivateDonation(cs.ID, customerId, subscriptionId); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			log.Printf("[Stripe] No donation for session %s\n", cs.ID)
			return nil
		}
		log.Printf("[Stripe] Error activating donation for session %s: %s\n", cs.ID, err.Error())
		return err
	}
	return nil
}

func handleInvoicePaymentSucceeded(inv *stripe.Invoice) error {
	subscriptionId := ""
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil && inv.Parent.SubscriptionDetails.Subscription != nil {
		subscriptionId = inv.Parent.SubscriptionDetails.Subscription.ID
	}
	if subscriptionId == "" {
		log.Printf("[Stripe] Invoice %s is not tied to a subscription\n", inv.ID)
		return nil
	}
	err := common.RecordDonationPayment(subscriptionId, inv.ID, inv.AmountPaid, string(inv.Currency), time.Now())
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			log.Printf("[Stripe] No donation for subscription %s\n", subscriptionId)
			return nil
		}
		log.Printf("[Stripe] Error recording payment for invoice %s: %s\n", inv.ID, err.Error())
		return err
	}
	return nil
}

// enrichAndNotify runs after the completion transaction commits. Failures
// here never fail the webhook; the record is already consistent.
func enrichAndNotify(ctx *gin.Context, purchase *models.Purchase, paymentIntentId string) {
	enrichBillingDetails(ctx, purchase, paymentIntentId)
	go common.NotifyPurchaseCompleted(purchase)
}

func enrichBillingDetails(ctx *gin.Context, purchase *models.Purchase, paymentIntentId string) {
	if paymentIntentId == "" {
		return
	}
	details, err := lib.GetPaymentMethodDetails(ctx.Request.Context(), paymentIntentId)
	if err != nil {
		log.Printf("[Stripe] Error loading payment method for order %s: %s\n", purchase.OrderNumber, err.Error())
		return
	}
	if err := common.EnrichBillingSnapshot(purchase.ID, details); err != nil {
		log.Printf("[Stripe] Error saving billing snapshot for order %s: %s\n", purchase.OrderNumber, err.Error())
	}
}
