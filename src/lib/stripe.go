package lib

import (
	"context"
	"fmt"
	"os"

	"signup/src/config"
	"signup/src/types"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

// NewStripeClient Replace stripe instance with custom client implementation
func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

type CheckoutSessionInput struct {
	Amount      int64
	Currency    string
	ProductName string
	CancelPath  string
	Metadata    map[string]string
}

// CreateCheckoutSession creates a one-time payment session and returns its
// id and redirect URL. The call is bounded by config.StripeCallTimeout so a
// slow provider cannot hold the checkout request open.
func CreateCheckoutSession(ctx context.Context, input *CheckoutSessionInput) (string, string, error) {
	sc := GetStripeClient()
	appHost := os.Getenv("APP_HOST")
	successUrl := fmt.Sprintf("%s/checkout/callback/success", appHost)
	cancelUrl := fmt.Sprintf("%s%s", appHost, input.CancelPath)

	piParams := &stripe.CheckoutSessionCreatePaymentIntentDataParams{}
	for k, v := range input.Metadata {
		piParams.AddMetadata(k, v)
	}
	createParams := &stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(successUrl),
		CancelURL:         stripe.String(cancelUrl),
		UIMode:            stripe.String("hosted"),
		Mode:              stripe.String("payment"),
		PaymentIntentData: piParams,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(input.Currency),
					UnitAmount: stripe.Int64(input.Amount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(input.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: input.Metadata,
	}

	tctx, cancel := context.WithTimeout(ctx, config.StripeCallTimeout)
	defer cancel()
	cs, err := sc.V1CheckoutSessions.Create(tctx, createParams)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", types.ErrExternalService, err.Error())
	}
	return cs.ID, cs.URL, nil
}

type SubscriptionSessionInput struct {
	Amount   int64
	Currency string
	Interval string
	Metadata map[string]string
}

// CreateSubscriptionSession creates a recurring-donation checkout session.
func CreateSubscriptionSession(ctx context.Context, input *SubscriptionSessionInput) (string, string, error) {
	sc := GetStripeClient()
	appHost := os.Getenv("APP_HOST")
	createParams := &stripe.CheckoutSessionCreateParams{
		SuccessURL: stripe.String(fmt.Sprintf("%s/donations/callback/success", appHost)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/donations", appHost)),
		UIMode:     stripe.String("hosted"),
		Mode:       stripe.String("subscription"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(input.Currency),
					UnitAmount: stripe.Int64(input.Amount),
					Recurring: &stripe.CheckoutSessionCreateLineItemPriceDataRecurringParams{
						Interval: stripe.String(input.Interval),
					},
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String("Recurring donation"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: input.Metadata,
		},
		Metadata: input.Metadata,
	}

	tctx, cancel := context.WithTimeout(ctx, config.StripeCallTimeout)
	defer cancel()
	cs, err := sc.V1CheckoutSessions.Create(tctx, createParams)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", types.ErrExternalService, err.Error())
	}
	return cs.ID, cs.URL, nil
}

type PaymentMethodDetails struct {
	CardBrand      string
	CardLast4      string
	BillingName    string
	BillingAddress string
}

// GetPaymentMethodDetails resolves a payment intent to its latest charge and
// returns the card and billing snapshot recorded on completion.
func GetPaymentMethodDetails(ctx context.Context, paymentIntentId string) (*PaymentMethodDetails, error) {
	sc := GetStripeClient()
	tctx, cancel := context.WithTimeout(ctx, config.StripeCallTimeout)
	defer cancel()

	pi, err := sc.V1PaymentIntents.Retrieve(tctx, paymentIntentId, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrExternalService, err.Error())
	}
	if pi.LatestCharge == nil {
		return nil, fmt.Errorf("no charge recorded for payment intent %s", paymentIntentId)
	}
	ch, err := sc.V1Charges.Retrieve(tctx, pi.LatestCharge.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrExternalService, err.Error())
	}
	details := &PaymentMethodDetails{}
	if ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
		details.CardBrand = string(ch.PaymentMethodDetails.Card.Brand)
		details.CardLast4 = ch.PaymentMethodDetails.Card.Last4
	}
	if ch.BillingDetails != nil {
		details.BillingName = ch.BillingDetails.Name
		if addr := ch.BillingDetails.Address; addr != nil {
			details.BillingAddress = fmt.Sprintf("%s, %s, %s %s, %s", addr.Line1, addr.City, addr.State, addr.PostalCode, addr.Country)
		}
	}
	return details, nil
}
