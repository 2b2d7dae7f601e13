package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"signup/src/types"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

type TestSuite struct {
	suite.Suite
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("promocode", promoCodeValidatorFunc)
	}
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
	msg := gjson.Parse(w.Body.String()).String()
	assert.Equal(s.T(), "server is under maintenance", msg)
}

func (s *TestSuite) TestWebhookRejectsUnsignedPayload() {
	router := setupRouter()
	stripeWebhookRoute(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/webhook/stripe", strings.NewReader(`{"type":"checkout.session.completed"}`))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func (s *TestSuite) TestWebhookRejectsBadSignature() {
	router := setupRouter()
	stripeWebhookRoute(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/webhook/stripe", strings.NewReader(`{"type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func (s *TestSuite) TestPromoCodeValidator() {
	v := validator.New()
	v.RegisterValidation("promocode", promoCodeValidatorFunc)

	assert.NoError(s.T(), v.Var("SPRING-2026", "promocode"))
	assert.NoError(s.T(), v.Var("EARLY10", "promocode"))
	assert.Error(s.T(), v.Var("ab", "promocode"))
	assert.Error(s.T(), v.Var("lowercase", "promocode"))
	assert.Error(s.T(), v.Var("HAS SPACE", "promocode"))
}

func (s *TestSuite) TestPurchaseErrorStatus() {
	assert.Equal(s.T(), http.StatusBadRequest, purchaseErrorStatus(types.ErrValidation))
	assert.Equal(s.T(), http.StatusNotFound, purchaseErrorStatus(types.ErrNotFound))
	assert.Equal(s.T(), http.StatusForbidden, purchaseErrorStatus(types.ErrForbidden))
	assert.Equal(s.T(), http.StatusConflict, purchaseErrorStatus(types.ErrAlreadyPurchased))
	assert.Equal(s.T(), http.StatusConflict, purchaseErrorStatus(types.ErrFreeOfferingNotPurchasable))
	assert.Equal(s.T(), http.StatusConflict, purchaseErrorStatus(types.ErrCapacityExceeded))
	assert.Equal(s.T(), http.StatusConflict, purchaseErrorStatus(types.ErrCannotRetryCompletedPurchase))
	assert.Equal(s.T(), http.StatusBadGateway, purchaseErrorStatus(types.ErrExternalService))
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
