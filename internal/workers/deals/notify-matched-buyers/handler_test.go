package notifymatchedbuyers

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ==========================
// Mock Implementations
// ==========================

type fakeDeals struct {
	deal   models.WholesaleDeal
	buyers []models.Buyer
	err    error
}

func (f *fakeDeals) GetDeal(id string) (models.WholesaleDeal, error) {
	if f.err != nil {
		return models.WholesaleDeal{}, f.err
	}
	return f.deal, nil
}

func (f *fakeDeals) MatchedBuyers(string) ([]models.Buyer, error) {
	return f.buyers, nil
}

type mockEmail struct{ mock.Mock }

func (m *mockEmail) SendEmail(ctx context.Context, to, subject, text, html string) (string, error) {
	args := m.Called(ctx, to, subject, text, html)
	return args.String(0), args.Error(1)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, phone, message string) (string, error) {
	args := m.Called(ctx, phone, message)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

func f64(v float64) *float64 { return &v }
func intp(v int) *int { return &v }

func testConfig() *Config {
	return &Config{Timeout: 5 * time.Second, EmailEnabled: true, SMSEnabled: true}
}

func testDeal() models.WholesaleDeal {
	return models.WholesaleDeal{
		ID:              "deal-1",
		PropertyAddress: "77 Bayou Rd, Houston TX",
		PropertyType:    "SFR",
		Price:           f64(150000),
		ARV:             f64(240000),
		Bedrooms:        intp(3),
		WholesalerName:  "Dana",
		WholesalerPhone: "+17135550100",
	}
}

func newTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestExecute_SendsOnBothChannels(t *testing.T) {
	deals := &fakeDeals{
		deal: testDeal(),
		buyers: []models.Buyer{
			{ID: "b1", Name: "Gulf Coast", Email: "gc@test.io", Phone: "+17135550111"},
			{ID: "b2", Name: "No Contact"},
		},
	}
	email := &mockEmail{}
	email.On("SendEmail", mock.Anything, "gc@test.io", "New deal: 77 Bayou Rd, Houston TX",
		mock.MatchedBy(func(body string) bool {
			return assert.Contains(t, body, "Price:    $150000") &&
				assert.Contains(t, body, "Beds:     3") &&
				assert.Contains(t, body, "Contact Dana at +17135550100")
		}), "").Return("ses-1", nil).Once()

	sms := &mockSMS{}
	sms.On("SendSMS", mock.Anything, "+17135550111",
		"New deal: 77 Bayou Rd, Houston TX asking $150000. Call +17135550100").Return("sns-1", nil).Once()

	h := NewHandler(testConfig(), deals, email, sms, newTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{DealID: "deal-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Sent)
	assert.Equal(t, 2, out.Skipped)
	assert.Zero(t, out.Failed)
	require.Len(t, out.Deliveries, 4)
	assert.Equal(t, "ses-1", out.Deliveries[0].MessageID)
	assert.Equal(t, "no email address", out.Deliveries[2].Reason)

	email.AssertExpectations(t)
	sms.AssertExpectations(t)
}

func TestExecute_ChannelSelectionAndDisabledSenders(t *testing.T) {
	deals := &fakeDeals{deal: testDeal(), buyers: []models.Buyer{{ID: "b1", Email: "a@b.c", Phone: "+1"}}}

	h := NewHandler(testConfig(), deals, nil, &mockSMS{}, newTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{DealID: "deal-1", Channels: []string{ChannelEmail}})
	require.NoError(t, err)

	require.Len(t, out.Deliveries, 1)
	assert.Equal(t, StatusSkipped, out.Deliveries[0].Status)
	assert.Equal(t, "email disabled", out.Deliveries[0].Reason)
}

func TestExecute_AllSendsFailed(t *testing.T) {
	deals := &fakeDeals{deal: testDeal(), buyers: []models.Buyer{{ID: "b1", Email: "a@b.c"}}}
	email := &mockEmail{}
	email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", stderrors.New("throttled"))

	h := NewHandler(testConfig(), deals, email, nil, newTestLogger(t))
	_, err := h.Execute(context.Background(), &Input{DealID: "deal-1", Channels: []string{ChannelEmail}})

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestExecute_PartialFailureCompletes(t *testing.T) {
	deals := &fakeDeals{deal: testDeal(), buyers: []models.Buyer{
		{ID: "b1", Email: "ok@test.io"},
		{ID: "b2", Email: "bounce@test.io"},
	}}
	email := &mockEmail{}
	email.On("SendEmail", mock.Anything, "ok@test.io", mock.Anything, mock.Anything, "").Return("id", nil)
	email.On("SendEmail", mock.Anything, "bounce@test.io", mock.Anything, mock.Anything, "").Return("", stderrors.New("bounced"))

	h := NewHandler(testConfig(), deals, email, nil, newTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{DealID: "deal-1", Channels: []string{ChannelEmail}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, 1, out.Failed)
}

func TestExecute_UnknownDeal(t *testing.T) {
	deals := &fakeDeals{err: errors.NewNotFoundError("WholesaleDeals", "x")}
	h := NewHandler(testConfig(), deals, nil, nil, newTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{DealID: "x"})
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestInputSchema(t *testing.T) {
	assert.NoError(t, inputSchema.Check([]byte(`{"dealId":"d","channels":["sms"]}`)))
	assert.Error(t, inputSchema.Check([]byte(`{"channels":["sms"]}`)))
	assert.Error(t, inputSchema.Check([]byte(`{"dealId":"d","channels":["fax"]}`)))
}
