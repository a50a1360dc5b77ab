package appErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	wrapped := fmt.Errorf("start campaign: %w", NewCampaignNotFound(7))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.Equal(t, "start campaign: campaign with ID 7 not found", wrapped.Error())

	assert.True(t, IsConflict(NewConflict("campaign already %s", "running")))
	assert.True(t, IsValidation(NewValidation("name", "is required")))
	assert.Equal(t, "name: is required", NewValidation("name", "is required").Error())
}

func TestDeliveryErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("send test: %w", &DeliveryError{Address: "a@b.co", Err: cause})

	assert.True(t, IsDelivery(err))
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 200, HTTPStatus(nil))
	assert.Equal(t, 400, HTTPStatus(NewValidation("testEmail", "required")))
	assert.Equal(t, 404, HTTPStatus(fmt.Errorf("x: %w", NewTemplateNotFound(3))))
	assert.Equal(t, 409, HTTPStatus(NewConflict("busy")))
	assert.Equal(t, 502, HTTPStatus(&DeliveryError{Address: "a@b.co", Err: errors.New("refused")}))
	assert.Equal(t, 500, HTTPStatus(errors.New("db down")))
}
