package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type testAmountRequest struct {
	Amount      int64  `validate:"required,gt=0"`
	Description string `validate:"max=10"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&testAmountRequest{Amount: 30, Description: "chat"})
		assert.NoError(t, err)
	})

	t.Run("missing amount and long description", func(t *testing.T) {
		err := vh.ValidateStruct(&testAmountRequest{Description: "far too long a description"})
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 2)
	})

	t.Run("negative amount", func(t *testing.T) {
		err := vh.ValidateStruct(&testAmountRequest{Amount: -5})
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "Amount", validationErrors[0].Field())
		assert.Equal(t, "gt", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&testAmountRequest{Description: "far too long a description"})
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Amount")
		assert.Contains(t, response.Details, "Description")
	})

	t.Run("non validation error is not expanded", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, errors.New("boom"))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Invalid request", response.Error)
		assert.Nil(t, response.Details)
	})
}

func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusPaymentRequired, ErrorResponse{
		Error:     "Insufficient balance",
		Code:      "insufficient_balance",
		Shortfall: 10,
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var response ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "insufficient_balance", response.Code)
	assert.Equal(t, int64(10), response.Shortfall)
}
