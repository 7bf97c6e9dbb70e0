package validation

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"domus-api/internal/model"
	"domus-api/pkg/apierror"
)

func TestValidateRegisterRequest(t *testing.T) {
	valid := model.RegisterRequest{
		Email:     "john.smith@example.com",
		FirstName: "John",
		LastName:  "Smith",
		Password:  "Password123",
	}
	require.NoError(t, Validate(valid))

	cases := []struct {
		name    string
		mutate  func(r *model.RegisterRequest)
		wantMsg string
	}{
		{"missing email", func(r *model.RegisterRequest) { r.Email = "" }, "email is required"},
		{"bad email", func(r *model.RegisterRequest) { r.Email = "not-an-email" }, "email must be a valid email address"},
		{"missing first name", func(r *model.RegisterRequest) { r.FirstName = "" }, "first_name is required"},
		{"short password", func(r *model.RegisterRequest) { r.Password = "short" }, "password must be at least 8 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)

			err := Validate(req)
			require.Error(t, err)

			var apiErr *apierror.APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, "VALIDATION_FAILED", apiErr.Code)
			require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
			require.Contains(t, apiErr.Details, tc.wantMsg)
		})
	}
}

func TestValidateRefreshRequest(t *testing.T) {
	require.NoError(t, Validate(model.RefreshRequest{RefreshToken: uuid.NewString()}))

	err := Validate(model.RefreshRequest{RefreshToken: "not-a-uuid"})
	require.Error(t, err)

	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Contains(t, apiErr.Details, "refresh_token must be a valid token id")
}
