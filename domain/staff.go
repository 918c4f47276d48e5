package domain

import (
	"errors"
)

var (
	MessageSuccessRegisterStaff = "staff registered successfully"
	MessageSuccessLoginStaff    = "staff logged in successfully"
	MessageSuccessGetStaff      = "success get staff"
	MessageSuccessUpdateStaff   = "staff updated successfully"
	MessageSuccessDeleteStaff   = "staff deleted successfully"

	MessageFailedRegisterStaff = "failed to register staff"
	MessageFailedLoginStaff    = "failed to login"
	MessageFailedGetStaff      = "failed to get staff"
	MessageFailedUpdateStaff   = "failed to update staff"
	MessageFailedDeleteStaff   = "failed to delete staff"

	ErrStaffNotFound      = errors.New("staff not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrCredentialsInvalid = errors.New("invalid email or password")
)

type (
	RegisterStaffRequest struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Role     string `json:"role" validate:"required,oneof=admin operator"`
	}

	LoginStaffRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginStaffResponse struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}

	StaffResponse struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
)
