package dto

import "time"

// RegisterUserRequest payload. Either email or employeeId must identify the
// new account.
type RegisterUserRequest struct {
	Email          *string `json:"email"`
	EmployeeID     *string `json:"employeeId"`
	Password       string  `json:"password"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	PhoneNumber    *string `json:"phoneNumber"`
	WorkExperience *string `json:"workExperience"`
	Role           string  `json:"role"`
}

// LoginRequest accepts email or employeeId as the identifier.
type LoginRequest struct {
	Email      string `json:"email"`
	EmployeeID string `json:"employeeId"`
	Password   string `json:"password"`
}

// LoginResponse carries the signed token and its owner.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UpdateUserRequest carries partial profile updates.
type UpdateUserRequest struct {
	Email          *string `json:"email"`
	EmployeeID     *string `json:"employeeId"`
	Password       *string `json:"password"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	PhoneNumber    *string `json:"phoneNumber"`
	WorkExperience *string `json:"workExperience"`
	Active         *bool   `json:"active"`
}

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UserResponse is the user wire representation; the password hash never
// leaves the service layer.
type UserResponse struct {
	ID             int64      `json:"id"`
	EmployeeID     *string    `json:"employeeId,omitempty"`
	Email          *string    `json:"email,omitempty"`
	FirstName      *string    `json:"firstName,omitempty"`
	LastName       *string    `json:"lastName,omitempty"`
	FullName       string     `json:"fullName"`
	PhoneNumber    *string    `json:"phoneNumber,omitempty"`
	Avatar         *string    `json:"avatar,omitempty"`
	WorkExperience *string    `json:"workExperience,omitempty"`
	Role           string     `json:"role"`
	Active         bool       `json:"active"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
}
