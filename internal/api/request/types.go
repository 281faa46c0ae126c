package request

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the request body for changing the caller's password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// CreateUserRequest is the request body for signing up
type CreateUserRequest struct {
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	MobileToken *string `json:"mobile_token,omitempty"`
}

// UpdateUserRequest is the request body for updating the caller's account
type UpdateUserRequest struct {
	OldPassword string  `json:"old_password"`
	NewPassword string  `json:"new_password"`
	MobileToken *string `json:"mobile_token,omitempty"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Name     string `json:"name"`
	Capacity *int   `json:"capacity,omitempty"`
}

// ChangeHostRequest is the request body for handing a room to another user
type ChangeHostRequest struct {
	UserID uint64 `json:"userId"`
}
