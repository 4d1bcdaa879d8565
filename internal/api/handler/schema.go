package handler

// Payloads accept JSON bodies and HTML form posts alike.

type credentialsRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

type resetRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type updatePasswordRequest struct {
	Email       string `json:"email" form:"email"`
	ResetToken  string `json:"reset_token" form:"reset_token" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required,max=72"`
}

type messageResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type resetTokenResponse struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

type profileResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
