package api

// CreateUserRequest registers a new user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
}

// CreateChatRequest creates a chat for the given participants. Exactly
// two participants create (or return) a direct chat; more create a
// group.
type CreateChatRequest struct {
	Name           string  `json:"name" validate:"max=128"`
	ParticipantIDs []int64 `json:"participantIds" validate:"required,min=2,dive,gt=0"`
}

// UpdateUserRequest renames a user.
type UpdateUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
}

// SendMessageRequest posts a message to a chat.
type SendMessageRequest struct {
	SenderID int64  `json:"senderId" validate:"required,gt=0"`
	Content  string `json:"content" validate:"required"`
}

// UpdateStatusRequest changes the delivery status of a message.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=sent delivered read"`
}

// MembershipRequest adds or removes a chat participant.
type MembershipRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}
