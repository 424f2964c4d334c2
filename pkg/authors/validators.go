package authors

type CreateAuthorPayload struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Biography *string `json:"biography,omitempty" validate:"omitempty,max=5000"`
}

type UpdateAuthorPayload struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Biography *string `json:"biography,omitempty" validate:"omitempty,max=5000"`
}

type ListAuthorsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
