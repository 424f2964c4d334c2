package borrows

type BorrowBookPayload struct {
	BookID int `json:"book_id" validate:"required,gt=0"`
	UserID int `json:"user_id" validate:"required,gt=0"`
}

type ListBorrowsQuery struct {
	Limit  int     `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset int     `query:"offset" validate:"min=0"`
	UserID *int    `query:"user_id" validate:"omitempty,gt=0"`
	BookID *int    `query:"book_id" validate:"omitempty,gt=0"`
	Status *string `query:"status" validate:"omitempty,oneof=active returned overdue"`
}
