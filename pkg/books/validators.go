package books

type CreateBookPayload struct {
	Title           string `json:"title" validate:"required,max=300"`
	PublicationYear int    `json:"publication_year" validate:"omitempty,gte=0,lte=2100"`
	ISBN            string `json:"isbn" validate:"required,isbn" mod:"trim"`
	Quantity        *int   `json:"quantity" default:"1" validate:"omitempty,min=0"`
	AuthorIDs       []int  `json:"author_ids" validate:"required,min=1,dive,gt=0"`
	CategoryIDs     []int  `json:"category_ids" validate:"omitempty,dive,gt=0"`
}

type UpdateBookPayload struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,max=300"`
	PublicationYear *int    `json:"publication_year,omitempty" validate:"omitempty,gte=0,lte=2100"`
	ISBN            *string `json:"isbn,omitempty" validate:"omitempty,isbn" mod:"trim"`
	Quantity        *int    `json:"quantity,omitempty" validate:"omitempty,min=0"`

	// A missing key leaves the relation alone; an empty array clears it.
	AuthorIDs   []int `json:"author_ids,omitempty" validate:"omitempty,dive,gt=0"`
	CategoryIDs []int `json:"category_ids,omitempty" validate:"omitempty,dive,gt=0"`
}

type ListBooksQuery struct {
	Limit      int     `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset     int     `query:"offset" validate:"min=0"`
	Title      *string `query:"title"`
	AuthorID   *int    `query:"author_id" validate:"omitempty,gt=0"`
	CategoryID *int    `query:"category_id" validate:"omitempty,gt=0"`
}
