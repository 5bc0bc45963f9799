package domain

type Category struct {
	Base
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}

func (c Category) Clone() Category {
	if c.ParentID != nil {
		p := *c.ParentID
		c.ParentID = &p
	}
	return c
}

// CategoryNode is a category with its nested children, used for tree views.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	Base
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Title     string `json:"title,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Verified  bool   `json:"verified"`
	Helpful   int    `json:"helpful"`
}
