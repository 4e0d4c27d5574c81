package course

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/jmwangaza/elimisha/core"
)

// Visibility values. A public course is viewable by anyone; a hidden course is
// only viewable by its creator, admins, enrolled users and invite-link holders.
const (
	VisibilityPublic = "public"
	VisibilityHidden = "hidden"
)

var visibilities = []string{VisibilityPublic, VisibilityHidden}

var (
	visibilityTag  = "visibility"
	visibilityText = "visibility must be one of 'public' or 'hidden'"
)

// RegisterValidators registers course-specific validators and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(visibilityTag, visibilityValidation)
	core.RegisterCustomTranslation(validate, translator, visibilityTag, visibilityText)
}

func visibilityValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, v := range visibilities {
		if val == v {
			return true
		}
	}
	return false
}

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (c *Course) IsPublic() bool { return c.Visibility == VisibilityPublic }

// VisibilityInfo is the minimal course state the access decision needs.
type VisibilityInfo struct {
	Visibility string
	CreatorID  string
}

func (vi VisibilityInfo) IsPublic() bool { return vi.Visibility == VisibilityPublic }

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Visibility  string `json:"visibility" validate:"omitempty,visibility"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Visibility = core.CleanString(nc.Visibility, true /* lower */)
	if nc.Visibility == "" {
		nc.Visibility = VisibilityHidden
	}
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Visibility  string `json:"visibility" validate:"omitempty,visibility"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	uc.Visibility = core.CleanString(uc.Visibility, true /* lower */)
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Visibility string `query:"visibility"`
	CreatorID  string `query:"creator"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Visibility == "" && qf.CreatorID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Visibility = core.CleanString(qf.Visibility, true /* lower */)
}
