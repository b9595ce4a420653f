package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

// Owner is the user a course belongs to.
type Owner struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Role user.Role `json:"role"`
}

type GroupSummary struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Subject     core.Subject `json:"subject"`
	Description null.String  `json:"description"`
}

type Course struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Level           core.Level    `json:"level"`
	Subject         core.Subject  `json:"subject"`
	Price           core.Money    `json:"price"`
	IsPublished     bool          `json:"isPublished"`
	CreatedBy       Owner         `json:"createdBy"`
	GroupID         null.String   `json:"groupId"`
	Group           *GroupSummary `json:"group"`
	Lessons         []Lesson      `json:"lessons"`
	EnrollmentCount int           `json:"enrollmentCount"`
	CreatedAt       time.Time     `json:"createdAt"` // UTC
	UpdatedAt       time.Time     `json:"updatedAt"` // UTC
}

// CanManage reports whether actor may edit the course, its lessons and its schedule.
func (c Course) CanManage(actor user.Actor) bool {
	return actor.IsAdmin() || c.CreatedBy.ID == actor.ID
}

// VisibleTo reports whether the course can be shown; actor is nil for anonymous requests.
func (c Course) VisibleTo(actor *user.Actor) bool {
	return c.IsPublished || (actor != nil && c.CanManage(*actor))
}

type Lesson struct {
	ID            string      `json:"id"`
	CourseID      string      `json:"courseId"`
	OrderIndex    int         `json:"orderIndex"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	VideoURL      string      `json:"videoUrl"`
	HomeworkText  string      `json:"homeworkText"`
	AttachmentURL null.String `json:"attachmentUrl"`
	CreatedAt     time.Time   `json:"createdAt"` // UTC
	UpdatedAt     time.Time   `json:"updatedAt"` // UTC
}

type CourseGroup struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description null.String  `json:"description"`
	Subject     core.Subject `json:"subject"`
	CourseCount int          `json:"courseCount"`
	CreatedAt   time.Time    `json:"createdAt"` // UTC
}

func (g CourseGroup) Summary() *GroupSummary {
	return &GroupSummary{ID: g.ID, Name: g.Name, Subject: g.Subject, Description: g.Description}
}

// CourseFilter narrows course listings. Empty fields do not filter.
type CourseFilter struct {
	Subject       core.Subject `query:"subject"`
	Level         core.Level   `query:"level"`
	GroupID       string       `query:"groupId"`
	Search        string       `query:"search"`
	OwnerID       string       `query:"-"`
	PublishedOnly bool         `query:"-"`
}

func (cf *CourseFilter) Clean() {
	cf.Search = core.CleanString(cf.Search)
	cf.GroupID = core.CleanString(cf.GroupID)
}

// NewCourse contains information needed to create a Course.
type NewCourse struct {
	Title       string       `json:"title" validate:"required,min=4,max=120"`
	Description string       `json:"description" validate:"required,min=20,max=1200"`
	Level       core.Level   `json:"level" validate:"required,level"`
	Subject     core.Subject `json:"subject" validate:"required,subject"`
	Price       core.Money   `json:"price" validate:"money"`
	IsPublished bool         `json:"isPublished"`
	GroupID     string       `json:"groupId" validate:"omitempty,uuid"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.GroupID = core.CleanString(nc.GroupID)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       *string     `json:"title" validate:"omitempty,min=4,max=120"`
	Description *string     `json:"description" validate:"omitempty,min=20,max=1200"`
	Level       *core.Level `json:"level" validate:"omitempty,level"`
	Price       *core.Money `json:"price" validate:"omitempty,money"`
	IsPublished *bool       `json:"isPublished"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanStringPtr(uc.Title)
	uc.Description = core.CleanStringPtr(uc.Description)
	return validate.Struct(uc)
}

// NewLesson contains information needed to add a Lesson to a Course.
// A zero OrderIndex appends the lesson.
type NewLesson struct {
	Title         string `json:"title" validate:"required,min=4,max=160"`
	Description   string `json:"description" validate:"required,min=10,max=1200"`
	VideoURL      string `json:"videoUrl" validate:"required,url"`
	HomeworkText  string `json:"homeworkText" validate:"required,min=10,max=3000"`
	AttachmentURL string `json:"attachmentUrl" validate:"omitempty,url"`
	OrderIndex    int    `json:"orderIndex" validate:"omitempty,min=1"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	nl.HomeworkText = core.CleanString(nl.HomeworkText)
	nl.AttachmentURL = core.CleanString(nl.AttachmentURL)
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
// A non-nil OrderIndex moves the lesson; an empty AttachmentURL removes the attachment.
type UpdateLesson struct {
	Title         *string `json:"title" validate:"omitempty,min=4,max=160"`
	Description   *string `json:"description" validate:"omitempty,min=10,max=1200"`
	VideoURL      *string `json:"videoUrl" validate:"omitempty,url"`
	HomeworkText  *string `json:"homeworkText" validate:"omitempty,min=10,max=3000"`
	AttachmentURL *string `json:"attachmentUrl" validate:"omitempty,url"`
	OrderIndex    *int    `json:"orderIndex" validate:"omitempty,min=1"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	ul.Title = core.CleanStringPtr(ul.Title)
	ul.Description = core.CleanStringPtr(ul.Description)
	ul.VideoURL = core.CleanStringPtr(ul.VideoURL)
	ul.HomeworkText = core.CleanStringPtr(ul.HomeworkText)
	ul.AttachmentURL = core.CleanStringPtr(ul.AttachmentURL)

	check := *ul
	check.AttachmentURL = core.NilIfEmpty(ul.AttachmentURL)
	return validate.Struct(check)
}

type NewGroup struct {
	Name        string       `json:"name" validate:"required,min=2,max=120"`
	Description string       `json:"description" validate:"omitempty,max=500"`
	Subject     core.Subject `json:"subject" validate:"required,subject"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Description = core.CleanString(ng.Description)
	return validate.Struct(ng)
}
