package dto

// EmptyRequest is used by endpoints without input.
type EmptyRequest struct{}

// Validate is a no-op.
func (r *EmptyRequest) Validate() error { return nil }

// IDRequest addresses one record by the {id} path parameter.
type IDRequest struct {
	ID int `path:"id" json:"-" validate:"min=1"`
}

// Validate validates the id.
func (r *IDRequest) Validate() error { return check(r) }

// --- Auth ---

// RegisterRequest is a request to create an account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Validate validates the register request fields.
func (r *RegisterRequest) Validate() error { return check(r) }

// LoginRequest is a request to log in.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate validates the login request fields.
func (r *LoginRequest) Validate() error { return check(r) }

// ChangePasswordRequest is a request to change the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// Validate validates the change password request fields.
func (r *ChangePasswordRequest) Validate() error { return check(r) }

// --- Notes ---

// ListNotesRequest lists the caller's notes, optionally by tag and by text
// found in the title or content.
type ListNotesRequest struct {
	Tag    string `query:"tag" json:"-"`
	Search string `query:"search" json:"-" validate:"max=200"`
}

// Validate validates the request.
func (r *ListNotesRequest) Validate() error { return check(r) }

// NoteRequest creates or updates a note. ID is only set on update.
type NoteRequest struct {
	ID              int      `path:"id" json:"-"`
	Title           string   `json:"title" validate:"required,max=200"`
	ContentMarkdown string   `json:"content_markdown" validate:"max=1000000"`
	Tags            []string `json:"tags" validate:"max=32,dive,max=50"`
}

// Validate validates the note fields.
func (r *NoteRequest) Validate() error { return check(r) }

// --- Todos ---

// ListTodosRequest lists the caller's to-dos, optionally by status.
type ListTodosRequest struct {
	Status string `query:"status" json:"-" validate:"omitempty,oneof=open done"`
}

// Validate validates the status filter.
func (r *ListTodosRequest) Validate() error { return check(r) }

// TodoRequest creates or updates a to-do. ID is only set on update.
type TodoRequest struct {
	ID          int    `path:"id" json:"-"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	DueDate     string `json:"opt_due_date" validate:"omitempty,datetime=2006-01-02"`
}

// Validate validates the to-do fields.
func (r *TodoRequest) Validate() error { return check(r) }

// CompleteTodoRequest marks a to-do done or open.
type CompleteTodoRequest struct {
	ID        int   `path:"id" json:"-" validate:"min=1"`
	Completed *bool `json:"completed" validate:"required"`
}

// Validate validates the request.
func (r *CompleteTodoRequest) Validate() error { return check(r) }

// --- Bookmarks ---

// ListBookmarksRequest lists the caller's bookmarks, optionally by category
// and by text found in the title, URL or description.
type ListBookmarksRequest struct {
	Category string `query:"category" json:"-"`
	Search   string `query:"search" json:"-" validate:"max=200"`
}

// Validate validates the request.
func (r *ListBookmarksRequest) Validate() error { return check(r) }

// BookmarkRequest creates or updates a bookmark. ID is only set on update.
type BookmarkRequest struct {
	ID          int    `path:"id" json:"-"`
	URL         string `json:"url" validate:"required,http_url,max=2048"`
	Title       string `json:"title" validate:"max=300"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"max=100"`
}

// Validate validates the bookmark fields.
func (r *BookmarkRequest) Validate() error { return check(r) }

// --- Expenses ---

// MonthRequest filters expenses by month (YYYY-MM).
type MonthRequest struct {
	Month string `query:"month" json:"-" validate:"omitempty,datetime=2006-01"`
}

// Validate validates the month.
func (r *MonthRequest) Validate() error { return check(r) }

// CreateTransactionRequest records an income or expense.
type CreateTransactionRequest struct {
	Type     string  `json:"type" validate:"required,oneof=income expense"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Category string  `json:"category" validate:"max=100"`
	Note     string  `json:"note" validate:"max=500"`
	Date     string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// Validate validates the transaction fields.
func (r *CreateTransactionRequest) Validate() error { return check(r) }

// --- Settings ---

// PrivacyRequest updates privacy toggles. Nil fields are left unchanged.
type PrivacyRequest struct {
	ShowEmail  *bool `json:"show_email"`
	Newsletter *bool `json:"newsletter"`
}

// UpdateSettingsRequest updates settings. Empty or nil fields are left
// unchanged.
type UpdateSettingsRequest struct {
	Theme            string          `json:"theme" validate:"omitempty,oneof=light dark"`
	Language         string          `json:"language" validate:"omitempty,oneof=en bn"`
	Privacy          *PrivacyRequest `json:"privacy"`
	TwoFactorEnabled *bool           `json:"two_factor_enabled"`
}

// Validate validates the settings fields.
func (r *UpdateSettingsRequest) Validate() error { return check(r) }

// --- Profile ---

// UpdateProfileRequest replaces the editable profile fields.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"max=100"`
	Bio      string `json:"bio" validate:"max=2000"`
	Phone    string `json:"phone" validate:"omitempty,max=32,e164|numeric"`
}

// Validate validates the profile fields.
func (r *UpdateProfileRequest) Validate() error { return check(r) }

// --- Uploads ---

// FileRequest addresses a stored file by the {name} path parameter.
type FileRequest struct {
	Name string `path:"name" json:"-" validate:"required,max=255"`
}

// Validate validates the file name.
func (r *FileRequest) Validate() error { return check(r) }

// --- Admin ---

// ListLogsRequest lists the most recent audit entries.
type ListLogsRequest struct {
	Limit int `query:"limit" json:"-" validate:"gte=0,lte=1000"`
}

// Validate validates the limit.
func (r *ListLogsRequest) Validate() error { return check(r) }
