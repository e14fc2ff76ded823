package collection

import (
	"errors"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/binyominzeev/vidfaq/pkg/models"
)

// CreateEntryInput is the payload for adding a video to a collection
// ThumbnailKey adopts an object returned by PreviewThumbnail instead of fetching again.
type CreateEntryInput struct {
	SourceURL    string  `json:"source_url"`
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	ThumbnailKey *string `json:"thumbnail_key,omitempty"`
}

func (in *CreateEntryInput) normalize() {
	in.SourceURL = strings.TrimSpace(in.SourceURL)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = trimOptional(in.Description)
	if key := trimOptional(in.ThumbnailKey); key != nil {
		trimmed := strings.TrimPrefix(*key, "/")
		in.ThumbnailKey = &trimmed
		if trimmed == "" {
			in.ThumbnailKey = nil
		}
	}
}

// Validate checks field constraints
func (in CreateEntryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.SourceURL,
			validation.Required.Error("source url is required"),
			is.URL.Error("source url must be a valid URL"),
			validation.By(absoluteHTTPURL),
		),
		validation.Field(&in.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(1, models.MaxTitleLength),
		),
		validation.Field(&in.Description,
			validation.RuneLength(0, models.MaxDescriptionLength),
		),
	)
}

// UpdateEntryInput is a partial edit of an entry. Nil fields are left unchanged.
// An empty description clears it.
type UpdateEntryInput struct {
	SourceURL   *string `json:"source_url,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Slug        *string `json:"slug,omitempty"`
}

func (in *UpdateEntryInput) normalize() {
	in.SourceURL = trimOptional(in.SourceURL)
	in.Title = trimOptional(in.Title)
	in.Description = trimOptional(in.Description)
	in.Slug = trimOptional(in.Slug)
}

// Validate checks field constraints of the fields present
func (in UpdateEntryInput) Validate() error {
	if in.SourceURL == nil && in.Title == nil && in.Description == nil && in.Slug == nil {
		return errors.New("no fields to update")
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.SourceURL,
			validation.When(in.SourceURL != nil,
				validation.Required.Error("source url cannot be empty"),
				is.URL.Error("source url must be a valid URL"),
				validation.By(absoluteHTTPURL),
			),
		),
		validation.Field(&in.Title,
			validation.When(in.Title != nil,
				validation.Required.Error("title cannot be empty"),
				validation.RuneLength(1, models.MaxTitleLength),
			),
		),
		validation.Field(&in.Description,
			validation.RuneLength(0, models.MaxDescriptionLength),
		),
		validation.Field(&in.Slug,
			validation.When(in.Slug != nil,
				validation.Required.Error("slug cannot be empty"),
			),
		),
	)
}

// ReorderInput describes a single drag-and-drop move
type ReorderInput struct {
	EntryID   string `json:"entry_id"`
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
}

// Validate checks field constraints
func (in ReorderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.EntryID, validation.Required, is.UUID),
		validation.Field(&in.FromIndex, validation.Min(0)),
		validation.Field(&in.ToIndex, validation.Min(0)),
	)
}

func absoluteHTTPURL(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case *string:
		if v == nil {
			return nil
		}
		raw = *v
	default:
		return errors.New("must be a string")
	}
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func validateSourceURL(raw string) error {
	return validation.Validate(strings.TrimSpace(raw),
		validation.Required.Error("source url is required"),
		is.URL.Error("source url must be a valid URL"),
		validation.By(absoluteHTTPURL),
	)
}
