// Package compose holds the write-post form: draft state, client-side validation and
// submission.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/bloggera/bloggera/internal/apiclient"
	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/richtext"
	"github.com/bloggera/bloggera/internal/validation"
)

// DefaultMaxImageBytes is the largest image accepted when none is configured.
const DefaultMaxImageBytes int64 = 5 * 1024 * 1024

// ErrSubmitting is returned by Submit while a previous submission is in flight.
var ErrSubmitting = errors.New("post submission already in progress")

var allowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png"}

// Poster creates posts.
type Poster interface {
	AddPost(ctx context.Context, post apiclient.NewPost) (string, error)
}

// Suggester ranks categories for search-as-you-type.
type Suggester interface {
	Suggest(ctx context.Context, query string, selected []domain.Category) ([]domain.Category, error)
}

// Image is an attachment chosen for the post.
type Image struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Size returns the image size in bytes.
func (i *Image) Size() int64 {
	return int64(len(i.Data))
}

// MediaType returns the declared content type, sniffing the data when none was given.
func (i *Image) MediaType() string {
	if ct := strings.TrimSpace(i.ContentType); ct != "" {
		return strings.ToLower(strings.SplitN(ct, ";", 2)[0])
	}
	return http.DetectContentType(i.Data)
}

// LoadImage reads an image file from disk.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return &Image{
		FileName:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// Draft is the state of the write-post form.
type Draft struct {
	Title      string
	Content    string
	Categories []domain.Category
	Image      *Image
}

// draftForm is what the validator sees. Field order is the order failures are reported in.
type draftForm struct {
	Title      string   `field:"title" validate:"required"`
	Content    string   `field:"content" validate:"richtext"`
	Categories []string `field:"category" validate:"min=1"`
	ImageType  string   `field:"image" validate:"omitempty,imagetype"`
	ImageSize  int64    `field:"image" validate:"imagesize"`
}

// Options configures a Composer.
type Options struct {
	MaxImageBytes int64
	Suggester     Suggester
	Logger        *slog.Logger
}

// Composer owns one draft. It is safe for concurrent use.
type Composer struct {
	api       Poster
	suggester Suggester
	validator *validation.Validator
	logger    *slog.Logger

	mu         sync.Mutex
	draft      Draft
	submitting bool
}

// New creates a Composer with an empty draft.
func New(api Poster, opts Options) (*Composer, error) {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	v, err := newValidator(opts.MaxImageBytes)
	if err != nil {
		return nil, err
	}

	return &Composer{
		api:       api,
		suggester: opts.Suggester,
		validator: v,
		logger:    opts.Logger.With("component", "composer"),
	}, nil
}

func newValidator(maxImageBytes int64) (*validation.Validator, error) {
	v := validation.New()

	if err := v.Register("richtext", "content is required", func(fl validator.FieldLevel) bool {
		return !richtext.IsBlank(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	if err := v.Register("imagetype", "image must be a JPEG or PNG file", func(fl validator.FieldLevel) bool {
		return slices.Contains(allowedImageTypes, fl.Field().String())
	}); err != nil {
		return nil, err
	}
	limit := fmt.Sprintf("image must be at most %s", humanBytes(maxImageBytes))
	if err := v.Register("imagesize", limit, func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= maxImageBytes
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.draft
	d.Categories = slices.Clone(d.Categories)
	return d
}

// SetTitle replaces the title.
func (c *Composer) SetTitle(title string) {
	c.mu.Lock()
	c.draft.Title = title
	c.mu.Unlock()
}

// SetContent replaces the HTML body.
func (c *Composer) SetContent(html string) {
	c.mu.Lock()
	c.draft.Content = html
	c.mu.Unlock()
}

// AddCategory selects cat. Selecting an already selected category is a no-op.
func (c *Composer) AddCategory(cat domain.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.ContainsFunc(c.draft.Categories, func(s domain.Category) bool { return s.ID == cat.ID }) {
		return
	}
	c.draft.Categories = append(c.draft.Categories, cat)
}

// RemoveCategory deselects the category with id.
func (c *Composer) RemoveCategory(id string) {
	c.mu.Lock()
	c.draft.Categories = slices.DeleteFunc(c.draft.Categories, func(s domain.Category) bool { return s.ID == id })
	c.mu.Unlock()
}

// SetImage attaches img, or removes the attachment when img is nil.
func (c *Composer) SetImage(img *Image) {
	c.mu.Lock()
	c.draft.Image = img
	c.mu.Unlock()
}

// Suggestions ranks unselected categories against query.
func (c *Composer) Suggestions(ctx context.Context, query string) ([]domain.Category, error) {
	if c.suggester == nil {
		return nil, nil
	}
	return c.suggester.Suggest(ctx, query, c.Draft().Categories)
}

// Validate checks the draft without contacting the server.
func (c *Composer) Validate() error {
	return c.validate(c.Draft())
}

func (c *Composer) validate(d Draft) error {
	form := draftForm{
		Title:      strings.TrimSpace(d.Title),
		Content:    d.Content,
		Categories: make([]string, 0, len(d.Categories)),
	}
	for _, cat := range d.Categories {
		form.Categories = append(form.Categories, cat.ID)
	}
	if d.Image != nil {
		form.ImageType = d.Image.MediaType()
		form.ImageSize = d.Image.Size()
	}
	return c.validator.Validate(form)
}

// Submit validates the draft and creates the post. The draft is cleared on success and
// kept on failure.
func (c *Composer) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return "", ErrSubmitting
	}
	d := c.draft
	d.Categories = slices.Clone(d.Categories)
	if err := c.validate(d); err != nil {
		c.mu.Unlock()
		return "", err
	}
	c.submitting = true
	c.mu.Unlock()

	post := apiclient.NewPost{
		Title:       strings.TrimSpace(d.Title),
		Content:     d.Content,
		CategoryIDs: make([]string, 0, len(d.Categories)),
	}
	for _, cat := range d.Categories {
		post.CategoryIDs = append(post.CategoryIDs, cat.ID)
	}
	if d.Image != nil {
		post.Image = &apiclient.Upload{
			FileName:    d.Image.FileName,
			ContentType: d.Image.MediaType(),
			Data:        d.Image.Data,
		}
	}

	postID, err := c.api.AddPost(ctx, post)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		c.logger.WarnContext(ctx, "post submission failed", "error", err)
		return "", err
	}

	c.draft = Draft{}
	c.logger.InfoContext(ctx, "post created", "post_id", postID, "categories", len(post.CategoryIDs))
	return postID, nil
}

// Reset clears the draft.
func (c *Composer) Reset() {
	c.mu.Lock()
	c.draft = Draft{}
	c.mu.Unlock()
}

func humanBytes(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	if n >= 1024 && n%1024 == 0 {
		return fmt.Sprintf("%d KB", n/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}
