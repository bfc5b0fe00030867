package listing

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Result tells which path a submission took.
type Result int

const (
	// ResultSkipped means no image was selected and nothing was sent.
	ResultSkipped Result = iota
	// ResultPosted means the backend answered with a JSON body.
	ResultPosted
	// ResultFailed means the request or the response decoding failed.
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultSkipped:
		return "skipped"
	case ResultPosted:
		return "posted"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Upload is the multipart payload built from a draft at submit time.
type Upload struct {
	Name     string
	Category string
	Image    Image
}

// Poster sends a listing upload to the items backend and returns the decoded
// JSON response.
type Poster interface {
	CreateItem(ctx context.Context, upload Upload) (any, error)
}

// Form holds the current draft of one listing and submits it.
//
// The draft pointer is swapped under a mutex, so Change, SelectImage and
// Submit may be called from different goroutines. Nothing prevents two
// submissions from being in flight at the same time.
type Form struct {
	poster Poster
	logger zerolog.Logger

	mu    sync.Mutex
	draft Draft
	wg    sync.WaitGroup
}

// Option configures a Form.
type Option func(*Form)

// WithLogger sets the logger that receives submission diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// NewForm creates a form with an empty draft.
func NewForm(poster Poster, opts ...Option) *Form {
	f := &Form{
		poster: poster,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Draft returns the current draft.
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Change replaces the draft with a copy where field has the given value.
func (f *Form) Change(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = f.draft.With(field, value)
}

// SelectImage replaces the draft image with the first of files. An empty
// selection leaves the draft as it is.
func (f *Form) SelectImage(files []Image) {
	if len(files) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = f.draft.WithImage(files[0])
}

// Submit sends the current draft to the backend. Without an image it returns
// ResultSkipped and does nothing else. Request and decode errors are logged,
// never returned, and the draft is left untouched either way.
func (f *Form) Submit(ctx context.Context) Result {
	draft := f.Draft()
	if !draft.HasImage() {
		return ResultSkipped
	}

	upload := Upload{
		Name:     draft.Name,
		Category: draft.Category,
		Image:    *draft.Image,
	}

	data, err := f.poster.CreateItem(ctx, upload)
	if err != nil {
		f.logger.Error().Err(err).Msg("POST error")
		return ResultFailed
	}

	f.logger.Info().Interface("response", data).Msg("POST success")
	return ResultPosted
}

// SubmitAsync runs Submit in a new goroutine on a background context, so the
// request outlives the caller. Wait blocks until all such goroutines finish.
func (f *Form) SubmitAsync() {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.Submit(context.Background())
	}()
}

// Wait blocks until every submission started with SubmitAsync has finished.
func (f *Form) Wait() {
	f.wg.Wait()
}
