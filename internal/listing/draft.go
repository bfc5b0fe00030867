package listing

// Field names used by the listing form. They double as the multipart part
// names of the outbound submission.
const (
	FieldName     = "name"
	FieldCategory = "category"
	FieldImage    = "image"
)

// Image is a file chosen by the user for the listing.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Draft is the in-progress item being listed. It is a value: changes return a
// new Draft and never modify the receiver.
type Draft struct {
	Name     string
	Category string
	Image    *Image
}

// With returns a copy of the draft with the named text field set to value.
// Unknown field names, including the image field, leave the copy unchanged.
func (d Draft) With(field, value string) Draft {
	switch field {
	case FieldName:
		d.Name = value
	case FieldCategory:
		d.Category = value
	}
	return d
}

// WithImage returns a copy of the draft holding img.
func (d Draft) WithImage(img Image) Draft {
	d.Image = &img
	return d
}

// HasImage reports whether an image has been selected.
func (d Draft) HasImage() bool {
	return d.Image != nil
}
