package metadata

import (
	"strconv"
	"strings"

	"mymediarelease-backend/pkg/models"
)

const (
	FactoryID   = "19d2209e-6701-46ec-ae05-33b4a3e741f1"
	ReleaseType = "audio"

	defaultContentType = "application/octet-stream"
)

type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

func (b *Blob) empty() bool {
	return b == nil || len(b.Data) == 0
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// AssetBundle is the caller's description of a release before it is stored.
type AssetBundle struct {
	Artist      string
	Name        string
	Description string
	Image       *Blob
	Audio       *Blob
	Attributes  []Attribute
	Licence     *Blob
	Documents   []Blob
}

// Payload is the exact shape handed to a content store. Optional parts are
// nil when absent.
type Payload struct {
	Artist      string
	Name        string
	Description string
	FactoryID   string
	ReleaseType string
	Image       Blob
	Audio       Blob
	Attributes  []Attribute
	Licence     *Blob
	Documents   []Blob
}

// File is one binary part of a payload addressed by its document field path.
type File struct {
	Field string
	Blob  Blob
}

// Files lists the binary parts in document order: image, audio, licence, documents.N.
func (p *Payload) Files() []File {
	files := []File{
		{Field: "image", Blob: p.Image},
		{Field: "audio", Blob: p.Audio},
	}
	if p.Licence != nil {
		files = append(files, File{Field: "licence", Blob: *p.Licence})
	}
	for i, d := range p.Documents {
		files = append(files, File{Field: "documents." + strconv.Itoa(i), Blob: d})
	}

	return files
}

// Document renders the payload as the stored JSON document, using locate to
// turn every binary part into a locator.
func (p *Payload) Document(locate func(f File) string) Document {
	doc := Document{
		Artist:      p.Artist,
		Name:        p.Name,
		Description: p.Description,
		FactoryID:   p.FactoryID,
		ReleaseType: p.ReleaseType,
		Attributes:  p.Attributes,
	}

	for _, f := range p.Files() {
		loc := locate(f)
		switch {
		case f.Field == "image":
			doc.Image = loc
		case f.Field == "audio":
			doc.Audio = loc
		case f.Field == "licence":
			doc.Licence = loc
		default:
			doc.Documents = append(doc.Documents, loc)
		}
	}

	return doc
}

// Normalize turns a free-text attribute value into its stored form.
func Normalize(value string) string {
	return strings.ToLower(strings.Join(strings.Split(strings.TrimSpace(value), " "), "-"))
}

// Build validates a bundle and assembles its payload. Attribute values are
// normalized here and nowhere else. A licence without data counts as absent,
// while every listed document must carry data.
func Build(bundle AssetBundle) (*Payload, error) {
	if bundle.Image.empty() {
		return nil, models.NewInvalidInput("image", "is required")
	}
	if bundle.Image.ContentType == "" {
		return nil, models.NewInvalidInput("image", "mime type is required")
	}
	if bundle.Audio.empty() {
		return nil, models.NewInvalidInput("audio", "is required")
	}
	if bundle.Audio.ContentType == "" {
		return nil, models.NewInvalidInput("audio", "mime type is required")
	}

	p := &Payload{
		Artist:      bundle.Artist,
		Name:        bundle.Name,
		Description: bundle.Description,
		FactoryID:   FactoryID,
		ReleaseType: ReleaseType,
		Image:       copyBlob(*bundle.Image, "image"),
		Audio:       copyBlob(*bundle.Audio, "audio"),
	}

	if len(bundle.Attributes) > 0 {
		p.Attributes = make([]Attribute, 0, len(bundle.Attributes))
		for _, a := range bundle.Attributes {
			p.Attributes = append(p.Attributes, Attribute{
				TraitType: a.TraitType,
				Value:     Normalize(a.Value),
			})
		}
	}

	if !bundle.Licence.empty() {
		l := copyBlob(*bundle.Licence, "licence")
		p.Licence = &l
	}

	for i := range bundle.Documents {
		if bundle.Documents[i].empty() {
			return nil, models.NewInvalidInput("documents."+strconv.Itoa(i), "is empty")
		}
		p.Documents = append(p.Documents, copyBlob(bundle.Documents[i], "document-"+strconv.Itoa(i)))
	}

	return p, nil
}

func copyBlob(b Blob, fallbackName string) Blob {
	out := Blob{
		Name:        b.Name,
		ContentType: b.ContentType,
		Data:        append([]byte(nil), b.Data...),
	}
	if out.Name == "" {
		out.Name = fallbackName
	}
	if out.ContentType == "" {
		out.ContentType = defaultContentType
	}

	return out
}
