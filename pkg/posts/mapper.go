package posts

import (
	"github.com/nimburion/postsvc/pkg/repository/document"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// ResourceName is used in error messages and logs.
	ResourceName = "post"
	// CollectionName is the MongoDB collection holding posts.
	CollectionName = "post"

	fieldID     = "_id"
	fieldName   = "name"
	fieldAuthor = "author"
)

// Mapper translates between Post and its MongoDB document.
type Mapper struct{}

var _ document.Mapper[Post, Post] = Mapper{}

func (Mapper) Name() string       { return ResourceName }
func (Mapper) Collection() string { return CollectionName }

// ToFilter keeps only the fields that are set. An id that is not a valid ObjectID hex
// is dropped from the filter.
func (Mapper) ToFilter(q Post) document.Filter {
	f := document.Filter{}
	if q.ID != nil {
		if oid, err := primitive.ObjectIDFromHex(*q.ID); err == nil {
			f[fieldID] = oid
		}
	}
	if q.Name != nil {
		f[fieldName] = *q.Name
	}
	if q.Author != nil {
		f[fieldAuthor] = *q.Author
	}
	return f
}

// ToDocument is the insert projection; it has the same shape as the filter.
func (m Mapper) ToDocument(p Post) document.Document {
	return document.Document(m.ToFilter(p))
}

// ToUpdate is the $set payload: every set field except the identifier.
func (m Mapper) ToUpdate(p Post) document.Document {
	d := m.ToDocument(p)
	delete(d, fieldID)
	return d
}

// FromDocument reads a stored document. Missing or mistyped fields stay unset.
func (Mapper) FromDocument(d document.Document) Post {
	var p Post
	switch id := d[fieldID].(type) {
	case primitive.ObjectID:
		hex := id.Hex()
		p.ID = &hex
	case string:
		p.ID = &id
	}
	if v, ok := d[fieldName].(string); ok {
		p.Name = &v
	}
	if v, ok := d[fieldAuthor].(string); ok {
		p.Author = &v
	}
	return p
}

func (Mapper) SetIdentifier(p *Post, id string) {
	p.ID = &id
}
