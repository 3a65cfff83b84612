// Package posts exposes the post resource: its record type, its document mapping and
// the HTTP handlers for /posts.
package posts

// Post is the stored record and doubles as the query type: every set field becomes an
// equality clause, unset fields match anything. ID is empty until the store assigns one.
type Post struct {
	ID     *string `json:"id"`
	Name   *string `json:"name"`
	Author *string `json:"author"`
}

// PostUpsert is the body accepted by create and update. It never carries an identifier.
type PostUpsert struct {
	Name   *string `json:"name"`
	Author *string `json:"author"`
}

// ToPost converts the payload into a record without an identifier.
func (u PostUpsert) ToPost() Post {
	return Post{Name: u.Name, Author: u.Author}
}

// FromIdentifier builds the query selecting a single post by id.
func FromIdentifier(id string) Post {
	return Post{ID: &id}
}
