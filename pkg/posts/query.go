package posts

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/repository/document"
	"github.com/nimburion/postsvc/pkg/server/router"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bindQuery reads the optional id, name and author query parameters. A parameter that
// is not present leaves the field unset; an empty value is an equality match on "".
func bindQuery(c router.Context) Post {
	var q Post
	if v, ok := c.QueryValue("id"); ok {
		q.ID = &v
	}
	if v, ok := c.QueryValue("name"); ok {
		q.Name = &v
	}
	if v, ok := c.QueryValue("author"); ok {
		q.Author = &v
	}
	return q
}

// bindPagination reads number and count. Non-integer values are rejected; negative
// values are accepted and fall back to the defaults.
func bindPagination(c router.Context) (document.Pagination, error) {
	var p document.Pagination
	for _, param := range []struct {
		name string
		dst  **int64
	}{
		{name: "number", dst: &p.Number},
		{name: "count", dst: &p.Count},
	} {
		raw, ok := c.QueryValue(param.name)
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return p, apperror.BadRequest(fmt.Sprintf("query parameter %q must be an integer, got %q", param.name, raw), err).
				WithDetails(map[string]interface{}{"parameter": param.name})
		}
		*param.dst = &v
	}
	return p, nil
}

// identifierQuery builds the single-post query from the path. An id that is not an
// ObjectID can never match a stored post, so it is answered as not found rather than
// being dropped from the filter.
func identifierQuery(id string) (Post, error) {
	q := FromIdentifier(id)
	if primitive.IsValidObjectID(id) {
		return q, nil
	}
	encoded, err := json.Marshal(q)
	if err != nil {
		return q, apperror.Internal(fmt.Sprintf("failed to serialize %s query", ResourceName), err)
	}
	return q, apperror.NotFound(fmt.Sprintf("A %s with given filter: '%s' not found", ResourceName, encoded)).
		WithDetails(map[string]interface{}{
			"resource": ResourceName,
			"filter":   json.RawMessage(encoded),
		})
}
