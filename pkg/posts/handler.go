package posts

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/controller"
	"github.com/nimburion/postsvc/pkg/observability/logger"
	"github.com/nimburion/postsvc/pkg/repository/document"
	"github.com/nimburion/postsvc/pkg/server/router"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service is the document service the handlers delegate to.
type Service interface {
	GetOne(ctx context.Context, query Post) (Post, error)
	GetMany(ctx context.Context, query Post, page document.Pagination) ([]Post, error)
	Create(ctx context.Context, record Post) (Post, error)
	Update(ctx context.Context, query Post, record Post) (Post, error)
	Delete(ctx context.Context, query Post) error
}

// NewService builds the post document service. Listings are ordered by identifier,
// which for ObjectIDs is creation order.
func NewService(executor document.Executor, log logger.Logger) (*document.Service[Post, Post], error) {
	return document.NewService[Post, Post](executor, Mapper{}, log,
		document.WithSort(document.Sort{Field: fieldID, Order: document.SortAsc}),
	)
}

// Handler serves the /posts routes.
type Handler struct {
	service Service
	logger  logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(service Service, log logger.Logger) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("post service is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Handler{service: service, logger: log}, nil
}

// RegisterRoutes mounts the post routes on r.
func (h *Handler) RegisterRoutes(r router.Router) {
	r.GET("/posts/:id", h.getOne)
	r.GET("/posts", h.getMany)
	r.POST("/posts", h.create)
	r.PUT("/posts/:id", h.update)
	r.DELETE("/posts/:id", h.delete)
}

func (h *Handler) getOne(c router.Context) error {
	query, err := identifierQuery(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	post, err := h.service.GetOne(c.Request().Context(), query)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.OK(c, post)
}

func (h *Handler) getMany(c router.Context) error {
	page, err := bindPagination(c)
	if err != nil {
		return h.fail(c, err)
	}
	query := bindQuery(c)
	if query.ID != nil && !primitive.IsValidObjectID(*query.ID) {
		return controller.OK(c, []Post{})
	}
	posts, err := h.service.GetMany(c.Request().Context(), query, page)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.OK(c, posts)
}

func (h *Handler) create(c router.Context) error {
	payload, err := bindUpsert(c)
	if err != nil {
		return h.fail(c, err)
	}
	post, err := h.service.Create(c.Request().Context(), payload.ToPost())
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, post)
}

func (h *Handler) update(c router.Context) error {
	payload, err := bindUpsert(c)
	if err != nil {
		return h.fail(c, err)
	}
	query, err := identifierQuery(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	post, err := h.service.Update(c.Request().Context(), query, payload.ToPost())
	if err != nil {
		return h.fail(c, err)
	}
	return controller.OK(c, post)
}

func (h *Handler) delete(c router.Context) error {
	query, err := identifierQuery(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.service.Delete(c.Request().Context(), query); err != nil {
		return h.fail(c, err)
	}
	return controller.Empty(c)
}

func bindUpsert(c router.Context) (PostUpsert, error) {
	var payload PostUpsert
	if err := c.Bind(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return payload, apperror.TooLarge(tooLarge.Limit)
		}
		return payload, apperror.BadRequest(err.Error(), err)
	}
	return payload, nil
}

// fail writes the error response. Server-side failures are logged; client errors are not.
func (h *Handler) fail(c router.Context, err error) error {
	status, body := controller.MapError(c.Request().Context(), err)
	if status >= 500 {
		h.logger.WithContext(c.Request().Context()).Error("post request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", status,
			"error", err,
		)
	}
	return c.JSON(status, body)
}
