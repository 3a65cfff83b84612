package controller

import (
	"net/http"

	"github.com/nimburion/postsvc/pkg/server/router"
)

// OK writes v as a 200 JSON body.
func OK(c router.Context, v interface{}) error {
	return c.JSON(http.StatusOK, v)
}

// Created writes v as a 201 JSON body.
func Created(c router.Context, v interface{}) error {
	return c.JSON(http.StatusCreated, v)
}

// Empty writes a 200 with an empty body.
func Empty(c router.Context) error {
	c.Response().WriteHeader(http.StatusOK)
	return nil
}

// Error writes the mapped error response for err.
func Error(c router.Context, err error) error {
	status, body := MapError(c.Request().Context(), err)
	return c.JSON(status, body)
}
