package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// errorResponse is the standard error body returned by all API endpoints.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// badRequest writes a 400 response with code BAD_REQUEST and the provided message.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Code: "BAD_REQUEST", Message: msg})
}

// notFound writes a 404 response with code NOT_FOUND for the given resource name.
func notFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: resource + " not found"})
}

// conflict writes a 409 response with code CONFLICT.
func conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, errorResponse{Code: "CONFLICT", Message: msg})
}

// unprocessable writes a 422 response with code UNPROCESSABLE.
func unprocessable(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, errorResponse{Code: "UNPROCESSABLE", Message: msg})
}

// serverError writes a 500 response with code INTERNAL_ERROR and the
// provided message.
func serverError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: msg})
}

// internalError writes a 500 response with code INTERNAL_ERROR from an error.
func internalError(c *gin.Context, err error) {
	serverError(c, err.Error())
}
