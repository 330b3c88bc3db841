package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every portal endpoint replies with.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// OK sends a 200 response. An optional meta value carries page-level flags
// such as the degraded-stage marker.
func OK(c *fiber.Ctx, data interface{}, message string, meta ...interface{}) error {
	return send(c, fiber.StatusOK, data, message, meta...)
}

// Created sends a 201 response for successful creates.
func Created(c *fiber.Ctx, data interface{}, message string) error {
	return send(c, fiber.StatusCreated, data, message)
}

// Fail sends an error response. An optional details value carries
// field-level validation information.
func Fail(c *fiber.Ctx, status int, message string, details ...interface{}) error {
	if message == "" {
		message = "error"
	}

	response := APIResponse{
		Success: false,
		Message: message,
	}
	if len(details) > 0 && details[0] != nil {
		response.Details = details[0]
	}

	return c.Status(status).JSON(response)
}

func send(c *fiber.Ctx, status int, data interface{}, message string, meta ...interface{}) error {
	if message == "" {
		message = "success"
	}

	response := APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
	if len(meta) > 0 && meta[0] != nil {
		response.Meta = meta[0]
	}

	return c.Status(status).JSON(response)
}
