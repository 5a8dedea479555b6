package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every JSON endpoint answers with. Data is omitted on errors;
// Details carries field level validation failures or limiter figures.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func write(c *fiber.Ctx, status int, body APIResponse) error {
	if body.Message == "" {
		body.Message = "success"
		if !body.Success {
			body.Message = "error"
		}
	}
	if status == 0 {
		status = fiber.StatusOK
		if !body.Success {
			status = fiber.StatusInternalServerError
		}
	}
	return c.Status(status).JSON(body)
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: message})
}

// SendSuccessWithStatus answers with data under a non-200 status, e.g. 201 for a new
// submission or 503 for a degraded health report that still carries probe results.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	return write(c, status, APIResponse{Success: true, Data: data, Message: message})
}

// Created answers 201 with the new resource.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusCreated, message, data)
}

// OK answers 200 with data plus pagination or cache metadata.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: message, Meta: meta})
}

// SendError answers with a bare error message.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail answers with an error message and optional details.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return write(c, status, APIResponse{Message: message, Details: details})
}
