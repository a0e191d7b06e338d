package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// ErrorMessage is the body of every failed request
// @swagger:model ErrorMessage
type ErrorMessage struct {
	Message string `json:"message"`
}

func HttpError(w http.ResponseWriter, message string, statusCode int, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(ErrorMessage{Message: message})
	if err != nil {
		logger.Error("Failed to encode error message", zap.Error(err))
	}
}

func writeJson(w http.ResponseWriter, body interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		logger.Error("Error encountered when encoding response", zap.Error(err))
		HttpError(w, "Internal server error", http.StatusInternalServerError, logger)
	}
}

func closeBody(body io.ReadCloser, logger *zap.Logger) {
	err := body.Close()
	if err != nil {
		logger.Error("Error encountered when closing request body", zap.Error(err))
	}
}
