package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-imaging-report/internal/config"
	apperrors "go-imaging-report/internal/errors"
	"go-imaging-report/internal/logger"
	"go-imaging-report/internal/report"
	"go-imaging-report/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

func NewHandler(svc service.ReportService, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.POST("/analyze-image", analyzeImage(svc, cfg))
	r.GET("/reports", listReports(svc))
	r.GET("/reports/:filename", downloadReport(svc))

	return r
}

func analyzeImage(svc service.ReportService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		}).Info("Processing analysis request")

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondError(c, http.StatusBadRequest, "missing image file; use 'file' as the form field name", err)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to open uploaded file", err)
			return
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read uploaded file", err)
			return
		}

		patient, err := parsePatientContext(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid patient metadata", err)
			return
		}

		resp, err := svc.AnalyzeImage(ctx, raw, fileHeader.Filename, patient)
		if err != nil {
			statusCode := determineStatusCode(err)
			respondError(c, statusCode, "analysis failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"filename":           fileHeader.Filename,
			"report_id":          resp.ReportID,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Analysis request completed")

		c.JSON(http.StatusOK, resp)
	}
}

func listReports(svc service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := svc.ListReports(c.Request.Context())
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to list reports", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": docs})
	}
}

func downloadReport(svc service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename := c.Param("filename")
		doc, err := svc.GetReport(c.Request.Context(), filename)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to load report", err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func parsePatientContext(c *gin.Context) (report.PatientContext, error) {
	var patient report.PatientContext
	if ageStr := c.Query("age"); ageStr != "" {
		age, err := strconv.Atoi(ageStr)
		if err != nil || age < 0 || age > 150 {
			return patient, fmt.Errorf("invalid age %q", ageStr)
		}
		patient.Age = &age
	}
	patient.Sex = c.Query("sex")
	return patient, nil
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Details != "" {
		resp.Details = appErr.Details
	}
	c.AbortWithStatusJSON(code, resp)
}
