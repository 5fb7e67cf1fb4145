package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-Id"

// Handler adapts API Gateway proxy events onto the HTTP router so the Lambda
// and the standalone server expose the same routes.
type Handler struct {
	next   http.Handler
	logger *slog.Logger
}

func NewHandler(next http.Handler, logger *slog.Logger) (*Handler, error) {
	if next == nil {
		return nil, errors.New("handler: http handler must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{next: next, logger: logger}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID)

	req, err := toRequest(ctx, event)
	if err != nil {
		logger.Warn("invalid proxy event", "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers: map[string]string{
				"Content-Type":    "application/json",
				correlationHeader: correlationID,
			},
			Body: `{"ok":false,"error":"invalid request"}`,
		}, nil
	}
	req.Header.Set(correlationHeader, correlationID)

	rec := newResponseRecorder()
	h.next.ServeHTTP(rec, req)

	resp := events.APIGatewayProxyResponse{
		StatusCode:        rec.status,
		Headers:           map[string]string{},
		MultiValueHeaders: map[string][]string{},
		Body:              rec.body.String(),
	}
	for key, values := range rec.header {
		if len(values) == 0 {
			continue
		}
		resp.Headers[key] = values[len(values)-1]
		resp.MultiValueHeaders[key] = append([]string(nil), values...)
	}
	resp.Headers[correlationHeader] = correlationID
	resp.MultiValueHeaders[correlationHeader] = []string{correlationID}

	logger.Debug("proxy request handled", "method", event.HTTPMethod, "path", event.Path, "status", rec.status)
	return resp, nil
}

func toRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		body = decoded
	}

	path := event.Path
	if path == "" {
		path = "/"
	}
	target := &url.URL{Path: path, RawQuery: queryString(event).Encode()}

	method := event.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for key, values := range event.MultiValueHeaders {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, v := range event.Headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, v)
		}
	}
	req.RemoteAddr = event.RequestContext.Identity.SourceIP
	return req, nil
}

func queryString(event events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for key, values := range event.MultiValueQueryStringParameters {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	for key, v := range event.QueryStringParameters {
		if !q.Has(key) {
			q.Set(key, v)
		}
	}
	return q
}

// headerValue looks up an API Gateway header case-insensitively.
func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

type responseRecorder struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: http.Header{}, status: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	return r.body.Write(p)
}
