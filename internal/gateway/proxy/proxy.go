package proxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Proxy Handler
// ============================================================

// Заголовки, которые не пробрасываются между хопами.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Content-Length":    true,
}

// forwardedRequestHeaders: что уходит из запроса клиента в сервис.
var forwardedRequestHeaders = []string{
	fiber.HeaderContentType,
	fiber.HeaderAuthorization,
	fiber.HeaderAccept,
	fiber.HeaderAcceptLanguage,
	fiber.HeaderOrigin,
}

type Proxy struct {
	client *resty.Client
	log    *zap.Logger
}

func New(targetURL string, log *zap.Logger) *Proxy {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(targetURL, "/")).
		SetTimeout(60 * time.Second)
	return &Proxy{client: client, log: log}
}

// Strip проксирует запрос, отрезав prefix от пути: /api/v1/properties -> /properties.
// Тело (включая multipart) уходит как есть вместе с исходным Content-Type.
func (p *Proxy) Strip(prefix string) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := strings.TrimPrefix(c.Path(), prefix)
		if path == "" {
			path = "/"
		}
		if qs := string(c.Request().URI().QueryString()); qs != "" {
			path += "?" + qs
		}
		return p.forward(c, path)
	}
}

func (p *Proxy) forward(c fiber.Ctx, path string) error {
	req := p.client.R().SetContext(c.Context())
	for _, h := range forwardedRequestHeaders {
		if v := c.Get(h); v != "" {
			req.SetHeader(h, v)
		}
	}
	if body := c.Body(); len(body) > 0 {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(c.Method(), path)
	if err != nil {
		p.log.Error("upstream request failed",
			zap.String("method", c.Method()),
			zap.String("path", path),
			zap.Error(err),
		)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "failed to reach upstream service"})
	}
	p.log.Debug("proxied",
		zap.String("method", c.Method()),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)

	for key, values := range resp.Header() {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			c.Response().Header.Add(key, v)
		}
	}
	c.Status(resp.StatusCode())
	return c.Send(resp.Body())
}

// Ping опрашивает /health/live сервиса; используется в readiness шлюза.
func (p *Proxy) Ping(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/health/live")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("upstream health: status %d", resp.StatusCode())
	}
	return nil
}
