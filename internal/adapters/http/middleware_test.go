package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestEtagMatches(t *testing.T) {
	const etag = `W/"abc"`
	cases := map[string]bool{
		"":                false,
		"*":               true,
		`W/"abc"`:         true,
		`"abc"`:           true,
		`"x", W/"abc"`:    true,
		`W/"abd"`:         false,
		`  "x" ,  "abc" `: true,
	}
	for header, want := range cases {
		if got := etagMatches(header, etag); got != want {
			t.Errorf("etagMatches(%q) = %v, want %v", header, got, want)
		}
	}
}

func TestETagMiddleware_NotModified(t *testing.T) {
	app := fiber.New()
	app.Use(ETagMiddleware())
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString("hello") })

	resp, _ := app.Test(httptest.NewRequest("GET", "/x", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag")
	}

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != fiber.StatusNotModified {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestETagMiddleware_SkipsNoStore(t *testing.T) {
	app := fiber.New()
	app.Use(ETagMiddleware())
	app.Get("/x", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "private, no-store")
		return c.SendString("secret")
	})

	resp, _ := app.Test(httptest.NewRequest("GET", "/x", nil), -1)
	if resp.Header.Get("ETag") != "" {
		t.Error("expected no ETag on no-store response")
	}
}

func TestSetLinkHeaders_KeepsFilters(t *testing.T) {
	app := fiber.New()
	app.Get("/v1/products", func(c *fiber.Ctx) error {
		SetLinkHeaders(c, Pagination{Offset: 20, Limit: 20, Total: 100})
		return nil
	})

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/products?category=bikes&offset=20&limit=20", nil), -1)
	link := resp.Header.Get("Link")
	for _, want := range []string{
		`</v1/products?category=bikes&limit=20&offset=0>; rel="first"`,
		`</v1/products?category=bikes&limit=20&offset=0>; rel="prev"`,
		`</v1/products?category=bikes&limit=20&offset=40>; rel="next"`,
		`</v1/products?category=bikes&limit=20&offset=80>; rel="last"`,
	} {
		if !strings.Contains(link, want) {
			t.Errorf("Link header missing %s\ngot: %s", want, link)
		}
	}
}

func TestCachingMiddleware_KeepsHandlerValue(t *testing.T) {
	app := fiber.New()
	app.Use(CachingMiddleware())
	app.Get("/v1/products/:id", func(c *fiber.Ctx) error { return c.SendString("p") })
	app.Get("/v1/location/:source/last", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "private, max-age=5")
		return c.SendString("l")
	})

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/products/p1", nil), -1)
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=600" {
		t.Errorf("expected product default, got %q", cc)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/location/bus-1/last", nil), -1)
	if cc := resp.Header.Get("Cache-Control"); cc != "private, max-age=5" {
		t.Errorf("expected handler value kept, got %q", cc)
	}
}
